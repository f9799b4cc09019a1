package testsupport

import (
	"path/filepath"
	"testing"

	"brd/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// The listener binds an ephemeral loopback port.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Listener.Bind = "127.0.0.1:0"
	cfgVal.Listener.ReadTimeout = 2
	cfgVal.Paths.StateDir = filepath.Join(base, "state")
	cfgVal.Paths.DumpDir = filepath.Join(base, "dumps")

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}
	for _, opt := range opts {
		opt(builder)
	}
	if err := builder.cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	return builder.cfg
}

// WithBind overrides the listener address.
func WithBind(addr string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Listener.Bind = addr
	}
}

// WithMail fills in all three mail settings.
func WithMail(destination, sender, password string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Mail.Destination = destination
		b.cfg.Mail.Sender = sender
		b.cfg.Mail.Password = password
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.StateDir)
}
