package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"brd/internal/config"
)

func TestLoadDefaultsWhenFileMissing(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Setenv("BRD_MAIL_DESTINATION", "")
	t.Setenv("BRD_MAIL_SENDER", "")
	t.Setenv("BRD_MAIL_PASSWORD", "")

	cfg, resolved, exists, err := config.Load(filepath.Join(tempHome, "missing.toml"))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if exists {
		t.Fatal("expected config file to be absent")
	}
	if resolved != filepath.Join(tempHome, "missing.toml") {
		t.Fatalf("unexpected resolved path %q", resolved)
	}
	if cfg.Listener.Bind != "0.0.0.0:9099" {
		t.Fatalf("unexpected bind: %q", cfg.Listener.Bind)
	}
	if cfg.ReadTimeout() != 10*time.Second {
		t.Fatalf("unexpected read timeout: %s", cfg.ReadTimeout())
	}
	wantState := filepath.Join(tempHome, ".local", "share", "brd")
	if cfg.Paths.StateDir != wantState {
		t.Fatalf("unexpected state dir: got %q want %q", cfg.Paths.StateDir, wantState)
	}
	if cfg.LockPath() != filepath.Join(wantState, "brd.lock") {
		t.Fatalf("unexpected lock path: %q", cfg.LockPath())
	}
	if cfg.Paths.DumpPrefix != "bug_reports" {
		t.Fatalf("unexpected dump prefix: %q", cfg.Paths.DumpPrefix)
	}
	if !cfg.Mail.RequireTLS {
		t.Fatal("expected mail to require TLS by default")
	}
	if cfg.MailEnabled() {
		t.Fatal("expected mail disabled without credentials")
	}
}

func TestLoadParsesFileAndMailEnvFallback(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("BRD_MAIL_PASSWORD", "from-env")
	path := filepath.Join(dir, "brd.toml")
	content := `
[listener]
bind = "127.0.0.1:7000"
read_timeout = 3

[paths]
state_dir = "` + filepath.Join(dir, "state") + `"
dump_dir = "` + filepath.Join(dir, "dumps") + `"

[mail]
destination = "ops@example.com"
sender = "brd@example.com"

[logging]
format = "JSON"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists {
		t.Fatal("expected config file to exist")
	}
	if cfg.Listener.Bind != "127.0.0.1:7000" {
		t.Fatalf("unexpected bind %q", cfg.Listener.Bind)
	}
	if cfg.ReadTimeout() != 3*time.Second {
		t.Fatalf("unexpected read timeout %s", cfg.ReadTimeout())
	}
	if cfg.Mail.Password != "from-env" {
		t.Fatalf("expected password from env, got %q", cfg.Mail.Password)
	}
	if !cfg.MailEnabled() {
		t.Fatal("expected mail enabled")
	}
	if cfg.Logging.Format != "json" {
		t.Fatalf("expected normalized format json, got %q", cfg.Logging.Format)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "dumps")); err != nil {
		t.Fatalf("expected dump dir created: %v", err)
	}
}

func TestLoadRejectsInvalidBind(t *testing.T) {
	path := filepath.Join(t.TempDir(), "brd.toml")
	if err := os.WriteFile(path, []byte("[listener]\nbind = \"nope\"\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, _, _, err := config.Load(path); err == nil || !strings.Contains(err.Error(), "listener.bind") {
		t.Fatalf("expected listener.bind error, got %v", err)
	}
}

func TestLoadRejectsPrefixWithSeparator(t *testing.T) {
	path := filepath.Join(t.TempDir(), "brd.toml")
	if err := os.WriteFile(path, []byte("[paths]\ndump_prefix = \"a/b\"\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, _, _, err := config.Load(path); err == nil || !strings.Contains(err.Error(), "dump_prefix") {
		t.Fatalf("expected dump_prefix error, got %v", err)
	}
}

func TestCreateSampleRoundTripsPassword(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "config.toml")
	if err := config.CreateSample(path, `pa"ss`); err != nil {
		t.Fatalf("CreateSample: %v", err)
	}
	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load sample: %v", err)
	}
	if !exists {
		t.Fatal("expected sample to exist")
	}
	if cfg.Mail.Password != `pa"ss` {
		t.Fatalf("unexpected password %q", cfg.Mail.Password)
	}
}

func TestRedactedHidesPassword(t *testing.T) {
	cfg := config.Default()
	cfg.Mail.Password = "secret"
	out, err := cfg.Redacted().Encode()
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if strings.Contains(out, "secret") {
		t.Fatalf("expected password redacted, got %s", out)
	}
	if cfg.Mail.Password != "secret" {
		t.Fatal("Redacted must not modify the original")
	}
}
