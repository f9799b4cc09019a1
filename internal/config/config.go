package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Listener contains settings for the report listener.
type Listener struct {
	Bind            string `toml:"bind"`
	ReadTimeout     int    `toml:"read_timeout"`
	MaxPayloadBytes int64  `toml:"max_payload_bytes"`
}

// Paths contains directory configuration.
type Paths struct {
	StateDir   string `toml:"state_dir"`
	DumpDir    string `toml:"dump_dir"`
	DumpPrefix string `toml:"dump_prefix"`
}

// Mail contains the optional credentials for the test email path.
type Mail struct {
	Destination    string `toml:"destination"`
	Sender         string `toml:"sender"`
	Password       string `toml:"password"`
	SMTPHost       string `toml:"smtp_host"`
	SMTPPort       int    `toml:"smtp_port"`
	RequestTimeout int    `toml:"request_timeout"`
	RequireTLS     bool   `toml:"require_tls"`
	NotifyOnDump   bool   `toml:"notify_on_dump"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format     string `toml:"format"`
	Level      string `toml:"level"`
	MaxSizeMB  int    `toml:"max_size_mb"`
	MaxBackups int    `toml:"max_backups"`
}

// Config encapsulates all configuration values for brd.
type Config struct {
	Listener Listener `toml:"listener"`
	Paths    Paths    `toml:"paths"`
	Mail     Mail     `toml:"mail"`
	Logging  Logging  `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/brd/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized. A missing file is not an error; defaults apply.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		if _, err := os.Stat(expanded); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}
	projectPath, err := filepath.Abs("brd.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}
	return defaultPath, false, nil
}

// EnsureDirectories creates the state and dump directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.StateDir, c.Paths.DumpDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// MailEnabled reports whether destination, sender and password are all set.
func (c *Config) MailEnabled() bool {
	return strings.TrimSpace(c.Mail.Destination) != "" &&
		strings.TrimSpace(c.Mail.Sender) != "" &&
		c.Mail.Password != ""
}

// ReadTimeout returns the per-connection read deadline.
func (c *Config) ReadTimeout() time.Duration {
	return time.Duration(c.Listener.ReadTimeout) * time.Second
}

// MailTimeout returns the SMTP dial and send budget.
func (c *Config) MailTimeout() time.Duration {
	return time.Duration(c.Mail.RequestTimeout) * time.Second
}

// LockPath returns the single-instance lock file location.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.StateDir, "brd.lock")
}

// LogPath returns the rotating daemon log location.
func (c *Config) LogPath() string {
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		return ""
	}
	return filepath.Join(c.Paths.StateDir, "brd.log")
}

// Redacted returns a copy safe to print.
func (c Config) Redacted() Config {
	if c.Mail.Password != "" {
		c.Mail.Password = "********"
	}
	return c
}

// Encode renders the config as TOML.
func (c Config) Encode() (string, error) {
	data, err := toml.Marshal(c)
	if err != nil {
		return "", fmt.Errorf("encode config: %w", err)
	}
	return string(data), nil
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
// A non-empty password is substituted into the sample's mail section.
func CreateSample(path, password string) error {
	sample := sampleConfig
	if password != "" {
		sample = strings.Replace(sample, `password = ""`, "password = "+quoteTOML(password), 1)
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sample), 0o600); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

func quoteTOML(value string) string {
	data, err := toml.Marshal(map[string]string{"v": value})
	if err != nil {
		return `""`
	}
	return strings.TrimSpace(strings.TrimPrefix(string(data), "v = "))
}
