package config

const (
	defaultBind            = "0.0.0.0:9099"
	defaultReadTimeout     = 10
	defaultMaxPayloadBytes = 1 << 20
	defaultStateDir        = "~/.local/share/brd"
	defaultDumpDir         = "."
	defaultDumpPrefix      = "bug_reports"
	defaultSMTPHost        = "smtp.gmail.com"
	defaultSMTPPort        = 587
	defaultMailTimeout     = 10
	defaultLogFormat       = "console"
	defaultLogLevel        = "info"
	defaultLogMaxSizeMB    = 20
	defaultLogMaxBackups   = 3
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Listener: Listener{
			Bind:            defaultBind,
			ReadTimeout:     defaultReadTimeout,
			MaxPayloadBytes: defaultMaxPayloadBytes,
		},
		Paths: Paths{
			StateDir:   defaultStateDir,
			DumpDir:    defaultDumpDir,
			DumpPrefix: defaultDumpPrefix,
		},
		Mail: Mail{
			SMTPHost:       defaultSMTPHost,
			SMTPPort:       defaultSMTPPort,
			RequestTimeout: defaultMailTimeout,
			RequireTLS:     true,
		},
		Logging: Logging{
			Format:     defaultLogFormat,
			Level:      defaultLogLevel,
			MaxSizeMB:  defaultLogMaxSizeMB,
			MaxBackups: defaultLogMaxBackups,
		},
	}
}
