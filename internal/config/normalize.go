package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeListener()
	c.normalizeMail()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.DumpDir) == "" {
		c.Paths.DumpDir = defaultDumpDir
	}
	if c.Paths.DumpDir, err = expandPath(c.Paths.DumpDir); err != nil {
		return fmt.Errorf("paths.dump_dir: %w", err)
	}
	c.Paths.DumpPrefix = strings.TrimSpace(c.Paths.DumpPrefix)
	if c.Paths.DumpPrefix == "" {
		c.Paths.DumpPrefix = defaultDumpPrefix
	}
	return nil
}

func (c *Config) normalizeListener() {
	c.Listener.Bind = strings.TrimSpace(c.Listener.Bind)
	if c.Listener.Bind == "" {
		c.Listener.Bind = defaultBind
	}
	if c.Listener.ReadTimeout == 0 {
		c.Listener.ReadTimeout = defaultReadTimeout
	}
	if c.Listener.MaxPayloadBytes == 0 {
		c.Listener.MaxPayloadBytes = defaultMaxPayloadBytes
	}
}

func (c *Config) normalizeMail() {
	c.Mail.Destination = strings.TrimSpace(c.Mail.Destination)
	c.Mail.Sender = strings.TrimSpace(c.Mail.Sender)
	if c.Mail.Destination == "" {
		c.Mail.Destination = strings.TrimSpace(os.Getenv("BRD_MAIL_DESTINATION"))
	}
	if c.Mail.Sender == "" {
		c.Mail.Sender = strings.TrimSpace(os.Getenv("BRD_MAIL_SENDER"))
	}
	if c.Mail.Password == "" {
		if value, ok := os.LookupEnv("BRD_MAIL_PASSWORD"); ok {
			c.Mail.Password = value
		}
	}
	c.Mail.SMTPHost = strings.TrimSpace(c.Mail.SMTPHost)
	if c.Mail.SMTPHost == "" {
		c.Mail.SMTPHost = defaultSMTPHost
	}
	if c.Mail.SMTPPort == 0 {
		c.Mail.SMTPPort = defaultSMTPPort
	}
	if c.Mail.RequestTimeout == 0 {
		c.Mail.RequestTimeout = defaultMailTimeout
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Logging.MaxSizeMB <= 0 {
		c.Logging.MaxSizeMB = defaultLogMaxSizeMB
	}
	if c.Logging.MaxBackups < 0 {
		c.Logging.MaxBackups = 0
	}
}
