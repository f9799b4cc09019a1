package config

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateListener(); err != nil {
		return err
	}
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateMail(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateListener() error {
	_, port, err := net.SplitHostPort(c.Listener.Bind)
	if err != nil {
		return fmt.Errorf("listener.bind %q: %w", c.Listener.Bind, err)
	}
	n, err := strconv.Atoi(port)
	if err != nil || n < 0 || n > 65535 {
		return fmt.Errorf("listener.bind %q: port must be between 0 and 65535", c.Listener.Bind)
	}
	if c.Listener.ReadTimeout < 0 {
		return errors.New("listener.read_timeout must be positive")
	}
	if c.Listener.MaxPayloadBytes < 0 {
		return errors.New("listener.max_payload_bytes must be positive")
	}
	return nil
}

func (c *Config) validatePaths() error {
	if strings.ContainsAny(c.Paths.DumpPrefix, `/\`) {
		return fmt.Errorf("paths.dump_prefix %q must not contain path separators", c.Paths.DumpPrefix)
	}
	return nil
}

func (c *Config) validateMail() error {
	if c.Mail.SMTPPort <= 0 || c.Mail.SMTPPort > 65535 {
		return errors.New("mail.smtp_port must be between 1 and 65535")
	}
	if c.Mail.RequestTimeout < 0 {
		return errors.New("mail.request_timeout must be positive")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format %q must be console or json", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level %q must be debug, info, warn or error", c.Logging.Level)
	}
	return nil
}
