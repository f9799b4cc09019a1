// Package config loads, normalizes, and validates brd configuration data.
//
// It supplies defaults, expands user paths (including tilde shortcuts), reads
// TOML files, and honours BRD_MAIL_* environment fallbacks for the mail
// credentials. Missing mail settings disable only the email path; the
// listener and report store never depend on them.
package config
