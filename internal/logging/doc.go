// Package logging assembles structured slog loggers and formatting helpers used
// across brd.
//
// It owns the console and JSON handlers, routes file output through a rotating
// writer, and exposes attribute helpers with standardized field keys so the
// listener, controller, and console emit the same shape of data. A no-op logger
// is provided for tests and wiring code that cannot fail.
package logging
