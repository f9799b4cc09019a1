// Package notifications delivers operator email.
//
// The default implementation sends through SMTP using the destination, sender
// and password from config.toml, and degrades to a no-op when any of the three
// is missing. Callers depend only on the Service interface.
package notifications
