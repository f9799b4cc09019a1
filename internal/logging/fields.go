package logging

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldEventType classifies a log line for filtering (e.g. report_stored).
	FieldEventType = "event_type"
	// FieldErrorHint carries the operator's next step for a warning or error.
	FieldErrorHint = "error_hint"
	// FieldImpact is the standardized key for user-facing consequence of a warning.
	FieldImpact = "impact"
	// FieldReportID identifies a stored report.
	FieldReportID = "report_id"
	// FieldRemoteAddr is the peer address of an inbound connection.
	FieldRemoteAddr = "remote_addr"
	// FieldListenAddr is the address the listener is bound to.
	FieldListenAddr = "listen_addr"
	// FieldReportCount is the number of reports held or written.
	FieldReportCount = "report_count"
	// FieldPath is a filesystem path (dump file, lock file, config file).
	FieldPath = "path"
)
