package log

// Canonical field name constants for structured logging.
const (
	FieldRequestID     = "request_id"
	FieldCorrelationID = "correlation_id"
	FieldJobID         = "job_id"
	FieldEvent         = "event"
	FieldComponent     = "component"

	FieldProviderID = "provider_id"
	FieldProfileID  = "profile_id"
	FieldSnapshotID = "snapshot_id"
	FieldFetchRunID = "fetch_run_id"
	FieldStreamKey  = "stream_key"
	FieldPath       = "path"
)
