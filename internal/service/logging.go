package service

// Standard structured logging field names, shared across services and the
// HTTP layer so log queries stay consistent.
const (
	// Identity fields
	LogFieldTenantID      = "tenant_id"
	LogFieldAccountID     = "account_id"
	LogFieldMessageID     = "message_id"
	LogFieldPhoneNumberID = "phone_number_id"
	LogFieldWABAID        = "waba_id"

	// Context fields
	LogFieldService   = "service"
	LogFieldOperation = "operation"
	LogFieldComponent = "component"
	LogFieldMethod    = "method"

	// Event fields
	LogFieldEvent       = "event"
	LogFieldMessageType = "message_type"
	LogFieldStatus      = "status"
	LogFieldEntryID     = "entry_id"

	// Measurement fields
	LogFieldDuration = "duration_ms"
	LogFieldCount    = "count"
	LogFieldSize     = "size_bytes"

	// HTTP fields
	LogFieldRequestID  = "request_id"
	LogFieldTraceID    = "trace_id"
	LogFieldURL        = "url"
	LogFieldStatusCode = "status_code"
	LogFieldRemoteIP   = "remote_ip"
	LogFieldUserAgent  = "user_agent"

	// Error fields
	LogFieldErrorCode = "error_code"
)
