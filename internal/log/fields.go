package log

// Common field names for structured logging
const (
	FieldComponent   = "component"
	FieldRequestID   = "request_id"
	FieldClientIP    = "client_ip"
	FieldMethod      = "method"
	FieldPath        = "path"
	FieldStatusCode  = "status_code"
	FieldDuration    = "duration_ms"
	FieldSuccess     = "success"
	FieldError       = "error"
	FieldErrorType   = "error_type"
	FieldOperation   = "operation"
	FieldActor       = "actor"
	FieldClaimID     = "claim_id"
	FieldExpenseID   = "expense_id"
	FieldProjectID   = "project_id"
	FieldPaymentID   = "payment_id"
	FieldStatus      = "status"
	FieldAmountCents = "amount_cents"
	FieldEventID     = "event_id"
	FieldEventType   = "event_type"
	FieldCount       = "count"
	FieldSheetsRef   = "sheets_ref"
)

// Component names
const (
	ComponentApp      = "app"
	ComponentHTTP     = "http"
	ComponentLedger   = "ledger"
	ComponentProjects = "projects"
	ComponentClaims   = "claims"
	ComponentPayments = "payments"
	ComponentReports  = "reports"
	ComponentStorage  = "storage"
	ComponentOutbox   = "outbox"
	ComponentAMQP     = "amqp"
	ComponentWorker   = "worker"
	ComponentSheets   = "sheets"
	ComponentTrace    = "trace"
)

// Operation names
const (
	OpCreate        = "create"
	OpUpdate        = "update"
	OpDelete        = "delete"
	OpList          = "list"
	OpImport        = "import"
	OpAssignProject = "assign_project"
	OpAttach        = "attach"
	OpAttachBatch   = "attach_batch"
	OpDetach        = "detach"
	OpSubmit        = "submit"
	OpReject        = "reject"
	OpRecordPayment = "record_payment"
	OpExport        = "export"
	OpRelay         = "relay"
	OpShutdown      = "shutdown"
	OpStartup       = "startup"
)

// Error type values
const (
	ErrorTypeValidation    = "validation_error"
	ErrorTypeConfiguration = "configuration_error"
	ErrorTypeDatabase      = "database_error"
	ErrorTypeNetwork       = "network_error"
	ErrorTypeNotFound      = "not_found_error"
	ErrorTypeConflict      = "conflict_error"
)

// LogFields provides a builder pattern for structured log fields
type LogFields map[string]any

func NewFields() LogFields {
	return make(LogFields)
}

func (f LogFields) WithComponent(component string) LogFields {
	f[FieldComponent] = component
	return f
}

func (f LogFields) WithRequestID(requestID string) LogFields {
	f[FieldRequestID] = requestID
	return f
}

// WithError adds error field
func (f LogFields) WithError(err error) LogFields {
	if err != nil {
		f[FieldError] = err.Error()
	}
	return f
}

func (f LogFields) WithErrorType(t string) LogFields {
	f[FieldErrorType] = t
	return f
}

func (f LogFields) WithOperation(op string) LogFields {
	f[FieldOperation] = op
	return f
}

func (f LogFields) WithClaim(id int64) LogFields {
	f[FieldClaimID] = id
	return f
}

func (f LogFields) WithExpense(id int64) LogFields {
	f[FieldExpenseID] = id
	return f
}

func (f LogFields) WithAmount(cents int64) LogFields {
	f[FieldAmountCents] = cents
	return f
}

// WithHTTP adds request and response fields.
func (f LogFields) WithHTTP(method, path string, statusCode int, durationMs int64) LogFields {
	f[FieldMethod] = method
	f[FieldPath] = path
	f[FieldStatusCode] = statusCode
	f[FieldDuration] = durationMs
	f[FieldSuccess] = statusCode < 400
	return f
}

// ToSlice converts LogFields to a slice for slog
func (f LogFields) ToSlice() []any {
	slice := make([]any, 0, len(f)*2)
	for k, v := range f {
		slice = append(slice, k, v)
	}
	return slice
}
