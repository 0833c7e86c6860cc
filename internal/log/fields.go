package log

// Common field names for structured logging
const (
	FieldComponent  = "component"
	FieldRequestID  = "request_id"
	FieldClientIP   = "client_ip"
	FieldMethod     = "method"
	FieldPath       = "path"
	FieldQuery      = "query"
	FieldStatusCode = "status_code"
	FieldDuration   = "duration_ms"
	FieldUserAgent  = "user_agent"
	FieldSuccess    = "success"
	FieldError      = "error"
	FieldOperation  = "operation"
	FieldLineNumber = "line_number"
	FieldPeriod     = "period"
	FieldValueCents = "value_cents"
	FieldVersion    = "version"
	FieldKPIKind    = "kpi_kind"
	FieldBackend    = "backend"
)

// Components defines standard component names
const (
	ComponentApp       = "app"
	ComponentHTTP      = "http"
	ComponentStatement = "statement"
	ComponentOverride  = "override"
	ComponentDrillDown = "drilldown"
	ComponentFormula   = "formula"
	ComponentStorage   = "storage"
	ComponentAMQP      = "amqp"
	ComponentWorker    = "worker"
	ComponentCache     = "cache"
	ComponentRateLimit = "rate_limit"
	ComponentTrace     = "trace"
	ComponentBackend   = "backend"
	ComponentExport    = "export"
)

// Operations defines standard operation names
const (
	OpLoad      = "load"
	OpOverride  = "override"
	OpDrillDown = "drilldown"
	OpBreakdown = "breakdown"
	OpDashboard = "dashboard"
	OpExport    = "export"
	OpClear     = "clear"
	OpAudit     = "audit"
	OpReconcile = "reconcile"
	OpValidate  = "validate"
	OpMigrate   = "migrate"
	OpStartup   = "startup"
	OpShutdown  = "shutdown"
)

// LogFields provides a builder pattern for structured log fields
type LogFields map[string]any

// NewFields creates a new LogFields instance
func NewFields() LogFields {
	return make(LogFields)
}

// WithComponent adds component field
func (f LogFields) WithComponent(component string) LogFields {
	f[FieldComponent] = component
	return f
}

// WithError adds error field
func (f LogFields) WithError(err error) LogFields {
	if err != nil {
		f[FieldError] = err.Error()
	}
	return f
}

// WithOperation adds operation field
func (f LogFields) WithOperation(op string) LogFields {
	f[FieldOperation] = op
	return f
}

// WithCell adds the statement cell coordinates
func (f LogFields) WithCell(lineNumber int, period string) LogFields {
	f[FieldLineNumber] = lineNumber
	f[FieldPeriod] = period
	return f
}

// WithOverride adds override-related fields
func (f LogFields) WithOverride(lineNumber int, period string, valueCents, version int64) LogFields {
	f.WithCell(lineNumber, period)
	f[FieldValueCents] = valueCents
	f[FieldVersion] = version
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
