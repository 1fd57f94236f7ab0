package log

// Common field names for structured logging
const (
	FieldMethod     = "method"
	FieldPath       = "path"
	FieldStatusCode = "status_code"
	FieldDuration   = "duration_ms"
	FieldError      = "error"
	FieldOperation  = "operation"
	FieldTempID     = "temp_id"
	FieldCategory   = "category"
	FieldRows       = "rows"
)

// Components defines standard component names
const (
	ComponentHTTP    = "http"
	ComponentEngine  = "engine"
	ComponentMemory  = "memory"
	ComponentStorage = "storage"
)

// Operations defines standard operation names
const (
	OpStage   = "stage"
	OpCommit  = "commit"
	OpLearn   = "learn"
	OpStartup = "startup"
)
