package log

// Common field names for structured logging.
const (
	FieldComponent   = "component"
	FieldRequestID   = "request_id"
	FieldClientIP    = "client_ip"
	FieldMethod      = "method"
	FieldPath        = "path"
	FieldStatusCode  = "status_code"
	FieldDuration    = "duration_ms"
	FieldError       = "error"
	FieldUserID      = "user_id"
	FieldCategoryID  = "category_id"
	FieldAmountCents = "amount_cents"
	FieldVersion     = "version"
)

// Component names, one per binary.
const (
	ComponentServer          = "ledgerd"
	ComponentCLI             = "ledger"
	ComponentExportWorker    = "ledger-worker"
	ComponentRecurringWorker = "recurring-worker"
	ComponentAddUser         = "adduser"
	ComponentOAuthInit       = "oauth-init"
)
