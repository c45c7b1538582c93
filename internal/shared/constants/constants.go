package constants

const (
	// Environment constants
	EnvDevelopment = "development"
	EnvTest        = "test"
	EnvProduction  = "production"

	// Default pagination
	DefaultPage     = 1
	DefaultPageSize = 20
	MaxPageSize     = 100

	// HTTP Headers
	HeaderContentType   = "Content-Type"
	HeaderAuthorization = "Authorization"
	HeaderXRequestID    = "X-Request-ID"

	// Context keys
	ContextKeyUserID     = "user_id"
	ContextKeyUserRole   = "user_role"
	ContextKeyDepartment = "user_department"
	ContextKeyRequestID  = "request_id"

	// Database table names
	TableUsers              = "users"
	TableTickets            = "tickets"
	TableTicketTags         = "ticket_tags"
	TableTicketComments     = "ticket_comments"
	TableTicketActionEvents = "ticket_action_events"

	// Error messages
	ErrMsgInternalServerError = "Internal server error occurred"
	ErrMsgServiceUnavailable  = "Service temporarily unavailable, please retry"
)
