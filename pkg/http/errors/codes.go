package errors

// Error codes carried in ErrorResponse.Error.
const (
	// Authentication
	ErrCodeInvalidToken           = "invalid_token"
	ErrCodeAuthenticationRequired = "authentication_required"
	ErrCodeLoginFailed            = "login_failed"
	ErrCodeRefreshFailed          = "refresh_failed"

	// Request validation
	ErrCodeInvalidRequest   = "invalid_request"
	ErrCodeValidationFailed = "validation_failed"

	// Paper assembly outcomes
	ErrCodeNotFound            = "not_found"
	ErrCodeNoQuestions         = "no_questions"
	ErrCodeConstraintViolation = "constraint_violation"

	// WebSocket
	ErrCodeInvalidPayload     = "invalid_payload"
	ErrCodeUnknownMessageType = "unknown_message_type"

	// Server
	ErrCodeInternalError      = "internal_error"
	ErrCodeServiceUnavailable = "service_unavailable"
	ErrCodeUpstreamError      = "upstream_error"
)
