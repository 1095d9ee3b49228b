package errors

// represents a standardized error response
type ErrorResponse struct {
	Error   string `json:"error"`             // error code (e.g., "forbidden", "not_found")
	Message string `json:"message"`           // user-friendly message
	Details string `json:"details,omitempty"` // optional details (sanitized in production)
}

// result of classifying an error
type ErrorInfo struct {
	Category  string
	Sanitized string
}

// implemented by errors that describe bad caller input (invalid tool
// arguments, config validation failures)
type invalidArgument interface {
	InvalidArgument() bool
}

// standard error codes
const (
	CodeForbidden       = "forbidden"
	CodeNotFound        = "not_found"
	CodeValidationError = "validation_error"
	CodeServerError     = "server_error"
	CodeBadRequest      = "bad_request"
	CodeConflict        = "conflict"
	CodeTooManyRequests = "too_many_requests"
	CodeUpstreamError   = "upstream_error"
	CodeTimeout         = "timeout"
)

// error categories for classification
const (
	CategoryDatabase    = "database"
	CategoryNetwork     = "network"
	CategoryValidation  = "validation"
	CategoryAuth        = "auth"
	CategoryNotFound    = "not_found"
	CategoryTimeout     = "timeout"
	CategoryRateLimited = "rate_limited"
	CategoryConflict    = "conflict"
	CategoryUpstream    = "upstream"
	CategoryUnknown     = "unknown"
)
