package errors

// ErrorCode represents a machine-readable error code.
type ErrorCode string

// Provider operation errors. Every remote outcome is folded into one of these.
const (
	// ErrCodeBadRequest indicates the provider rejected the request, or a job
	// or vocabulary reached a terminal failure state.
	ErrCodeBadRequest ErrorCode = "BAD_REQUEST"
	// ErrCodeUnauthorized indicates missing or invalid provider credentials.
	ErrCodeUnauthorized ErrorCode = "UNAUTHORIZED"
	// ErrCodeAccessDenied indicates the credentials lack a required permission.
	ErrCodeAccessDenied ErrorCode = "ACCESS_DENIED"
	// ErrCodeForbidden indicates the provider refused the operation.
	ErrCodeForbidden ErrorCode = "FORBIDDEN"
	// ErrCodeNotFound indicates the remote resource does not exist.
	ErrCodeNotFound ErrorCode = "NOT_FOUND"
	// ErrCodeConflict indicates a resource with the same name already exists.
	ErrCodeConflict ErrorCode = "CONFLICT"
	// ErrCodeUnprocessableEntity indicates the payload was understood but not processable.
	ErrCodeUnprocessableEntity ErrorCode = "UNPROCESSABLE_ENTITY"
	// ErrCodeRateLimited indicates the provider is throttling requests.
	ErrCodeRateLimited ErrorCode = "RATE_LIMITED"
	// ErrCodeInternal indicates a provider-side failure.
	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
	// ErrCodeUnknown indicates an outcome outside the known set.
	ErrCodeUnknown ErrorCode = "UNKNOWN"
)

var retryableCodes = map[ErrorCode]bool{
	ErrCodeRateLimited: true,
	ErrCodeInternal:    true,
}

// IsRetryableCode returns true if the error code indicates a retryable error.
func IsRetryableCode(code ErrorCode) bool {
	return retryableCodes[code]
}
