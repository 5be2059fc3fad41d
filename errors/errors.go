package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// AppError is the unified application error type.
type AppError struct {
	// Code is a machine-readable error code.
	Code ErrorCode `json:"code"`
	// Message is a human-readable error message.
	Message string `json:"message"`
	// RequestID correlates the error with the remote artifacts of a request.
	RequestID string `json:"request_id,omitempty"`
	// ProviderError is the provider's own description of the failure.
	ProviderError string `json:"provider_error,omitempty"`
	// Retryable indicates if the operation can be retried.
	Retryable bool `json:"retryable"`
	// HTTPStatus is the recommended HTTP status code for this error.
	HTTPStatus int `json:"-"`
	// Details contains additional context for the error.
	Details map[string]any `json:"details,omitempty"`
	// Cause is the underlying error that caused this error.
	Cause error `json:"-"`
}

// Error returns the string representation of the error.
func (e *AppError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.RequestID != "" {
		msg = fmt.Sprintf("%s [request_id=%s]: %s", e.Code, e.RequestID, e.Message)
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s (cause: %v)", msg, e.Cause)
	}
	return msg
}

// Unwrap returns the underlying cause of the error.
func (e *AppError) Unwrap() error { return e.Cause }

// Is reports whether target is an AppError with the same code.
func (e *AppError) Is(target error) bool {
	var t *AppError
	if !stderrors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// WithCause sets the underlying cause of the error and returns the receiver.
func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

// WithDetails merges the provided details into the error and returns the receiver.
func (e *AppError) WithDetails(details map[string]any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	for k, v := range details {
		e.Details[k] = v
	}
	return e
}

// WithDetail sets a single detail key-value pair and returns the receiver.
func (e *AppError) WithDetail(key string, value any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// New creates a new AppError with automatic retryable detection.
func New(code ErrorCode, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Retryable:  IsRetryableCode(code),
	}
}

func provider(code ErrorCode, status int, requestID, providerError string) *AppError {
	return &AppError{
		Code:          code,
		Message:       providerError,
		RequestID:     requestID,
		ProviderError: providerError,
		HTTPStatus:    status,
		Retryable:     IsRetryableCode(code),
	}
}

// --- Taxonomy constructors ---

// BadRequest creates an error for a rejected request or a terminal failure state.
func BadRequest(requestID, providerError string) *AppError {
	return provider(ErrCodeBadRequest, http.StatusBadRequest, requestID, providerError)
}

// Unauthorized creates an error for missing or invalid provider credentials.
func Unauthorized(requestID, providerError string) *AppError {
	return provider(ErrCodeUnauthorized, http.StatusUnauthorized, requestID, providerError)
}

// AccessDenied creates an error for credentials that lack a permission.
func AccessDenied(requestID, providerError string) *AppError {
	return provider(ErrCodeAccessDenied, http.StatusForbidden, requestID, providerError)
}

// Forbidden creates an error for an operation the provider refuses.
func Forbidden(requestID, providerError string) *AppError {
	return provider(ErrCodeForbidden, http.StatusForbidden, requestID, providerError)
}

// NotFound creates an error for a missing remote resource.
func NotFound(requestID, providerError string) *AppError {
	return provider(ErrCodeNotFound, http.StatusNotFound, requestID, providerError)
}

// Conflict creates an error for a resource name collision.
func Conflict(requestID, providerError string) *AppError {
	return provider(ErrCodeConflict, http.StatusConflict, requestID, providerError)
}

// UnprocessableEntity creates an error for a payload the provider cannot process.
func UnprocessableEntity(requestID, providerError string) *AppError {
	return provider(ErrCodeUnprocessableEntity, http.StatusUnprocessableEntity, requestID, providerError)
}

// RateLimit creates an error for provider throttling.
func RateLimit(requestID, providerError string) *AppError {
	return provider(ErrCodeRateLimited, http.StatusTooManyRequests, requestID, providerError)
}

// InternalServerError creates an error for a provider-side failure.
func InternalServerError(requestID, providerError string) *AppError {
	return provider(ErrCodeInternal, http.StatusBadGateway, requestID, providerError)
}

// Unknown creates an error for an outcome outside the known set.
func Unknown(requestID, providerError string) *AppError {
	return provider(ErrCodeUnknown, http.StatusInternalServerError, requestID, providerError)
}

// Internal wraps an unexpected local failure (encoding, I/O) as Unknown.
func Internal(requestID string, cause error) *AppError {
	e := Unknown(requestID, "An unexpected error occurred.")
	if cause != nil {
		e.ProviderError = cause.Error()
	}
	return e.WithCause(cause)
}

// FromCode rebuilds a taxonomy error from its code, e.g. after it was persisted.
func FromCode(code ErrorCode, requestID, providerError string) *AppError {
	switch code {
	case ErrCodeBadRequest:
		return BadRequest(requestID, providerError)
	case ErrCodeUnauthorized:
		return Unauthorized(requestID, providerError)
	case ErrCodeAccessDenied:
		return AccessDenied(requestID, providerError)
	case ErrCodeForbidden:
		return Forbidden(requestID, providerError)
	case ErrCodeNotFound:
		return NotFound(requestID, providerError)
	case ErrCodeConflict:
		return Conflict(requestID, providerError)
	case ErrCodeUnprocessableEntity:
		return UnprocessableEntity(requestID, providerError)
	case ErrCodeRateLimited:
		return RateLimit(requestID, providerError)
	case ErrCodeInternal:
		return InternalServerError(requestID, providerError)
	default:
		return Unknown(requestID, providerError)
	}
}
