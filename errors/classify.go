package errors

import (
	stderrors "errors"
	"net/http"
)

// FromHTTPStatus maps a provider HTTP response status onto the taxonomy.
// body is kept verbatim as the provider error detail.
func FromHTTPStatus(status int, requestID, body string) *AppError {
	switch {
	case status == http.StatusBadRequest:
		return BadRequest(requestID, body)
	case status == http.StatusUnauthorized:
		return Unauthorized(requestID, body)
	case status == http.StatusForbidden:
		return Forbidden(requestID, body)
	case status == http.StatusNotFound:
		return NotFound(requestID, body)
	case status == http.StatusConflict:
		return Conflict(requestID, body)
	case status == http.StatusUnprocessableEntity:
		return UnprocessableEntity(requestID, body)
	case status == http.StatusTooManyRequests:
		return RateLimit(requestID, body)
	case status >= 500 && status < 600:
		return InternalServerError(requestID, body)
	default:
		return Unknown(requestID, body)
	}
}

// Code returns the taxonomy code of err, or ErrCodeUnknown when err is not an AppError.
func Code(err error) ErrorCode {
	if appErr, ok := AsAppError(err); ok {
		return appErr.Code
	}
	return ErrCodeUnknown
}

// HasCode reports whether err is an AppError with the given code.
func HasCode(err error, code ErrorCode) bool {
	appErr, ok := AsAppError(err)
	return ok && appErr.Code == code
}

// IsNotFound reports whether err is a NOT_FOUND taxonomy error.
func IsNotFound(err error) bool { return HasCode(err, ErrCodeNotFound) }

// IsRetryable reports whether err is an AppError marked retryable.
func IsRetryable(err error) bool {
	var appErr *AppError
	return stderrors.As(err, &appErr) && appErr.Retryable
}

// Ensure converts any error into an AppError tagged with requestID. AppErrors
// pass through, gaining the request id if they lack one.
func Ensure(requestID string, err error) *AppError {
	if err == nil {
		return nil
	}
	if appErr, ok := AsAppError(err); ok {
		if appErr.RequestID == "" {
			appErr.RequestID = requestID
		}
		return appErr
	}
	return Internal(requestID, err)
}
