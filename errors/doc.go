// Package errors provides the unified error taxonomy for transcription
// operations. Every provider outcome, whether an HTTP status, an SDK error
// or a business-level failure state, is mapped onto a closed set of codes
// that carry the originating request id and the provider's own detail.
//
// The taxonomy:
//
//	BAD_REQUEST           400, and terminal job/vocabulary failures
//	UNAUTHORIZED          401
//	FORBIDDEN             403
//	ACCESS_DENIED         provider permission errors reported by error code
//	NOT_FOUND             404
//	CONFLICT              409
//	UNPROCESSABLE_ENTITY  422
//	RATE_LIMITED          429 (retryable)
//	INTERNAL_ERROR        5xx (retryable)
//	UNKNOWN               everything else
//
// Usage:
//
//	if err := svc.Call(); err != nil {
//	    return errors.FromHTTPStatus(resp.StatusCode, requestID, string(body))
//	}
package errors
