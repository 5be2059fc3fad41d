package httpclient

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/kbukum/transcribe/errors"
	"github.com/kbukum/transcribe/resilience"
)

// maxErrorBody bounds how much of a failed response body ends up in the
// provider error text.
const maxErrorBody = 2048

// classifyStatus maps a non-2xx response onto the error taxonomy. Returns
// nil for 2xx.
func classifyStatus(status int, requestID string, body []byte) *errors.AppError {
	if status >= 200 && status < 300 {
		return nil
	}
	text := strings.TrimSpace(string(body))
	if len(text) > maxErrorBody {
		text = text[:maxErrorBody]
	}
	if text == "" {
		text = fmt.Sprintf("HTTP %d %s", status, http.StatusText(status))
	}
	return errors.FromHTTPStatus(status, requestID, text)
}

// classifyTransport maps a failure to reach the server. Caller cancellation
// is passed through untouched so it is never retried; everything else is an
// upstream failure and retryable.
func classifyTransport(ctx context.Context, requestID string, err error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if stderrors.Is(err, resilience.ErrCircuitOpen) {
		return errors.InternalServerError(requestID, "provider unavailable: circuit open").WithCause(err)
	}
	return errors.InternalServerError(requestID, err.Error()).WithCause(err)
}
