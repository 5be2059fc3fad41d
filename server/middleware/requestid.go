package middleware

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/kbukum/transcribe/logger"
)

// HeaderRequestID carries the HTTP request id. It is independent of the
// transcription request id in the body.
const HeaderRequestID = "X-Request-Id"

// RequestID ensures every request carries an X-Request-Id, echoes it on the
// response and stores it in the request context for log correlation.
func RequestID() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get(HeaderRequestID)
			if id == "" {
				id = uuid.NewString()
				r.Header.Set(HeaderRequestID, id)
			}
			w.Header().Set(HeaderRequestID, id)
			ctx := logger.ContextWithTraceID(r.Context(), id)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
