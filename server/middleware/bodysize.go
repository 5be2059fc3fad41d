package middleware

import (
	"net/http"

	"github.com/kbukum/transcribe/util"
)

// DefaultMaxBodySize admits an inline audio payload of a few minutes.
const DefaultMaxBodySize = 64 << 20

// BodySizeLimit returns middleware that restricts the request body to the given
// size string (e.g. "64MB", "512KB", "1GB").
func BodySizeLimit(maxSize string) Middleware {
	size := util.ParseSize(maxSize, DefaultMaxBodySize)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.ContentLength > size {
				http.Error(w, "request body too large", http.StatusRequestEntityTooLarge)
				return
			}
			r.Body = http.MaxBytesReader(w, r.Body, size)
			next.ServeHTTP(w, r)
		})
	}
}
