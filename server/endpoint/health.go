package endpoint

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/transcribe/component"
)

// Health reports every component, including storage, the journal store
// and the transcription provider. It answers 503 while any of them is
// unhealthy.
func Health(serviceName string, checker HealthChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		components, status := check(c.Request.Context(), checker)
		code := http.StatusOK
		if status == component.StatusUnhealthy {
			code = http.StatusServiceUnavailable
		}
		respondStatus(c, code, serviceName, string(status), components)
	}
}
