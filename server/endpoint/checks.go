package endpoint

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/transcribe/component"
)

// HealthChecker reports the health of the registered components.
type HealthChecker func(ctx context.Context) []component.Health

// StatusResponse is the body of /health, /alive and /ready.
type StatusResponse struct {
	Status     string             `json:"status"`
	Service    string             `json:"service"`
	Timestamp  string             `json:"timestamp"`
	Components []component.Health `json:"components,omitempty"`
}

func respondStatus(c *gin.Context, code int, serviceName, status string, components []component.Health) {
	c.JSON(code, StatusResponse{
		Status:     status,
		Service:    serviceName,
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
		Components: components,
	})
}

func check(ctx context.Context, checker HealthChecker) ([]component.Health, component.HealthStatus) {
	if checker == nil {
		return nil, component.StatusHealthy
	}
	components := checker(ctx)
	return components, component.Overall(components)
}

// Liveness answers as long as the process serves HTTP.
func Liveness(serviceName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		respondStatus(c, http.StatusOK, serviceName, "alive", nil)
	}
}

// Readiness takes the service out of rotation while a component is
// unhealthy. A degraded provider keeps it ready: requests still fail
// fast with a typed error.
func Readiness(serviceName string, checker HealthChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, status := check(c.Request.Context(), checker); status == component.StatusUnhealthy {
			respondStatus(c, http.StatusServiceUnavailable, serviceName, "not_ready", nil)
			return
		}
		respondStatus(c, http.StatusOK, serviceName, "ready", nil)
	}
}
