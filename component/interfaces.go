package component

import "context"

// HealthStatus is the state a component reports on /health. Degraded
// keeps the service ready; unhealthy takes it out of rotation.
type HealthStatus string

const (
	StatusHealthy   HealthStatus = "healthy"
	StatusUnhealthy HealthStatus = "unhealthy"
	StatusDegraded  HealthStatus = "degraded"
)

// Health holds health information for a component.
type Health struct {
	Name    string       `json:"name"`
	Status  HealthStatus `json:"status"`
	Message string       `json:"message,omitempty"`
}

// Component is a piece of the process with a lifecycle: staging storage,
// the redis journal store, the transcription service or the HTTP server.
// The registry starts components in registration order and stops them in
// reverse, so a component may use the ones registered before it.
type Component interface {
	Name() string
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	Health(ctx context.Context) Health
}

// Description holds summary information for the startup log.
type Description struct {
	// Name is the human-readable display name (e.g., "HTTP Server").
	// If empty, the component's Name() is used.
	Name string
	// Type is "server", "storage", "redis" or "saga".
	Type string
	// Details is a one-liner such as "provider=aws journal=redis".
	Details string
	// Port is the primary port, 0 if not applicable.
	Port int
}

// Describable is optionally implemented by Components that report how they
// are configured. Registry.StartAll logs the description once started.
type Describable interface {
	Describe() Description
}

// Route holds a single registered HTTP route.
type Route struct {
	Method  string
	Path    string
	Handler string
}

// RouteProvider is optionally implemented by server components to report
// their registered routes.
type RouteProvider interface {
	Routes() []Route
}
