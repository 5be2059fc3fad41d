package component

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/kbukum/transcribe/logger"
)

const (
	// DefaultStopTimeout bounds each component's Stop call.
	DefaultStopTimeout = 10 * time.Second
	// DefaultHealthTimeout bounds each component's Health call. Provider
	// availability checks are remote calls and may hang.
	DefaultHealthTimeout = 5 * time.Second
)

type entry struct {
	c       Component
	started bool
}

// Registry starts components in registration order and stops them in
// reverse, so dependencies are registered first.
type Registry struct {
	mu      sync.RWMutex
	entries []*entry
	byName  map[string]*entry
	log     *logger.Logger

	healthTimeout time.Duration
}

// NewRegistry creates an empty registry.
func NewRegistry(log *logger.Logger) *Registry {
	if log == nil {
		log = logger.Nop()
	}
	return &Registry{
		byName:        make(map[string]*entry),
		log:           log.WithComponent("components"),
		healthTimeout: DefaultHealthTimeout,
	}
}

// Register adds c. Names must be unique.
func (r *Registry) Register(c Component) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := c.Name()
	if _, ok := r.byName[name]; ok {
		return fmt.Errorf("component %s already registered", name)
	}
	e := &entry{c: c}
	r.entries = append(r.entries, e)
	r.byName[name] = e
	r.log.Debug("Component registered", logger.Fields(logger.FieldComponent, name))
	return nil
}

// StartAll starts every component. When one fails, those already started
// are stopped again and the error is returned.
func (r *Registry) StartAll(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.log.Info("Starting all components", logger.Fields("count", len(r.entries)))
	for _, e := range r.entries {
		name := e.c.Name()
		if err := e.c.Start(ctx); err != nil {
			r.log.Error("Component start failed", logger.Fields(logger.FieldComponent, name, logger.FieldError, err.Error()))
			_ = r.stopStarted(ctx)
			return fmt.Errorf("failed to start %s: %w", name, err)
		}
		e.started = true

		fields := logger.Fields(logger.FieldComponent, name)
		if d, ok := e.c.(Describable); ok {
			desc := d.Describe()
			fields["type"], fields["details"] = desc.Type, desc.Details
		}
		r.log.Info("Component started", fields)
	}
	return nil
}

// StopAll stops the started components in reverse order. Every component
// gets its Stop call even when an earlier one fails.
func (r *Registry) StopAll(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.log.Info("Stopping all components")
	if err := r.stopStarted(ctx); err != nil {
		return fmt.Errorf("shutdown errors: %w", err)
	}
	return nil
}

// stopStarted is called with mu held.
func (r *Registry) stopStarted(ctx context.Context) error {
	var errs []error
	for i := len(r.entries) - 1; i >= 0; i-- {
		e := r.entries[i]
		if !e.started {
			continue
		}
		e.started = false

		name := e.c.Name()
		stopCtx, cancel := context.WithTimeout(ctx, DefaultStopTimeout)
		err := e.c.Stop(stopCtx)
		cancel()
		if err != nil {
			errs = append(errs, fmt.Errorf("failed to stop %s: %w", name, err))
			r.log.Error("Component stop failed", logger.Fields(logger.FieldComponent, name, logger.FieldError, err.Error()))
			continue
		}
		r.log.Debug("Component stopped", logger.Fields(logger.FieldComponent, name))
	}
	return errors.Join(errs...)
}

// HealthAll checks every component concurrently and returns the results in
// registration order. A check that outlives the health timeout reports
// unhealthy.
func (r *Registry) HealthAll(ctx context.Context) []Health {
	r.mu.RLock()
	entries := append([]*entry(nil), r.entries...)
	timeout := r.healthTimeout
	r.mu.RUnlock()

	results := make([]Health, len(entries))
	var wg sync.WaitGroup
	for i, e := range entries {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i] = checkHealth(ctx, e.c, timeout)
		}()
	}
	wg.Wait()
	return results
}

func checkHealth(ctx context.Context, c Component, timeout time.Duration) Health {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	done := make(chan Health, 1)
	go func() { done <- c.Health(ctx) }()
	select {
	case h := <-done:
		return h
	case <-ctx.Done():
		return Health{Name: c.Name(), Status: StatusUnhealthy, Message: "health check: " + ctx.Err().Error()}
	}
}

// Overall folds component health into one status: unhealthy if any
// component is unhealthy, degraded if any is degraded.
func Overall(healths []Health) HealthStatus {
	status := StatusHealthy
	for _, h := range healths {
		switch h.Status {
		case StatusUnhealthy:
			return StatusUnhealthy
		case StatusDegraded:
			status = StatusDegraded
		}
	}
	return status
}

// Get returns the component registered as name, or nil.
func (r *Registry) Get(name string) Component {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if e, ok := r.byName[name]; ok {
		return e.c
	}
	return nil
}

// All returns the components in registration order.
func (r *Registry) All() []Component {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Component, len(r.entries))
	for i, e := range r.entries {
		out[i] = e.c
	}
	return out
}
