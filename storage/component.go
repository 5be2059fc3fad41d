package storage

import (
	"context"
	"fmt"

	"github.com/kbukum/transcribe/component"
	"github.com/kbukum/transcribe/logger"
)

// healthKey is looked up by Health; it never exists, only the round trip matters.
const healthKey = ".health"

// Component wraps a Storage with lifecycle management.
type Component struct {
	storage     Storage
	cfg         Config
	providerCfg any
	log         *logger.Logger
}

var _ component.Component = (*Component)(nil)
var _ component.Describable = (*Component)(nil)

// NewComponent creates a storage component. The backend is built in Start.
func NewComponent(cfg Config, providerCfg any, log *logger.Logger) *Component {
	return &Component{cfg: cfg, providerCfg: providerCfg, log: log}
}

// Storage returns the underlying Storage, or nil before Start.
func (c *Component) Storage() Storage {
	return c.storage
}

// Name returns the component name.
func (c *Component) Name() string { return "storage" }

// Start initializes the storage backend.
func (c *Component) Start(ctx context.Context) error {
	s, err := New(ctx, c.cfg, c.providerCfg, c.log)
	if err != nil {
		return fmt.Errorf("storage start: %w", err)
	}
	c.storage = s
	return nil
}

// Stop releases the backend.
func (c *Component) Stop(_ context.Context) error {
	c.storage = nil
	return nil
}

// Health checks the backend with an existence check.
func (c *Component) Health(ctx context.Context) component.Health {
	if c.storage == nil {
		return component.Health{Name: c.Name(), Status: component.StatusUnhealthy, Message: "storage not initialized"}
	}
	if _, err := c.storage.Exists(ctx, healthKey); err != nil {
		return component.Health{Name: c.Name(), Status: component.StatusUnhealthy, Message: fmt.Sprintf("health check failed: %v", err)}
	}
	return component.Health{Name: c.Name(), Status: component.StatusHealthy}
}

// Describe returns summary info for the startup banner.
func (c *Component) Describe() component.Description {
	details := "provider=" + c.cfg.Provider
	if c.storage != nil {
		details += " uri=" + c.storage.MediaURI("")
	}
	return component.Description{Name: "Storage", Type: "storage", Details: details}
}
