package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/kbukum/transcribe/component"
	"github.com/kbukum/transcribe/logger"
)

// slowPing degrades the component. Journal reads sit on every saga step,
// so a slow store slows every transcription.
const slowPing = 250 * time.Millisecond

// Component owns the client behind the shared effect journal.
type Component struct {
	cfg    Config
	client *Client
	log    *logger.Logger
}

var (
	_ component.Component   = (*Component)(nil)
	_ component.Describable = (*Component)(nil)
)

// NewComponent creates the component. The connection is made in Start.
func NewComponent(cfg Config, log *logger.Logger) *Component {
	cfg.ApplyDefaults()
	return &Component{cfg: cfg, log: log.WithComponent("redis")}
}

// Client returns the started client, or nil.
func (c *Component) Client() *Client { return c.client }

// Name returns the component name.
func (c *Component) Name() string { return "redis" }

// Start connects and fails when the server does not answer, so a journal
// that cannot be reached stops startup instead of the first request.
func (c *Component) Start(ctx context.Context) error {
	client, err := New(c.cfg, c.log)
	if err != nil {
		return fmt.Errorf("redis start: %w", err)
	}
	if err := client.Ping(ctx); err != nil {
		_ = client.Close()
		return fmt.Errorf("redis start: %w", err)
	}
	c.client = client
	return nil
}

// Stop closes the client.
func (c *Component) Stop(context.Context) error {
	return c.client.Close()
}

// Health pings the server and reports the round trip.
func (c *Component) Health(ctx context.Context) component.Health {
	h := component.Health{Name: c.Name(), Status: component.StatusHealthy}
	if c.client == nil {
		h.Status, h.Message = component.StatusUnhealthy, "redis not initialized"
		return h
	}

	start := time.Now()
	err := c.client.Ping(ctx)
	rtt := time.Since(start)
	switch {
	case err != nil:
		h.Status, h.Message = component.StatusUnhealthy, err.Error()
	case rtt > slowPing:
		h.Status, h.Message = component.StatusDegraded, fmt.Sprintf("ping took %s", rtt.Round(time.Millisecond))
	}
	return h
}

// Describe returns the startup banner line.
func (c *Component) Describe() component.Description {
	return component.Description{
		Name:    "Journal store",
		Type:    "redis",
		Details: fmt.Sprintf("%s/%d pool=%d", c.cfg.Addr, c.cfg.DB, c.cfg.PoolSize),
	}
}
