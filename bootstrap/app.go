package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/kbukum/transcribe/component"
	"github.com/kbukum/transcribe/config"
	"github.com/kbukum/transcribe/logger"
)

const defaultGracefulTimeout = 30 * time.Second

// App owns the components and hooks of one process. C is the host config,
// which embeds config.ServiceConfig.
type App[C config.Config] struct {
	Name       string
	Version    string
	Cfg        C
	Components *component.Registry
	Logger     *logger.Logger

	gracefulTimeout time.Duration
	onStart         []Hook
	onReady         []Hook
	onStop          []Hook
}

// NewApp applies defaults to cfg, validates it and creates the logger.
func NewApp[C config.Config](cfg C, opts ...Option) (*App[C], error) {
	if err := config.Prepare(cfg); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}
	base := cfg.GetServiceConfig()

	o := resolveOptions(opts)
	if o.logger == nil {
		o.logger = logger.Init(base.Logging, base.Name)
	}
	timeout := defaultGracefulTimeout
	if o.gracefulTimeout != nil {
		timeout = *o.gracefulTimeout
	}

	return &App[C]{
		Name:            base.Name,
		Version:         base.Version,
		Cfg:             cfg,
		Components:      component.NewRegistry(o.logger),
		Logger:          o.logger,
		gracefulTimeout: timeout,
	}, nil
}

// RegisterComponent adds a component. Components start in registration
// order.
func (a *App[C]) RegisterComponent(c component.Component) error {
	return a.Components.Register(c)
}

// ReadyCheck fails when a component is unhealthy. Degraded components
// still serve and pass.
func (a *App[C]) ReadyCheck(ctx context.Context) error {
	var errs []error
	for _, h := range a.Components.HealthAll(ctx) {
		if h.Status == component.StatusUnhealthy {
			errs = append(errs, fmt.Errorf("%s: %s", h.Name, h.Message))
		}
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("unhealthy components: %w", err)
	}
	return nil
}

// Run starts the app and blocks until SIGINT, SIGTERM or ctx is done, then
// shuts down.
func (a *App[C]) Run(ctx context.Context) error {
	return a.RunTask(ctx, func(ctx context.Context) error {
		a.Logger.Info("Application ready, waiting for shutdown signal")
		<-ctx.Done()
		a.Logger.Info("Shutdown requested", logger.Fields("cause", context.Cause(ctx).Error()))
		return nil
	})
}

// RunTask starts the app, runs task and shuts down. A signal cancels the
// task's context. The task's error wins over a shutdown error.
func (a *App[C]) RunTask(ctx context.Context, task func(ctx context.Context) error) error {
	if err := a.startup(ctx); err != nil {
		_ = a.shutdown()
		return err
	}

	taskCtx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	taskErr := task(taskCtx)
	cancel()

	if err := a.shutdown(); err != nil && taskErr == nil {
		return err
	}
	return taskErr
}

func (a *App[C]) startup(ctx context.Context) error {
	began := time.Now()
	a.Logger.Info("Starting application", logger.Fields("name", a.Name, "version", a.Version))

	if err := a.Components.StartAll(ctx); err != nil {
		return fmt.Errorf("failed to start components: %w", err)
	}
	if err := runHooks(ctx, a.onStart); err != nil {
		return fmt.Errorf("onStart: %w", err)
	}
	if err := a.ReadyCheck(ctx); err != nil {
		a.Logger.Warn("Ready check reported issues", logger.Fields(logger.FieldError, err.Error()))
	}
	if err := runHooks(ctx, a.onReady); err != nil {
		return fmt.Errorf("onReady: %w", err)
	}

	for _, c := range a.Components.All() {
		if rp, ok := c.(component.RouteProvider); ok {
			for _, r := range rp.Routes() {
				a.Logger.Debug("Route", logger.Fields("method", r.Method, "path", r.Path, "handler", r.Handler))
			}
		}
	}
	a.Logger.Info("Application started", logger.Fields(
		logger.FieldDuration, time.Since(began).Milliseconds(),
		"components", len(a.Components.All()),
	))
	return nil
}

// shutdown runs the stop hooks, then stops the components, all within the
// graceful timeout. Components are stopped even when a hook fails.
func (a *App[C]) shutdown() error {
	a.Logger.Info("Shutting down application", logger.Fields("timeout", a.gracefulTimeout.String()))

	ctx, cancel := context.WithTimeout(context.Background(), a.gracefulTimeout)
	defer cancel()

	hookErr := runHooks(ctx, a.onStop)
	if hookErr != nil {
		a.Logger.Error("OnStop hook error", logger.Fields(logger.FieldError, hookErr.Error()))
	}
	stopErr := a.Components.StopAll(ctx)
	if stopErr != nil {
		a.Logger.Error("Shutdown completed with errors", logger.Fields(logger.FieldError, stopErr.Error()))
	}

	a.Logger.Info("Application shutdown complete")
	return errors.Join(hookErr, stopErr)
}
