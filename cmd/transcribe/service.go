package main

import (
	"context"
	"fmt"

	"github.com/kbukum/transcribe/component"
	"github.com/kbukum/transcribe/logger"
	"github.com/kbukum/transcribe/observability"
	"github.com/kbukum/transcribe/provider"
	"github.com/kbukum/transcribe/redis"
	"github.com/kbukum/transcribe/storage"
	"github.com/kbukum/transcribe/transcription"
)

type (
	request  = *transcription.TranscriptionRequest
	response = *transcription.TranscriptionResponse
)

// service builds the saga in Start, after the storage and redis components
// it depends on. It serves the HTTP handler before Start returns, so every
// method checks that the saga exists.
type service struct {
	cfg     *Config
	storage *storage.Component
	redis   *redis.Component
	log     *logger.Logger

	saga   *transcription.Saga
	single provider.RequestResponse[request, response]
}

var (
	_ component.Component   = (*service)(nil)
	_ component.Describable = (*service)(nil)
)

func newService(cfg *Config, st *storage.Component, rd *redis.Component, log *logger.Logger) *service {
	return &service{cfg: cfg, storage: st, redis: rd, log: log.WithComponent("transcription")}
}

func (s *service) Name() string { return "transcription" }

func (s *service) Start(ctx context.Context) error {
	var objects transcription.ObjectStore
	if s.storage != nil {
		objects = s.storage.Storage()
	}
	backend, err := transcription.NewBackend(ctx, s.cfg.Provider, transcription.BackendOptions{
		Settings: s.cfg.backendSettings(),
		Objects:  objects,
		Log:      s.log,
	})
	if err != nil {
		return fmt.Errorf("transcription backend %s: %w", s.cfg.Provider, err)
	}

	metrics, err := observability.NewMetrics(observability.Meter(s.cfg.Name))
	if err != nil {
		return err
	}

	saga, err := transcription.NewSaga(backend, s.cfg.Saga,
		transcription.WithJournal(s.journal()),
		transcription.WithLogger(s.log),
		transcription.WithMetrics(metrics),
	)
	if err != nil {
		return err
	}
	s.saga = saga
	s.single = provider.Chain(
		provider.WithTracing[request, response](s.cfg.Name),
		provider.WithLogging[request, response](s.log),
		provider.WithMetrics[request, response](metrics),
	)(saga)
	return nil
}

// journal returns the effect journal selected by config.
func (s *service) journal() transcription.Journal {
	var store provider.ContextStore[transcription.JournalEntry]
	if s.cfg.Journal.Backend == JournalRedis && s.redis != nil && s.redis.Client() != nil {
		store = redis.NewTypedStore[transcription.JournalEntry](s.redis.Client(), s.cfg.Journal.KeyPrefix)
	} else {
		store = provider.NewMemoryStore[transcription.JournalEntry]()
	}
	return transcription.NewStoreJournal(store, s.cfg.Saga.JournalTTL, s.log)
}

func (s *service) Stop(context.Context) error {
	s.single = nil
	s.saga = nil
	return nil
}

// Health reports the provider's availability. An open circuit degrades
// the service rather than failing it.
func (s *service) Health(ctx context.Context) component.Health {
	if s.saga == nil {
		return component.Health{Name: s.Name(), Status: component.StatusUnhealthy, Message: "saga not started"}
	}
	if !s.saga.IsAvailable(ctx) {
		return component.Health{Name: s.Name(), Status: component.StatusDegraded, Message: s.saga.Name() + " unavailable"}
	}
	return component.Health{Name: s.Name(), Status: component.StatusHealthy}
}

func (s *service) Describe() component.Description {
	return component.Description{
		Name:    "Transcription",
		Type:    "saga",
		Details: fmt.Sprintf("provider=%s journal=%s", s.cfg.Provider, s.cfg.Journal.Backend),
	}
}

// Execute runs one request through the middleware chain.
func (s *service) Execute(ctx context.Context, req request) (response, error) {
	if s.single == nil {
		return nil, errNotStarted(req)
	}
	return s.single.Execute(ctx, req)
}

func (s *service) IsAvailable(ctx context.Context) bool {
	return s.saga != nil && s.saga.IsAvailable(ctx)
}

func (s *service) TranscribeMany(ctx context.Context, reqs []request) *transcription.MultiResult {
	if s.saga == nil {
		result := &transcription.MultiResult{}
		for _, req := range reqs {
			var rid string
			if req != nil {
				rid = req.RequestID
			}
			result.Failures = append(result.Failures, transcription.FailedTranscription{RequestID: rid, Error: errNotStarted(req)})
		}
		return result
	}
	return s.saga.TranscribeMany(ctx, reqs)
}

func (s *service) Languages() []string {
	if s.saga == nil {
		return nil
	}
	return s.saga.Languages()
}
