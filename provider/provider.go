package provider

import (
	"context"
	"slices"
)

// Provider is anything the host can name and health-check: a transcription
// backend, the saga, or the redis client.
type Provider interface {
	Name() string
	// IsAvailable reports whether a call right now is expected to reach
	// the remote side. It must be cheap.
	IsAvailable(ctx context.Context) bool
}

// Factory builds a provider from its configuration section.
type Factory[T Provider, C any] func(ctx context.Context, cfg C) (T, error)

// RequestResponse executes one input to one output.
type RequestResponse[I, O any] interface {
	Provider
	Execute(ctx context.Context, input I) (O, error)
}

// Middleware wraps a RequestResponse. Wrappers keep the inner Name so
// logs and metrics stay labelled by backend.
type Middleware[I, O any] func(RequestResponse[I, O]) RequestResponse[I, O]

// Chain applies middlewares with the first one outermost:
// Chain(a, b, c)(p) is a(b(c(p))).
func Chain[I, O any](middlewares ...Middleware[I, O]) Middleware[I, O] {
	return func(inner RequestResponse[I, O]) RequestResponse[I, O] {
		for _, mw := range slices.Backward(middlewares) {
			inner = mw(inner)
		}
		return inner
	}
}
