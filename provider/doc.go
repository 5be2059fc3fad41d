// Package provider holds the small generic framework the transcription
// backends plug into.
//
// A backend is a RequestResponse[I, O]: it has a Name, reports whether it is
// available and executes one request. Registry builds backends by name from
// typed configuration, and Middleware adds cross-cutting behavior:
//
//	wrapped := provider.Chain(
//	    provider.WithLogging[In, Out](log),
//	    provider.WithMetrics[In, Out](metrics),
//	    provider.WithTracing[In, Out]("transcribe"),
//	)(saga)
//
// ContextStore[C] is a typed key/value store with TTL. MemoryStore is the
// in-process implementation; redis.TypedStore is the shared one.
package provider
