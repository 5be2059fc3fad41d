// Package resilience provides the fault-tolerance primitives used around
// provider calls.
//
//   - Retry: exponential backoff over transient taxonomy errors
//     (RATE_LIMITED, INTERNAL_ERROR).
//   - CircuitBreaker: fails fast while a provider keeps failing.
//   - RateLimiter: token bucket pacing of outbound requests.
//   - Bulkhead: bounds concurrent transcriptions in a batch.
//
// The HTTP transport composes the first three, pacing every attempt:
//
//	err := resilience.RetryFunc(ctx, resilience.DefaultRetryConfig(), func() error {
//	    if err := rl.Wait(ctx); err != nil {
//	        return err
//	    }
//	    return cb.Execute(func() error { return send(ctx, req) })
//	})
package resilience
