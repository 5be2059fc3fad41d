package middleware

import (
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/kbukum/transcribe/resilience"
)

// RateLimitConfig configures the per-client rate limiting middleware.
type RateLimitConfig struct {
	// RequestsPerMinute is the sustained rate allowed per key.
	RequestsPerMinute int `yaml:"requests_per_minute" mapstructure:"requests_per_minute"`
	// Burst is the number of requests admitted at once. Defaults to
	// RequestsPerMinute/6, at least 1.
	Burst int `yaml:"burst" mapstructure:"burst"`
	// KeyFunc extracts the rate limit key from a request. Defaults to client IP.
	KeyFunc func(*http.Request) string `yaml:"-" mapstructure:"-"`
	// IdleTTL drops a key's bucket after this long without requests.
	IdleTTL time.Duration `yaml:"-" mapstructure:"-"`
}

// RateLimit returns middleware that applies a token bucket per key. Callers
// over their budget get 429 with a Retry-After header.
func RateLimit(cfg RateLimitConfig) Middleware {
	if cfg.RequestsPerMinute <= 0 {
		cfg.RequestsPerMinute = 60
	}
	if cfg.Burst <= 0 {
		cfg.Burst = max(cfg.RequestsPerMinute/6, 1)
	}
	if cfg.KeyFunc == nil {
		cfg.KeyFunc = IPBasedKey
	}
	if cfg.IdleTTL <= 0 {
		cfg.IdleTTL = 10 * time.Minute
	}

	buckets := &keyedLimiters{
		cfg:      resilience.RateLimiterConfig{Name: "http", Rate: float64(cfg.RequestsPerMinute) / 60, Burst: cfg.Burst},
		limiters: make(map[string]*keyedLimiter),
		ttl:      cfg.IdleTTL,
	}
	retryAfter := strconv.Itoa(max(60/cfg.RequestsPerMinute, 1))

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !buckets.get(cfg.KeyFunc(r)).Allow() {
				w.Header().Set("Retry-After", retryAfter)
				http.Error(w, "Rate limit exceeded", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// IPBasedKey extracts the client IP for use as a rate limit key.
func IPBasedKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

type keyedLimiter struct {
	*resilience.RateLimiter
	lastSeen time.Time
}

type keyedLimiters struct {
	mu        sync.Mutex
	cfg       resilience.RateLimiterConfig
	limiters  map[string]*keyedLimiter
	ttl       time.Duration
	lastSweep time.Time
}

func (k *keyedLimiters) get(key string) *resilience.RateLimiter {
	k.mu.Lock()
	defer k.mu.Unlock()

	now := time.Now()
	if now.Sub(k.lastSweep) > k.ttl {
		for key, l := range k.limiters {
			if now.Sub(l.lastSeen) > k.ttl {
				delete(k.limiters, key)
			}
		}
		k.lastSweep = now
	}

	l, ok := k.limiters[key]
	if !ok {
		l = &keyedLimiter{RateLimiter: resilience.NewRateLimiter(k.cfg)}
		k.limiters[key] = l
	}
	l.lastSeen = now
	return l.RateLimiter
}
