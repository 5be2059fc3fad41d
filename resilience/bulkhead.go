package resilience

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"
)

var (
	// ErrBulkheadFull is returned by a non-waiting bulkhead with no free slot.
	ErrBulkheadFull = errors.New("bulkhead is full")
	// ErrBulkheadTimeout is returned when MaxWait passes without a free slot.
	ErrBulkheadTimeout = errors.New("bulkhead wait timeout")
)

// WaitForSlot as MaxWait makes callers queue until a slot frees up or their
// context ends.
const WaitForSlot time.Duration = -1

// BulkheadConfig configures a bulkhead.
type BulkheadConfig struct {
	Name string
	// MaxConcurrent is the number of calls that may run at once.
	MaxConcurrent int
	// MaxWait is how long a caller waits for a slot. 0 fails immediately;
	// WaitForSlot waits as long as the context allows.
	MaxWait time.Duration
}

// DefaultBulkheadConfig returns a single-slot queueing bulkhead.
func DefaultBulkheadConfig(name string) BulkheadConfig {
	return BulkheadConfig{Name: name, MaxConcurrent: 1, MaxWait: WaitForSlot}
}

// Bulkhead limits how many calls run at once. Waiting callers are admitted
// in arrival order.
type Bulkhead struct {
	cfg   BulkheadConfig
	sem   *semaphore.Weighted
	inUse atomic.Int64
}

// NewBulkhead creates a bulkhead. MaxConcurrent below one means one.
func NewBulkhead(cfg BulkheadConfig) *Bulkhead {
	cfg.MaxConcurrent = max(cfg.MaxConcurrent, 1)
	return &Bulkhead{cfg: cfg, sem: semaphore.NewWeighted(int64(cfg.MaxConcurrent))}
}

// Execute runs fn in a slot. It returns ErrBulkheadFull, ErrBulkheadTimeout
// or the context error when no slot was taken.
func (b *Bulkhead) Execute(ctx context.Context, fn func() error) error {
	if err := b.acquire(ctx); err != nil {
		return err
	}
	b.inUse.Add(1)
	defer func() {
		b.inUse.Add(-1)
		b.sem.Release(1)
	}()
	return fn()
}

func (b *Bulkhead) acquire(ctx context.Context) error {
	switch {
	case b.cfg.MaxWait == 0:
		if !b.sem.TryAcquire(1) {
			return ErrBulkheadFull
		}
		return nil
	case b.cfg.MaxWait < 0:
		return b.sem.Acquire(ctx, 1)
	}

	waitCtx, cancel := context.WithTimeout(ctx, b.cfg.MaxWait)
	defer cancel()
	if err := b.sem.Acquire(waitCtx, 1); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return ErrBulkheadTimeout
	}
	return nil
}

// InUse returns the number of running calls.
func (b *Bulkhead) InUse() int { return int(b.inUse.Load()) }

// MaxConcurrent returns the slot count.
func (b *Bulkhead) MaxConcurrent() int { return b.cfg.MaxConcurrent }
