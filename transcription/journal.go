package transcription

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"strings"
	"sync"
	"time"

	"github.com/kbukum/transcribe/errors"
	"github.com/kbukum/transcribe/logger"
	"github.com/kbukum/transcribe/provider"
)

// DefaultJournalTTL is how long recorded effects are kept.
const DefaultJournalTTL = 24 * time.Hour

// EffectFunc performs one remote side effect and returns its JSON result.
type EffectFunc func(ctx context.Context) (json.RawMessage, error)

// Journal records the outcome of side effects so that a re-invoked saga
// replays them instead of repeating them. Keys have the form
// "{request_id}/{step}[/{n}]".
type Journal interface {
	// Effect returns the recorded outcome for key, or runs fn and records it.
	Effect(ctx context.Context, key string, fn EffectFunc) (json.RawMessage, error)
	// Forget drops the record for key once the invocation has concluded.
	Forget(ctx context.Context, key string) error
	// ForgetRequest drops every record of requestID, including the poll
	// and sleep records of an invocation that never concluded.
	ForgetRequest(ctx context.Context, requestID string) error
}

// PassthroughJournal runs every effect and records nothing.
type PassthroughJournal struct{}

// Effect runs fn.
func (PassthroughJournal) Effect(ctx context.Context, _ string, fn EffectFunc) (json.RawMessage, error) {
	return fn(ctx)
}

// Forget is a no-op.
func (PassthroughJournal) Forget(context.Context, string) error { return nil }

// ForgetRequest is a no-op.
func (PassthroughJournal) ForgetRequest(context.Context, string) error { return nil }

// JournalEntry is one recorded outcome. Exactly one of Output or ErrorCode
// is meaningful.
type JournalEntry struct {
	Output        json.RawMessage  `json:"output,omitempty"`
	ErrorCode     errors.ErrorCode `json:"error_code,omitempty"`
	RequestID     string           `json:"request_id,omitempty"`
	ProviderError string           `json:"provider_error,omitempty"`
	RecordedAt    time.Time        `json:"recorded_at"`
}

// StoreJournal persists outcomes in a provider.ContextStore, either the
// in-process provider.MemoryStore or a redis.TypedStore.
type StoreJournal struct {
	store provider.ContextStore[JournalEntry]
	ttl   time.Duration
	log   *logger.Logger
}

// NewStoreJournal creates a journal over store. A zero ttl uses
// DefaultJournalTTL.
func NewStoreJournal(store provider.ContextStore[JournalEntry], ttl time.Duration, log *logger.Logger) *StoreJournal {
	if ttl <= 0 {
		ttl = DefaultJournalTTL
	}
	if log == nil {
		log = logger.Nop()
	}
	return &StoreJournal{store: store, ttl: ttl, log: log.WithComponent("journal")}
}

// Effect replays a recorded outcome or runs fn. Only values and taxonomy
// errors are recorded; cancellations and other plain errors are not, so
// the step runs again on the next invocation.
func (j *StoreJournal) Effect(ctx context.Context, key string, fn EffectFunc) (json.RawMessage, error) {
	entry, err := j.store.Load(ctx, key)
	if err != nil {
		return nil, errors.Internal("", err).WithDetail("journal_key", key)
	}
	if entry != nil {
		j.log.Debug("replaying effect", map[string]interface{}{"key": key})
		if entry.ErrorCode != "" {
			return nil, errors.FromCode(entry.ErrorCode, entry.RequestID, entry.ProviderError)
		}
		return entry.Output, nil
	}

	out, err := fn(ctx)
	record := &JournalEntry{Output: out, RecordedAt: time.Now().UTC()}
	if err != nil {
		appErr, ok := errors.AsAppError(err)
		if !ok {
			return nil, err
		}
		record = &JournalEntry{
			ErrorCode:     appErr.Code,
			RequestID:     appErr.RequestID,
			ProviderError: appErr.ProviderError,
			RecordedAt:    time.Now().UTC(),
		}
	}
	if saveErr := j.store.Save(ctx, key, record, j.ttl); saveErr != nil {
		j.log.Warn("failed to record effect", logger.MergeWithError(map[string]interface{}{"key": key}, saveErr))
	}
	return out, err
}

// Forget deletes the record for key.
func (j *StoreJournal) Forget(ctx context.Context, key string) error {
	return j.store.Delete(ctx, key)
}

// ForgetRequest deletes every record under "{requestID}/".
func (j *StoreJournal) ForgetRequest(ctx context.Context, requestID string) error {
	return j.store.DeletePrefix(ctx, requestID+"/")
}

// effect runs fn through the journal, encoding its result as JSON.
func effect[T any](ctx context.Context, j Journal, key string, fn func(ctx context.Context) (T, error)) (T, error) {
	var out T
	raw, err := j.Effect(ctx, key, func(ctx context.Context) (json.RawMessage, error) {
		v, err := fn(ctx)
		if err != nil {
			return nil, err
		}
		return json.Marshal(v)
	})
	if err != nil {
		return out, err
	}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &out); err != nil {
			return out, errors.Internal("", err).WithDetail("journal_key", key)
		}
	}
	return out, nil
}

// trackingJournal remembers the keys each request touched so they can be
// forgotten once the invocation concludes.
type trackingJournal struct {
	Journal
	mu   sync.Mutex
	keys map[string][]string
}

func newTrackingJournal(j Journal) *trackingJournal {
	return &trackingJournal{Journal: j, keys: make(map[string][]string)}
}

func (t *trackingJournal) Effect(ctx context.Context, key string, fn EffectFunc) (json.RawMessage, error) {
	requestID, _, _ := strings.Cut(key, "/")
	t.mu.Lock()
	t.keys[requestID] = append(t.keys[requestID], key)
	t.mu.Unlock()
	return t.Journal.Effect(ctx, key, fn)
}

// forgetRequest drops the records of requestID. A saga that returns has
// concluded, and its compensation has already run, so nothing is left to
// replay. Only a crashed invocation leaves records behind.
func (t *trackingJournal) forgetRequest(ctx context.Context, requestID string) error {
	t.mu.Lock()
	keys := t.keys[requestID]
	delete(t.keys, requestID)
	t.mu.Unlock()

	var errs []error
	for _, key := range keys {
		if err := t.Journal.Forget(ctx, key); err != nil {
			errs = append(errs, err)
		}
	}
	return stderrors.Join(errs...)
}
