package transcription

import (
	"context"
	"fmt"
	"sync"

	"github.com/kbukum/transcribe/errors"
)

// FailedTranscription is one request of a batch that did not complete.
type FailedTranscription struct {
	RequestID string           `json:"request_id"`
	Error     *errors.AppError `json:"error"`
}

// MultiResult is the outcome of TranscribeMany. Successes keep the order of
// the input requests that succeeded.
type MultiResult struct {
	Successes []*TranscriptionResponse `json:"successes"`
	Failures  []FailedTranscription    `json:"failures"`
}

// TranscribeMany runs each request through the saga. At most
// Config.BatchConcurrency requests run at once, and one failure never
// aborts the rest. A request id may appear once: later repeats fail with
// BAD_REQUEST without running, since runs sharing an id share their
// artifacts and journal records.
func (s *Saga) TranscribeMany(ctx context.Context, reqs []*TranscriptionRequest) *MultiResult {
	type outcome struct {
		resp *TranscriptionResponse
		err  error
	}
	outcomes := make([]outcome, len(reqs))

	seen := make(map[string]bool, len(reqs))
	var wg sync.WaitGroup
	for i, req := range reqs {
		if req != nil && req.RequestID != "" {
			if seen[req.RequestID] {
				outcomes[i].err = errors.BadRequest(req.RequestID, fmt.Sprintf("request id %q appears more than once in the batch", req.RequestID))
				continue
			}
			seen[req.RequestID] = true
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := s.bulkhead.Execute(ctx, func() error {
				resp, err := s.Execute(ctx, req)
				outcomes[i] = outcome{resp: resp, err: err}
				return err
			})
			if err != nil && outcomes[i].err == nil {
				outcomes[i].err = err
			}
		}()
	}
	wg.Wait()

	result := &MultiResult{
		Successes: make([]*TranscriptionResponse, 0, len(reqs)),
		Failures:  []FailedTranscription{},
	}
	for i, o := range outcomes {
		if o.err == nil {
			result.Successes = append(result.Successes, o.resp)
			continue
		}
		requestID := ""
		if reqs[i] != nil {
			requestID = reqs[i].RequestID
		}
		result.Failures = append(result.Failures, FailedTranscription{
			RequestID: requestID,
			Error:     errors.Ensure(requestID, o.err),
		})
	}

	s.log.Info("batch finished", map[string]interface{}{
		"total":     len(reqs),
		"succeeded": len(result.Successes),
		"failed":    len(result.Failures),
	})
	return result
}
