package transcription

import (
	"context"
	"encoding/json"

	"github.com/kbukum/transcribe/errors"
)

// ResultFetcher retrieves the transcript of a completed job.
type ResultFetcher struct {
	store   TranscriptStore
	journal Journal
}

// NewResultFetcher creates a fetcher. store may be nil for backends that
// always return inline results.
func NewResultFetcher(store TranscriptStore, journal Journal) *ResultFetcher {
	return &ResultFetcher{store: store, journal: journal}
}

// Fetch returns inline results as they are, or downloads the transcript
// URI once.
func (f *ResultFetcher) Fetch(ctx context.Context, requestID string, state JobState) (json.RawMessage, error) {
	if len(state.Transcript) > 0 {
		return state.Transcript, nil
	}
	if state.TranscriptURI == "" {
		return nil, errors.Unknown(requestID, "Transcription completed but no transcript file URI found")
	}
	if f.store == nil {
		return nil, errors.Unknown(requestID, "Transcription completed but the backend cannot download transcripts")
	}

	transcript, err := effect(ctx, f.journal, requestID+"/fetch", func(ctx context.Context) (json.RawMessage, error) {
		body, err := f.store.Download(ctx, requestID, state.TranscriptURI)
		if err != nil {
			return nil, taxonomy(requestID, err)
		}
		if !json.Valid(body) {
			return nil, errors.Unknown(requestID, "transcript is not valid JSON")
		}
		return body, nil
	})
	if err != nil {
		return nil, taxonomy(requestID, err)
	}
	return transcript, nil
}
