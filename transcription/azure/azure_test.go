package azure

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/kbukum/transcribe/errors"
	"github.com/kbukum/transcribe/transcription"
)

const testKey = "test-subscription-key"

const fastResult = `{"durationMilliseconds":1200,"combinedPhrases":[{"text":"hello world"}],"phrases":[]}`

func request(cfg *transcription.TranscriptionConfig) *transcription.TranscriptionRequest {
	return &transcription.TranscriptionRequest{
		RequestID:   "job-1",
		Audio:       []byte("RIFFdata"),
		AudioConfig: transcription.AudioConfig{Format: transcription.FormatWAV, Channels: 2},
		Config:      cfg,
	}
}

func newTestRecognizer(t *testing.T, h http.Handler, cfg Config) *Recognizer {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	cfg.SubscriptionKey = testKey
	cfg.Endpoint = srv.URL
	r, err := New(cfg, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return r
}

func TestRecognize(t *testing.T) {
	var def definition
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != transcribePath {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if got := r.URL.Query().Get("api-version"); got != defaultAPIVersion {
			t.Errorf("api-version = %q", got)
		}
		if got := r.Header.Get(subscriptionKeyHeader); got != testKey {
			t.Errorf("subscription key header = %q", got)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Fatalf("ParseMultipartForm: %v", err)
		}
		if err := json.Unmarshal([]byte(r.FormValue("definition")), &def); err != nil {
			t.Errorf("definition: %v", err)
		}
		f, hdr, err := r.FormFile("audio")
		if err != nil {
			t.Fatalf("FormFile: %v", err)
		}
		data, _ := io.ReadAll(f)
		if string(data) != "RIFFdata" || hdr.Filename != "audio.wav" || hdr.Header.Get("Content-Type") != "audio/wav" {
			t.Errorf("unexpected upload %q %q %q", hdr.Filename, hdr.Header.Get("Content-Type"), data)
		}
		_, _ = w.Write([]byte(fastResult))
	})
	rec := newTestRecognizer(t, h, Config{ProfanityFilter: ProfanityMasked})

	got, err := rec.Recognize(context.Background(), request(&transcription.TranscriptionConfig{
		Language:   "en-US",
		Vocabulary: []string{"gokit"},
	}))
	if err != nil {
		t.Fatalf("Recognize: %v", err)
	}
	if string(got) != fastResult {
		t.Errorf("transcript = %s", got)
	}
	if len(def.Locales) != 1 || def.Locales[0] != "en-US" {
		t.Errorf("locales = %v", def.Locales)
	}
	if def.ProfanityFilter != ProfanityMasked {
		t.Errorf("profanity filter = %q", def.ProfanityFilter)
	}
	if def.PhraseList == nil || len(def.PhraseList.Phrases) != 1 || def.PhraseList.Phrases[0] != "gokit" {
		t.Errorf("phrase list = %+v", def.PhraseList)
	}
}

func TestDefinition(t *testing.T) {
	rec := &Recognizer{cfg: Config{MaxSpeakers: defaultMaxSpeakers}}

	tests := []struct {
		name string
		cfg  *transcription.TranscriptionConfig
		want string
	}{
		{"no options", nil, `{}`},
		{"auto detect", &transcription.TranscriptionConfig{}, `{}`},
		{
			"diarization with default speakers",
			&transcription.TranscriptionConfig{Language: "de-DE", Diarization: &transcription.Diarization{Enabled: true}},
			`{"locales":["de-DE"],"diarization":{"enabled":true,"maxSpeakers":2}}`,
		},
		{
			"diarization wins over channels",
			&transcription.TranscriptionConfig{MultiChannel: true, Diarization: &transcription.Diarization{Enabled: true, MaxSpeakers: 5}},
			`{"diarization":{"enabled":true,"maxSpeakers":5}}`,
		},
		{
			"stereo channels",
			&transcription.TranscriptionConfig{MultiChannel: true},
			`{"channels":[0,1]}`,
		},
		{
			"disabled diarization keeps channels",
			&transcription.TranscriptionConfig{MultiChannel: true, Diarization: &transcription.Diarization{Enabled: false}},
			`{"channels":[0,1]}`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := json.Marshal(rec.definition(request(tt.cfg)))
			if err != nil {
				t.Fatalf("Marshal: %v", err)
			}
			if string(got) != tt.want {
				t.Errorf("definition = %s, want %s", got, tt.want)
			}
		})
	}

	mono := request(&transcription.TranscriptionConfig{MultiChannel: true})
	mono.AudioConfig.Channels = 1
	if def := rec.definition(mono); def.Channels != nil {
		t.Errorf("mono audio should not be split, got %v", def.Channels)
	}
}

func TestRecognize_Errors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		want   errors.ErrorCode
		calls  int32
	}{
		{"bad request", http.StatusBadRequest, errors.ErrCodeBadRequest, 1},
		{"unauthorized", http.StatusUnauthorized, errors.ErrCodeUnauthorized, 1},
		{"forbidden", http.StatusForbidden, errors.ErrCodeForbidden, 1},
		{"not found", http.StatusNotFound, errors.ErrCodeNotFound, 1},
		{"conflict", http.StatusConflict, errors.ErrCodeConflict, 1},
		{"unprocessable", http.StatusUnprocessableEntity, errors.ErrCodeUnprocessableEntity, 1},
		{"rate limited is retried", http.StatusTooManyRequests, errors.ErrCodeRateLimited, 3},
		{"server error is retried", http.StatusInternalServerError, errors.ErrCodeInternal, 3},
		{"unknown status", http.StatusTeapot, errors.ErrCodeUnknown, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls atomic.Int32
			rec := newTestRecognizer(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				calls.Add(1)
				http.Error(w, `{"code":"InvalidRequest"}`, tt.status)
			}), Config{})

			_, err := rec.Recognize(context.Background(), request(nil))
			appErr, ok := errors.AsAppError(err)
			if !ok {
				t.Fatalf("expected AppError, got %v", err)
			}
			if appErr.Code != tt.want || appErr.RequestID != "job-1" {
				t.Errorf("unexpected error %s %q", appErr.Code, appErr.RequestID)
			}
			if calls.Load() != tt.calls {
				t.Errorf("expected %d calls, got %d", tt.calls, calls.Load())
			}
		})
	}
}

func TestConfig(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"region", Config{SubscriptionKey: "k", Region: "eastus"}, false},
		{"endpoint", Config{SubscriptionKey: "k", Endpoint: "http://localhost:1"}, false},
		{"no key", Config{Region: "eastus"}, true},
		{"no region", Config{SubscriptionKey: "k"}, true},
		{"profanity mode", Config{SubscriptionKey: "k", Region: "eastus", ProfanityFilter: ProfanityRemoved}, false},
		{"unknown profanity mode", Config{SubscriptionKey: "k", Region: "eastus", ProfanityFilter: "masked"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("AZURE_SUBSCRIPTION_KEY", "")
			t.Setenv("AZURE_REGION", "")
			tt.cfg.ApplyDefaults()
			if err := tt.cfg.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}

	t.Run("environment fallback", func(t *testing.T) {
		t.Setenv("AZURE_SUBSCRIPTION_KEY", "env-key")
		t.Setenv("AZURE_REGION", "westeurope")
		cfg := Config{}
		cfg.ApplyDefaults()
		if cfg.SubscriptionKey != "env-key" || cfg.Endpoint != "https://westeurope.api.cognitive.microsoft.com" {
			t.Errorf("unexpected config %+v", cfg)
		}
	})
}

func TestThroughSaga(t *testing.T) {
	rec := newTestRecognizer(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(fastResult))
	}), Config{})
	saga, err := transcription.NewSaga(rec.Backend(), transcription.Config{})
	if err != nil {
		t.Fatalf("NewSaga: %v", err)
	}

	resp, err := saga.Transcribe(context.Background(), request(&transcription.TranscriptionConfig{Language: "en-US"}))
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if resp.Provider != ProviderName || string(resp.Transcript) != fastResult {
		t.Errorf("unexpected response %+v", resp)
	}

	rejected := []struct {
		name string
		req  *transcription.TranscriptionRequest
	}{
		{"unsupported language", request(&transcription.TranscriptionConfig{Language: "nl-NL"})},
		{"unsupported format", &transcription.TranscriptionRequest{
			RequestID:   "job-2",
			Audio:       []byte("data"),
			AudioConfig: transcription.AudioConfig{Format: transcription.FormatAMR},
		}},
	}
	for _, tt := range rejected {
		t.Run(tt.name, func(t *testing.T) {
			_, err := saga.Transcribe(context.Background(), tt.req)
			if code := errors.Code(err); code != errors.ErrCodeBadRequest {
				t.Errorf("code = %s, want BAD_REQUEST", code)
			}
		})
	}
}

func TestFactory(t *testing.T) {
	b, err := transcription.NewBackend(context.Background(), ProviderName, transcription.BackendOptions{
		Settings: &Config{SubscriptionKey: "k", Region: "eastus"},
	})
	if err != nil {
		t.Fatalf("NewBackend: %v", err)
	}
	if b.Recognizer == nil || b.Jobs != nil || !b.SupportsLanguage("ja-JP") {
		t.Errorf("unexpected backend %+v", b)
	}

	if _, err := transcription.NewBackend(context.Background(), ProviderName, transcription.BackendOptions{
		Settings: Config{},
	}); err == nil {
		t.Error("expected a non-pointer config to be rejected")
	}
}
