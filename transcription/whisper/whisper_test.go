package whisper

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/kbukum/transcribe/errors"
	"github.com/kbukum/transcribe/transcription"
)

func newRequest() *transcription.TranscriptionRequest {
	return &transcription.TranscriptionRequest{
		RequestID:   "job-1",
		Audio:       []byte("RIFFdata"),
		AudioConfig: transcription.AudioConfig{Format: transcription.FormatWAV},
		Config: &transcription.TranscriptionConfig{
			Language:   "en-US",
			Vocabulary: []string{"kubernetes", "gokit"},
		},
	}
}

func TestRecognize(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/transcribe" || r.Method != http.MethodPost {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Fatalf("ParseMultipartForm: %v", err)
		}
		if got := r.FormValue("language"); got != "en" {
			t.Errorf("language = %q, want en", got)
		}
		if got := r.FormValue("model"); got != "base" {
			t.Errorf("model = %q, want base", got)
		}
		if got := r.FormValue("initial_prompt"); got != "kubernetes, gokit" {
			t.Errorf("initial_prompt = %q", got)
		}
		f, hdr, err := r.FormFile("audio")
		if err != nil {
			t.Fatalf("FormFile: %v", err)
		}
		data, _ := io.ReadAll(f)
		if string(data) != "RIFFdata" || hdr.Filename != "audio.wav" {
			t.Errorf("unexpected upload %q %q", hdr.Filename, data)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"text":"hello","language":"en","segments":[]}`))
	}))
	defer srv.Close()

	r, err := New(Config{URL: srv.URL})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	got, err := r.Recognize(context.Background(), newRequest())
	if err != nil {
		t.Fatalf("Recognize: %v", err)
	}
	if string(got) != `{"text":"hello","language":"en","segments":[]}` {
		t.Errorf("unexpected transcript %s", got)
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
		{"unprocessable", http.StatusUnprocessableEntity, errors.ErrCodeUnprocessableEntity, 1},
		{"upstream failure is retried", http.StatusServiceUnavailable, errors.ErrCodeInternal, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls atomic.Int32
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				calls.Add(1)
				http.Error(w, "nope", tt.status)
			}))
			defer srv.Close()

			r, err := New(Config{URL: srv.URL})
			if err != nil {
				t.Fatalf("New: %v", err)
			}
			_, err = r.Recognize(context.Background(), newRequest())
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

func TestBackendThroughSaga(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/health":
			w.WriteHeader(http.StatusOK)
		case "/transcribe":
			_, _ = w.Write([]byte(`{"text":"hello"}`))
		}
	}))
	defer srv.Close()

	b, err := transcription.NewBackend(context.Background(), ProviderName, transcription.BackendOptions{
		Settings: &Config{URL: srv.URL},
	})
	if err != nil {
		t.Fatalf("NewBackend: %v", err)
	}
	if !b.IsAvailable(context.Background()) {
		t.Error("expected the sidecar to be available")
	}

	s, err := transcription.NewSaga(b, transcription.Config{})
	if err != nil {
		t.Fatalf("NewSaga: %v", err)
	}
	resp, err := s.Transcribe(context.Background(), newRequest())
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if resp.Provider != ProviderName || string(resp.Transcript) != `{"text":"hello"}` {
		t.Errorf("unexpected response %+v", resp)
	}
}

func TestConfig_Validate(t *testing.T) {
	cfg := Config{URL: "localhost:8387"}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err == nil {
		t.Error("expected a scheme-less url to be rejected")
	}
	if _, err := transcription.NewBackend(context.Background(), ProviderName, transcription.BackendOptions{Settings: Config{}}); err == nil {
		t.Error("expected a non-pointer config to be rejected")
	}
}
