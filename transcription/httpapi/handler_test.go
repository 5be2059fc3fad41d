package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/transcribe/errors"
	"github.com/kbukum/transcribe/transcription"
)

func init() { gin.SetMode(gin.TestMode) }

// echoRecognizer returns the request it saw, and fails ids starting with "bad".
type echoRecognizer struct {
	mu   sync.Mutex
	seen []*transcription.TranscriptionRequest
}

func (r *echoRecognizer) Accepts(*transcription.TranscriptionRequest) bool { return true }

func (r *echoRecognizer) Recognize(_ context.Context, req *transcription.TranscriptionRequest) (json.RawMessage, error) {
	r.mu.Lock()
	r.seen = append(r.seen, req)
	r.mu.Unlock()
	if strings.HasPrefix(req.RequestID, "bad") {
		return nil, errors.UnprocessableEntity(req.RequestID, "cannot decode audio")
	}
	return json.RawMessage(`{"text":"hello"}`), nil
}

func newTestRouter(t *testing.T) (*gin.Engine, *echoRecognizer) {
	t.Helper()
	rec := &echoRecognizer{}
	saga, err := transcription.NewSaga(&transcription.Backend{
		ProviderName: "echo",
		Naming:       transcription.GoogleNaming,
		Recognizer:   rec,
		Languages:    []string{"en-US", "tr-TR"},
	}, transcription.Config{BatchConcurrency: 2})
	if err != nil {
		t.Fatalf("NewSaga: %v", err)
	}
	r := gin.New()
	NewHandler(saga, saga, nil).Register(r)
	r.NoRoute(NotFound)
	return r, rec
}

func multipartRequest(t *testing.T, filename string, fields map[string]string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	if filename != "" {
		fw, err := w.CreateFormFile("audio", filename)
		if err != nil {
			t.Fatalf("CreateFormFile: %v", err)
		}
		_, _ = fw.Write([]byte("RIFF-audio"))
	}
	for k, v := range fields {
		_ = w.WriteField(k, v)
	}
	_ = w.Close()
	req := httptest.NewRequest(http.MethodPost, "/v1/transcriptions", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func decode(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid JSON %q: %v", rr.Body.String(), err)
	}
	return body
}

func TestTranscribe(t *testing.T) {
	r, rec := newTestRouter(t)

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, multipartRequest(t, "call.WAV", map[string]string{
		"request_id":    "call-1",
		"language":      "en-US",
		"vocabulary":    "gokit, saga",
		"speakers":      "3",
		"channels":      "2",
		"multi_channel": "true",
	}))
	if rr.Code != http.StatusOK {
		t.Fatalf("code = %d, body = %s", rr.Code, rr.Body.String())
	}
	data, _ := decode(t, rr)["data"].(map[string]any)
	if data["request_id"] != "call-1" || data["provider"] != "echo" {
		t.Errorf("unexpected data %v", data)
	}

	got := rec.seen[0]
	if got.AudioConfig.Format != transcription.FormatWAV || got.AudioConfig.Channels != 2 {
		t.Errorf("audio config = %+v", got.AudioConfig)
	}
	if got.Language() != "en-US" || len(got.Terms()) != 2 || got.Terms()[1] != "saga" {
		t.Errorf("config = %+v", got.Config)
	}
	if d := got.Speakers(); d == nil || d.MaxSpeakers != 3 || !got.MultiChannel() {
		t.Errorf("diarization = %+v multi = %v", d, got.MultiChannel())
	}
}

func TestTranscribeGeneratesRequestID(t *testing.T) {
	r, rec := newTestRouter(t)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, multipartRequest(t, "a.mp3", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("code = %d, body = %s", rr.Code, rr.Body.String())
	}
	if id := rec.seen[0].RequestID; len(id) != 36 {
		t.Errorf("expected a generated uuid, got %q", id)
	}
	if rec.seen[0].Config != nil {
		t.Errorf("expected no config, got %+v", rec.seen[0].Config)
	}
}

func TestTranscribeErrors(t *testing.T) {
	tests := []struct {
		name     string
		filename string
		fields   map[string]string
		wantCode int
		wantErr  errors.ErrorCode
	}{
		{"missing audio", "", nil, http.StatusBadRequest, errors.ErrCodeBadRequest},
		{"bad channels", "a.wav", map[string]string{"channels": "two"}, http.StatusBadRequest, errors.ErrCodeBadRequest},
		{"bad multi channel", "a.wav", map[string]string{"multi_channel": "maybe"}, http.StatusBadRequest, errors.ErrCodeBadRequest},
		{"unknown format", "a.xyz", nil, http.StatusBadRequest, errors.ErrCodeBadRequest},
		{"unsupported language", "a.wav", map[string]string{"language": "xx-XX"}, http.StatusBadRequest, errors.ErrCodeBadRequest},
		{"invalid request id", "a.wav", map[string]string{"request_id": "-x"}, http.StatusBadRequest, errors.ErrCodeBadRequest},
		{"provider failure", "a.wav", map[string]string{"request_id": "bad-1"}, http.StatusUnprocessableEntity, errors.ErrCodeUnprocessableEntity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, _ := newTestRouter(t)
			rr := httptest.NewRecorder()
			r.ServeHTTP(rr, multipartRequest(t, tt.filename, tt.fields))
			if rr.Code != tt.wantCode {
				t.Fatalf("code = %d, want %d, body = %s", rr.Code, tt.wantCode, rr.Body.String())
			}
			body, _ := decode(t, rr)["error"].(map[string]any)
			if body["code"] != string(tt.wantErr) {
				t.Errorf("error code = %v, want %s", body["code"], tt.wantErr)
			}
		})
	}
}

func TestTranscribeBatch(t *testing.T) {
	batch := func(ids ...string) *http.Request {
		reqs := make([]map[string]any, len(ids))
		for i, id := range ids {
			reqs[i] = map[string]any{
				"request_id":   id,
				"audio":        []byte("audio"),
				"audio_config": map[string]any{"format": "wav"},
			}
		}
		body, _ := json.Marshal(reqs)
		req := httptest.NewRequest(http.MethodPost, "/v1/transcriptions/batch", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		return req
	}

	t.Run("all succeed", func(t *testing.T) {
		r, rec := newTestRouter(t)
		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, batch("a-1", "", "a-3"))
		if rr.Code != http.StatusOK {
			t.Fatalf("code = %d, body = %s", rr.Code, rr.Body.String())
		}
		data, _ := decode(t, rr)["data"].(map[string]any)
		if got := data["successes"].([]any); len(got) != 3 {
			t.Errorf("successes = %d", len(got))
		}
		if len(rec.seen) != 3 {
			t.Errorf("recognized %d requests", len(rec.seen))
		}
	})

	t.Run("mixed outcome is multi-status", func(t *testing.T) {
		r, _ := newTestRouter(t)
		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, batch("a-1", "bad-2"))
		if rr.Code != http.StatusMultiStatus {
			t.Fatalf("code = %d, body = %s", rr.Code, rr.Body.String())
		}
		data, _ := decode(t, rr)["data"].(map[string]any)
		failures := data["failures"].([]any)
		if len(failures) != 1 || failures[0].(map[string]any)["request_id"] != "bad-2" {
			t.Errorf("failures = %v", failures)
		}
	})

	t.Run("empty batch", func(t *testing.T) {
		r, _ := newTestRouter(t)
		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, batch())
		if rr.Code != http.StatusBadRequest {
			t.Errorf("code = %d", rr.Code)
		}
	})

	t.Run("malformed body", func(t *testing.T) {
		r, _ := newTestRouter(t)
		rr := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/v1/transcriptions/batch", strings.NewReader("{"))
		req.Header.Set("Content-Type", "application/json")
		r.ServeHTTP(rr, req)
		if rr.Code != http.StatusBadRequest {
			t.Errorf("code = %d", rr.Code)
		}
	})
}

func TestLanguagesAndNotFound(t *testing.T) {
	r, _ := newTestRouter(t)

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/languages", http.NoBody))
	if rr.Code != http.StatusOK {
		t.Fatalf("code = %d", rr.Code)
	}
	data, _ := decode(t, rr)["data"].(map[string]any)
	if data["provider"] != "echo" || len(data["languages"].([]any)) != 2 {
		t.Errorf("unexpected languages %v", data)
	}

	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/nope", http.NoBody))
	if rr.Code != http.StatusNotFound {
		t.Errorf("code = %d", rr.Code)
	}
}
