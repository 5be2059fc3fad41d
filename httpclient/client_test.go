package httpclient

import (
	"context"
	"encoding/json"
	"io"
	"mime"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kbukum/transcribe/errors"
	"github.com/kbukum/transcribe/resilience"
)

func noSleepRetry() *resilience.RetryConfig {
	cfg := resilience.DefaultRetryConfig()
	cfg.Sleep = func(context.Context, time.Duration) error { return nil }
	return &cfg
}

func TestClient_Do_JSONRoundTrip(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/v2/recognize" {
			t.Errorf("unexpected %s %s", r.Method, r.URL.Path)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("Content-Type = %q", ct)
		}
		if got := r.Header.Get("X-Default"); got != "1" {
			t.Errorf("default header = %q", got)
		}
		if got := r.URL.Query().Get("alt"); got != "json" {
			t.Errorf("query alt = %q", got)
		}
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"echo": body["name"]})
	}))
	defer srv.Close()

	c, err := New(Config{BaseURL: srv.URL, Headers: map[string]string{"X-Default": "1"}})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	resp, err := c.Do(context.Background(), Request{
		Method: http.MethodPost,
		Path:   "/v2/recognize",
		Query:  map[string]string{"alt": "json"},
		Body:   map[string]string{"name": "job-1"},
	})
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	if !resp.IsSuccess() || !strings.Contains(string(resp.Body), "job-1") {
		t.Errorf("unexpected response %d %s", resp.StatusCode, resp.Body)
	}
}

func TestClient_Do_StatusClassification(t *testing.T) {
	tests := []struct {
		status int
		want   errors.ErrorCode
	}{
		{400, errors.ErrCodeBadRequest},
		{401, errors.ErrCodeUnauthorized},
		{403, errors.ErrCodeForbidden},
		{404, errors.ErrCodeNotFound},
		{409, errors.ErrCodeConflict},
		{422, errors.ErrCodeUnprocessableEntity},
		{429, errors.ErrCodeRateLimited},
		{500, errors.ErrCodeInternal},
		{503, errors.ErrCodeInternal},
		{418, errors.ErrCodeUnknown},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte("provider says no"))
			}))
			defer srv.Close()

			c, _ := New(Config{BaseURL: srv.URL})
			resp, err := c.Do(context.Background(), Request{RequestID: "job-7", Method: http.MethodGet, Path: "/x"})
			appErr, ok := errors.AsAppError(err)
			if !ok {
				t.Fatalf("expected AppError, got %v", err)
			}
			if appErr.Code != tt.want {
				t.Errorf("code = %s, want %s", appErr.Code, tt.want)
			}
			if appErr.RequestID != "job-7" || appErr.ProviderError != "provider says no" {
				t.Errorf("error lost context: %+v", appErr)
			}
			if resp == nil || resp.StatusCode != tt.status {
				t.Errorf("response should accompany status errors, got %+v", resp)
			}
		})
	}
}

func TestClient_Do_RetriesTransientOnly(t *testing.T) {
	tests := []struct {
		name      string
		failures  int
		status    int
		wantCalls int32
		wantErr   bool
	}{
		{"recovers after 503", 2, http.StatusServiceUnavailable, 3, false},
		{"recovers after 429", 1, http.StatusTooManyRequests, 2, false},
		{"gives up after 3 attempts", 5, http.StatusBadGateway, 3, true},
		{"never retries 400", 5, http.StatusBadRequest, 1, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls int32
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if int(atomic.AddInt32(&calls, 1)) <= tt.failures {
					w.WriteHeader(tt.status)
					return
				}
				_, _ = w.Write([]byte("ok"))
			}))
			defer srv.Close()

			c, _ := New(Config{BaseURL: srv.URL, Retry: noSleepRetry()})
			_, err := c.Do(context.Background(), Request{Method: http.MethodGet, Path: "/"})
			if (err != nil) != tt.wantErr {
				t.Errorf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if got := atomic.LoadInt32(&calls); got != tt.wantCalls {
				t.Errorf("calls = %d, want %d", got, tt.wantCalls)
			}
		})
	}
}

func TestClient_Do_CircuitBreaker(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	cb := resilience.DefaultCircuitBreakerConfig("flaky")
	cb.MaxFailures = 2
	c, _ := New(Config{BaseURL: srv.URL, CircuitBreaker: &cb})

	for i := 0; i < 2; i++ {
		_, _ = c.Do(context.Background(), Request{Method: http.MethodGet, Path: "/"})
	}
	if c.IsAvailable(context.Background()) {
		t.Error("client should report unavailable while the circuit is open")
	}

	_, err := c.Do(context.Background(), Request{RequestID: "r9", Method: http.MethodGet, Path: "/"})
	if !errors.HasCode(err, errors.ErrCodeInternal) {
		t.Errorf("open circuit should surface as INTERNAL_ERROR, got %v", err)
	}
	if got := atomic.LoadInt32(&calls); got != 2 {
		t.Errorf("server calls = %d, want 2", got)
	}
}

func TestClient_Do_ConnectionFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	c, _ := New(Config{BaseURL: url})
	_, err := c.Do(context.Background(), Request{RequestID: "r1", Method: http.MethodGet, Path: "/"})
	if !errors.IsRetryable(err) || !errors.HasCode(err, errors.ErrCodeInternal) {
		t.Errorf("connection failure should be a retryable INTERNAL_ERROR, got %v", err)
	}
}

func TestClient_Do_ContextCanceled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	c, _ := New(Config{BaseURL: srv.URL, Retry: noSleepRetry()})
	_, err := c.Do(ctx, Request{Method: http.MethodGet, Path: "/"})
	if err != context.DeadlineExceeded {
		t.Errorf("expected context.DeadlineExceeded, got %v", err)
	}
}

func TestClient_Do_Multipart(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
		if err != nil || mediaType != "multipart/form-data" {
			t.Errorf("Content-Type = %q", r.Header.Get("Content-Type"))
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Fatalf("ParseMultipartForm: %v", err)
		}
		if got := r.FormValue("language"); got != "en" {
			t.Errorf("language = %q", got)
		}
		file, header, err := r.FormFile("audio")
		if err != nil {
			t.Fatalf("FormFile: %v", err)
		}
		defer file.Close()
		data, _ := io.ReadAll(file)
		if header.Filename != "job-1.wav" || string(data) != "RIFF" {
			t.Errorf("file %q = %q", header.Filename, data)
		}
		if got := header.Header.Get("Content-Type"); got != "audio/wav" {
			t.Errorf("part Content-Type = %q", got)
		}
		_, _ = w.Write([]byte(`{"text":"hello"}`))
	}))
	defer srv.Close()

	c, _ := New(Config{BaseURL: srv.URL, Retry: noSleepRetry()})
	out, err := Post[map[string]string](c, context.Background(), "/transcribe", &MultipartBody{
		Fields: map[string]string{"language": "en"},
		Files:  []FileField{{FieldName: "audio", FileName: "job-1.wav", ContentType: "audio/wav", Data: []byte("RIFF")}},
	})
	if err != nil {
		t.Fatalf("Post: %v", err)
	}
	if out["text"] != "hello" {
		t.Errorf("decoded = %v", out)
	}
}

func TestTypedHelpers(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ok":
			if r.Header.Get("X-Trace") != "t1" || r.URL.Query().Get("view") != "full" {
				t.Errorf("options not applied: %v %v", r.Header, r.URL.Query())
			}
			_, _ = w.Write([]byte(`{"done":true}`))
		case "/garbage":
			_, _ = w.Write([]byte(`not json`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()
	c, _ := New(Config{BaseURL: srv.URL})
	ctx := context.Background()

	type op struct {
		Done bool `json:"done"`
	}
	got, err := Get[op](c, ctx, "/ok", WithHeader("X-Trace", "t1"), WithQueryParam("view", "full"))
	if err != nil || !got.Done {
		t.Errorf("Get = %+v, %v", got, err)
	}

	if _, err := Get[op](c, ctx, "/garbage", WithRequestID("r2")); !errors.HasCode(err, errors.ErrCodeUnknown) {
		t.Errorf("undecodable body should be UNKNOWN, got %v", err)
	}
	if _, err := Delete[op](c, ctx, "/missing"); !errors.IsNotFound(err) {
		t.Errorf("Delete on missing resource should be NOT_FOUND, got %v", err)
	}
}

func TestClient_Download(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"results":{}}`))
	}))
	defer srv.Close()

	c, _ := New(Config{Name: "transcripts"})
	body, err := c.Download(context.Background(), "job-1", srv.URL+"/transcript.json")
	if err != nil {
		t.Fatalf("Download: %v", err)
	}
	if string(body) != `{"results":{}}` {
		t.Errorf("body = %s", body)
	}
	if c.Name() != "transcripts" {
		t.Errorf("Name() = %q", c.Name())
	}
}

type headerTransport struct{ base http.RoundTripper }

func (h headerTransport) RoundTrip(r *http.Request) (*http.Response, error) {
	r.Header.Set("Authorization", "Bearer from-transport")
	return h.base.RoundTrip(r)
}

func TestWithTransport(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer from-transport" {
			t.Errorf("Authorization = %q", got)
		}
	}))
	defer srv.Close()

	c, _ := New(Config{BaseURL: srv.URL}, WithTransport(headerTransport{base: http.DefaultTransport}))
	if _, err := c.Do(context.Background(), Request{Method: http.MethodGet, Path: "/"}); err != nil {
		t.Fatalf("Do: %v", err)
	}
	_ = c.Close(context.Background())
}
