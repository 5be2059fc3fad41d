package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/kbukum/transcribe/errors"
	"github.com/kbukum/transcribe/resilience"
	"github.com/kbukum/transcribe/version"
)

// call is one stage of the request pipeline.
type call func(ctx context.Context, req Request) (*Response, error)

// Client is the HTTP transport for provider APIs. A call is retried on
// transient taxonomy errors; each attempt waits for the rate limiter and
// then passes the circuit breaker. Non-2xx responses come back as
// *errors.AppError.
type Client struct {
	http   *http.Client
	config Config
	cb     *resilience.CircuitBreaker
	do     call
}

// Option customizes a Client.
type Option func(*Client)

// WithTransport replaces the round tripper.
func WithTransport(rt http.RoundTripper) Option {
	return func(c *Client) { c.http.Transport = rt }
}

// New creates a client. Resilience stages are present only when their
// config is set.
func New(cfg Config, opts ...Option) (*Client, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	c := &Client{
		http: &http.Client{
			Transport: http.DefaultTransport.(*http.Transport).Clone(),
			Timeout:   cfg.Timeout,
		},
		config: cfg,
	}
	for _, opt := range opts {
		opt(c)
	}

	c.do = c.send
	if cfg.CircuitBreaker != nil {
		c.cb = resilience.NewCircuitBreaker(*cfg.CircuitBreaker)
		c.do = guarded(c.cb, c.do)
	}
	if cfg.RateLimiter != nil {
		c.do = paced(resilience.NewRateLimiter(*cfg.RateLimiter), c.do)
	}
	if cfg.Retry != nil {
		c.do = retried(*cfg.Retry, c.do)
	}
	return c, nil
}

func guarded(cb *resilience.CircuitBreaker, next call) call {
	return func(ctx context.Context, req Request) (*Response, error) {
		var resp *Response
		err := cb.Execute(func() (err error) {
			resp, err = next(ctx, req)
			return err
		})
		if stderrors.Is(err, resilience.ErrCircuitOpen) {
			return nil, classifyTransport(ctx, req.RequestID, err)
		}
		return resp, err
	}
}

func paced(rl *resilience.RateLimiter, next call) call {
	return func(ctx context.Context, req Request) (*Response, error) {
		if err := rl.Wait(ctx); err != nil {
			return nil, err
		}
		return next(ctx, req)
	}
}

func retried(cfg resilience.RetryConfig, next call) call {
	return func(ctx context.Context, req Request) (*Response, error) {
		return resilience.Retry(ctx, cfg, func() (*Response, error) {
			return next(ctx, req)
		})
	}
}

// Name returns the upstream name.
func (c *Client) Name() string { return c.config.Name }

// IsAvailable reports false while the circuit breaker is open.
func (c *Client) IsAvailable(context.Context) bool {
	return c.cb == nil || c.cb.State() != resilience.StateOpen
}

// Do sends req through the pipeline. On a non-2xx status the response is
// returned alongside the taxonomy error.
func (c *Client) Do(ctx context.Context, req Request) (*Response, error) {
	return c.do(ctx, req)
}

// Download fetches an absolute URL and returns the body.
func (c *Client) Download(ctx context.Context, requestID, rawURL string) ([]byte, error) {
	resp, err := c.Do(ctx, Request{RequestID: requestID, Method: http.MethodGet, Path: rawURL})
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}

// Close releases idle connections.
func (c *Client) Close(context.Context) error {
	c.http.CloseIdleConnections()
	return nil
}

func (c *Client) send(ctx context.Context, req Request) (*Response, error) {
	httpReq, err := c.newRequest(ctx, req)
	if err != nil {
		return nil, errors.Ensure(req.RequestID, err)
	}

	httpResp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, classifyTransport(ctx, req.RequestID, err)
	}
	defer func() { _ = httpResp.Body.Close() }()

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, classifyTransport(ctx, req.RequestID, fmt.Errorf("read response body: %w", err))
	}

	resp := &Response{
		StatusCode: httpResp.StatusCode,
		Headers:    make(map[string]string, len(httpResp.Header)),
		Body:       body,
	}
	for k := range httpResp.Header {
		resp.Headers[k] = httpResp.Header.Get(k)
	}
	if appErr := classifyStatus(resp.StatusCode, req.RequestID, body); appErr != nil {
		return resp, appErr
	}
	return resp, nil
}

func (c *Client) newRequest(ctx context.Context, req Request) (*http.Request, error) {
	target, err := c.resolve(req.Path, req.Query)
	if err != nil {
		return nil, err
	}
	body, contentType, err := encodeBody(req.Body)
	if err != nil {
		return nil, fmt.Errorf("encode body: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, target, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	h := httpReq.Header
	h.Set("User-Agent", version.UserAgent())
	for _, set := range []map[string]string{c.config.Headers, req.Headers} {
		for k, v := range set {
			h.Set(k, v)
		}
	}
	if body != nil && contentType != "" && h.Get("Content-Type") == "" {
		h.Set("Content-Type", contentType)
	}

	auth := c.config.Auth
	if req.Auth != nil {
		auth = req.Auth
	}
	if auth == nil {
		return httpReq, nil
	}
	return httpReq, auth(httpReq)
}

// resolve joins path onto BaseURL unless path is already absolute, and
// merges query into it. Paths such as "v2/recognizers/_:recognize" carry a
// colon, so absoluteness is decided by prefix, not by url.Parse.
func (c *Client) resolve(path string, query map[string]string) (string, error) {
	target := path
	absolute := strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://")
	if !absolute && c.config.BaseURL != "" {
		target = strings.TrimRight(c.config.BaseURL, "/") + "/" + strings.TrimLeft(path, "/")
	}
	if len(query) == 0 {
		return target, nil
	}
	u, err := url.Parse(target)
	if err != nil {
		return "", fmt.Errorf("parse url %q: %w", target, err)
	}
	q := u.Query()
	for k, v := range query {
		q.Set(k, v)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// encodeBody runs once per attempt, so a retried request carries the
// full body again.
func encodeBody(body any) (io.Reader, string, error) {
	switch v := body.(type) {
	case nil:
		return nil, "", nil
	case []byte:
		return bytes.NewReader(v), "application/octet-stream", nil
	case string:
		return strings.NewReader(v), "text/plain", nil
	case *MultipartBody:
		return v.encode()
	}
	data, err := json.Marshal(body)
	if err != nil {
		return nil, "", err
	}
	return bytes.NewReader(data), "application/json", nil
}
