package httpclient

// Request describes an outbound HTTP request.
type Request struct {
	// RequestID tags any error returned for this request.
	RequestID string
	// Method is the HTTP method.
	Method string
	// Path is appended to the client's BaseURL. Absolute URLs are used as is.
	Path string
	// Headers are request-specific headers (merged with client defaults).
	Headers map[string]string
	// Query are URL query parameters.
	Query map[string]string
	// Body accepts []byte, string, *MultipartBody, or any value that is
	// JSON-encoded. Streams are not accepted because a retried request has
	// to resend the body.
	Body any
	// Auth overrides the client-level auth for this request.
	Auth Auth
}

// Response is the result of an HTTP request.
type Response struct {
	StatusCode int
	Headers    map[string]string
	Body       []byte
}

// IsSuccess returns true if the status code is 2xx.
func (r *Response) IsSuccess() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}
