package httpclient

import (
	stderrors "errors"
	"net/http"
	"testing"

	"golang.org/x/oauth2"

	"github.com/kbukum/transcribe/errors"
)

type tokenSourceFunc func() (*oauth2.Token, error)

func (f tokenSourceFunc) Token() (*oauth2.Token, error) { return f() }

func TestAuth(t *testing.T) {
	tokens := tokenSourceFunc(func() (*oauth2.Token, error) {
		return &oauth2.Token{AccessToken: "ya29.token", TokenType: "Bearer"}, nil
	})
	tests := []struct {
		name   string
		auth   Auth
		header string
		want   string
	}{
		{"bearer", BearerAuth("tok"), "Authorization", "Bearer tok"},
		{"api key default header", APIKeyAuth("k1", ""), "X-API-Key", "k1"},
		{"api key named header", APIKeyAuth("k2", "X-Goog-Api-Key"), "X-Goog-Api-Key", "k2"},
		{"token source", TokenSourceAuth(tokens), "Authorization", "Bearer ya29.token"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, _ := http.NewRequest(http.MethodGet, "http://example.com", http.NoBody)
			if err := tt.auth(req); err != nil {
				t.Fatalf("auth: %v", err)
			}
			if got := req.Header.Get(tt.header); got != tt.want {
				t.Errorf("%s = %q, want %q", tt.header, got, tt.want)
			}
		})
	}
}

func TestTokenSourceAuthFailure(t *testing.T) {
	auth := TokenSourceAuth(tokenSourceFunc(func() (*oauth2.Token, error) {
		return nil, stderrors.New("metadata server unreachable")
	}))
	req, _ := http.NewRequest(http.MethodGet, "http://example.com", http.NoBody)
	err := auth(req)
	if !errors.HasCode(err, errors.ErrCodeUnauthorized) {
		t.Errorf("expected UNAUTHORIZED, got %v", err)
	}
}
