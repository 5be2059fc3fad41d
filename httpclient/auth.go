package httpclient

import (
	"net/http"

	"golang.org/x/oauth2"

	"github.com/kbukum/transcribe/errors"
)

// Auth signs an outgoing request. A nil Auth sends the request as is.
type Auth func(req *http.Request) error

// APIKeyAuth sends key in the named header, "X-API-Key" when header is
// empty.
func APIKeyAuth(key, header string) Auth {
	if header == "" {
		header = "X-API-Key"
	}
	return func(req *http.Request) error {
		req.Header.Set(header, key)
		return nil
	}
}

// BearerAuth sends a static bearer token.
func BearerAuth(token string) Auth {
	return func(req *http.Request) error {
		req.Header.Set("Authorization", "Bearer "+token)
		return nil
	}
}

// TokenSourceAuth sends a bearer token from ts on every attempt, so a
// retried request picks up a refreshed token. Wrap ts in
// oauth2.ReuseTokenSource to cache it.
func TokenSourceAuth(ts oauth2.TokenSource) Auth {
	return func(req *http.Request) error {
		tok, err := ts.Token()
		if err != nil {
			return errors.Unauthorized("", "failed to obtain access token: "+err.Error())
		}
		tok.SetAuthHeader(req)
		return nil
	}
}
