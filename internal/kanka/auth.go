package kanka

import "errors"

// HeaderProvider supplies the headers every API call must carry.
type HeaderProvider interface {
	Headers() map[string]string
}

// ErrMissingToken is returned when no personal access token is configured.
var ErrMissingToken = errors.New("kanka: api token is not configured")

// TokenHeaders authenticates with a Kanka personal access token.
type TokenHeaders struct {
	token string
}

// NewTokenHeaders wraps token. It fails fast on an empty token so a refresh
// does not fan out dozens of unauthenticated calls.
func NewTokenHeaders(token string) (*TokenHeaders, error) {
	if token == "" {
		return nil, ErrMissingToken
	}
	return &TokenHeaders{token: token}, nil
}

// Headers returns the bearer token and JSON accept headers.
func (t *TokenHeaders) Headers() map[string]string {
	return map[string]string{
		"Authorization": "Bearer " + t.token,
		"Accept":        "application/json",
	}
}
