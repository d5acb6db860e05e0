package api

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
)

// ErrUnauthenticated is returned by authenticators for requests without
// valid credentials.
var ErrUnauthenticated = errors.New("missing or invalid credentials")

// Authenticator resolves the account a request acts for. Account identity
// is owned by an external service; the sync server only consumes it.
type Authenticator interface {
	Authenticate(r *http.Request) (accountID string, err error)
}

// TokenAuthenticator accepts static bearer tokens, each bound to one
// account. Websocket clients that cannot set headers may pass the token
// as the access_token query parameter.
type TokenAuthenticator struct {
	mu     sync.RWMutex
	tokens map[string]string
}

// NewTokenAuthenticator creates an authenticator from token -> account.
func NewTokenAuthenticator(tokens map[string]string) *TokenAuthenticator {
	a := &TokenAuthenticator{}
	a.SetTokens(tokens)
	return a
}

// SetTokens replaces the accepted tokens.
func (a *TokenAuthenticator) SetTokens(tokens map[string]string) {
	m := make(map[string]string, len(tokens))
	for k, v := range tokens {
		m[k] = v
	}
	a.mu.Lock()
	a.tokens = m
	a.mu.Unlock()
}

// Authenticate implements Authenticator.
func (a *TokenAuthenticator) Authenticate(r *http.Request) (string, error) {
	token := bearerToken(r)
	if token == "" {
		return "", ErrUnauthenticated
	}
	a.mu.RLock()
	account, ok := a.tokens[token]
	a.mu.RUnlock()
	if !ok || account == "" {
		return "", ErrUnauthenticated
	}
	return account, nil
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if strings.HasPrefix(h, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	}
	if h == "" {
		return strings.TrimSpace(r.URL.Query().Get("access_token"))
	}
	return ""
}

type ctxAccountKey struct{}

// WithAccount returns ctx carrying an authenticated account id.
func WithAccount(ctx context.Context, accountID string) context.Context {
	return context.WithValue(ctx, ctxAccountKey{}, accountID)
}

// AccountFrom returns the account set by the auth middleware, or "".
func AccountFrom(ctx context.Context) string {
	id, _ := ctx.Value(ctxAccountKey{}).(string)
	return id
}
