package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/Luca89aa/video-analyzer/internal/domain"
)

// TokenVerifier validates an access token against the auth provider.
type TokenVerifier interface {
	AuthUser(ctx context.Context, token string) (string, error)
}

// Resolver resolves a caller's identity from an incoming request.
type Resolver struct {
	verifier   TokenVerifier
	cookieName string
}

// NewResolver creates a new identity resolver.
func NewResolver(verifier TokenVerifier, cookieName string) *Resolver {
	return &Resolver{
		verifier:   verifier,
		cookieName: cookieName,
	}
}

// Resolve produces the caller's user id or fails with ErrUnauthenticated.
// Credentials are tried in order: session cookie, Authorization bearer
// header, then the request-body token. Each candidate is validated against
// the auth provider; the first that verifies wins. No side effects, and the
// resolver never fails open.
func (r *Resolver) Resolve(req *http.Request, bodyToken string) (string, error) {
	for _, token := range r.candidates(req, bodyToken) {
		userID, err := r.verifier.AuthUser(req.Context(), token)
		if err == nil && userID != "" {
			return userID, nil
		}
	}
	return "", domain.ErrUnauthenticated
}

func (r *Resolver) candidates(req *http.Request, bodyToken string) []string {
	var tokens []string
	if c, err := req.Cookie(r.cookieName); err == nil && c.Value != "" {
		tokens = append(tokens, c.Value)
	}
	if t := BearerToken(req); t != "" {
		tokens = append(tokens, t)
	}
	if bodyToken != "" {
		tokens = append(tokens, bodyToken)
	}
	return tokens
}

// BearerToken extracts the token from an Authorization: Bearer header.
func BearerToken(req *http.Request) string {
	h := req.Header.Get("Authorization")
	if h == "" {
		return ""
	}
	if len(h) > 7 && strings.EqualFold(h[:7], "Bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}

// SessionToken returns the raw access token carried by the session cookie,
// or the empty string when the cookie is absent.
func (r *Resolver) SessionToken(req *http.Request) string {
	if c, err := req.Cookie(r.cookieName); err == nil {
		return c.Value
	}
	return ""
}
