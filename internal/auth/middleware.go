package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"
)

// contextKey is an unexported type for context keys in this package.
// Only this package can create a key of this type, so no other package can
// read or shadow the session claims stored in the context.
type contextKey string

const sessionKey contextKey = "session"

// RequireAuth enforces authentication on protected routes.
//
// It reads the session JWT from the Authorization header ("Bearer <token>"
// — the mobile client attaches its provider session token there), validates
// it, and stores the claims in the request context. A missing or invalid
// token stops the chain with 401 Unauthorized.
func RequireAuth(tokens *TokenService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, err := extractSession(r, tokens)
			if err != nil {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				w.Write([]byte(`{"error":"unauthorized","message":"valid session token required"}`))
				return
			}

			ctx := context.WithValue(r.Context(), sessionKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// SessionFromContext retrieves the authenticated session claims.
// Returns (nil, false) on routes that didn't pass through RequireAuth.
func SessionFromContext(ctx context.Context) (*SessionClaims, bool) {
	claims, ok := ctx.Value(sessionKey).(*SessionClaims)
	return claims, ok && claims != nil
}

// extractSession pulls the bearer token off the request and validates it.
func extractSession(r *http.Request, tokens *TokenService) (*SessionClaims, error) {
	header := r.Header.Get("Authorization")
	token, found := strings.CutPrefix(header, "Bearer ")
	if !found || token == "" {
		return nil, errors.New("auth: missing bearer token")
	}

	return tokens.Validate(token)
}
