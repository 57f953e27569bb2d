// Package auth validates the session tokens presented by the mobile client.
//
// SESSION FLOW:
// 1. The client completes sign-in/sign-up against the identity provider.
// 2. The provider issues a signed session JWT; the client sends it on every
//    API call as "Authorization: Bearer <token>".
// 3. RequireAuth validates the token and puts the session claims in the
//    request context; handlers read the Clerk user ID (and profile fields)
//    from there.
//
// The token carries everything the fallback sync needs to build a user row
// (subject, email, given_name, family_name, picture), so the server never
// has to call back to the provider during a sync.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenService validates (and, for tests and local tooling, issues)
// session tokens. It holds the HMAC secret shared with the token issuer.
type TokenService struct {
	secret []byte
}

// NewTokenService creates a TokenService with the given secret.
// The secret should be at least 32 bytes of random data in production.
func NewTokenService(secret string) (*TokenService, error) {
	if len(secret) < 16 {
		return nil, errors.New("auth: session JWT secret must be at least 16 characters")
	}
	return &TokenService{secret: []byte(secret)}, nil
}

// SessionClaims is the JWT payload of a session token.
//
// Subject (the registered "sub" claim) carries the Clerk user ID. The
// profile claims mirror what the client can read off its own session
// object — they feed the fallback sync when no user row exists yet.
type SessionClaims struct {
	Email     string `json:"email,omitempty"`
	FirstName string `json:"given_name,omitempty"`
	LastName  string `json:"family_name,omitempty"`
	ImageURL  string `json:"picture,omitempty"`
	jwt.RegisteredClaims
}

const issuer = "clerk-sync"

// Generate creates and signs a session token for the given claims.
// Used by tests and the local dev token tooling; in production the
// identity provider is the issuer.
func (s *TokenService) Generate(claims SessionClaims, d time.Duration) (string, error) {
	now := time.Now()
	claims.Issuer = issuer
	claims.IssuedAt = jwt.NewNumericDate(now)
	claims.ExpiresAt = jwt.NewNumericDate(now.Add(d))

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("auth: signing token: %w", err)
	}

	return signed, nil
}

// Validate parses and verifies a session token string.
//
// Checks performed by the jwt library: signature, expiry, issuer, and that
// the algorithm really is HS256 (jwt.WithValidMethods closes the algorithm
// confusion hole where a token claims "none" or an asymmetric scheme).
func (s *TokenService) Validate(tokenStr string) (*SessionClaims, error) {
	token, err := jwt.ParseWithClaims(
		tokenStr,
		&SessionClaims{},
		func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("auth: unexpected signing method: %v", token.Header["alg"])
			}
			return s.secret, nil
		},
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("auth: token expired")
		}
		return nil, fmt.Errorf("auth: invalid token: %w", err)
	}

	claims, ok := token.Claims.(*SessionClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("auth: invalid token claims")
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("auth: token has no subject")
	}

	return claims, nil
}
