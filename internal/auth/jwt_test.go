package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// newTestTokenService creates a TokenService with a fixed secret so tests
// are deterministic.
func newTestTokenService(t *testing.T) *TokenService {
	t.Helper()
	ts, err := NewTokenService("test-secret-at-least-16-chars!!")
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}
	return ts
}

func sessionClaims(subject string) SessionClaims {
	return SessionClaims{
		Email:     "ada@example.com",
		FirstName: "Ada",
		LastName:  "Lovelace",
		ImageURL:  "https://img.clerk.com/ada",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject: subject,
		},
	}
}

// =========================================================================
// TOKEN SERVICE CONSTRUCTION TESTS
// =========================================================================

func TestNewTokenService_ShortSecret(t *testing.T) {
	_, err := NewTokenService("short")
	if err == nil {
		t.Fatal("NewTokenService() should reject secrets shorter than 16 chars")
	}
}

// =========================================================================
// GENERATE / VALIDATE TESTS
// =========================================================================

func TestValidate_RoundTrip(t *testing.T) {
	ts := newTestTokenService(t)

	token, err := ts.Generate(sessionClaims("user_123"), time.Hour)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if strings.Count(token, ".") != 2 {
		t.Errorf("token doesn't look like a JWT: %q", token)
	}

	claims, err := ts.Validate(token)
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}

	if claims.Subject != "user_123" {
		t.Errorf("Subject = %q, want %q", claims.Subject, "user_123")
	}
	if claims.Email != "ada@example.com" {
		t.Errorf("Email = %q, want %q", claims.Email, "ada@example.com")
	}
	if claims.FirstName != "Ada" || claims.LastName != "Lovelace" {
		t.Errorf("name claims = %q %q", claims.FirstName, claims.LastName)
	}
}

func TestValidate_ExpiredToken(t *testing.T) {
	ts := newTestTokenService(t)

	token, err := ts.Generate(sessionClaims("user_123"), -time.Minute)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	if _, err := ts.Validate(token); err == nil {
		t.Error("Validate() should reject an expired token")
	}
}

func TestValidate_WrongSecret(t *testing.T) {
	ts := newTestTokenService(t)
	other, err := NewTokenService("a-completely-different-secret!!!")
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}

	token, err := other.Generate(sessionClaims("user_123"), time.Hour)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	if _, err := ts.Validate(token); err == nil {
		t.Error("Validate() should reject a token signed with another secret")
	}
}

func TestValidate_MissingSubject(t *testing.T) {
	ts := newTestTokenService(t)

	token, err := ts.Generate(sessionClaims(""), time.Hour)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	if _, err := ts.Validate(token); err == nil {
		t.Error("Validate() should reject a token without a subject")
	}
}

func TestValidate_Garbage(t *testing.T) {
	ts := newTestTokenService(t)

	if _, err := ts.Validate("not.a.jwt"); err == nil {
		t.Error("Validate() should reject malformed input")
	}
}
