package usertoken

import (
	"testing"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
)

func newTestManager(t *testing.T, cfg Config) *Manager {
	t.Helper()
	if cfg.Secret == "" {
		cfg.Secret = "test-secret"
	}
	m, err := New(cfg)
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	return m
}

func TestIssueAndVerifySubject(t *testing.T) {
	m := newTestManager(t, Config{})
	token, err := m.Issue(42)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	id, err := m.VerifySubject(token)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if id != 42 {
		t.Fatalf("expected subject 42, got %d", id)
	}
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	m := newTestManager(t, Config{Secret: "secret-a"})
	other := newTestManager(t, Config{Secret: "secret-b"})
	token, err := m.Issue(7)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := other.VerifySubject(token); err == nil {
		t.Fatalf("expected verification with wrong secret to fail")
	}
}

func TestVerifyRejectsExpiredToken(t *testing.T) {
	m := newTestManager(t, Config{TTL: time.Millisecond, Leeway: time.Millisecond})
	token, err := m.Issue(7)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	time.Sleep(10 * time.Millisecond)
	if _, err := m.VerifySubject(token); err == nil {
		t.Fatalf("expected expired token to fail verification")
	}
}

func TestVerifyRejectsWrongSigningMethod(t *testing.T) {
	m := newTestManager(t, Config{})
	// Unsigned token with the right claims must still be rejected.
	claims := jwt.RegisteredClaims{
		Subject:   "42",
		Issuer:    defaultIssuer,
		Audience:  jwt.ClaimStrings{defaultAudience},
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}
	unsigned := jwt.NewWithClaims(jwt.SigningMethodNone, claims)
	token, err := unsigned.SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("sign none: %v", err)
	}
	if _, err := m.VerifySubject(token); err == nil {
		t.Fatalf("expected alg=none token to fail verification")
	}
}

func TestVerifyRejectsNonNumericSubject(t *testing.T) {
	m := newTestManager(t, Config{})
	claims := jwt.RegisteredClaims{
		Subject:   "not-a-number",
		Issuer:    defaultIssuer,
		Audience:  jwt.ClaimStrings{defaultAudience},
		IssuedAt:  jwt.NewNumericDate(time.Now()),
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := m.VerifySubject(token); err == nil {
		t.Fatalf("expected non-numeric subject to fail verification")
	}
}
