package auth

import (
	"testing"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwt"
)

func signToken(t *testing.T, secret string, roles []string, expiry time.Time) string {
	t.Helper()
	builder := jwt.NewBuilder().
		Issuer("kodpazar").
		Audience([]string{"kodpazar-api"}).
		Subject("42").
		IssuedAt(time.Now()).
		Expiration(expiry)
	if roles != nil {
		builder = builder.Claim("roles", roles)
	}
	token, err := builder.Build()
	if err != nil {
		t.Fatalf("build token: %v", err)
	}
	signed, err := jwt.Sign(token, jwt.WithKey(jwa.HS256, []byte(secret)))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return string(signed)
}

func newTestVerifier(t *testing.T, secret string) *Verifier {
	t.Helper()
	v, err := NewVerifier(VerifierConfig{
		Secret:   secret,
		Issuer:   "kodpazar",
		Audience: "kodpazar-api",
	})
	if err != nil {
		t.Fatalf("new verifier: %v", err)
	}
	return v
}

func TestVerifierParseAccessToken(t *testing.T) {
	v := newTestVerifier(t, "test-secret")
	signed := signToken(t, "test-secret", []string{"admin"}, time.Now().Add(time.Minute))

	claims, err := v.ParseAccessToken(signed)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if claims.UserID != "42" {
		t.Fatalf("user id = %q, want 42", claims.UserID)
	}
	if len(claims.Roles) != 1 || claims.Roles[0] != "admin" {
		t.Fatalf("roles = %v, want [admin]", claims.Roles)
	}
}

func TestVerifierRejectsWrongSecret(t *testing.T) {
	v := newTestVerifier(t, "test-secret")
	signed := signToken(t, "another-secret", nil, time.Now().Add(time.Minute))

	if _, err := v.ParseAccessToken(signed); err == nil {
		t.Fatal("expected signature verification error")
	}
}

func TestVerifierRejectsExpired(t *testing.T) {
	v := newTestVerifier(t, "test-secret")
	signed := signToken(t, "test-secret", nil, time.Now().Add(-time.Minute))

	if _, err := v.ParseAccessToken(signed); err == nil {
		t.Fatal("expected expiry error")
	}
}

func TestVerifierEmptyToken(t *testing.T) {
	v := newTestVerifier(t, "test-secret")
	if _, err := v.ParseAccessToken("  "); err == nil {
		t.Fatal("expected error for empty token")
	}
}
