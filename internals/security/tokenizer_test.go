package security

import (
	"testing"
	"time"

	"sentinel/config"
)

func testTokenService(ttl time.Duration) *TokenService {
	return NewTokenService(&config.AuthConfig{Secret: "test-secret", TokenTTL: ttl})
}

func TestTokenRoundtrip(t *testing.T) {
	ts := testTokenService(time.Minute)

	token, err := ts.GenerateAccessToken(RequestClaims{Operator: "oncall"})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	claims, err := ts.ValidateAccessToken(token)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if claims.Operator != "oncall" {
		t.Errorf("operator = %q, want oncall", claims.Operator)
	}
}

func TestTokenSignedWithOtherSecretRejected(t *testing.T) {
	token, err := testTokenService(time.Minute).GenerateAccessToken(RequestClaims{Operator: "oncall"})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	other := NewTokenService(&config.AuthConfig{Secret: "another-secret", TokenTTL: time.Minute})
	if _, err := other.ValidateAccessToken(token); err == nil {
		t.Fatal("token signed with a different secret validated")
	}
}

func TestExpiredTokenRejected(t *testing.T) {
	ts := testTokenService(-time.Minute)

	token, err := ts.GenerateAccessToken(RequestClaims{Operator: "oncall"})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	if _, err := ts.ValidateAccessToken(token); err == nil {
		t.Fatal("expired token validated")
	}
}
