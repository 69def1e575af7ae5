package security

import (
	"errors"
	"testing"
	"time"
)

func TestTokenRoundTrip(t *testing.T) {
	t.Parallel()
	tokens, err := NewTokenManager("test-secret", time.Hour)
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	raw, err := tokens.Issue("u1", "Alice")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	userID, name, err := tokens.Verify(raw)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if userID != "u1" || name != "Alice" {
		t.Fatalf("got %q/%q, want u1/Alice", userID, name)
	}
}

func TestTokenWrongSecret(t *testing.T) {
	t.Parallel()
	issuer, _ := NewTokenManager("secret-a", time.Hour)
	verifier, _ := NewTokenManager("secret-b", time.Hour)

	raw, err := issuer.Issue("u1", "Alice")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, _, err := verifier.Verify(raw); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("got %v, want ErrTokenInvalid", err)
	}
}

func TestTokenExpired(t *testing.T) {
	t.Parallel()
	tokens, _ := NewTokenManager("test-secret", time.Hour)
	tokens.TTL = -time.Minute

	raw, err := tokens.Issue("u1", "Alice")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, _, err := tokens.Verify(raw); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("got %v, want ErrTokenInvalid", err)
	}
}

func TestTokenEmpty(t *testing.T) {
	t.Parallel()
	tokens, _ := NewTokenManager("test-secret", time.Hour)
	if _, _, err := tokens.Verify("  "); !errors.Is(err, ErrTokenRequired) {
		t.Fatalf("got %v, want ErrTokenRequired", err)
	}
	if _, _, err := tokens.Verify("not-a-jwt"); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("got %v, want ErrTokenInvalid", err)
	}
}

func TestNewTokenManagerRequiresSecret(t *testing.T) {
	t.Parallel()
	if _, err := NewTokenManager("  ", time.Hour); err == nil {
		t.Fatal("expected error for empty secret")
	}
}
