package auth

import (
	"strings"
	"testing"
	"time"
)

func TestIssueAndVerifyToken(t *testing.T) {
	token, err := IssueToken(42, "secret", time.Hour)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	claims, err := VerifyToken(token, "secret")
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if claims.UserID != 42 {
		t.Fatalf("want user 42, got %d", claims.UserID)
	}
	if claims.ExpiresAt == nil || !claims.ExpiresAt.After(time.Now()) {
		t.Fatal("expiry must lie in the future")
	}
}

func TestVerifyTokenExpired(t *testing.T) {
	token, err := IssueToken(42, "secret", -time.Minute)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := VerifyToken(token, "secret"); err != ErrInvalidToken {
		t.Fatalf("want ErrInvalidToken for expired token, got %v", err)
	}
}

func TestVerifyTokenWrongSecret(t *testing.T) {
	token, err := IssueToken(42, "secret", time.Hour)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := VerifyToken(token, "other-secret"); err != ErrInvalidToken {
		t.Fatalf("want ErrInvalidToken for wrong secret, got %v", err)
	}
}

func TestVerifyTokenTampered(t *testing.T) {
	token, err := IssueToken(42, "secret", time.Hour)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		t.Fatalf("unexpected token shape: %q", token)
	}
	// Flip a payload character; the signature no longer matches.
	payload := []byte(parts[1])
	if payload[0] == 'A' {
		payload[0] = 'B'
	} else {
		payload[0] = 'A'
	}
	tampered := parts[0] + "." + string(payload) + "." + parts[2]

	if _, err := VerifyToken(tampered, "secret"); err != ErrInvalidToken {
		t.Fatalf("want ErrInvalidToken for tampered token, got %v", err)
	}
}

func TestVerifyTokenGarbage(t *testing.T) {
	for _, tok := range []string{"", "garbage", "a.b.c"} {
		if _, err := VerifyToken(tok, "secret"); err != ErrInvalidToken {
			t.Fatalf("want ErrInvalidToken for %q, got %v", tok, err)
		}
	}
}
