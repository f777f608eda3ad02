package auth

import (
	"testing"
	"time"
)

func TestIssuer(t *testing.T) {
	issuer := NewIssuer([]byte("topsecret"), 7*24*time.Hour)
	token, err := issuer.Issue("admin")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if len(token) == 0 {
		t.Fatalf("expected token")
	}
	claims, err := issuer.Verify(token)
	if err != nil {
		t.Fatalf("expected token to verify: %v", err)
	}
	if claims.Username != "admin" {
		t.Fatalf("unexpected username %q", claims.Username)
	}
	if got := claims.ExpiresAt.Sub(claims.IssuedAt.Time); got != 7*24*time.Hour {
		t.Fatalf("unexpected lifetime %v", got)
	}

	// A token signed with another secret must be rejected.
	other := NewIssuer([]byte("othersecret"), time.Hour)
	if _, err := other.Verify(token); err == nil {
		t.Fatalf("expected verification to fail for wrong secret")
	}
	if _, err := issuer.Verify(token + "x"); err == nil {
		t.Fatalf("expected verification to fail for tampered token")
	}
}

func TestIssuerRejectsExpired(t *testing.T) {
	issuer := NewIssuer([]byte("topsecret"), time.Hour)
	issuer.now = func() time.Time { return time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC) }
	token, err := issuer.Issue("admin")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	issuer.now = func() time.Time { return time.Date(2025, 1, 1, 2, 0, 0, 0, time.UTC) }
	if _, err := issuer.Verify(token); err == nil {
		t.Fatalf("expected expired token to be rejected")
	}
}
