package token

import (
	"testing"
	"time"
)

func TestSignVerify_RoundTrip(t *testing.T) {
	s := NewSigner("secret", time.Hour)

	tok, err := s.Sign("42")
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	subject, err := s.Verify(tok)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if subject != "42" {
		t.Fatalf("subject = %q, want 42", subject)
	}
}

func TestVerify_RejectsWrongSecret(t *testing.T) {
	tok, err := NewSigner("secret-a", time.Hour).Sign("42")
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := NewSigner("secret-b", time.Hour).Verify(tok); err == nil {
		t.Fatalf("expected verification failure with wrong secret")
	}
}

func TestVerify_RejectsExpired(t *testing.T) {
	s := NewSigner("secret", time.Nanosecond)
	tok, err := s.Sign("42")
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	time.Sleep(10 * time.Millisecond)
	if _, err := s.Verify(tok); err == nil {
		t.Fatalf("expected verification failure for expired token")
	}
}

func TestVerify_RejectsGarbage(t *testing.T) {
	s := NewSigner("secret", time.Hour)
	if _, err := s.Verify("not-a-token"); err == nil {
		t.Fatalf("expected verification failure for garbage input")
	}
}
