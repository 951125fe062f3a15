package signing

import "testing"

func TestSignAndVerifyRoundTrip(t *testing.T) {
	s := NewSigner("secret")
	sig := s.Sign("/api/v1/books/1/chunks/0", 123456, "sometoken")
	if !s.Verify("/api/v1/books/1/chunks/0", 123456, "sometoken", sig) {
		t.Fatal("expected signature to verify")
	}
}

func TestTamperedSignatureRejected(t *testing.T) {
	s := NewSigner("secret")
	sig := s.Sign("/api/v1/books/1/chunks/0", 123456, "sometoken")
	tampered := []byte(sig)
	tampered[0] ^= 0xFF
	if s.Verify("/api/v1/books/1/chunks/0", 123456, "sometoken", string(tampered)) {
		t.Fatal("expected tampered signature to fail verification")
	}
}

func TestDifferentSecretRejected(t *testing.T) {
	s1 := NewSigner("secret-one")
	s2 := NewSigner("secret-two")
	sig := s1.Sign("/path", 100, "tok")
	if s2.Verify("/path", 100, "tok", sig) {
		t.Fatal("expected signature from a different secret to fail verification")
	}
}
