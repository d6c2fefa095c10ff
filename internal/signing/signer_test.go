package signing

import (
	"errors"
	"strings"
	"testing"
)

func TestNewRequiresSecret(t *testing.T) {
	if _, err := New(nil); !errors.Is(err, ErrMissingSecret) {
		t.Fatalf("expected ErrMissingSecret, got %v", err)
	}
	if _, err := New([]byte{}); !errors.Is(err, ErrMissingSecret) {
		t.Fatalf("expected ErrMissingSecret for empty secret, got %v", err)
	}
}

func TestSignAndVerify(t *testing.T) {
	s, err := New([]byte("topsecret"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	data := []byte("eyJhIjoiZG93bmxvYWQifQ")
	sig := s.Sign(data)
	if sig == "" {
		t.Fatal("expected non-empty signature")
	}
	if strings.ContainsAny(sig, "+/=") {
		t.Fatalf("signature is not raw base64url: %q", sig)
	}
	if !s.Verify(data, sig) {
		t.Fatal("expected signature to verify")
	}
	if s.Verify([]byte("other data"), sig) {
		t.Fatal("expected verification to fail for different data")
	}
	if s.Verify(data, sig[:len(sig)-1]+"A") {
		t.Fatal("expected verification to fail for altered signature")
	}
}

func TestSignersWithDistinctSecretsDisagree(t *testing.T) {
	a, err := New([]byte("secret-a"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	b, err := New([]byte("secret-b"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	data := []byte("payload")
	if b.Verify(data, a.Sign(data)) {
		t.Fatal("signature from key A must not verify under key B")
	}
}

func TestSignersWithSharedSecretInterchangeable(t *testing.T) {
	a, err := New([]byte("shared"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	b, err := New([]byte("shared"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	data := []byte("payload")
	if !b.Verify(data, a.Sign(data)) {
		t.Fatal("independently constructed signers sharing a secret must agree")
	}
}
