// Package signing produces and verifies HMAC-SHA256 message authentication
// codes bound to a shared secret. Signatures are base64url-encoded without
// padding so they can be embedded directly in URLs.
package signing

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
)

// ErrMissingSecret indicates the signing secret is absent or empty. Nothing
// may be signed until a secret is configured.
var ErrMissingSecret = errors.New("signing: secret is not configured")

// Signer computes and verifies signatures with a fixed secret. It holds no
// mutable state; any number of Signers built from the same secret produce
// interchangeable signatures.
type Signer struct {
	secret []byte
}

// New constructs a Signer. An empty secret is a configuration error, never
// silently defaulted.
func New(secret []byte) (*Signer, error) {
	if len(secret) == 0 {
		return nil, ErrMissingSecret
	}
	key := make([]byte, len(secret))
	copy(key, secret)
	return &Signer{secret: key}, nil
}

// Sign returns the base64url (no padding) HMAC-SHA256 signature of data.
func (s *Signer) Sign(data []byte) string {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write(data)
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}

// Verify reports whether signature matches data. The comparison is
// constant-time; a mismatch is reported, never raised.
func (s *Signer) Verify(data []byte, signature string) bool {
	expected := s.Sign(data)
	return hmac.Equal([]byte(expected), []byte(signature))
}
