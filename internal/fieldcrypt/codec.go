// Package fieldcrypt encrypts individual PII columns at rest using Fernet
// and defines the static registry of every encrypted column. The registry
// is the sole source of table and column identifiers used in SQL; nothing
// user-supplied is ever interpolated.
package fieldcrypt

import (
	"errors"
	"fmt"

	"github.com/fernet/fernet-go"
)

var (
	// ErrInvalidKey indicates key material that does not base64-decode to
	// exactly 32 bytes.
	ErrInvalidKey = errors.New("fieldcrypt: invalid key")
	// ErrDecryptFailed indicates a value that could not be decrypted with
	// the configured key: wrong key, corrupt ciphertext, or plaintext
	// stored where ciphertext was expected.
	ErrDecryptFailed = errors.New("fieldcrypt: decrypt failed")
)

// ParseKey decodes and validates Fernet key material.
func ParseKey(raw string) (*fernet.Key, error) {
	if raw == "" {
		return nil, fmt.Errorf("%w: empty key", ErrInvalidKey)
	}
	key, err := fernet.DecodeKey(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	return key, nil
}

// Codec encrypts and decrypts field values with a single Fernet key. It is
// immutable and safe for concurrent use.
type Codec struct {
	key *fernet.Key
}

// NewCodec builds a Codec from encoded key material.
func NewCodec(raw string) (*Codec, error) {
	key, err := ParseKey(raw)
	if err != nil {
		return nil, err
	}
	return &Codec{key: key}, nil
}

// EncryptString returns the Fernet ciphertext token for plain. Fernet
// tokens are base64url strings, safe to store in text columns.
func (c *Codec) EncryptString(plain string) (string, error) {
	tok, err := fernet.EncryptAndSign([]byte(plain), c.key)
	if err != nil {
		return "", fmt.Errorf("encrypt field: %w", err)
	}
	return string(tok), nil
}

// DecryptString recovers the plaintext of a stored ciphertext token. The
// token's embedded timestamp is not aged out: values encrypted years ago
// must still decrypt during rotation.
func (c *Codec) DecryptString(ciphertext string) (string, error) {
	msg := fernet.VerifyAndDecrypt([]byte(ciphertext), 0, []*fernet.Key{c.key})
	if msg == nil {
		return "", ErrDecryptFailed
	}
	return string(msg), nil
}
