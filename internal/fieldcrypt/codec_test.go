package fieldcrypt

import (
	"errors"
	"testing"

	"github.com/fernet/fernet-go"
)

func testKey(t *testing.T, fill byte) string {
	t.Helper()
	var key fernet.Key
	for i := range key {
		key[i] = fill
	}
	return key.Encode()
}

func TestCodecRoundTrip(t *testing.T) {
	codec, err := NewCodec(testKey(t, 0x11))
	if err != nil {
		t.Fatalf("NewCodec: %v", err)
	}

	plain := "C12345678"
	ciphertext, err := codec.EncryptString(plain)
	if err != nil {
		t.Fatalf("EncryptString: %v", err)
	}
	if ciphertext == plain {
		t.Fatal("ciphertext must differ from plaintext")
	}
	got, err := codec.DecryptString(ciphertext)
	if err != nil {
		t.Fatalf("DecryptString: %v", err)
	}
	if got != plain {
		t.Fatalf("round trip mismatch: %q != %q", got, plain)
	}
}

func TestDecryptWithWrongKeyFails(t *testing.T) {
	a, err := NewCodec(testKey(t, 0x11))
	if err != nil {
		t.Fatalf("NewCodec: %v", err)
	}
	b, err := NewCodec(testKey(t, 0x22))
	if err != nil {
		t.Fatalf("NewCodec: %v", err)
	}

	ciphertext, err := a.EncryptString("1958-03-14")
	if err != nil {
		t.Fatalf("EncryptString: %v", err)
	}
	if _, err := b.DecryptString(ciphertext); !errors.Is(err, ErrDecryptFailed) {
		t.Fatalf("expected ErrDecryptFailed, got %v", err)
	}
}

func TestDecryptRejectsPlaintext(t *testing.T) {
	codec, err := NewCodec(testKey(t, 0x11))
	if err != nil {
		t.Fatalf("NewCodec: %v", err)
	}
	if _, err := codec.DecryptString("just a plain value"); !errors.Is(err, ErrDecryptFailed) {
		t.Fatalf("expected ErrDecryptFailed, got %v", err)
	}
}

func TestParseKeyRejectsBadMaterial(t *testing.T) {
	cases := []string{"", "short", "not-base64!!!!"}
	for _, raw := range cases {
		if _, err := ParseKey(raw); !errors.Is(err, ErrInvalidKey) {
			t.Fatalf("ParseKey(%q): expected ErrInvalidKey, got %v", raw, err)
		}
	}
	if _, err := ParseKey(testKey(t, 0x33)); err != nil {
		t.Fatalf("valid key rejected: %v", err)
	}
}

func TestRegistryValidate(t *testing.T) {
	if err := DefaultRegistry.Validate(); err != nil {
		t.Fatalf("default registry invalid: %v", err)
	}

	bad := Registry{{Table: "users; drop table users", PKColumn: "id", Column: "c"}}
	if err := bad.Validate(); err == nil {
		t.Fatal("expected validation error for hostile table name")
	}

	dup := Registry{
		{Table: "t", PKColumn: "id", Column: "c"},
		{Table: "t", PKColumn: "id", Column: "c"},
	}
	if err := dup.Validate(); err == nil {
		t.Fatal("expected validation error for duplicate entry")
	}
}
