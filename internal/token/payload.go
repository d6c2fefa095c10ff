// Package token issues and validates self-contained signed access tokens
// for resource downloads. A token is two base64url segments joined by a
// dot: the canonical JSON payload and its HMAC-SHA256 signature.
package token

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrMalformedToken indicates a payload segment that cannot be decoded:
// bad base64, bad JSON, or required claims missing.
var ErrMalformedToken = errors.New("token: malformed payload")

// Payload is the set of claims carried by a signed token. ExpiresAt is
// unix seconds and is always derived server-side; it is never accepted
// from client input.
type Payload struct {
	ResourceType string         `json:"resource_type"`
	ResourceID   int64          `json:"resource_id"`
	UserID       int64          `json:"user_id"`
	Action       string         `json:"action"`
	ExpiresAt    int64          `json:"expires_at"`
	ExtraData    map[string]any `json:"extra_data,omitempty"`
}

// wirePayload is the compact on-the-wire form. Pointer fields let decoding
// distinguish a missing claim from a zero value.
type wirePayload struct {
	ResourceType *string        `json:"rt"`
	ResourceID   *int64         `json:"ri"`
	UserID       *int64         `json:"ui"`
	Action       *string        `json:"a"`
	ExpiresAt    *int64         `json:"e"`
	ExtraData    map[string]any `json:"x,omitempty"`
}

// encodePayload serializes p as sorted-key JSON without whitespace and
// base64url-encodes it with padding stripped. Marshalling through a map
// keeps the key order canonical: the signature is computed over these
// exact bytes, so any reordering would invalidate previously issued
// tokens.
func encodePayload(p Payload) (string, error) {
	claims := map[string]any{
		"rt": p.ResourceType,
		"ri": p.ResourceID,
		"ui": p.UserID,
		"a":  p.Action,
		"e":  p.ExpiresAt,
	}
	if p.ExtraData != nil {
		claims["x"] = p.ExtraData
	}
	data, err := json.Marshal(claims)
	if err != nil {
		return "", fmt.Errorf("marshal payload: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(data), nil
}

// decodePayload reverses encodePayload. All decode failures collapse into
// ErrMalformedToken so callers cannot distinguish which check failed.
func decodePayload(segment string) (Payload, error) {
	data, err := base64.RawURLEncoding.DecodeString(segment)
	if err != nil {
		return Payload{}, ErrMalformedToken
	}
	var wire wirePayload
	if err := json.Unmarshal(data, &wire); err != nil {
		return Payload{}, ErrMalformedToken
	}
	if wire.ResourceType == nil || wire.ResourceID == nil || wire.UserID == nil ||
		wire.Action == nil || wire.ExpiresAt == nil {
		return Payload{}, ErrMalformedToken
	}
	return Payload{
		ResourceType: *wire.ResourceType,
		ResourceID:   *wire.ResourceID,
		UserID:       *wire.UserID,
		Action:       *wire.Action,
		ExpiresAt:    *wire.ExpiresAt,
		ExtraData:    wire.ExtraData,
	}, nil
}
