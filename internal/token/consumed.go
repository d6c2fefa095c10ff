package token

import (
	"strings"
	"sync"
	"time"
)

// ConsumedSet is an opt-in, in-memory ledger of tokens that have already
// been redeemed. ValidateToken itself is stateless and treats a valid,
// unexpired token as reusable; callers that need single-use links mark
// each token after a successful validation and reject ones already seen.
//
// Entries are keyed by the token's signature segment and expire with the
// token's own lifetime, so the set stays small under short TTLs.
type ConsumedSet struct {
	mu      sync.RWMutex
	entries map[string]time.Time
}

// NewConsumedSet creates an empty ledger.
func NewConsumedSet() *ConsumedSet {
	return &ConsumedSet{entries: make(map[string]time.Time)}
}

// MarkConsumed records a redeemed token. expiresAt is the token's natural
// expiry; the entry is dropped by Cleanup once it passes.
func (c *ConsumedSet) MarkConsumed(tok string, expiresAt time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[signatureKey(tok)] = expiresAt
}

// Consumed reports whether the token has been redeemed before.
func (c *ConsumedSet) Consumed(tok string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.entries[signatureKey(tok)]
	return ok
}

// Cleanup drops entries whose token expiry has passed and returns how many
// were removed. Expired tokens are rejected by ValidateToken regardless,
// so keeping them in the ledger serves no purpose.
func (c *ConsumedSet) Cleanup(now time.Time) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	removed := 0
	for key, expiresAt := range c.entries {
		if !now.Before(expiresAt) {
			delete(c.entries, key)
			removed++
		}
	}
	return removed
}

// Len returns the number of tracked tokens.
func (c *ConsumedSet) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// signatureKey extracts the signature segment, which uniquely identifies a
// token without retaining its payload.
func signatureKey(tok string) string {
	if _, sig, ok := strings.Cut(tok, "."); ok {
		return sig
	}
	return tok
}
