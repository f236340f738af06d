package credential

import (
	"golang.org/x/crypto/bcrypt"
)

// dummyPassword is hashed once so lookups for unknown identities can spend
// the same bcrypt work as a real comparison.
const dummyPassword = "warenvoyage-dummy-credential"

// Hasher hashes and verifies passwords with bcrypt. Every hash embeds its own
// random salt and cost, so two hashes of the same password differ.
type Hasher struct {
	cost  int
	dummy []byte
}

// NewHasher builds a Hasher. A cost outside bcrypt's range selects bcrypt.DefaultCost.
func NewHasher(cost int) *Hasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	dummy, err := bcrypt.GenerateFromPassword([]byte(dummyPassword), cost)
	if err != nil {
		dummy = nil
	}
	return &Hasher{cost: cost, dummy: dummy}
}

// Hash returns the encoded bcrypt hash of plaintext.
func (h *Hasher) Hash(plaintext string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(plaintext), h.cost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// Verify reports whether plaintext matches hashed. Malformed hashes never
// match. bcrypt compares the derived keys in constant time.
func (h *Hasher) Verify(plaintext, hashed string) bool {
	if hashed == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hashed), []byte(plaintext)) == nil
}

// VerifyDummy burns one bcrypt comparison and always reports false.
func (h *Hasher) VerifyDummy(plaintext string) bool {
	if h.dummy != nil {
		_ = bcrypt.CompareHashAndPassword(h.dummy, []byte(plaintext))
	}
	return false
}
