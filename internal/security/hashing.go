package security

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// Hasher hashes and verifies secrets using bcrypt. Callers must not log or
// persist plaintext passwords or tokens.
type Hasher struct {
	Cost int
}

// NewHasher returns a Hasher with the given bcrypt cost clamped to [MinCost, MaxCost].
// A non-positive cost selects bcrypt.DefaultCost.
func NewHasher(cost int) *Hasher {
	if cost <= 0 {
		cost = bcrypt.DefaultCost
	}
	if cost < bcrypt.MinCost {
		cost = bcrypt.MinCost
	}
	if cost > bcrypt.MaxCost {
		cost = bcrypt.MaxCost
	}
	return &Hasher{Cost: cost}
}

// HashPassword produces a salted bcrypt hash of password.
func (h *Hasher) HashPassword(password string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(password), h.Cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// ComparePassword reports whether password matches hash. A malformed hash is a mismatch.
func (h *Hasher) ComparePassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// HashToken produces a cost-factored hash of a signed token. bcrypt reads at
// most 72 bytes, so the token is first reduced to its SHA-256 hex digest.
func (h *Hasher) HashToken(token string) (string, error) {
	if token == "" {
		return "", errors.New("empty token")
	}
	b, err := bcrypt.GenerateFromPassword([]byte(tokenDigest(token)), h.Cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// CompareToken reports whether token matches a hash produced by HashToken.
func (h *Hasher) CompareToken(hash, token string) bool {
	if hash == "" || token == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(tokenDigest(token))) == nil
}

func tokenDigest(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
