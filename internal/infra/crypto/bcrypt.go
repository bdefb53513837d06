// Package crypto implements the credential verifier port with bcrypt.
package crypto

import "golang.org/x/crypto/bcrypt"

// BcryptVerifier hashes and verifies secrets (passwords, PINs) with
// bcrypt. The digest is one-way; the plaintext is never stored.
type BcryptVerifier struct {
	cost int
}

// NewBcryptVerifier creates a verifier with the given cost. Costs
// outside bcrypt's valid range fall back to the library default.
func NewBcryptVerifier(cost int) *BcryptVerifier {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &BcryptVerifier{cost: cost}
}

func (v *BcryptVerifier) Hash(plaintext string) (string, error) {
	digest, err := bcrypt.GenerateFromPassword([]byte(plaintext), v.cost)
	if err != nil {
		return "", err
	}
	return string(digest), nil
}

func (v *BcryptVerifier) Verify(plaintext, digest string) bool {
	return bcrypt.CompareHashAndPassword([]byte(digest), []byte(plaintext)) == nil
}
