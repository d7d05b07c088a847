package auth

import "golang.org/x/crypto/bcrypt"

// DefaultBcryptCost matches the historical cost factor of the service.
// Raising it slows both registration and login; it is a deliberate cost.
const DefaultBcryptCost = 8

// PasswordHasher produces and verifies salted one-way password digests.
// The digest embeds its own salt, so verification needs no side channel.
type PasswordHasher struct {
	cost int
}

// NewPasswordHasher returns a hasher with the given bcrypt cost factor.
// A cost outside bcrypt's valid range falls back to DefaultBcryptCost.
func NewPasswordHasher(cost int) *PasswordHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = DefaultBcryptCost
	}
	return &PasswordHasher{cost: cost}
}

// Hash transforms a plaintext password into a salted digest.
func (h *PasswordHasher) Hash(password string) (string, error) {
	digest, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", err
	}
	return string(digest), nil
}

// Check reports whether password matches digest. It never returns an
// error on mismatch, only false.
func (h *PasswordHasher) Check(password, digest string) bool {
	return bcrypt.CompareHashAndPassword([]byte(digest), []byte(password)) == nil
}
