// Package emailx normalizes and validates email addresses so equivalent
// spellings of the same address compare equal everywhere in the service.
package emailx

import (
	"net/mail"
	"strings"
)

// Normalize canonicalizes an address: surrounding whitespace is removed
// and the address is case folded. Normalizing an already normalized
// address is a no-op.
func Normalize(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// IsValid reports whether the address is a plausible RFC 5322 address.
// Addresses carrying a display-name part ("A <a@b.c>") are rejected,
// since stored emails are bare addresses.
func IsValid(email string) bool {
	addr, err := mail.ParseAddress(email)
	if err != nil {
		return false
	}
	return addr.Address == email
}
