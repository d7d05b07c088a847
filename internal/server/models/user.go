// Package models holds the persisted record types of the service.
package models

import "time"

// User is the persisted account record. Email is stored in normalized form
// and is unique across all users. PasswordHash is produced only by the
// password hasher and must never leave the service.
type User struct {
	ID           string    `json:"id"`
	FirstName    string    `json:"firstName"`
	LastName     string    `json:"lastName"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"passwordHash,omitempty"`
	Level        string    `json:"level"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Redacted returns a copy of the user with the password hash removed.
// Every record that crosses the trust boundary goes through this first.
func (u *User) Redacted() *User {
	c := *u
	c.PasswordHash = ""
	return &c
}
