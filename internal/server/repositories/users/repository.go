// Package users defines the user directory contract consumed by the auth
// flows, and its storage implementations.
package users

import (
	"context"

	"github.com/dmitrijs2005/accountd/internal/server/models"
)

// Patch carries the fields of a partial update. A nil field means "leave
// the stored value untouched".
type Patch struct {
	FirstName    *string
	LastName     *string
	Email        *string
	PasswordHash *string
}

// Repository is the directory contract the auth flows are built on.
//
// Lookups return common.ErrorNotFound for a confirmed miss; any other
// error means the lookup itself failed and must abort the calling flow
// (fail closed). Create and Update return common.ErrorAlreadyExists when
// they would violate email uniqueness.
type Repository interface {
	// Create inserts a new user. ID, level, and timestamps are
	// pre-populated by the caller.
	Create(ctx context.Context, user *models.User) (*models.User, error)

	// GetByID returns the user with the given id.
	GetByID(ctx context.Context, id string) (*models.User, error)

	// GetByEmail returns the user with the given normalized email.
	GetByEmail(ctx context.Context, email string) (*models.User, error)

	// Update merges the patch into the stored record (read-modify-write,
	// never a blind overwrite) and refreshes updatedAt.
	Update(ctx context.Context, id string, patch *Patch) (*models.User, error)
}
