// Package services contains server-side business logic. This file
// implements UserService: registration, login, profile retrieval, and
// profile update, composing the directory, the password hasher, and the
// token service.
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrijs2005/accountd/internal/common"
	"github.com/dmitrijs2005/accountd/internal/emailx"
	"github.com/dmitrijs2005/accountd/internal/server/auth"
	"github.com/dmitrijs2005/accountd/internal/server/config"
	"github.com/dmitrijs2005/accountd/internal/server/models"
	"github.com/dmitrijs2005/accountd/internal/server/repositories/users"
)

// MinPasswordLength is the minimum accepted password length.
const MinPasswordLength = 6

// Session bundles a freshly issued token with the redacted user record.
type Session struct {
	Token string
	User  *models.User
}

// UserUpdate carries the optional fields of a profile update. A nil field
// means "leave unchanged".
type UserUpdate struct {
	FirstName *string
	LastName  *string
	Email     *string
	Password  *string
}

// UserService provides the account flows:
//   - Register: create a user and issue a token
//   - Login: verify credentials and issue a token
//   - GetUser: fetch the authenticated user's record
//   - UpdateUser: partially update the authenticated user's record
type UserService struct {
	repo                  users.Repository
	hasher                *auth.PasswordHasher
	jwtSecret             []byte
	tokenValidityDuration time.Duration
}

// NewUserService constructs a UserService using the directory and server config.
func NewUserService(repo users.Repository, cfg *config.Config) *UserService {
	return &UserService{
		repo:                  repo,
		hasher:                auth.NewPasswordHasher(cfg.BcryptCost),
		jwtSecret:             []byte(cfg.SecretKey),
		tokenValidityDuration: cfg.TokenValidityDuration,
	}
}

// Register validates and normalizes the input, enforces email uniqueness,
// and creates the user. On success it returns a Session for the new user.
//
// The uniqueness pre-check and the create are separate storage operations;
// the storage backend remains the authoritative guard, so a racing
// duplicate surfaces here as ErrorDuplicateEmail from Create.
func (s *UserService) Register(ctx context.Context, firstName, lastName, email, password string) (*Session, error) {

	firstName = strings.TrimSpace(firstName)
	lastName = strings.TrimSpace(lastName)
	email = emailx.Normalize(email)

	var violations []string
	if firstName == "" {
		violations = append(violations, "First Name cannot be empty")
	}
	if lastName == "" {
		violations = append(violations, "Last Name cannot be empty")
	}
	if !emailx.IsValid(email) {
		violations = append(violations, "Must be a valid email")
	}
	if len(strings.TrimSpace(password)) < MinPasswordLength {
		violations = append(violations, fmt.Sprintf("Password needs to be at least %d characters", MinPasswordLength))
	}
	if len(violations) > 0 {
		return nil, &common.ValidationError{Violations: violations}
	}

	// Uniqueness pre-check. A lookup failure aborts the flow: an
	// indeterminate result must not read as "email is free".
	_, err := s.repo.GetByEmail(ctx, email)
	if err == nil {
		return nil, common.ErrorDuplicateEmail
	}
	if !errors.Is(err, common.ErrorNotFound) {
		return nil, fmt.Errorf("error checking email: %w", err)
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("error hashing password: %w", err)
	}

	now := time.Now().UTC()
	user := &models.User{
		ID:           uuid.NewString(),
		FirstName:    firstName,
		LastName:     lastName,
		Email:        email,
		PasswordHash: hash,
		Level:        common.LevelStandard,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if _, err := s.repo.Create(ctx, user); err != nil {
		if errors.Is(err, common.ErrorAlreadyExists) {
			return nil, common.ErrorDuplicateEmail
		}
		return nil, fmt.Errorf("error creating user: %w", err)
	}

	// Re-fetch to return the canonical stored shape.
	stored, err := s.repo.GetByID(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("error fetching user: %w", err)
	}

	token, err := auth.GenerateToken(stored.ID, s.jwtSecret, s.tokenValidityDuration)
	if err != nil {
		return nil, fmt.Errorf("error generating token: %w", err)
	}

	return &Session{Token: token, User: stored.Redacted()}, nil
}

// Login verifies the credentials and, on success, returns a Session.
// "No such email" and "wrong password" are indistinguishable to the caller.
func (s *UserService) Login(ctx context.Context, email, password string) (*Session, error) {

	user, err := s.repo.GetByEmail(ctx, emailx.Normalize(email))
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorInvalidCredentials
		}
		return nil, fmt.Errorf("error searching user: %w", err)
	}

	if !s.hasher.Check(password, user.PasswordHash) {
		return nil, common.ErrorInvalidCredentials
	}

	token, err := auth.GenerateToken(user.ID, s.jwtSecret, s.tokenValidityDuration)
	if err != nil {
		return nil, fmt.Errorf("error generating token: %w", err)
	}

	return &Session{Token: token, User: user.Redacted()}, nil
}

// GetUser returns the redacted record of the given (already authorized)
// user id. common.ErrorNotFound means the subject vanished from storage
// after authorization.
func (s *UserService) GetUser(ctx context.Context, id string) (*models.User, error) {

	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("error fetching user: %w", err)
	}

	return user.Redacted(), nil
}

// UpdateUser applies a partial update to the authorized user's record.
// Only supplied fields are validated and written; the password hash is
// replaced only when a new password is supplied. The token is not
// reissued.
func (s *UserService) UpdateUser(ctx context.Context, id string, upd *UserUpdate) (*models.User, error) {

	current, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("error fetching user: %w", err)
	}

	patch := &users.Patch{}
	var violations []string

	if upd.FirstName != nil {
		firstName := strings.TrimSpace(*upd.FirstName)
		if firstName == "" {
			violations = append(violations, "First Name cannot be empty")
		}
		patch.FirstName = &firstName
	}
	if upd.LastName != nil {
		lastName := strings.TrimSpace(*upd.LastName)
		if lastName == "" {
			violations = append(violations, "Last Name cannot be empty")
		}
		patch.LastName = &lastName
	}
	if upd.Email != nil {
		email := emailx.Normalize(*upd.Email)
		if !emailx.IsValid(email) {
			violations = append(violations, "Must be a valid email")
		}
		patch.Email = &email
	}
	if upd.Password != nil {
		if len(strings.TrimSpace(*upd.Password)) < MinPasswordLength {
			violations = append(violations, fmt.Sprintf("Password needs to be at least %d characters", MinPasswordLength))
		}
	}
	if len(violations) > 0 {
		return nil, &common.ValidationError{Violations: violations}
	}

	// Matching the caller's own current email is not a conflict.
	if patch.Email != nil && *patch.Email != current.Email {
		other, err := s.repo.GetByEmail(ctx, *patch.Email)
		if err == nil && other.ID != id {
			return nil, common.ErrorEmailInUse
		}
		if err != nil && !errors.Is(err, common.ErrorNotFound) {
			return nil, fmt.Errorf("error checking email: %w", err)
		}
	}

	if upd.Password != nil {
		hash, err := s.hasher.Hash(*upd.Password)
		if err != nil {
			return nil, fmt.Errorf("error hashing password: %w", err)
		}
		patch.PasswordHash = &hash
	}

	updated, err := s.repo.Update(ctx, id, patch)
	if err != nil {
		if errors.Is(err, common.ErrorAlreadyExists) {
			return nil, common.ErrorEmailInUse
		}
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("error updating user: %w", err)
	}

	return updated.Redacted(), nil
}
