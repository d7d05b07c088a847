package users

import (
	"context"
	"sync"
	"time"

	"github.com/dmitrijs2005/accountd/internal/common"
	"github.com/dmitrijs2005/accountd/internal/server/models"
)

// InMemoryRepository is a map-backed directory used in tests.
type InMemoryRepository struct {
	mu      sync.RWMutex
	byID    map[string]*models.User
	byEmail map[string]string
}

func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		byID:    make(map[string]*models.User),
		byEmail: make(map[string]string),
	}
}

func (r *InMemoryRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byEmail[user.Email]; ok {
		return nil, common.ErrorAlreadyExists
	}

	c := *user
	r.byID[c.ID] = &c
	r.byEmail[c.Email] = c.ID

	return user, nil
}

func (r *InMemoryRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	user, ok := r.byID[id]
	if !ok {
		return nil, common.ErrorNotFound
	}

	c := *user
	return &c, nil
}

func (r *InMemoryRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byEmail[email]
	if !ok {
		return nil, common.ErrorNotFound
	}

	c := *r.byID[id]
	return &c, nil
}

func (r *InMemoryRepository) Update(ctx context.Context, id string, patch *Patch) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.byID[id]
	if !ok {
		return nil, common.ErrorNotFound
	}

	if patch.Email != nil && *patch.Email != user.Email {
		if _, taken := r.byEmail[*patch.Email]; taken {
			return nil, common.ErrorAlreadyExists
		}
		delete(r.byEmail, user.Email)
		r.byEmail[*patch.Email] = id
	}

	applyPatch(user, patch)
	user.UpdatedAt = time.Now().UTC()

	c := *user
	return &c, nil
}

// Delete removes a user; tests use it to simulate a subject vanishing
// between authorization and handling.
func (r *InMemoryRepository) Delete(ctx context.Context, id string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if user, ok := r.byID[id]; ok {
		delete(r.byEmail, user.Email)
		delete(r.byID, id)
	}
}
