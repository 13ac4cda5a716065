// Package memory provides an in-process credential store for local
// development and tests. It keeps the same contract as the PostgreSQL store:
// one mutex guards both the record map and the email index, so the
// uniqueness check and the insert happen as one step.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/dom/authroutes/internal/domain"
	"github.com/dom/authroutes/internal/repository"
	"github.com/google/uuid"
)

type userRepository struct {
	mu      sync.RWMutex
	byID    map[uuid.UUID]*domain.User
	byEmail map[string]uuid.UUID
	now     func() time.Time
}

func NewUserRepository() *userRepository {
	return &userRepository{
		byID:    make(map[uuid.UUID]*domain.User),
		byEmail: make(map[string]uuid.UUID),
		now:     time.Now,
	}
}

func NewRepositories() *repository.Repositories {
	return &repository.Repositories{
		User: NewUserRepository(),
	}
}

func (r *userRepository) Create(ctx context.Context, user *domain.User) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	email := domain.NormalizeEmail(user.Email)

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, taken := r.byEmail[email]; taken {
		return repository.ErrDuplicateEmail
	}

	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	now := r.now()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now
	user.Email = email
	user.Role = domain.EffectiveRole(user.Role)

	r.byID[user.ID] = clone(user)
	r.byEmail[email] = user.ID
	return nil
}

func (r *userRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	uid, ok := repository.ParseID(id)
	if !ok {
		return nil, repository.ErrNotFound
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	user, ok := r.byID[uid]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return clone(user), nil
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	uid, ok := r.byEmail[domain.NormalizeEmail(email)]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return clone(r.byID[uid]), nil
}

func (r *userRepository) UpdateRefreshToken(ctx context.Context, id string, token *string) (*domain.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	uid, ok := repository.ParseID(id)
	if !ok {
		return nil, repository.ErrNotFound
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.byID[uid]
	if !ok {
		return nil, repository.ErrNotFound
	}

	if token == nil {
		user.RefreshToken = nil
	} else {
		t := *token
		user.RefreshToken = &t
	}
	user.UpdatedAt = r.now()

	return clone(user), nil
}

func clone(u *domain.User) *domain.User {
	c := *u
	if u.RefreshToken != nil {
		t := *u.RefreshToken
		c.RefreshToken = &t
	}
	return &c
}
