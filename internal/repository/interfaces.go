package repository

import (
	"context"
	"errors"

	"github.com/dom/authroutes/internal/domain"
	"github.com/google/uuid"
)

var (
	ErrNotFound       = errors.New("record not found")
	ErrDuplicateEmail = errors.New("email already registered")
)

// UserRepository is the credential store. Implementations enforce email
// uniqueness themselves and resolve malformed ids to ErrNotFound.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	UpdateRefreshToken(ctx context.Context, id string, token *string) (*domain.User, error)
}

type Repositories struct {
	User UserRepository
}

// ParseID validates the shape of a user identifier.
func ParseID(id string) (uuid.UUID, bool) {
	parsed, err := uuid.Parse(id)
	if err != nil || parsed == uuid.Nil {
		return uuid.Nil, false
	}
	return parsed, true
}
