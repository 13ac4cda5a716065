package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/dom/authroutes/internal/domain"
	"github.com/dom/authroutes/internal/repository"
	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

type userRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *userRepository {
	return &userRepository{db: db}
}

func (r *userRepository) Create(ctx context.Context, user *domain.User) error {
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	user.Email = domain.NormalizeEmail(user.Email)
	user.Role = domain.EffectiveRole(user.Role)

	err := r.db.WithContext(ctx).Create(user).Error
	if isUniqueViolation(err) {
		return repository.ErrDuplicateEmail
	}
	return err
}

func (r *userRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	uid, ok := repository.ParseID(id)
	if !ok {
		return nil, repository.ErrNotFound
	}

	var user domain.User
	err := r.db.WithContext(ctx).First(&user, "id = ?", uid).Error
	if err != nil {
		return nil, translateNotFound(err)
	}
	return &user, nil
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	var user domain.User
	err := r.db.WithContext(ctx).First(&user, "email = ?", domain.NormalizeEmail(email)).Error
	if err != nil {
		return nil, translateNotFound(err)
	}
	return &user, nil
}

func (r *userRepository) UpdateRefreshToken(ctx context.Context, id string, token *string) (*domain.User, error) {
	uid, ok := repository.ParseID(id)
	if !ok {
		return nil, repository.ErrNotFound
	}

	res := r.db.WithContext(ctx).
		Model(&domain.User{}).
		Where("id = ?", uid).
		Updates(map[string]interface{}{
			"refresh_token": token,
			"updated_at":    time.Now(),
		})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, repository.ErrNotFound
	}

	return r.GetByID(ctx, id)
}

func translateNotFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return repository.ErrNotFound
	}
	return err
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation
}
