package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/dom/authroutes/internal/domain"
	"github.com/dom/authroutes/internal/repository"
	"golang.org/x/crypto/bcrypt"
)

const (
	MinPasswordLength = 6
	// bcrypt ignores everything past 72 bytes.
	MaxPasswordBytes = 72
)

var (
	ErrEmailExists        = errors.New("user with this email already exists")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrUserNotFound       = errors.New("user not found")

	// Refresh failures, in the order they are checked.
	ErrRefreshTokenInvalid = errors.New("invalid or expired refresh token")
	ErrRefreshTokenFormat  = errors.New("invalid token format")
	ErrRefreshTokenRevoked = errors.New("invalid refresh token")
)

// ValidationError is returned for input the caller must fix. Message is safe
// to show to end users.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

type AuthService struct {
	userRepo   repository.UserRepository
	tokens     *TokenService
	bcryptCost int

	dummyOnce sync.Once
	dummyHash []byte
}

func NewAuthService(userRepo repository.UserRepository, tokens *TokenService, bcryptCost int) *AuthService {
	return &AuthService{
		userRepo:   userRepo,
		tokens:     tokens,
		bcryptCost: bcryptCost,
	}
}

type RegisterInput struct {
	Name     string
	Email    string
	Password string
}

type LoginInput struct {
	Email    string
	Password string
}

// AuthResult carries a user and the tokens issued for it. RefreshToken is
// empty after a refresh, which only mints a new access token.
type AuthResult struct {
	User         *domain.User
	AccessToken  string
	RefreshToken string
}

func (in RegisterInput) normalize() (RegisterInput, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = domain.NormalizeEmail(in.Email)

	if in.Name == "" || in.Email == "" || in.Password == "" {
		return in, &ValidationError{Message: "Please provide name, email, and password"}
	}
	if utf8.RuneCountInString(in.Password) < MinPasswordLength {
		return in, &ValidationError{Message: fmt.Sprintf("Password must be at least %d characters", MinPasswordLength)}
	}
	if len(in.Password) > MaxPasswordBytes {
		return in, &ValidationError{Message: fmt.Sprintf("Password must not exceed %d bytes", MaxPasswordBytes)}
	}
	return in, nil
}

// Register creates a regular user. No tokens are issued; the caller logs in
// separately.
func (s *AuthService) Register(ctx context.Context, input RegisterInput) (*domain.User, error) {
	return s.CreateUser(ctx, input, domain.RoleUser)
}

// CreateUser creates a user with an explicit role. It backs both public
// registration and the seed tool.
func (s *AuthService) CreateUser(ctx context.Context, input RegisterInput, role domain.Role) (*domain.User, error) {
	input, err := input.normalize()
	if err != nil {
		return nil, err
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(input.Password), s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &domain.User{
		Name:         input.Name,
		Email:        input.Email,
		PasswordHash: string(hashed),
		Role:         domain.EffectiveRole(role),
	}

	// The store's unique email index decides races between registrations.
	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return nil, ErrEmailExists
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	return user, nil
}

// Login verifies credentials and issues a token pair. The stored refresh
// token is overwritten, which ends any session on another device.
func (s *AuthService) Login(ctx context.Context, input LoginInput) (*AuthResult, error) {
	email := domain.NormalizeEmail(input.Email)
	if email == "" || input.Password == "" {
		return nil, &ValidationError{Message: "Please provide email and password"}
	}

	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			// Spend the same bcrypt work as a real comparison.
			_ = bcrypt.CompareHashAndPassword(s.dummy(), []byte(input.Password))
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("find user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(input.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	accessToken, err := s.tokens.IssueAccessToken(user)
	if err != nil {
		return nil, err
	}
	refreshToken, err := s.tokens.IssueRefreshToken(user.ID.String())
	if err != nil {
		return nil, err
	}

	updated, err := s.userRepo.UpdateRefreshToken(ctx, user.ID.String(), &refreshToken)
	if err != nil {
		return nil, fmt.Errorf("store refresh token: %w", err)
	}

	return &AuthResult{
		User:         updated,
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	}, nil
}

// Refresh mints a new access token from a refresh token that matches the one
// stored on the user. The refresh token itself is not rotated.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*AuthResult, error) {
	claims, err := s.tokens.VerifyRefreshToken(refreshToken)
	if err != nil {
		return nil, ErrRefreshTokenInvalid
	}

	if _, ok := repository.ParseID(claims.UserID); !ok {
		return nil, ErrRefreshTokenFormat
	}

	user, err := s.userRepo.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrRefreshTokenRevoked
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	if !user.HasRefreshToken(refreshToken) {
		return nil, ErrRefreshTokenRevoked
	}

	accessToken, err := s.tokens.IssueAccessToken(user)
	if err != nil {
		return nil, err
	}

	return &AuthResult{User: user, AccessToken: accessToken}, nil
}

// Logout clears the stored refresh token of the user the token names. An
// empty token is a no-op. Errors are informational; callers still end the
// client session.
func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return nil
	}

	claims, err := s.tokens.VerifyRefreshToken(refreshToken)
	if err != nil {
		return err
	}

	if _, err := s.userRepo.UpdateRefreshToken(ctx, claims.UserID, nil); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("clear refresh token: %w", err)
	}
	return nil
}

func (s *AuthService) GetUserByID(ctx context.Context, id string) (*domain.User, error) {
	user, err := s.userRepo.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrUserNotFound
	}
	return user, err
}

func (s *AuthService) dummy() []byte {
	s.dummyOnce.Do(func() {
		s.dummyHash, _ = bcrypt.GenerateFromPassword([]byte("not-a-real-password"), s.bcryptCost)
	})
	return s.dummyHash
}
