package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/dom/authroutes/internal/domain"
	"github.com/dom/authroutes/internal/service"
)

// SeedAccount is a privileged account created outside the public API.
type SeedAccount struct {
	Name     string
	Email    string
	Password string
	Role     domain.Role
}

// DefaultSeedAccounts are the development accounts for the role-gated pages.
var DefaultSeedAccounts = []SeedAccount{
	{Name: "Admin User", Email: "admin@test.com", Password: "admin123", Role: domain.RoleAdmin},
	{Name: "Moderator User", Email: "moderator@test.com", Password: "moderator123", Role: domain.RoleModerator},
}

type SeedResult struct {
	Account SeedAccount
	User    *domain.User
	Skipped bool
}

// Seed creates each account. Accounts whose email is already registered are
// skipped rather than treated as failures.
func Seed(ctx context.Context, auth *service.AuthService, accounts []SeedAccount) ([]SeedResult, error) {
	results := make([]SeedResult, 0, len(accounts))
	for _, acct := range accounts {
		user, err := auth.CreateUser(ctx, service.RegisterInput{
			Name:     acct.Name,
			Email:    acct.Email,
			Password: acct.Password,
		}, acct.Role)
		switch {
		case errors.Is(err, service.ErrEmailExists):
			results = append(results, SeedResult{Account: acct, Skipped: true})
		case err != nil:
			return results, fmt.Errorf("seed %s: %w", acct.Email, err)
		default:
			results = append(results, SeedResult{Account: acct, User: user})
		}
	}
	return results, nil
}
