package service

import (
	"github.com/dom/authroutes/internal/config"
	"github.com/dom/authroutes/internal/repository"
)

type Services struct {
	Auth   *AuthService
	Tokens *TokenService
}

func NewServices(repos *repository.Repositories, cfg *config.Config) *Services {
	tokens := NewTokenService(cfg.JWTSecret, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)
	return &Services{
		Auth:   NewAuthService(repos.User, tokens, cfg.BcryptCost),
		Tokens: tokens,
	}
}
