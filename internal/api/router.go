package api

import (
	"log/slog"
	"net/http"

	"github.com/dom/authroutes/internal/api/handlers"
	"github.com/dom/authroutes/internal/api/middleware"
	"github.com/dom/authroutes/internal/config"
	"github.com/dom/authroutes/internal/domain"
	"github.com/dom/authroutes/internal/observability"
	"github.com/dom/authroutes/internal/service"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
)

func NewRouter(services *service.Services, cfg *config.Config, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chiMiddleware.RequestID)
	if cfg.TrustProxyHeaders {
		r.Use(chiMiddleware.RealIP)
	}
	r.Use(middleware.RequestLogger(logger))
	r.Use(observability.Recover)
	r.Use(middleware.CORS(cfg.FrontendOrigin))
	r.Use(chiMiddleware.SetHeader("X-Content-Type-Options", "nosniff"))
	r.Use(chiMiddleware.SetHeader("X-Frame-Options", "DENY"))
	r.Use(chiMiddleware.SetHeader("Referrer-Policy", "no-referrer"))

	cookies := handlers.CookieConfig{
		AccessTTL:  services.Tokens.AccessTTL(),
		RefreshTTL: services.Tokens.RefreshTTL(),
	}
	if cfg.IsProduction() {
		cookies.Secure = true
		cookies.Domain = cfg.CookieDomain
	}

	authHandler := handlers.NewAuthHandler(services.Auth, cookies)
	protectedHandler := handlers.NewProtectedHandler()
	loginLimiter := middleware.NewLoginRateLimiter(cfg.LoginRateLimitMax, cfg.LoginRateLimitWindow)
	requireAuth := middleware.Auth(services.Tokens)

	r.NotFound(protectedHandler.NotFound)
	r.MethodNotAllowed(protectedHandler.MethodNotAllowed)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", protectedHandler.Health)

		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", authHandler.Register)
			r.With(loginLimiter.Middleware).Post("/login", authHandler.Login)
			r.Post("/refresh", authHandler.Refresh)
			r.Post("/logout", authHandler.Logout)
			r.With(requireAuth).Get("/me", authHandler.Me)
		})

		r.Route("/protected", func(r chi.Router) {
			r.Use(requireAuth)
			r.Get("/dashboard", protectedHandler.Dashboard)
			r.Get("/profile", protectedHandler.Profile)
			r.With(middleware.RequireRole(domain.RoleAdmin, domain.RoleModerator)).
				Get("/moderator", protectedHandler.Moderator)
			r.With(middleware.RequireRole(domain.RoleAdmin)).
				Get("/admin", protectedHandler.Admin)
		})

		r.Route("/public", func(r chi.Router) {
			r.Use(middleware.OptionalAuth(services.Tokens))
			r.Get("/welcome", protectedHandler.Welcome)
		})
	})

	return r
}
