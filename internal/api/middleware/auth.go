package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/dom/authroutes/internal/api/respond"
	"github.com/dom/authroutes/internal/domain"
	"github.com/dom/authroutes/internal/logging"
	"github.com/dom/authroutes/internal/service"
)

type contextKey string

const (
	ClaimsKey contextKey = "claims"
)

// AccessTokenCookie is the cookie checked before the Authorization header.
const AccessTokenCookie = "accessToken"

const (
	msgTokenMissing  = "Access token not provided. Please login to continue."
	msgTokenExpired  = "Access token has expired. Please refresh your session."
	msgTokenInvalid  = "Invalid access token. Please login again."
	msgVerifyFailed  = "Token verification failed"
	msgNotAuthorized = "Authentication required"
)

// TokenVerifier validates access tokens.
type TokenVerifier interface {
	VerifyAccessToken(token string) (*service.Claims, error)
}

// Auth rejects requests without a valid access token and stores the claims
// in the request context.
func Auth(verifier TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := extractToken(r)
			if token == "" {
				respond.Error(w, r, http.StatusUnauthorized, msgTokenMissing)
				return
			}

			claims, err := verifier.VerifyAccessToken(token)
			if err != nil {
				log := logging.From(r.Context())
				switch {
				case errors.Is(err, service.ErrTokenExpired):
					log.Debug("access token expired")
					respond.Error(w, r, http.StatusUnauthorized, msgTokenExpired)
				case errors.Is(err, service.ErrTokenMalformed):
					log.Debug("access token rejected")
					respond.Error(w, r, http.StatusUnauthorized, msgTokenInvalid)
				default:
					log.Warn("access token verification failed", "error", err)
					respond.Error(w, r, http.StatusUnauthorized, msgVerifyFailed)
				}
				return
			}

			next.ServeHTTP(w, r.WithContext(withClaims(r.Context(), claims)))
		})
	}
}

// OptionalAuth attaches claims when a valid token is present and otherwise
// lets the request through anonymously.
func OptionalAuth(verifier TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if token := extractToken(r); token != "" {
				if claims, err := verifier.VerifyAccessToken(token); err == nil {
					r = r.WithContext(withClaims(r.Context(), claims))
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireRole must run after Auth. Roles are compared through
// domain.EffectiveRole, so a token without a role counts as "user".
func RequireRole(roles ...domain.Role) func(http.Handler) http.Handler {
	label := "role"
	if len(roles) != 1 {
		label = "roles"
	}
	denied := fmt.Sprintf("Access denied. Required %s: %s", label, domain.JoinRoles(roles))

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := GetClaims(r.Context())
			if !ok {
				respond.Error(w, r, http.StatusUnauthorized, msgNotAuthorized)
				return
			}

			if !domain.HasAnyRole(claims.Role, roles...) {
				logging.From(r.Context()).Info("role check failed",
					"user_id", claims.UserID,
					"role", claims.EffectiveRole(),
				)
				respond.Error(w, r, http.StatusForbidden, denied)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func GetClaims(ctx context.Context) (*service.Claims, bool) {
	claims, ok := ctx.Value(ClaimsKey).(*service.Claims)
	return claims, ok && claims != nil
}

func withClaims(ctx context.Context, claims *service.Claims) context.Context {
	ctx = context.WithValue(ctx, ClaimsKey, claims)
	return logging.Into(ctx, logging.From(ctx).With("user_id", claims.UserID))
}

// extractToken prefers the access cookie over an Authorization: Bearer header.
func extractToken(r *http.Request) string {
	if c, err := r.Cookie(AccessTokenCookie); err == nil && c.Value != "" {
		return c.Value
	}

	scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}
