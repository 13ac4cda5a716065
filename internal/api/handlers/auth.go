package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dom/authroutes/internal/api/middleware"
	"github.com/dom/authroutes/internal/api/respond"
	"github.com/dom/authroutes/internal/domain"
	"github.com/dom/authroutes/internal/logging"
	"github.com/dom/authroutes/internal/observability"
	"github.com/dom/authroutes/internal/service"
)

const maxJSONBodyBytes = 1 << 20

type AuthHandler struct {
	authService *service.AuthService
	cookies     CookieConfig
}

func NewAuthHandler(authService *service.AuthService, cookies CookieConfig) *AuthHandler {
	return &AuthHandler{authService: authService, cookies: cookies}
}

type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type UserResponse struct {
	Message string            `json:"message,omitempty"`
	User    domain.PublicUser `json:"user"`
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	user, err := h.authService.Register(r.Context(), service.RegisterInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		var ve *service.ValidationError
		switch {
		case errors.As(err, &ve):
			respond.Error(w, r, http.StatusBadRequest, ve.Message)
		case errors.Is(err, service.ErrEmailExists):
			respond.Error(w, r, http.StatusConflict, "User with this email already exists")
		default:
			internalError(w, r, "register failed", err)
		}
		return
	}

	logging.From(r.Context()).Info("user registered",
		"user_id", user.ID.String(),
		"email", logging.RedactEmail(user.Email),
	)

	respond.JSON(w, r, http.StatusCreated, UserResponse{
		Message: "User registered successfully",
		User:    user.Public(),
	})
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	result, err := h.authService.Login(r.Context(), service.LoginInput{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		var ve *service.ValidationError
		switch {
		case errors.As(err, &ve):
			respond.Error(w, r, http.StatusBadRequest, ve.Message)
		case errors.Is(err, service.ErrInvalidCredentials):
			logging.From(r.Context()).Info("login rejected", "email", logging.RedactEmail(req.Email))
			respond.Error(w, r, http.StatusUnauthorized, "Invalid email or password")
		default:
			internalError(w, r, "login failed", err)
		}
		return
	}

	h.cookies.setAccess(w, result.AccessToken)
	h.cookies.setRefresh(w, result.RefreshToken)

	respond.JSON(w, r, http.StatusOK, UserResponse{
		Message: "Login successful",
		User:    result.User.Public(),
	})
}

func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	c, err := r.Cookie(RefreshTokenCookie)
	if err != nil || c.Value == "" {
		respond.Error(w, r, http.StatusUnauthorized, "Refresh token not provided")
		return
	}

	result, err := h.authService.Refresh(r.Context(), c.Value)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrRefreshTokenInvalid):
			respond.Error(w, r, http.StatusUnauthorized, "Invalid or expired refresh token")
		case errors.Is(err, service.ErrRefreshTokenFormat):
			respond.Error(w, r, http.StatusUnauthorized, "Invalid token format")
		case errors.Is(err, service.ErrRefreshTokenRevoked):
			respond.Error(w, r, http.StatusUnauthorized, "Invalid refresh token")
		default:
			internalError(w, r, "refresh failed", err)
		}
		return
	}

	h.cookies.setAccess(w, result.AccessToken)

	respond.JSON(w, r, http.StatusOK, UserResponse{
		Message: "Token refreshed successfully",
		User:    result.User.Public(),
	})
}

// Logout always succeeds. Clearing the stored refresh token is best effort.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if c, err := r.Cookie(RefreshTokenCookie); err == nil && c.Value != "" {
		if err := h.authService.Logout(r.Context(), c.Value); err != nil {
			logging.From(r.Context()).Info("logout could not clear stored refresh token", "error", err)
		}
	}

	h.cookies.clear(w)
	respond.JSON(w, r, http.StatusOK, respond.MessageResponse{Message: "Logout successful"})
}

func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.GetClaims(r.Context())
	if !ok {
		respond.Error(w, r, http.StatusUnauthorized, "Authentication required")
		return
	}

	respond.JSON(w, r, http.StatusOK, UserResponse{User: publicFromClaims(claims)})
}

func publicFromClaims(c *service.Claims) domain.PublicUser {
	return domain.PublicUser{
		ID:    c.UserID,
		Email: c.Email,
		Name:  c.Name,
		Role:  c.EffectiveRole(),
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		respond.Error(w, r, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}

func internalError(w http.ResponseWriter, r *http.Request, msg string, err error) {
	logging.From(r.Context()).Error(msg, "error", err)
	observability.CaptureError(r.Context(), err)
	respond.Error(w, r, http.StatusInternalServerError, "Internal server error")
}
