package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/dom/authroutes/internal/api/middleware"
	"github.com/dom/authroutes/internal/api/respond"
	"github.com/dom/authroutes/internal/domain"
)

// ProtectedHandler serves the demo routes that sit behind the access gates.
type ProtectedHandler struct {
	now func() time.Time
}

func NewProtectedHandler() *ProtectedHandler {
	return &ProtectedHandler{now: time.Now}
}

type ProtectedResponse struct {
	Message   string            `json:"message"`
	User      domain.PublicUser `json:"user"`
	Timestamp string            `json:"timestamp,omitempty"`
}

type WelcomeResponse struct {
	Message       string             `json:"message"`
	Authenticated bool               `json:"authenticated"`
	User          *domain.PublicUser `json:"user,omitempty"`
}

type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
}

func (h *ProtectedHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	user, ok := h.user(w, r)
	if !ok {
		return
	}
	respond.JSON(w, r, http.StatusOK, ProtectedResponse{
		Message:   fmt.Sprintf("Welcome back, %s! You have successfully accessed the protected dashboard.", user.Name),
		User:      user,
		Timestamp: h.timestamp(),
	})
}

func (h *ProtectedHandler) Profile(w http.ResponseWriter, r *http.Request) {
	user, ok := h.user(w, r)
	if !ok {
		return
	}
	respond.JSON(w, r, http.StatusOK, ProtectedResponse{
		Message: "Profile data retrieved successfully",
		User:    user,
	})
}

func (h *ProtectedHandler) Moderator(w http.ResponseWriter, r *http.Request) {
	user, ok := h.user(w, r)
	if !ok {
		return
	}
	respond.JSON(w, r, http.StatusOK, ProtectedResponse{
		Message:   fmt.Sprintf("Moderator area. Signed in as %s.", user.Role.DisplayName()),
		User:      user,
		Timestamp: h.timestamp(),
	})
}

func (h *ProtectedHandler) Admin(w http.ResponseWriter, r *http.Request) {
	user, ok := h.user(w, r)
	if !ok {
		return
	}
	respond.JSON(w, r, http.StatusOK, ProtectedResponse{
		Message:   "Admin area. Full access granted.",
		User:      user,
		Timestamp: h.timestamp(),
	})
}

// Welcome is reachable anonymously; signed-in users get a personal greeting.
func (h *ProtectedHandler) Welcome(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.GetClaims(r.Context())
	if !ok {
		respond.JSON(w, r, http.StatusOK, WelcomeResponse{Message: "Welcome, guest!"})
		return
	}

	user := publicFromClaims(claims)
	respond.JSON(w, r, http.StatusOK, WelcomeResponse{
		Message:       fmt.Sprintf("Welcome, %s!", user.Name),
		Authenticated: true,
		User:          &user,
	})
}

func (h *ProtectedHandler) Health(w http.ResponseWriter, r *http.Request) {
	respond.JSON(w, r, http.StatusOK, HealthResponse{Status: "OK", Timestamp: h.timestamp()})
}

func (h *ProtectedHandler) NotFound(w http.ResponseWriter, r *http.Request) {
	respond.Error(w, r, http.StatusNotFound, "Route not found")
}

func (h *ProtectedHandler) MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	respond.Error(w, r, http.StatusMethodNotAllowed, "Method not allowed")
}

func (h *ProtectedHandler) user(w http.ResponseWriter, r *http.Request) (domain.PublicUser, bool) {
	claims, ok := middleware.GetClaims(r.Context())
	if !ok {
		respond.Error(w, r, http.StatusUnauthorized, "Authentication required")
		return domain.PublicUser{}, false
	}
	return publicFromClaims(claims), true
}

func (h *ProtectedHandler) timestamp() string {
	return h.now().UTC().Format(time.RFC3339Nano)
}
