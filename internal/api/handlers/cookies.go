package handlers

import (
	"net/http"
	"time"

	"github.com/dom/authroutes/internal/api/middleware"
)

const RefreshTokenCookie = "refreshToken"

// CookieConfig holds the attributes shared by both session cookies. Secure
// and Domain are only set in production.
type CookieConfig struct {
	Secure     bool
	Domain     string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

func (c CookieConfig) setAccess(w http.ResponseWriter, token string) {
	http.SetCookie(w, c.cookie(middleware.AccessTokenCookie, token, int(c.AccessTTL.Seconds())))
}

func (c CookieConfig) setRefresh(w http.ResponseWriter, token string) {
	http.SetCookie(w, c.cookie(RefreshTokenCookie, token, int(c.RefreshTTL.Seconds())))
}

func (c CookieConfig) clear(w http.ResponseWriter) {
	http.SetCookie(w, c.cookie(middleware.AccessTokenCookie, "", -1))
	http.SetCookie(w, c.cookie(RefreshTokenCookie, "", -1))
}

func (c CookieConfig) cookie(name, value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Domain:   c.Domain,
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: http.SameSiteLaxMode,
	}
}
