// Package client is a Go client for the auth API. It keeps the session
// cookies in a jar and retries an unauthorized request once after
// refreshing the access token.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/dom/authroutes/internal/domain"
)

const (
	accessTokenCookie  = "accessToken"
	refreshTokenCookie = "refreshToken"
)

// APIError is a non-2xx response. Message is the server's "message" field.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error (status %d): %s", e.StatusCode, e.Message)
}

// IsUnauthorized reports whether err is a 401 APIError.
func IsUnauthorized(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusUnauthorized
}

// Session is the client's view of who is signed in.
type Session struct {
	User *domain.PublicUser
}

func (s Session) IsAuthenticated() bool {
	return s.User != nil
}

type Client struct {
	baseURL    *url.URL
	httpClient *http.Client

	mu      sync.RWMutex
	session Session
}

type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client. A client without a
// cookie jar is copied and the copy gets a jar of its own, so the caller's
// client (http.DefaultClient included) is never modified.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// New creates a client for the API rooted at baseURL, for example
// "http://localhost:4000/api".
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}

	c := &Client{
		baseURL:    u,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.httpClient.Jar == nil {
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, fmt.Errorf("create cookie jar: %w", err)
		}
		hc := *c.httpClient
		hc.Jar = jar
		c.httpClient = &hc
	}

	return c, nil
}

// Session returns a snapshot of the current session.
func (c *Client) Session() Session {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.session
}

func (c *Client) setUser(u *domain.PublicUser) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if u == nil {
		c.session = Session{}
		return
	}
	copied := *u
	c.session = Session{User: &copied}
}

type userEnvelope struct {
	Message string            `json:"message"`
	User    domain.PublicUser `json:"user"`
}

// Initialize restores a session from existing cookies. Without cookies, or
// when the server rejects them, the client stays anonymous and no error is
// returned.
func (c *Client) Initialize(ctx context.Context) error {
	if !c.hasSessionCookies() {
		c.setUser(nil)
		return nil
	}

	if _, err := c.Refresh(ctx); err != nil {
		if IsUnauthorized(err) {
			return nil
		}
		return err
	}
	return nil
}

// Register creates an account and then signs in with it.
func (c *Client) Register(ctx context.Context, name, email, password string) (*domain.PublicUser, error) {
	body := map[string]string{"name": name, "email": email, "password": password}
	if err := c.do(ctx, http.MethodPost, "/auth/register", body, nil); err != nil {
		return nil, err
	}
	return c.Login(ctx, email, password)
}

func (c *Client) Login(ctx context.Context, email, password string) (*domain.PublicUser, error) {
	var out userEnvelope
	body := map[string]string{"email": email, "password": password}
	if err := c.do(ctx, http.MethodPost, "/auth/login", body, &out); err != nil {
		return nil, err
	}
	c.setUser(&out.User)
	return &out.User, nil
}

// Logout ends the session locally even when the server call fails.
func (c *Client) Logout(ctx context.Context) error {
	err := c.do(ctx, http.MethodPost, "/auth/logout", nil, nil)
	c.setUser(nil)
	return err
}

// Refresh requests a new access token. A failed refresh clears the session.
func (c *Client) Refresh(ctx context.Context) (*domain.PublicUser, error) {
	var out userEnvelope
	if err := c.do(ctx, http.MethodPost, "/auth/refresh", nil, &out); err != nil {
		c.setUser(nil)
		return nil, err
	}
	c.setUser(&out.User)
	return &out.User, nil
}

func (c *Client) Me(ctx context.Context) (*domain.PublicUser, error) {
	var out userEnvelope
	if err := c.AuthenticatedDo(ctx, http.MethodGet, "/auth/me", nil, &out); err != nil {
		return nil, err
	}
	c.setUser(&out.User)
	return &out.User, nil
}

// AuthenticatedDo performs a request and, on 401, refreshes once and retries
// once. If the refresh fails its error is returned; a failed retry returns
// the retry's error.
func (c *Client) AuthenticatedDo(ctx context.Context, method, path string, body, out interface{}) error {
	err := c.do(ctx, method, path, body, out)
	if !IsUnauthorized(err) {
		return err
	}

	if _, refreshErr := c.Refresh(ctx); refreshErr != nil {
		return refreshErr
	}

	return c.do(ctx, method, path, body, out)
}

// CanAccess mirrors the server's role gate. With no roles it only requires
// a signed-in user.
func (c *Client) CanAccess(roles ...domain.Role) bool {
	s := c.Session()
	if !s.IsAuthenticated() {
		return false
	}
	if len(roles) == 0 {
		return true
	}
	return domain.HasAnyRole(s.User.Role, roles...)
}

func (c *Client) hasSessionCookies() bool {
	for _, ck := range c.httpClient.Jar.Cookies(c.baseURL) {
		if ck.Name == accessTokenCookie || ck.Name == refreshTokenCookie {
			return true
		}
	}
	return false
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var bodyReader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return err
		}
		bodyReader = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL.String()+path, bodyReader)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		var msg struct {
			Message string `json:"message"`
		}
		if json.Unmarshal(data, &msg) == nil && msg.Message != "" {
			apiErr.Message = msg.Message
		} else {
			apiErr.Message = http.StatusText(resp.StatusCode)
		}
		return apiErr
	}

	if out != nil && len(data) > 0 {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}
