package handlers_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"

	"github.com/dom/authroutes/internal/api/handlers"
	"github.com/dom/authroutes/internal/api/middleware"
	"github.com/dom/authroutes/internal/domain"
	"github.com/dom/authroutes/internal/repository"
	"github.com/dom/authroutes/internal/repository/memory"
	"github.com/dom/authroutes/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthHandler_Register(t *testing.T) {
	ts := testutil.NewTestServer(t)
	client := ts.NewBrowser(t)

	testutil.NewUserBuilder().WithEmail("existing@x.com").Build(t, ts.Repos.User)

	tests := []struct {
		name           string
		request        map[string]string
		expectedStatus int
		expectedMsg    string
		checkResponse  func(*testing.T, *http.Response)
	}{
		{
			name: "successful registration",
			request: map[string]string{
				"name":     " Alice ",
				"email":    "Alice@X.com",
				"password": "secret123",
			},
			expectedStatus: http.StatusCreated,
			checkResponse: func(t *testing.T, resp *http.Response) {
				var result testutil.UserResponse
				testutil.AssertJSONResponse(t, resp, &result)
				assert.Equal(t, "User registered successfully", result.Message)
				assert.Equal(t, "Alice", result.User.Name)
				assert.Equal(t, "alice@x.com", result.User.Email)
				assert.Equal(t, domain.RoleUser, result.User.Role)
				assert.NotEmpty(t, result.User.ID)
				assert.Empty(t, resp.Cookies(), "register must not start a session")
			},
		},
		{
			name:           "missing name",
			request:        map[string]string{"email": "b@x.com", "password": "secret123"},
			expectedStatus: http.StatusBadRequest,
			expectedMsg:    "Please provide name, email, and password",
		},
		{
			name:           "short password",
			request:        map[string]string{"name": "B", "email": "b@x.com", "password": "12345"},
			expectedStatus: http.StatusBadRequest,
			expectedMsg:    "Password must be at least 6 characters",
		},
		{
			name:           "duplicate email",
			request:        map[string]string{"name": "C", "email": "EXISTING@x.com", "password": "secret123"},
			expectedStatus: http.StatusConflict,
			expectedMsg:    "User with this email already exists",
		},
		{
			name:           "empty request body",
			request:        map[string]string{},
			expectedStatus: http.StatusBadRequest,
			expectedMsg:    "Please provide name, email, and password",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := testutil.PostJSON(t, client, ts.APIURL("/auth/register"), tt.request)
			defer resp.Body.Close()

			if tt.expectedMsg != "" {
				testutil.AssertErrorResponse(t, resp, tt.expectedStatus, tt.expectedMsg)
				return
			}
			testutil.AssertStatusCode(t, resp, tt.expectedStatus)
			if tt.checkResponse != nil {
				tt.checkResponse(t, resp)
			}
		})
	}
}

func TestAuthHandler_RegisterResponseHasNoSecrets(t *testing.T) {
	ts := testutil.NewTestServer(t)
	client := ts.NewBrowser(t)

	resp := testutil.PostJSON(t, client, ts.APIURL("/auth/register"), map[string]string{
		"name": "Leak Check", "email": "leak@x.com", "password": "secret123",
	})
	defer resp.Body.Close()

	var raw struct {
		User map[string]interface{} `json:"user"`
	}
	testutil.AssertJSONResponse(t, resp, &raw)
	user := raw.User
	require.NotNil(t, user)
	assert.Len(t, user, 4)
	for _, field := range []string{"password", "passwordHash", "refreshToken", "PasswordHash", "RefreshToken"} {
		assert.NotContains(t, user, field)
	}
}

func TestAuthHandler_InvalidJSON(t *testing.T) {
	ts := testutil.NewTestServer(t)

	resp, err := http.Post(ts.APIURL("/auth/login"), "application/json", strings.NewReader("{not json"))
	require.NoError(t, err)
	defer resp.Body.Close()

	testutil.AssertErrorResponse(t, resp, http.StatusBadRequest, "Invalid request body")
}

func TestAuthHandler_Login(t *testing.T) {
	ts := testutil.NewTestServer(t)
	user, password := testutil.NewUserBuilder().WithEmail("login@x.com").Build(t, ts.Repos.User)

	tests := []struct {
		name           string
		request        map[string]string
		expectedStatus int
		expectedMsg    string
	}{
		{name: "successful login", request: map[string]string{"email": user.Email, "password": password}, expectedStatus: http.StatusOK},
		{name: "wrong password", request: map[string]string{"email": user.Email, "password": "wrongpassword"}, expectedStatus: http.StatusUnauthorized, expectedMsg: "Invalid email or password"},
		{name: "unknown email", request: map[string]string{"email": "ghost@x.com", "password": password}, expectedStatus: http.StatusUnauthorized, expectedMsg: "Invalid email or password"},
		{name: "missing password", request: map[string]string{"email": user.Email}, expectedStatus: http.StatusBadRequest, expectedMsg: "Please provide email and password"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := testutil.PostJSON(t, ts.NewBrowser(t), ts.APIURL("/auth/login"), tt.request)
			defer resp.Body.Close()

			if tt.expectedMsg != "" {
				testutil.AssertErrorResponse(t, resp, tt.expectedStatus, tt.expectedMsg)
				assert.Nil(t, testutil.FindCookie(resp, middleware.AccessTokenCookie))
				return
			}

			testutil.AssertStatusCode(t, resp, http.StatusOK)

			access := testutil.RequireCookie(t, resp, middleware.AccessTokenCookie)
			refresh := testutil.RequireCookie(t, resp, handlers.RefreshTokenCookie)
			for _, c := range []*http.Cookie{access, refresh} {
				assert.True(t, c.HttpOnly)
				assert.False(t, c.Secure)
				assert.Equal(t, "/", c.Path)
				assert.Equal(t, http.SameSiteLaxMode, c.SameSite)
			}
			assert.Equal(t, 15*60, access.MaxAge)
			assert.Equal(t, 7*24*60*60, refresh.MaxAge)

			var result testutil.UserResponse
			testutil.AssertJSONResponse(t, resp, &result)
			assert.Equal(t, "Login successful", result.Message)
			assert.Equal(t, user.ID.String(), result.User.ID)
		})
	}
}

func TestAuthHandler_ProductionCookies(t *testing.T) {
	cfg := testutil.TestConfig()
	cfg.Environment = "production"
	cfg.CookieDomain = "example.com"
	ts := testutil.NewTestServerWithConfig(t, cfg)
	user, password := testutil.NewUserBuilder().Build(t, ts.Repos.User)

	resp := testutil.PostJSON(t, http.DefaultClient, ts.APIURL("/auth/login"), map[string]string{
		"email": user.Email, "password": password,
	})
	defer resp.Body.Close()

	testutil.AssertStatusCode(t, resp, http.StatusOK)
	access := testutil.RequireCookie(t, resp, middleware.AccessTokenCookie)
	assert.True(t, access.Secure)
	assert.Equal(t, "example.com", access.Domain)
}

func TestAuthHandler_SessionLifecycle(t *testing.T) {
	ts := testutil.NewTestServer(t)
	browser := ts.NewBrowser(t)

	resp := testutil.PostJSON(t, browser, ts.APIURL("/auth/register"), map[string]string{
		"name": "Alice", "email": "alice@x.com", "password": "secret123",
	})
	testutil.AssertStatusCode(t, resp, http.StatusCreated)
	resp.Body.Close()

	// anonymous
	resp = testutil.Get(t, browser, ts.APIURL("/auth/me"), "")
	testutil.AssertErrorResponse(t, resp, http.StatusUnauthorized, "Access token not provided. Please login to continue.")
	resp.Body.Close()

	resp = testutil.PostJSON(t, browser, ts.APIURL("/auth/login"), map[string]string{
		"email": "alice@x.com", "password": "secret123",
	})
	testutil.AssertStatusCode(t, resp, http.StatusOK)
	resp.Body.Close()

	// authenticated via cookie jar
	resp = testutil.Get(t, browser, ts.APIURL("/auth/me"), "")
	var me testutil.UserResponse
	testutil.AssertStatusCode(t, resp, http.StatusOK)
	testutil.AssertJSONResponse(t, resp, &me)
	resp.Body.Close()
	assert.Equal(t, "alice@x.com", me.User.Email)
	assert.Equal(t, domain.RoleUser, me.User.Role)

	resp = testutil.PostJSON(t, browser, ts.APIURL("/auth/refresh"), nil)
	var refreshed testutil.UserResponse
	testutil.AssertStatusCode(t, resp, http.StatusOK)
	testutil.RequireCookie(t, resp, middleware.AccessTokenCookie)
	assert.Nil(t, testutil.FindCookie(resp, handlers.RefreshTokenCookie), "refresh token is not rotated")
	testutil.AssertJSONResponse(t, resp, &refreshed)
	resp.Body.Close()
	assert.Equal(t, "Token refreshed successfully", refreshed.Message)
	assert.Equal(t, me.User.ID, refreshed.User.ID)

	resp = testutil.PostJSON(t, browser, ts.APIURL("/auth/logout"), nil)
	testutil.AssertStatusCode(t, resp, http.StatusOK)
	testutil.AssertCookieCleared(t, resp, middleware.AccessTokenCookie)
	testutil.AssertCookieCleared(t, resp, handlers.RefreshTokenCookie)
	resp.Body.Close()

	stored, err := ts.Repos.User.GetByEmail(context.Background(), "alice@x.com")
	require.NoError(t, err)
	assert.Nil(t, stored.RefreshToken)

	resp = testutil.PostJSON(t, browser, ts.APIURL("/auth/refresh"), nil)
	testutil.AssertErrorResponse(t, resp, http.StatusUnauthorized, "Refresh token not provided")
	resp.Body.Close()
}

func TestAuthHandler_Refresh(t *testing.T) {
	ts := testutil.NewTestServer(t)
	user, _ := testutil.NewUserBuilder().Build(t, ts.Repos.User)

	validButUnstored, err := ts.Services.Tokens.IssueRefreshToken(user.ID.String())
	require.NoError(t, err)
	badFormat, err := ts.Services.Tokens.IssueRefreshToken("42")
	require.NoError(t, err)

	tests := []struct {
		name        string
		cookie      string
		expectedMsg string
	}{
		{name: "no cookie", expectedMsg: "Refresh token not provided"},
		{name: "garbage", cookie: "garbage", expectedMsg: "Invalid or expired refresh token"},
		{name: "non-uuid id", cookie: badFormat, expectedMsg: "Invalid token format"},
		{name: "not the stored token", cookie: validButUnstored, expectedMsg: "Invalid refresh token"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := http.NewRequest(http.MethodPost, ts.APIURL("/auth/refresh"), nil)
			require.NoError(t, err)
			if tt.cookie != "" {
				req.AddCookie(&http.Cookie{Name: handlers.RefreshTokenCookie, Value: tt.cookie})
			}

			resp, err := http.DefaultClient.Do(req)
			require.NoError(t, err)
			defer resp.Body.Close()

			testutil.AssertErrorResponse(t, resp, http.StatusUnauthorized, tt.expectedMsg)
			assert.Empty(t, resp.Cookies(), "failed refresh leaves cookies alone")
		})
	}
}

func TestAuthHandler_SecondDeviceInvalidatesFirst(t *testing.T) {
	ts := testutil.NewTestServer(t)
	builder := testutil.NewUserBuilder().WithEmail("two@x.com")
	user, password := builder.Build(t, ts.Repos.User)

	deviceA := ts.NewBrowser(t)
	deviceB := ts.NewBrowser(t)

	for _, device := range []*http.Client{deviceA, deviceB} {
		resp := testutil.PostJSON(t, device, ts.APIURL("/auth/login"), map[string]string{
			"email": user.Email, "password": password,
		})
		testutil.AssertStatusCode(t, resp, http.StatusOK)
		resp.Body.Close()
	}

	resp := testutil.PostJSON(t, deviceA, ts.APIURL("/auth/refresh"), nil)
	testutil.AssertErrorResponse(t, resp, http.StatusUnauthorized, "Invalid refresh token")
	resp.Body.Close()

	resp = testutil.PostJSON(t, deviceB, ts.APIURL("/auth/refresh"), nil)
	testutil.AssertStatusCode(t, resp, http.StatusOK)
	resp.Body.Close()
}

func TestAuthHandler_LogoutIsAlwaysOK(t *testing.T) {
	ts := testutil.NewTestServer(t)

	tests := []struct {
		name   string
		cookie string
	}{
		{name: "no cookies"},
		{name: "garbage refresh cookie", cookie: "garbage"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := http.NewRequest(http.MethodPost, ts.APIURL("/auth/logout"), nil)
			require.NoError(t, err)
			if tt.cookie != "" {
				req.AddCookie(&http.Cookie{Name: handlers.RefreshTokenCookie, Value: tt.cookie})
			}

			resp, err := http.DefaultClient.Do(req)
			require.NoError(t, err)
			defer resp.Body.Close()

			testutil.AssertErrorResponse(t, resp, http.StatusOK, "Logout successful")
			testutil.AssertCookieCleared(t, resp, middleware.AccessTokenCookie)
			testutil.AssertCookieCleared(t, resp, handlers.RefreshTokenCookie)
		})
	}
}

func TestAuthHandler_LoginRateLimit(t *testing.T) {
	cfg := testutil.TestConfig()
	cfg.LoginRateLimitMax = 2
	ts := testutil.NewTestServerWithConfig(t, cfg)

	body := map[string]string{"email": "nobody@x.com", "password": "whatever"}
	for i := 0; i < 2; i++ {
		resp := testutil.PostJSON(t, http.DefaultClient, ts.APIURL("/auth/login"), body)
		testutil.AssertStatusCode(t, resp, http.StatusUnauthorized)
		resp.Body.Close()
	}

	resp := testutil.PostJSON(t, http.DefaultClient, ts.APIURL("/auth/login"), body)
	defer resp.Body.Close()
	testutil.AssertStatusCode(t, resp, http.StatusTooManyRequests)
	assert.NotEmpty(t, resp.Header.Get("Retry-After"))
}

// clearFailingUserRepo fails every attempt to clear a stored refresh token.
type clearFailingUserRepo struct {
	repository.UserRepository
}

func (r clearFailingUserRepo) UpdateRefreshToken(ctx context.Context, id string, token *string) (*domain.User, error) {
	if token == nil {
		return nil, errors.New("connection reset by peer")
	}
	return r.UserRepository.UpdateRefreshToken(ctx, id, token)
}

func TestAuthHandler_LogoutSucceedsWhenTokenCleanupFails(t *testing.T) {
	repos := &repository.Repositories{User: clearFailingUserRepo{UserRepository: memory.NewUserRepository()}}
	ts := testutil.NewTestServerWithRepos(t, testutil.TestConfig(), repos)
	browser := ts.NewBrowser(t)
	user := testutil.NewUserBuilder().WithEmail("sticky@x.com").BuildAndLogin(t, ts, browser)

	resp := testutil.PostJSON(t, browser, ts.APIURL("/auth/logout"), nil)
	defer resp.Body.Close()

	testutil.AssertErrorResponse(t, resp, http.StatusOK, "Logout successful")
	testutil.AssertCookieCleared(t, resp, middleware.AccessTokenCookie)
	testutil.AssertCookieCleared(t, resp, handlers.RefreshTokenCookie)

	stored, err := ts.Repos.User.GetByID(context.Background(), user.ID.String())
	require.NoError(t, err)
	assert.NotNil(t, stored.RefreshToken)
}

func TestAuthHandler_LoginRateLimitIgnoresForwardedFor(t *testing.T) {
	cfg := testutil.TestConfig()
	cfg.LoginRateLimitMax = 2
	ts := testutil.NewTestServerWithConfig(t, cfg)

	codes := make([]int, 0, 4)
	for i := 0; i < 4; i++ {
		codes = append(codes, postLoginFrom(t, ts, fmt.Sprintf("203.0.113.%d", i+1)))
	}
	assert.Equal(t, []int{
		http.StatusUnauthorized,
		http.StatusUnauthorized,
		http.StatusTooManyRequests,
		http.StatusTooManyRequests,
	}, codes)
}

func TestAuthHandler_LoginRateLimitTrustedProxy(t *testing.T) {
	cfg := testutil.TestConfig()
	cfg.LoginRateLimitMax = 1
	cfg.TrustProxyHeaders = true
	ts := testutil.NewTestServerWithConfig(t, cfg)

	assert.Equal(t, http.StatusUnauthorized, postLoginFrom(t, ts, "203.0.113.1"))
	assert.Equal(t, http.StatusTooManyRequests, postLoginFrom(t, ts, "203.0.113.1"))
	assert.Equal(t, http.StatusUnauthorized, postLoginFrom(t, ts, "203.0.113.2"))
}

func postLoginFrom(t *testing.T, ts *testutil.TestServer, forwardedFor string) int {
	t.Helper()

	body := strings.NewReader(`{"email":"nobody@x.com","password":"whatever"}`)
	req, err := http.NewRequest(http.MethodPost, ts.APIURL("/auth/login"), body)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Forwarded-For", forwardedFor)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	return resp.StatusCode
}
