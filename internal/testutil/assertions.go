package testutil

import (
	"encoding/json"
	"io"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// AssertStatusCode verifies the HTTP response status code
func AssertStatusCode(t *testing.T, resp *http.Response, expected int) {
	t.Helper()
	assert.Equal(t, expected, resp.StatusCode, "unexpected status code")
}

// AssertJSONResponse decodes JSON response into v and verifies success
func AssertJSONResponse(t *testing.T, resp *http.Response, v interface{}) {
	t.Helper()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err, "failed to read response body")

	err = json.Unmarshal(body, v)
	require.NoError(t, err, "failed to unmarshal response: %s", string(body))
}

// AssertErrorResponse verifies the status and the exact {"message"} body
func AssertErrorResponse(t *testing.T, resp *http.Response, expectedStatus int, expectedMessage string) {
	t.Helper()

	assert.Equal(t, expectedStatus, resp.StatusCode, "unexpected status code")

	var body struct {
		Message string `json:"message"`
	}
	AssertJSONResponse(t, resp, &body)
	assert.Equal(t, expectedMessage, body.Message, "error message mismatch")
}

// FindCookie returns the Set-Cookie entry named name, or nil
func FindCookie(resp *http.Response, name string) *http.Cookie {
	for _, c := range resp.Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// RequireCookie fails the test when the response does not set name
func RequireCookie(t *testing.T, resp *http.Response, name string) *http.Cookie {
	t.Helper()
	c := FindCookie(resp, name)
	require.NotNil(t, c, "cookie %s not set", name)
	return c
}

// AssertCookieCleared verifies name was expired by the response
func AssertCookieCleared(t *testing.T, resp *http.Response, name string) {
	t.Helper()
	c := RequireCookie(t, resp, name)
	assert.Empty(t, c.Value, "cookie %s should be empty", name)
	assert.Less(t, c.MaxAge, 0, "cookie %s should be expired", name)
}
