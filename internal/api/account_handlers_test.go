package api

import (
	"net/http"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sarcastic-Soul/blog-app/internal/auth"
	"github.com/Sarcastic-Soul/blog-app/internal/domain"
	"github.com/Sarcastic-Soul/blog-app/internal/service"
)

func TestAccount_RegisterAndLogin(t *testing.T) {
	ts := setupTestServer(t)

	resp := ts.api.Post("/api/v1/account", map[string]any{
		"email":    "daffy@example.com",
		"password": testPassword,
		"name":     "Daffy",
	})
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())
	user := decode[domain.User](t, resp.Body.Bytes())
	assert.Equal(t, "daffy@example.com", user.Data.Email)

	t.Run("duplicate email conflicts", func(t *testing.T) {
		resp := ts.api.Post("/api/v1/account", map[string]any{
			"email":    "daffy@example.com",
			"password": testPassword,
			"name":     "Other Daffy",
		})
		require.Equal(t, http.StatusConflict, resp.Code)
		assert.Equal(t, "CONFLICT", decode[any](t, resp.Body.Bytes()).Error.Code)
	})

	t.Run("login sets the session cookie", func(t *testing.T) {
		resp := ts.api.Post("/api/v1/account/sessions/email", map[string]any{
			"email":    "daffy@example.com",
			"password": testPassword,
		})
		require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())

		env := decode[service.SessionResult](t, resp.Body.Bytes())
		cookie := resp.Header().Get("Set-Cookie")
		assert.Contains(t, cookie, SessionCookie+"="+env.Data.Token)
		assert.Contains(t, cookie, "HttpOnly")
	})

	t.Run("wrong password", func(t *testing.T) {
		resp := ts.api.Post("/api/v1/account/sessions/email", map[string]any{
			"email":    "daffy@example.com",
			"password": "not-the-password",
		})
		require.Equal(t, http.StatusUnauthorized, resp.Code)
		assert.Equal(t, "INVALID_CREDENTIALS", decode[any](t, resp.Body.Bytes()).Error.Code)
	})

	t.Run("missing fields fail validation", func(t *testing.T) {
		resp := ts.api.Post("/api/v1/account", map[string]any{"email": "x@example.com"})
		assert.Equal(t, http.StatusUnprocessableEntity, resp.Code)
		env := decode[any](t, resp.Body.Bytes())
		assert.False(t, env.Success)
		assert.Equal(t, "VALIDATION", env.Error.Code)
	})
}

func TestAccount_GetAccount(t *testing.T) {
	ts := setupTestServer(t)
	token := ts.createUser(t, "daffy@example.com", "Daffy")

	t.Run("bearer token", func(t *testing.T) {
		resp := ts.api.Get("/api/v1/account", bearer(token))
		require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

		env := decode[AccountResponse](t, resp.Body.Bytes())
		assert.Equal(t, "Daffy", env.Data.User.Name)
		assert.Equal(t, domain.ProviderEmail, env.Data.Session.Provider)
	})

	t.Run("session cookie", func(t *testing.T) {
		resp := ts.api.Get("/api/v1/account", "Cookie: "+SessionCookie+"="+token)
		require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	})

	t.Run("anonymous", func(t *testing.T) {
		resp := ts.api.Get("/api/v1/account")
		require.Equal(t, http.StatusUnauthorized, resp.Code)

		env := decode[any](t, resp.Body.Bytes())
		assert.Equal(t, EnvelopeVersion, env.V)
		assert.False(t, env.Success)
		assert.Nil(t, env.Data)
		assert.Equal(t, "UNAUTHORIZED", env.Error.Code)
	})

	t.Run("garbage token", func(t *testing.T) {
		resp := ts.api.Get("/api/v1/account", bearer("v4.local.nope"))
		assert.Equal(t, http.StatusUnauthorized, resp.Code)
	})
}

func TestAccount_Sessions(t *testing.T) {
	ts := setupTestServer(t)
	first := ts.createUser(t, "daffy@example.com", "Daffy")

	resp := ts.api.Post("/api/v1/account/sessions/email", map[string]any{
		"email":    "daffy@example.com",
		"password": testPassword,
	})
	require.Equal(t, http.StatusCreated, resp.Code)
	second := decode[service.SessionResult](t, resp.Body.Bytes()).Data

	resp = ts.api.Get("/api/v1/account/sessions", bearer(first))
	require.Equal(t, http.StatusOK, resp.Code)
	sessions := decode[SessionsResponse](t, resp.Body.Bytes()).Data.Sessions
	require.Len(t, sessions, 2)

	current := 0
	for _, s := range sessions {
		if s.Current {
			current++
			assert.NotEqual(t, second.Session.ID, s.ID)
		}
	}
	assert.Equal(t, 1, current)

	// Ending another session leaves the cookie alone.
	resp = ts.api.Delete("/api/v1/account/sessions/"+second.Session.ID, bearer(first))
	require.Equal(t, http.StatusNoContent, resp.Code, resp.Body.String())
	assert.Empty(t, resp.Header().Get("Set-Cookie"))

	resp = ts.api.Get("/api/v1/account", bearer(second.Token))
	assert.Equal(t, http.StatusUnauthorized, resp.Code)

	// Ending the current session clears the cookie.
	resp = ts.api.Delete("/api/v1/account/sessions/current", bearer(first))
	require.Equal(t, http.StatusNoContent, resp.Code)
	assert.Contains(t, resp.Header().Get("Set-Cookie"), SessionCookie+"=;")

	resp = ts.api.Get("/api/v1/account", bearer(first))
	assert.Equal(t, http.StatusUnauthorized, resp.Code)
}

func TestAccount_Teams(t *testing.T) {
	ts := setupTestServer(t)
	admin := ts.createAdmin(t)
	reader := ts.createUser(t, "daffy@example.com", "Daffy")

	resp := ts.api.Get("/api/v1/account/teams", bearer(admin))
	require.Equal(t, http.StatusOK, resp.Code)
	teams := decode[TeamsResponse](t, resp.Body.Bytes()).Data.Teams
	require.Len(t, teams, 1)
	assert.Equal(t, testAdminTeam, teams[0].ID)

	resp = ts.api.Get("/api/v1/account/teams", bearer(reader))
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Empty(t, decode[TeamsResponse](t, resp.Body.Bytes()).Data.Teams)
}

func TestAccount_GoogleNotConfigured(t *testing.T) {
	ts := setupTestServer(t)

	q := url.Values{"success": {testPublicURL + "/ok"}, "failure": {testPublicURL + "/fail"}}
	resp := ts.api.Get("/api/v1/account/oauth/google?" + q.Encode())
	require.Equal(t, http.StatusServiceUnavailable, resp.Code)
	assert.Equal(t, "UNAVAILABLE", decode[any](t, resp.Body.Bytes()).Error.Code)
}

func TestAccount_GoogleFlow(t *testing.T) {
	google := &fakeGoogle{profile: &auth.GoogleUser{
		ID: "g-1", Email: "donald@example.com", VerifiedEmail: true, Name: "Donald",
	}}
	ts := setupTestServer(t, withGoogle(google))

	q := url.Values{"success": {"http://127.0.0.1:4567/callback"}, "failure": {"http://127.0.0.1:4567/failed"}}
	resp := ts.api.Get("/api/v1/account/oauth/google?" + q.Encode())
	require.Equal(t, http.StatusFound, resp.Code, resp.Body.String())

	providerURL, err := url.Parse(resp.Header().Get("Location"))
	require.NoError(t, err)
	assert.Equal(t, "accounts.example.com", providerURL.Host)
	state := providerURL.Query().Get("state")
	require.NotEmpty(t, state)

	resp = ts.api.Get("/api/v1/account/oauth/google/callback?state=" + url.QueryEscape(state) + "&code=abc")
	require.Equal(t, http.StatusFound, resp.Code, resp.Body.String())

	back, err := url.Parse(resp.Header().Get("Location"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(back.String(), "http://127.0.0.1:4567/callback?"))

	resp = ts.api.Post("/api/v1/account/sessions/token", map[string]any{
		"user_id": back.Query().Get("userId"),
		"secret":  back.Query().Get("secret"),
	})
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())
	session := decode[service.SessionResult](t, resp.Body.Bytes()).Data
	assert.Equal(t, "donald@example.com", session.User.Email)
	assert.Equal(t, domain.ProviderGoogle, session.Session.Provider)

	// Secrets are single use.
	resp = ts.api.Post("/api/v1/account/sessions/token", map[string]any{
		"user_id": back.Query().Get("userId"),
		"secret":  back.Query().Get("secret"),
	})
	assert.Equal(t, http.StatusUnauthorized, resp.Code)

	t.Run("declined sign-in returns to failure", func(t *testing.T) {
		resp := ts.api.Get("/api/v1/account/oauth/google?" + q.Encode())
		require.Equal(t, http.StatusFound, resp.Code)
		providerURL, _ := url.Parse(resp.Header().Get("Location"))

		resp = ts.api.Get("/api/v1/account/oauth/google/callback?state=" +
			url.QueryEscape(providerURL.Query().Get("state")) + "&error=access_denied")
		require.Equal(t, http.StatusFound, resp.Code)
		assert.Equal(t, "http://127.0.0.1:4567/failed?error=access_denied", resp.Header().Get("Location"))
	})

	t.Run("foreign return url rejected", func(t *testing.T) {
		q := url.Values{"success": {"https://evil.example.net/"}, "failure": {testPublicURL + "/fail"}}
		resp := ts.api.Get("/api/v1/account/oauth/google?" + q.Encode())
		assert.Equal(t, http.StatusBadRequest, resp.Code)
	})
}
