package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sarcastic-Soul/blog-app/internal/client"
	"github.com/Sarcastic-Soul/blog-app/internal/config"
	"github.com/Sarcastic-Soul/blog-app/internal/domain"
	"github.com/Sarcastic-Soul/blog-app/internal/logger"
	"github.com/Sarcastic-Soul/blog-app/internal/session"
)

func writeData(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"v": 1, "success": true, "data": data, "error": nil})
}

func writeUnauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"v": 1, "success": false, "data": nil,
		"error": map[string]string{"code": "UNAUTHORIZED", "message": "no session"},
	})
}

func newTestApp(t *testing.T, handler http.Handler) (*app, *bytes.Buffer) {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg := &config.ClientConfig{
		ServerURL:   srv.URL,
		TokenFile:   filepath.Join(t.TempDir(), "session.json"),
		AdminTeamID: config.DefaultAdminTeamID,
		SessionWait: 2 * time.Second,
		Timeout:     5 * time.Second,
	}
	log := logger.New(logger.Config{Writer: &bytes.Buffer{}, Level: logger.ParseLevel("error")})
	c, err := client.New(client.Config{BaseURL: cfg.ServerURL, TokenFile: cfg.TokenFile, Timeout: cfg.Timeout}, log.Component("client"))
	require.NoError(t, err)

	var out bytes.Buffer
	return &app{
		cfg:     cfg,
		client:  c,
		log:     log,
		out:     &out,
		openURL: func(string) error { return nil },
	}, &out
}

// accountHandler serves the account endpoints for a user who is signed in
// once a session token has been issued.
func accountHandler(issued *atomic.Bool) *http.ServeMux {
	user := &domain.User{ID: "user-1", Email: "duck@example.com", Name: "Duck"}
	sess := &domain.Session{ID: "sess-1", UserID: "user-1", ExpiresAt: time.Now().Add(time.Hour)}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/account/sessions/token", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["user_id"] != "user-1" || body["secret"] != "s3cret" {
			writeUnauthorized(w)
			return
		}
		issued.Store(true)
		writeData(w, map[string]any{"token": "tok", "user": user, "session": sess})
	})
	mux.HandleFunc("GET /api/v1/account", func(w http.ResponseWriter, r *http.Request) {
		if !issued.Load() || r.Header.Get("Authorization") != "Bearer tok" {
			writeUnauthorized(w)
			return
		}
		writeData(w, domain.Account{User: user, Session: sess})
	})
	mux.HandleFunc("GET /api/v1/account/teams", func(w http.ResponseWriter, r *http.Request) {
		writeData(w, map[string]any{"teams": []*domain.Team{{ID: config.DefaultAdminTeamID, Name: "Admins"}}})
	})
	mux.HandleFunc("GET /api/v1/account/sessions", func(w http.ResponseWriter, r *http.Request) {
		writeUnauthorized(w)
	})
	return mux
}

func TestRun_Usage(t *testing.T) {
	a, _ := newTestApp(t, http.NotFoundHandler())

	assert.ErrorIs(t, a.run(context.Background(), nil), errUsage)
	assert.Error(t, a.run(context.Background(), []string{"quack-quack"}))
	assert.ErrorIs(t, a.run(context.Background(), []string{"like"}), errUsage)
}

func TestWhoami_Anonymous(t *testing.T) {
	var issued atomic.Bool
	a, out := newTestApp(t, accountHandler(&issued))

	require.NoError(t, a.run(context.Background(), []string{"whoami"}))
	assert.Equal(t, "Not signed in.\n", out.String())
}

func TestLoginGoogle(t *testing.T) {
	var issued atomic.Bool
	a, out := newTestApp(t, accountHandler(&issued))

	// The "browser" follows the provider redirect straight to the success URL.
	a.openURL = func(target string) error {
		u, err := url.Parse(target)
		if err != nil {
			return err
		}
		success := u.Query().Get("success")
		go func() {
			resp, err := http.Get(success + "?userId=user-1&secret=s3cret")
			if err == nil {
				resp.Body.Close()
			}
		}()
		return nil
	}

	require.NoError(t, a.run(context.Background(), []string{"login", "-google"}))

	assert.Contains(t, out.String(), "Opening your browser")
	assert.Contains(t, out.String(), "Signed in as Duck <duck@example.com>")
	assert.Contains(t, out.String(), "admin: yes")

	stored, err := a.client.Tokens().Load()
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, "tok", stored.Token)
}

func TestLoginGoogle_ProviderError(t *testing.T) {
	var issued atomic.Bool
	a, _ := newTestApp(t, accountHandler(&issued))

	a.openURL = func(target string) error {
		u, _ := url.Parse(target)
		failure := u.Query().Get("failure")
		go func() {
			resp, err := http.Get(failure + "?error=access_denied")
			if err == nil {
				resp.Body.Close()
			}
		}()
		return nil
	}

	err := a.run(context.Background(), []string{"login", "-google"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "access_denied")
	assert.False(t, issued.Load())
}

func TestLogin_RequiresCredentials(t *testing.T) {
	a, _ := newTestApp(t, http.NotFoundHandler())

	err := a.run(context.Background(), []string{"login", "-email", "duck@example.com"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "-password")
}

func TestCallbackHandler_KeepsFirstRedirect(t *testing.T) {
	callbacks := make(chan url.Values, 1)
	h := callbackHandler(callbacks)

	for _, target := range []string{"/callback?userId=a&secret=1", "/callback?userId=b&secret=2"} {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
		assert.Equal(t, http.StatusOK, rec.Code)
	}

	got := <-callbacks
	assert.Equal(t, "a", got.Get(session.ParamUserID))
	assert.Empty(t, callbacks)
}

func TestPosts_Table(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/posts", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "5", r.URL.Query().Get("limit"))
		writeData(w, domain.PostList{
			Posts: []*domain.Post{{
				ID: "post-1", Slug: "rubber-ducks", Title: "Rubber Ducks", Tags: []string{"ducks", "debugging"},
				IsPublished: true, ReadTime: 2, Views: 7, Likes: 3,
			}},
			Total: 12,
		})
	})
	a, out := newTestApp(t, mux)

	require.NoError(t, a.run(context.Background(), []string{"posts", "-limit", "5"}))
	assert.Contains(t, out.String(), "rubber-ducks")
	assert.Contains(t, out.String(), "ducks,debugging")
	assert.Contains(t, out.String(), "1 of 12 posts")
}

type recordingRefresher struct{ reasons []string }

func (r *recordingRefresher) Trigger(reason string) { r.reasons = append(r.reasons, reason) }

func TestHandleEvent(t *testing.T) {
	a, out := newTestApp(t, http.NotFoundHandler())
	refresher := &recordingRefresher{}

	a.handleEvent(refresher, client.Event{Type: client.EventSessionDeleted, Data: json.RawMessage(`{"id":"sess-1"}`)})
	assert.Equal(t, []string{session.ReasonRealtime}, refresher.reasons)

	a.handleEvent(refresher, client.Event{Type: client.EventPostCreated, Data: json.RawMessage(`{"id":"post-1","title":"Quack"}`), At: time.Now()})
	a.handleEvent(refresher, client.Event{Type: client.EventPostDeleted, Data: json.RawMessage(`{"id":"post-2"}`), At: time.Now()})
	assert.Contains(t, out.String(), "post.created Quack")
	assert.Contains(t, out.String(), "post.deleted post-2")
	assert.Len(t, refresher.reasons, 1)
}
