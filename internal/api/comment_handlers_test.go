package api

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sarcastic-Soul/blog-app/internal/domain"
)

func TestComments_Moderation(t *testing.T) {
	ts := setupTestServer(t)
	admin := ts.createAdmin(t)
	reader := ts.createUser(t, "daffy@example.com", "Daffy")
	post := ts.createPost(t, admin, "Discuss Ducks", true)
	path := "/api/v1/posts/" + post.ID + "/comments"

	resp := ts.api.Post(path, map[string]any{"content": "first!"})
	assert.Equal(t, http.StatusUnauthorized, resp.Code)

	resp = ts.api.Post(path, bearer(reader), map[string]any{"content": "  Quack indeed.  "})
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())
	comment := decode[domain.Comment](t, resp.Body.Bytes()).Data
	assert.Equal(t, "Quack indeed.", comment.Content)
	assert.Equal(t, "Daffy", comment.AuthorName)
	assert.False(t, comment.IsApproved)

	// Hidden until approved.
	resp = ts.api.Get(path)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Empty(t, decode[CommentsResponse](t, resp.Body.Bytes()).Data.Comments)

	resp = ts.api.Get("/api/v1/comments/pending", bearer(reader))
	assert.Equal(t, http.StatusForbidden, resp.Code)

	resp = ts.api.Get("/api/v1/comments/pending", bearer(admin))
	require.Equal(t, http.StatusOK, resp.Code)
	pending := decode[CommentsResponse](t, resp.Body.Bytes()).Data.Comments
	require.Len(t, pending, 1)
	assert.Equal(t, comment.ID, pending[0].ID)

	resp = ts.api.Post("/api/v1/comments/"+comment.ID+"/approve", bearer(admin))
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	assert.True(t, decode[domain.Comment](t, resp.Body.Bytes()).Data.IsApproved)

	resp = ts.api.Get(path)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Len(t, decode[CommentsResponse](t, resp.Body.Bytes()).Data.Comments, 1)

	resp = ts.api.Delete("/api/v1/comments/"+comment.ID, bearer(admin))
	require.Equal(t, http.StatusNoContent, resp.Code)

	resp = ts.api.Delete("/api/v1/comments/"+comment.ID, bearer(admin))
	assert.Equal(t, http.StatusNotFound, resp.Code)
}

func TestComments_DraftsAndEmpty(t *testing.T) {
	ts := setupTestServer(t)
	admin := ts.createAdmin(t)
	reader := ts.createUser(t, "daffy@example.com", "Daffy")
	draft := ts.createPost(t, admin, "Unfinished Ducks", false)

	resp := ts.api.Post("/api/v1/posts/"+draft.ID+"/comments", bearer(reader), map[string]any{"content": "early"})
	assert.Equal(t, http.StatusNotFound, resp.Code)

	published := ts.createPost(t, admin, "Finished Ducks", true)
	resp = ts.api.Post("/api/v1/posts/"+published.ID+"/comments", bearer(reader), map[string]any{"content": "   "})
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}
