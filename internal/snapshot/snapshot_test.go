package snapshot

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sarcastic-Soul/blog-app/internal/domain"
	"github.com/Sarcastic-Soul/blog-app/internal/richtext"
)

func newTestCache(t *testing.T) *Cache {
	t.Helper()
	c, err := Open(Options{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestCache_Page(t *testing.T) {
	c := newTestCache(t)

	_, _, err := c.GetPage(10, 0)
	assert.ErrorIs(t, err, ErrMiss)

	list := &domain.PostList{
		Posts: []*domain.Post{{ID: "post-1", Slug: "hello", Title: "Hello", Tags: []string{"ducks"}}},
		Total: 1,
	}
	require.NoError(t, c.PutPage(10, 0, list))

	got, at, err := c.GetPage(10, 0)
	require.NoError(t, err)
	assert.True(t, got.Stale)
	assert.Equal(t, 1, got.Total)
	assert.Equal(t, "hello", got.Posts[0].Slug)
	assert.WithinDuration(t, time.Now(), at, time.Minute)
	assert.False(t, list.Stale, "stored page must not be mutated")

	// Pages are keyed by limit and offset.
	_, _, err = c.GetPage(10, 10)
	assert.ErrorIs(t, err, ErrMiss)
}

func TestCache_Post(t *testing.T) {
	c := newTestCache(t)

	p := &domain.Post{
		ID:          "post-1",
		Slug:        "hello",
		Title:       "Hello",
		IsPublished: true,
		Content:     richtext.Doc(richtext.Paragraph("quack")),
	}
	require.NoError(t, c.PutPost(p))

	got, _, err := c.GetPostBySlug("hello")
	require.NoError(t, err)
	assert.Equal(t, "quack", richtext.PlainText(got.Content))

	require.NoError(t, c.ForgetPost("hello"))
	_, _, err = c.GetPostBySlug("hello")
	assert.ErrorIs(t, err, ErrMiss)

	keys, err := c.Keys()
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestCache_Persistent(t *testing.T) {
	dir := t.TempDir()

	c, err := Open(Options{Dir: dir})
	require.NoError(t, err)
	require.NoError(t, c.PutPost(&domain.Post{ID: "post-1", Slug: "kept", IsPublished: true}))
	require.NoError(t, c.Close())

	c, err = Open(Options{Dir: dir})
	require.NoError(t, err)
	defer c.Close()

	got, _, err := c.GetPostBySlug("kept")
	require.NoError(t, err)
	assert.Equal(t, "post-1", got.ID)
}

func TestCache_Entries(t *testing.T) {
	dir := t.TempDir()

	c, err := Open(Options{Dir: dir, MaxAge: time.Hour})
	require.NoError(t, err)
	require.NoError(t, c.PutPost(&domain.Post{ID: "post-1", Slug: "kept", IsPublished: true}))
	require.NoError(t, c.PutPage(10, 0, &domain.PostList{Total: 0}))
	require.NoError(t, c.Close())

	c, err = Open(Options{Dir: dir, ReadOnly: true})
	require.NoError(t, err)
	defer c.Close()

	entries, err := c.Entries()
	require.NoError(t, err)
	require.Len(t, entries, 2)

	keys := []string{entries[0].Key, entries[1].Key}
	assert.ElementsMatch(t, []string{"page:published:10:0", "post:slug:kept"}, keys)
	for _, e := range entries {
		assert.WithinDuration(t, time.Now(), e.CapturedAt, time.Minute)
		assert.WithinDuration(t, time.Now().Add(time.Hour), e.ExpiresAt, 2*time.Minute)
		assert.Positive(t, e.Size)
	}
}

func TestCache_PutPost_DraftDropsSnapshot(t *testing.T) {
	c := newTestCache(t)

	p := &domain.Post{ID: "post-1", Slug: "secret", IsPublished: true}
	require.NoError(t, c.PutPost(p))

	draft := *p
	draft.IsPublished = false
	require.NoError(t, c.PutPost(&draft))

	_, _, err := c.GetPostBySlug("secret")
	assert.ErrorIs(t, err, ErrMiss)
}

func TestCache_ForgetPages(t *testing.T) {
	c := newTestCache(t)

	list := &domain.PostList{Posts: []*domain.Post{{ID: "post-1", Slug: "kept", IsPublished: true}}, Total: 1}
	require.NoError(t, c.PutPage(10, 0, list))
	require.NoError(t, c.PutPage(10, 10, list))
	require.NoError(t, c.PutPost(list.Posts[0]))

	require.NoError(t, c.ForgetPages())

	_, _, err := c.GetPage(10, 0)
	assert.ErrorIs(t, err, ErrMiss)
	_, _, err = c.GetPage(10, 10)
	assert.ErrorIs(t, err, ErrMiss)

	keys, err := c.Keys()
	require.NoError(t, err)
	assert.Equal(t, []string{"post:slug:kept"}, keys)
}
