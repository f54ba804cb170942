package client

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/Sarcastic-Soul/blog-app/internal/domain"
)

// ViewResult reports whether a view was counted.
type ViewResult struct {
	Applied bool  `json:"applied"`
	Views   int64 `json:"views"`
}

// ListPosts returns a page of published posts, newest first.
func (c *Client) ListPosts(ctx context.Context, limit, offset int) (*domain.PostList, error) {
	query := url.Values{}
	if limit > 0 {
		query.Set("limit", strconv.Itoa(limit))
	}
	if offset > 0 {
		query.Set("offset", strconv.Itoa(offset))
	}

	var list domain.PostList
	if err := c.do(ctx, http.MethodGet, "/api/v1/posts", query, nil, &list); err != nil {
		return nil, err
	}
	return &list, nil
}

// SearchPosts returns published posts matching term.
func (c *Client) SearchPosts(ctx context.Context, term string) (*domain.PostList, error) {
	var list domain.PostList
	if err := c.do(ctx, http.MethodGet, "/api/v1/posts/search", url.Values{"q": {term}}, nil, &list); err != nil {
		return nil, err
	}
	return &list, nil
}

// ListTags returns every tag in use.
func (c *Client) ListTags(ctx context.Context) ([]string, error) {
	var res struct {
		Tags []string `json:"tags"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/v1/posts/tags", nil, nil, &res); err != nil {
		return nil, err
	}
	return res.Tags, nil
}

// ListPostsByTag returns published posts carrying tag.
func (c *Client) ListPostsByTag(ctx context.Context, tag string) (*domain.PostList, error) {
	var list domain.PostList
	if err := c.do(ctx, http.MethodGet, "/api/v1/posts/tags/"+url.PathEscape(tag), nil, nil, &list); err != nil {
		return nil, err
	}
	return &list, nil
}

// GetPostBySlug returns a post by slug.
func (c *Client) GetPostBySlug(ctx context.Context, slug string) (*domain.Post, error) {
	var p domain.Post
	if err := c.do(ctx, http.MethodGet, "/api/v1/posts/slug/"+url.PathEscape(slug), nil, nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// PostMarkdown returns a post rendered as markdown.
func (c *Client) PostMarkdown(ctx context.Context, slug string) ([]byte, error) {
	return c.raw(ctx, "/api/v1/posts/slug/"+url.PathEscape(slug)+"/markdown")
}

// RecordView counts a view. The server answers even when it drops the view.
func (c *Client) RecordView(ctx context.Context, postID string) (*ViewResult, error) {
	var res ViewResult
	if err := c.do(ctx, http.MethodPost, "/api/v1/posts/"+url.PathEscape(postID)+"/views", nil, nil, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// Like adds a like and returns the updated post.
func (c *Client) Like(ctx context.Context, postID string) (*domain.Post, error) {
	var p domain.Post
	if err := c.do(ctx, http.MethodPost, "/api/v1/posts/"+url.PathEscape(postID)+"/likes", nil, nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// ListComments returns the approved comments on a post.
func (c *Client) ListComments(ctx context.Context, postID string) ([]*domain.Comment, error) {
	var res struct {
		Comments []*domain.Comment `json:"comments"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/v1/posts/"+url.PathEscape(postID)+"/comments", nil, nil, &res); err != nil {
		return nil, err
	}
	return res.Comments, nil
}

// AddComment submits a comment for moderation.
func (c *Client) AddComment(ctx context.Context, postID, content string) (*domain.Comment, error) {
	var comment domain.Comment
	body := map[string]string{"content": content}
	if err := c.do(ctx, http.MethodPost, "/api/v1/posts/"+url.PathEscape(postID)+"/comments", nil, body, &comment); err != nil {
		return nil, err
	}
	return &comment, nil
}
