// Package domain holds the records the blog stores and serves.
package domain

import (
	"time"

	"github.com/Sarcastic-Soul/blog-app/internal/richtext"
)

// Post is a blog post.
type Post struct {
	ID             string         `json:"id"`
	Slug           string         `json:"slug"`
	Title          string         `json:"title"`
	Excerpt        string         `json:"excerpt"`
	Content        *richtext.Node `json:"content"`
	HeaderImage    string         `json:"header_image"`
	HeaderBlurHash string         `json:"header_blurhash,omitempty"`
	Tags           []string       `json:"tags"`
	IsPublished    bool           `json:"is_published"`
	PublishDate    *time.Time     `json:"publish_date,omitempty"` // set once, on first publish
	LastModified   time.Time      `json:"last_modified"`
	CreatedAt      time.Time      `json:"created_at"`
	AuthorID       string         `json:"author_id"`
	AuthorName     string         `json:"author_name"`
	ReadTime       int            `json:"read_time"` // minutes
	Views          int64          `json:"views"`
	Likes          int64          `json:"likes"`
}

// HasTag reports whether the post carries tag exactly.
func (p *Post) HasTag(tag string) bool {
	for _, t := range p.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// PostInput carries the author-supplied fields of a new post.
type PostInput struct {
	Title       string
	Excerpt     string
	Content     *richtext.Node
	HeaderImage string
	Tags        []string
	IsPublished bool
}

// PostPatch carries a partial update. Nil fields are left unchanged.
type PostPatch struct {
	Title       *string
	Excerpt     *string
	Content     *richtext.Node
	HeaderImage *string
	Tags        *[]string
	IsPublished *bool
}

// IsEmpty reports whether the patch changes nothing.
func (p PostPatch) IsEmpty() bool {
	return p.Title == nil && p.Excerpt == nil && p.Content == nil &&
		p.HeaderImage == nil && p.Tags == nil && p.IsPublished == nil
}

// PostList is one page of posts plus the number of posts matching the query.
type PostList struct {
	Posts []*Post `json:"posts"`
	Total int     `json:"total"`
	// Stale is set when the page was served from the snapshot cache because
	// the store could not be reached.
	Stale bool `json:"stale,omitempty"`
}

// PostStats summarizes the store.
type PostStats struct {
	Published int `json:"published"`
	Drafts    int `json:"drafts"`
	Total     int `json:"total"`
}
