// Package search provides full-text search over blog posts using Bleve.
package search

import (
	"github.com/Sarcastic-Soul/blog-app/internal/domain"
	"github.com/Sarcastic-Soul/blog-app/internal/richtext"
)

// PostDocument is the indexed form of a post.
//
// The body is the plain text of the content tree; rich structure is not
// searchable and would only bloat the index.
type PostDocument struct {
	ID          string   `json:"id"`
	Slug        string   `json:"slug"`
	Title       string   `json:"title"`
	Excerpt     string   `json:"excerpt,omitempty"`
	Body        string   `json:"body,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	AuthorName  string   `json:"author_name,omitempty"`
	Published   bool     `json:"published"`
	PublishDate int64    `json:"publish_date,omitempty"` // Unix millis
	UpdatedAt   int64    `json:"updated_at"`             // Unix millis
}

// ToMap converts the document to a map with lowercase field names.
// This ensures field names match the Bleve index mapping.
func (d *PostDocument) ToMap() map[string]interface{} {
	m := map[string]interface{}{
		"id":         d.ID,
		"slug":       d.Slug,
		"title":      d.Title,
		"published":  d.Published,
		"updated_at": d.UpdatedAt,
	}
	if d.Excerpt != "" {
		m["excerpt"] = d.Excerpt
	}
	if d.Body != "" {
		m["body"] = d.Body
	}
	if len(d.Tags) > 0 {
		m["tags"] = d.Tags
	}
	if d.AuthorName != "" {
		m["author_name"] = d.AuthorName
	}
	if d.PublishDate != 0 {
		m["publish_date"] = d.PublishDate
	}
	return m
}

// PostToSearchDocument converts a post to its indexed form.
func PostToSearchDocument(p *domain.Post) *PostDocument {
	doc := &PostDocument{
		ID:         p.ID,
		Slug:       p.Slug,
		Title:      p.Title,
		Excerpt:    p.Excerpt,
		Body:       richtext.PlainText(p.Content),
		Tags:       p.Tags,
		AuthorName: p.AuthorName,
		Published:  p.IsPublished,
		UpdatedAt:  p.LastModified.UnixMilli(),
	}
	if p.PublishDate != nil {
		doc.PublishDate = p.PublishDate.UnixMilli()
	}
	return doc
}
