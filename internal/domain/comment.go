package domain

import "time"

// MaxCommentLength bounds comment content in characters.
const MaxCommentLength = 2000

// Comment is a reader comment on a post. New comments wait for approval.
type Comment struct {
	ID         string    `json:"id"`
	PostID     string    `json:"post_id"`
	Content    string    `json:"content"`
	AuthorID   string    `json:"author_id"`
	AuthorName string    `json:"author_name"`
	IsApproved bool      `json:"is_approved"`
	CreatedAt  time.Time `json:"created_at"`
}
