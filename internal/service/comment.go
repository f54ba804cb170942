package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/Sarcastic-Soul/blog-app/internal/domain"
	domainerrors "github.com/Sarcastic-Soul/blog-app/internal/errors"
	"github.com/Sarcastic-Soul/blog-app/internal/id"
	"github.com/Sarcastic-Soul/blog-app/internal/store"
)

// PendingCommentLimit caps the moderation queue listing.
const PendingCommentLimit = 200

// CommentService handles reader comments and their moderation.
type CommentService struct {
	store  store.DocumentStore
	logger *slog.Logger
}

// NewCommentService creates a new comment service.
func NewCommentService(docs store.DocumentStore, logger *slog.Logger) *CommentService {
	return &CommentService{store: docs, logger: logger}
}

// Create adds an unapproved comment to a published post.
func (s *CommentService) Create(ctx context.Context, postID, content string, author *domain.User) (*domain.Comment, error) {
	if author == nil {
		return nil, domainerrors.Unauthorized("sign in to comment")
	}

	content = strings.TrimSpace(content)
	if content == "" {
		return nil, domainerrors.Validation("content is required")
	}
	if utf8.RuneCountInString(content) > domain.MaxCommentLength {
		return nil, domainerrors.Validationf("content must not exceed %d characters", domain.MaxCommentLength)
	}

	post, err := s.store.GetPost(ctx, postID)
	if err != nil {
		return nil, translateStoreErr(err, "post not found")
	}
	if !post.IsPublished {
		return nil, domainerrors.NotFound("post not found")
	}

	commentID, err := id.Generate(id.PrefixComment)
	if err != nil {
		return nil, fmt.Errorf("generate comment ID: %w", err)
	}

	c := &domain.Comment{
		ID:         commentID,
		PostID:     postID,
		Content:    content,
		AuthorID:   author.ID,
		AuthorName: author.Name,
		CreatedAt:  time.Now().UTC(),
	}
	if err := s.store.CreateComment(ctx, c); err != nil {
		return nil, translateStoreErr(err, "post not found")
	}

	s.logger.Info("comment awaiting approval", "comment_id", c.ID, "post_id", postID, "author_id", author.ID)
	return c, nil
}

// ListApproved returns the comments readers may see, oldest first.
func (s *CommentService) ListApproved(ctx context.Context, postID string) ([]*domain.Comment, error) {
	comments, err := s.store.ListComments(ctx, postID, true)
	if err != nil {
		return nil, translateStoreErr(err, "post not found")
	}
	return nonNil(comments), nil
}

// ListPending returns comments awaiting moderation.
func (s *CommentService) ListPending(ctx context.Context) ([]*domain.Comment, error) {
	comments, err := s.store.ListPendingComments(ctx, PendingCommentLimit)
	if err != nil {
		return nil, translateStoreErr(err, "comments not found")
	}
	return nonNil(comments), nil
}

// Approve makes a comment visible to readers.
func (s *CommentService) Approve(ctx context.Context, commentID string) (*domain.Comment, error) {
	c, err := s.store.ApproveComment(ctx, commentID)
	if err != nil {
		return nil, translateStoreErr(err, "comment not found")
	}
	return c, nil
}

// Delete removes a comment.
func (s *CommentService) Delete(ctx context.Context, commentID string) error {
	return translateStoreErr(s.store.DeleteComment(ctx, commentID), "comment not found")
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
