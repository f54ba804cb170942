package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/Sarcastic-Soul/blog-app/internal/domain"
)

func (s *Server) registerCommentRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "listComments",
		Method:      http.MethodGet,
		Path:        "/api/v1/posts/{id}/comments",
		Summary:     "List comments",
		Description: "Returns the approved comments of a post, oldest first",
		Tags:        []string{"Comments"},
	}, s.handleListComments)

	huma.Register(s.api, huma.Operation{
		OperationID:   "createComment",
		Method:        http.MethodPost,
		Path:          "/api/v1/posts/{id}/comments",
		Summary:       "Add comment",
		Description:   "Adds a comment that is hidden until an admin approves it",
		Tags:          []string{"Comments"},
		DefaultStatus: http.StatusCreated,
		Security:      []map[string][]string{{"bearer": {}}},
	}, s.handleCreateComment)

	huma.Register(s.api, huma.Operation{
		OperationID: "listPendingComments",
		Method:      http.MethodGet,
		Path:        "/api/v1/comments/pending",
		Summary:     "List pending comments",
		Description: "Returns comments awaiting moderation (admin only)",
		Tags:        []string{"Comments"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleListPendingComments)

	huma.Register(s.api, huma.Operation{
		OperationID: "approveComment",
		Method:      http.MethodPost,
		Path:        "/api/v1/comments/{id}/approve",
		Summary:     "Approve comment",
		Tags:        []string{"Comments"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleApproveComment)

	huma.Register(s.api, huma.Operation{
		OperationID:   "deleteComment",
		Method:        http.MethodDelete,
		Path:          "/api/v1/comments/{id}",
		Summary:       "Delete comment",
		Tags:          []string{"Comments"},
		DefaultStatus: http.StatusNoContent,
		Security:      []map[string][]string{{"bearer": {}}},
	}, s.handleDeleteComment)
}

// === DTOs ===

// CommentsResponse lists comments.
type CommentsResponse struct {
	Comments []*domain.Comment `json:"comments" doc:"Comments"`
}

// CommentsOutput wraps comments for Huma.
type CommentsOutput struct {
	Body CommentsResponse
}

// CommentOutput wraps a comment for Huma.
type CommentOutput struct {
	Body *domain.Comment
}

// CreateCommentInput contains a new comment.
type CreateCommentInput struct {
	ID   string `path:"id" doc:"Post ID"`
	Body struct {
		Content string `json:"content" maxLength:"4000" doc:"Comment text"`
	}
}

// CommentIDInput selects a comment.
type CommentIDInput struct {
	ID string `path:"id" doc:"Comment ID"`
}

// === Handlers ===

func (s *Server) handleListComments(ctx context.Context, input *PostIDInput) (*CommentsOutput, error) {
	comments, err := s.services.Comment.ListApproved(ctx, input.ID)
	if err != nil {
		return nil, err
	}
	return &CommentsOutput{Body: CommentsResponse{Comments: comments}}, nil
}

func (s *Server) handleCreateComment(ctx context.Context, input *CreateCommentInput) (*CommentOutput, error) {
	caller, err := GetIdentity(ctx)
	if err != nil {
		return nil, err
	}

	c, err := s.services.Comment.Create(ctx, input.ID, input.Body.Content, caller.User)
	if err != nil {
		return nil, err
	}
	return &CommentOutput{Body: c}, nil
}

func (s *Server) handleListPendingComments(ctx context.Context, _ *struct{}) (*CommentsOutput, error) {
	if _, err := s.RequireAdmin(ctx); err != nil {
		return nil, err
	}

	comments, err := s.services.Comment.ListPending(ctx)
	if err != nil {
		return nil, err
	}
	return &CommentsOutput{Body: CommentsResponse{Comments: comments}}, nil
}

func (s *Server) handleApproveComment(ctx context.Context, input *CommentIDInput) (*CommentOutput, error) {
	if _, err := s.RequireAdmin(ctx); err != nil {
		return nil, err
	}

	c, err := s.services.Comment.Approve(ctx, input.ID)
	if err != nil {
		return nil, err
	}
	return &CommentOutput{Body: c}, nil
}

func (s *Server) handleDeleteComment(ctx context.Context, input *CommentIDInput) (*struct{}, error) {
	if _, err := s.RequireAdmin(ctx); err != nil {
		return nil, err
	}
	if err := s.services.Comment.Delete(ctx, input.ID); err != nil {
		return nil, err
	}
	return nil, nil
}
