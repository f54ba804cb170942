package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
)

func (s *Server) registerCounterRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "recordView",
		Method:      http.MethodPost,
		Path:        "/api/v1/posts/{id}/views",
		Summary:     "Record a view",
		Description: "Best-effort view counter. Always succeeds; applied reports whether the view was counted.",
		Tags:        []string{"Counters"},
	}, s.handleRecordView)

	huma.Register(s.api, huma.Operation{
		OperationID: "likePost",
		Method:      http.MethodPost,
		Path:        "/api/v1/posts/{id}/likes",
		Summary:     "Like a post",
		Description: "Increments the like counter and returns the updated post",
		Tags:        []string{"Counters"},
	}, s.handleLikePost)
}

// === DTOs ===

// ViewResponse reports a best-effort view.
type ViewResponse struct {
	Applied bool  `json:"applied" doc:"Whether the view was counted"`
	Views   int64 `json:"views" doc:"View count after the increment, when applied"`
}

// ViewOutput wraps the view response for Huma.
type ViewOutput struct {
	Body ViewResponse
}

// === Handlers ===

func (s *Server) handleRecordView(ctx context.Context, input *PostIDInput) (*ViewOutput, error) {
	if !s.allow(ctx, s.counterLimiter, "views") {
		return &ViewOutput{Body: ViewResponse{}}, nil
	}

	res := s.services.Content.IncrementViews(ctx, input.ID)
	if !res.Applied {
		return &ViewOutput{Body: ViewResponse{}}, nil
	}
	return &ViewOutput{Body: ViewResponse{Applied: true, Views: res.Value.Views}}, nil
}

func (s *Server) handleLikePost(ctx context.Context, input *PostIDInput) (*PostOutput, error) {
	if !s.allow(ctx, s.counterLimiter, "likes") {
		return nil, rateLimited()
	}

	p, err := s.services.Content.IncrementLikes(ctx, input.ID)
	if err != nil {
		return nil, err
	}
	return &PostOutput{Body: toPostResponse(p)}, nil
}
