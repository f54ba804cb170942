package api

import (
	"context"

	"github.com/Sarcastic-Soul/blog-app/internal/media/images"
	"github.com/Sarcastic-Soul/blog-app/internal/realtime"
	"github.com/Sarcastic-Soul/blog-app/internal/service"
)

// Pinger reports whether a backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Services groups all business logic services used by the API server.
// This reduces the parameter count for NewServer and improves testability.
type Services struct {
	Content *service.ContentService
	Comment *service.CommentService
	Account *service.AccountService
	Team    *service.TeamService
	Media   *service.MediaService
	Search  *service.SearchService // optional, health only
}

// Infrastructure groups the non-service dependencies of the server.
type Infrastructure struct {
	Database Pinger          // optional, health only
	Headers  *images.Storage // header image files served under /media/headers
	Hub      *realtime.Hub   // nil disables /api/v1/realtime
}
