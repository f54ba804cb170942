package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/Sarcastic-Soul/blog-app/internal/domain"
	domainerrors "github.com/Sarcastic-Soul/blog-app/internal/errors"
	"github.com/Sarcastic-Soul/blog-app/internal/media/images"
	"github.com/Sarcastic-Soul/blog-app/internal/store"
)

// MediaService attaches header images to posts.
type MediaService struct {
	posts   store.PostStore
	headers *images.HeaderStore
	content *ContentService // optional, keeps the snapshot in step
	logger  *slog.Logger
}

// NewMediaService creates a new media service. content may be nil.
func NewMediaService(posts store.PostStore, headers *images.HeaderStore, content *ContentService, logger *slog.Logger) *MediaService {
	return &MediaService{
		posts:   posts,
		headers: headers,
		content: content,
		logger:  logger,
	}
}

// UploadHeaderImage stores data as the header image of postID, replacing
// and removing any previous one.
func (s *MediaService) UploadHeaderImage(ctx context.Context, postID string, data []byte) (*domain.Post, error) {
	if len(data) == 0 {
		return nil, domainerrors.Validation("image body is required")
	}

	if _, err := s.posts.GetPost(ctx, postID); err != nil {
		return nil, translateStoreErr(err, "post not found")
	}

	header, err := s.headers.Save(postID, data)
	switch {
	case errors.Is(err, images.ErrUnsupported):
		return nil, domainerrors.Validation("image must be JPEG, PNG, GIF or WebP")
	case errors.Is(err, images.ErrTooLarge):
		return nil, domainerrors.Validationf("image must not exceed %d bytes", images.MaxHeaderSize)
	case err != nil:
		return nil, domainerrors.Wrap(err, domainerrors.CodeInternal, "store header image")
	}

	p, err := s.posts.SetHeaderImage(ctx, postID, header.URL, header.BlurHash)
	if err != nil {
		return nil, translateStoreErr(err, "post not found")
	}

	if err := s.headers.Prune(postID, header.Filename); err != nil {
		s.logger.Warn("failed to prune old header images", "post_id", postID, "error", err)
	}
	if s.content != nil {
		s.content.rememberPost(p)
	}

	s.logger.Info("header image updated",
		"post_id", postID, "file", header.Filename, "width", header.Width, "height", header.Height)
	return p, nil
}
