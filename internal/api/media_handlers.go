package api

import (
	"context"
	"errors"
	"net/http"
	"path/filepath"
	"strconv"

	"github.com/danielgtaylor/huma/v2"
	"github.com/go-chi/chi/v5"

	"github.com/Sarcastic-Soul/blog-app/internal/media/images"
)

func (s *Server) registerMediaRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID:  "uploadHeaderImage",
		Method:       http.MethodPut,
		Path:         "/api/v1/posts/{id}/header-image",
		Summary:      "Upload header image",
		Description:  "Stores the raw request body (JPEG, PNG, GIF or WebP) as the post's header image (admin only)",
		Tags:         []string{"Media"},
		MaxBodyBytes: images.MaxHeaderSize,
		Security:     []map[string][]string{{"bearer": {}}},
	}, s.handleUploadHeaderImage)

	// Direct chi route for image streaming
	s.router.Get(images.URLPrefix+"{file}", s.handleServeHeaderImage)
}

// UploadHeaderImageInput contains the raw image.
type UploadHeaderImageInput struct {
	ID          string `path:"id" doc:"Post ID"`
	ContentType string `header:"Content-Type" doc:"Image content type"`
	RawBody     []byte
}

func (s *Server) handleUploadHeaderImage(ctx context.Context, input *UploadHeaderImageInput) (*PostOutput, error) {
	if _, err := s.RequireAdmin(ctx); err != nil {
		return nil, err
	}

	s.logger.Debug("header image upload",
		"post_id", input.ID,
		"content_type", input.ContentType,
		"body_size", len(input.RawBody),
	)

	p, err := s.services.Media.UploadHeaderImage(ctx, input.ID, input.RawBody)
	if err != nil {
		return nil, err
	}
	return &PostOutput{Body: toPostResponse(p)}, nil
}

// contentTypes maps stored extensions to response types.
var contentTypes = map[string]string{
	".jpg":  "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".webp": "image/webp",
}

func (s *Server) handleServeHeaderImage(w http.ResponseWriter, r *http.Request) {
	if s.infra.Headers == nil {
		http.NotFound(w, r)
		return
	}

	name := chi.URLParam(r, "file")
	data, err := s.infra.Headers.Get(name)
	if err != nil {
		if !errors.Is(err, images.ErrNotFound) {
			s.logger.Warn("failed to read header image", "file", name, "error", err)
		}
		http.NotFound(w, r)
		return
	}

	contentType, ok := contentTypes[filepath.Ext(name)]
	if !ok {
		contentType = http.DetectContentType(data)
	}

	// Names embed a content hash, so a given URL never changes.
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Cache-Control", CacheOneWeek)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	_, _ = w.Write(data)
}
