package images

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"  // Register GIF decoder
	_ "image/jpeg" // Register JPEG decoder
	_ "image/png"  // Register PNG decoder
	"log/slog"

	_ "golang.org/x/image/webp" // Register WebP decoder
)

// MaxHeaderSize bounds an uploaded header image.
const MaxHeaderSize = 10 * 1024 * 1024

// URLPrefix is where the API serves stored header images.
const URLPrefix = "/media/headers/"

// ErrUnsupported is returned for data that is not a decodable image.
var ErrUnsupported = errors.New("unsupported image format")

// ErrTooLarge is returned for images over MaxHeaderSize.
var ErrTooLarge = errors.New("image too large")

// extensions maps decoder names to stored file extensions.
var extensions = map[string]string{
	"jpeg": "jpg",
	"png":  "png",
	"gif":  "gif",
	"webp": "webp",
}

// Header is a stored header image.
type Header struct {
	Filename string
	URL      string
	BlurHash string
	Width    int
	Height   int
	Format   string
}

// HeaderStore validates, stores and summarizes post header images.
type HeaderStore struct {
	storage *Storage
	logger  *slog.Logger
}

// NewHeaderStore creates a HeaderStore over storage.
func NewHeaderStore(storage *Storage, logger *slog.Logger) *HeaderStore {
	return &HeaderStore{storage: storage, logger: logger}
}

// Storage returns the underlying file storage.
func (h *HeaderStore) Storage() *Storage {
	return h.storage
}

// Save stores data as the header image of postID. A BlurHash failure does
// not fail the upload; the header is stored without a placeholder.
func (h *HeaderStore) Save(postID string, data []byte) (*Header, error) {
	if len(data) > MaxHeaderSize {
		return nil, ErrTooLarge
	}

	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupported, err)
	}
	ext, ok := extensions[format]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupported, format)
	}

	name, err := h.storage.Save(postID, ext, data)
	if err != nil {
		return nil, err
	}

	hash, err := ComputeBlurHash(img)
	if err != nil {
		h.logger.Warn("blurhash failed", "post_id", postID, "error", err)
		hash = ""
	}

	b := img.Bounds()
	h.logger.Debug("stored header image",
		"post_id", postID,
		"file", name,
		"format", format,
		"size", len(data))

	return &Header{
		Filename: name,
		URL:      URLPrefix + name,
		BlurHash: hash,
		Width:    b.Dx(),
		Height:   b.Dy(),
		Format:   format,
	}, nil
}

// Prune deletes the post's earlier header images, keeping current.
func (h *HeaderStore) Prune(postID, current string) error {
	return h.storage.DeleteOwner(postID, current)
}
