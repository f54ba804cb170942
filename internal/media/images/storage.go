// Package images stores post header images and computes their placeholders.
package images

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// ErrNotFound is returned when no stored image has the requested name.
var ErrNotFound = errors.New("image not found")

// Storage manages image files in one directory.
// Thread-safe for concurrent operations.
type Storage struct {
	basePath string
	mu       sync.RWMutex
}

// NewStorage creates a Storage for header images under {basePath}/headers.
func NewStorage(basePath string) (*Storage, error) {
	return NewStorageWithSubdir(basePath, "headers")
}

// NewStorageWithSubdir creates a Storage in {basePath}/{subdir}.
func NewStorageWithSubdir(basePath, subdir string) (*Storage, error) {
	if basePath == "" {
		return nil, fmt.Errorf("base path cannot be empty")
	}
	if subdir == "" {
		return nil, fmt.Errorf("subdirectory cannot be empty")
	}

	storagePath := filepath.Join(basePath, subdir)
	if err := os.MkdirAll(storagePath, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create %s directory: %w", subdir, err)
	}

	return &Storage{basePath: storagePath}, nil
}

// Save stores image data for an owner and returns the file name.
// Names embed a content hash, {owner}-{hash}.{ext}, so a replaced image
// gets a new URL and caches never serve the old one.
func (s *Storage) Save(owner, ext string, data []byte) (string, error) {
	if owner == "" || strings.ContainsAny(owner, `/\.`) {
		return "", fmt.Errorf("invalid owner %q", owner)
	}
	if len(data) == 0 {
		return "", fmt.Errorf("image data cannot be empty")
	}

	name := fmt.Sprintf("%s-%s.%s", owner, Hash(data)[:12], ext)

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.WriteFile(filepath.Join(s.basePath, name), data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write image file: %w", err)
	}
	return name, nil
}

// Get reads a stored image by file name.
func (s *Storage) Get(name string) ([]byte, error) {
	path, err := s.Path(name)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%s: %w", name, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to read image file: %w", err)
	}
	return data, nil
}

// Exists reports whether a stored image has this name.
func (s *Storage) Exists(name string) bool {
	path, err := s.Path(name)
	if err != nil {
		return false
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	_, err = os.Stat(path)
	return err == nil
}

// DeleteOwner removes every image of an owner except keep, which may be empty.
func (s *Storage) DeleteOwner(owner, keep string) error {
	if owner == "" {
		return fmt.Errorf("owner cannot be empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	matches, err := filepath.Glob(filepath.Join(s.basePath, owner+"-*"))
	if err != nil {
		return err
	}
	for _, m := range matches {
		if filepath.Base(m) == keep {
			continue
		}
		if err := os.Remove(m); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to delete image file: %w", err)
		}
	}
	return nil
}

// Path returns the filesystem path of a stored image. Names that could
// escape the storage directory are rejected.
func (s *Storage) Path(name string) (string, error) {
	if name == "" || name != filepath.Base(name) || strings.HasPrefix(name, ".") {
		return "", fmt.Errorf("invalid image name %q: %w", name, ErrNotFound)
	}
	return filepath.Join(s.basePath, name), nil
}

// Hash returns the hex SHA-256 of data, used for names and ETags.
func Hash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
