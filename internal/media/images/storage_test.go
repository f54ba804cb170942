package images

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestStorage(t *testing.T) *Storage {
	t.Helper()
	storage, err := NewStorage(t.TempDir())
	require.NoError(t, err)
	return storage
}

func TestNewStorage(t *testing.T) {
	t.Run("creates headers directory", func(t *testing.T) {
		tmpDir := t.TempDir()

		storage, err := NewStorage(tmpDir)
		require.NoError(t, err)
		require.NotNil(t, storage)

		info, err := os.Stat(filepath.Join(tmpDir, "headers"))
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	})

	t.Run("returns error for empty path", func(t *testing.T) {
		storage, err := NewStorage("")
		assert.Error(t, err)
		assert.Nil(t, storage)
		assert.Contains(t, err.Error(), "base path cannot be empty")
	})

	t.Run("creates nested directories if needed", func(t *testing.T) {
		nested := filepath.Join(t.TempDir(), "nested", "path")

		_, err := NewStorageWithSubdir(nested, "custom")
		require.NoError(t, err)

		info, err := os.Stat(filepath.Join(nested, "custom"))
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	})
}

func TestStorage_SaveAndGet(t *testing.T) {
	t.Run("names files by owner and content", func(t *testing.T) {
		storage := setupTestStorage(t)
		data := []byte("test image data")

		name, err := storage.Save("post-1", "png", data)
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(name, "post-1-"))
		assert.True(t, strings.HasSuffix(name, ".png"))
		assert.Equal(t, "post-1-"+Hash(data)[:12]+".png", name)

		got, err := storage.Get(name)
		require.NoError(t, err)
		assert.Equal(t, data, got)
		assert.True(t, storage.Exists(name))
	})

	t.Run("different content gets a different name", func(t *testing.T) {
		storage := setupTestStorage(t)

		a, err := storage.Save("post-1", "jpg", []byte("one"))
		require.NoError(t, err)
		b, err := storage.Save("post-1", "jpg", []byte("two"))
		require.NoError(t, err)
		assert.NotEqual(t, a, b)
	})

	t.Run("rejects bad owners and empty data", func(t *testing.T) {
		storage := setupTestStorage(t)

		_, err := storage.Save("", "png", []byte("x"))
		assert.Error(t, err)
		_, err = storage.Save("../etc", "png", []byte("x"))
		assert.Error(t, err)
		_, err = storage.Save("post-1", "png", nil)
		assert.ErrorContains(t, err, "image data cannot be empty")
	})

	t.Run("missing and unsafe names are not found", func(t *testing.T) {
		storage := setupTestStorage(t)

		for _, name := range []string{"missing.png", "", "../secret", "a/b.png", ".hidden"} {
			_, err := storage.Get(name)
			assert.True(t, errors.Is(err, ErrNotFound), "name %q: %v", name, err)
			assert.False(t, storage.Exists(name))
		}
	})
}

func TestStorage_DeleteOwner(t *testing.T) {
	storage := setupTestStorage(t)

	old, err := storage.Save("post-1", "png", []byte("old"))
	require.NoError(t, err)
	current, err := storage.Save("post-1", "png", []byte("new"))
	require.NoError(t, err)
	other, err := storage.Save("post-2", "png", []byte("old"))
	require.NoError(t, err)

	require.NoError(t, storage.DeleteOwner("post-1", current))

	assert.False(t, storage.Exists(old))
	assert.True(t, storage.Exists(current))
	assert.True(t, storage.Exists(other))

	require.NoError(t, storage.DeleteOwner("post-1", ""))
	assert.False(t, storage.Exists(current))
	assert.Error(t, storage.DeleteOwner("", ""))
}

func TestStorage_Concurrent(t *testing.T) {
	storage := setupTestStorage(t)

	var wg sync.WaitGroup
	names := make([]string, 10)
	for i := range names {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			name, err := storage.Save(fmt.Sprintf("post-%d", i), "png", []byte(fmt.Sprintf("data %d", i)))
			assert.NoError(t, err)
			names[i] = name
		}(i)
	}
	wg.Wait()

	for i, name := range names {
		data, err := storage.Get(name)
		require.NoError(t, err)
		assert.Equal(t, fmt.Sprintf("data %d", i), string(data))
	}
}
