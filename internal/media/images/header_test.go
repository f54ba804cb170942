package images

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sarcastic-Soul/blog-app/internal/logger"
)

func encodePNG(t *testing.T, w, h int) []byte {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := range h {
		for x := range w {
			img.Set(x, y, color.RGBA{R: uint8(x % 256), G: uint8(y % 256), B: 200, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func setupHeaderStore(t *testing.T) *HeaderStore {
	t.Helper()
	return NewHeaderStore(setupTestStorage(t), logger.Discard())
}

func TestHeaderStore_Save(t *testing.T) {
	headers := setupHeaderStore(t)

	data := encodePNG(t, 320, 160)
	h, err := headers.Save("post-1", data)
	require.NoError(t, err)

	assert.Equal(t, "png", h.Format)
	assert.Equal(t, 320, h.Width)
	assert.Equal(t, 160, h.Height)
	assert.Equal(t, URLPrefix+h.Filename, h.URL)
	assert.NotEmpty(t, h.BlurHash)

	stored, err := headers.Storage().Get(h.Filename)
	require.NoError(t, err)
	assert.Equal(t, data, stored)
}

func TestHeaderStore_Rejects(t *testing.T) {
	headers := setupHeaderStore(t)

	_, err := headers.Save("post-1", []byte("definitely not an image"))
	assert.ErrorIs(t, err, ErrUnsupported)

	_, err = headers.Save("post-1", make([]byte, MaxHeaderSize+1))
	assert.ErrorIs(t, err, ErrTooLarge)
}

func TestHeaderStore_Prune(t *testing.T) {
	headers := setupHeaderStore(t)

	first, err := headers.Save("post-1", encodePNG(t, 10, 10))
	require.NoError(t, err)
	second, err := headers.Save("post-1", encodePNG(t, 12, 12))
	require.NoError(t, err)

	require.NoError(t, headers.Prune("post-1", second.Filename))
	assert.False(t, headers.Storage().Exists(first.Filename))
	assert.True(t, headers.Storage().Exists(second.Filename))
}

func TestComputeBlurHash(t *testing.T) {
	t.Run("small image used as is", func(t *testing.T) {
		img := image.NewRGBA(image.Rect(0, 0, 8, 8))
		assert.Same(t, img, thumbnail(img))
	})

	t.Run("large image scaled keeping aspect", func(t *testing.T) {
		img := image.NewRGBA(image.Rect(0, 0, 640, 320))
		b := thumbnail(img).Bounds()
		assert.Equal(t, 64, b.Dx())
		assert.Equal(t, 32, b.Dy())

		tall := image.NewRGBA(image.Rect(0, 0, 10, 1000))
		b = thumbnail(tall).Bounds()
		assert.Equal(t, 1, b.Dx())
		assert.Equal(t, 64, b.Dy())
	})

	t.Run("hash is stable", func(t *testing.T) {
		img, _, err := image.Decode(bytes.NewReader(encodePNG(t, 100, 50)))
		require.NoError(t, err)

		a, err := ComputeBlurHash(img)
		require.NoError(t, err)
		b, err := ComputeBlurHash(img)
		require.NoError(t, err)
		assert.Equal(t, a, b)
	})
}
