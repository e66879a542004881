package thumbcache

import (
	"bytes"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hay-kot/savedeck/internal/core/failure"
	"github.com/hay-kot/savedeck/internal/core/pathkey"
)

func testImage(w, h int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := range w {
		for y := range h {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 128, A: 255})
		}
	}
	return img
}

func testThumb(t *testing.T) []byte {
	t.Helper()
	data, err := Renderer{}.Render(testImage(40, 20))
	require.NoError(t, err)
	return data
}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	return New(filepath.Join(t.TempDir(), "thumbnails"), zerolog.Nop())
}

func TestStore_WriteRead(t *testing.T) {
	s := newTestStore(t)
	data := testThumb(t)

	require.NoError(t, s.Write("/tmp/x.png", data))

	got, ok := s.Read("/tmp/x.png")
	require.True(t, ok)
	assert.Equal(t, data, got)

	got, ok = s.Read(`\TMP\X.PNG`)
	require.True(t, ok, "lookup is normalized")
	assert.Equal(t, data, got)

	assert.Equal(t, filepath.Join(s.Dir(), pathkey.Hash("/tmp/x.png")+".jpg"), s.EntryPath("/tmp/x.png"))
}

func TestStore_WriteOverwrites(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.Write("/tmp/x.png", testThumb(t)))

	second, err := Renderer{}.Render(testImage(10, 30))
	require.NoError(t, err)
	require.NoError(t, s.Write("/tmp/x.png", second))

	got, ok := s.Read("/tmp/x.png")
	require.True(t, ok)
	assert.Equal(t, second, got)
	assert.Equal(t, 1, s.Count())
}

func TestStore_ReadMissing(t *testing.T) {
	s := newTestStore(t)

	_, ok := s.Read("/nope.png")
	assert.False(t, ok)
}

func TestStore_ReadCorrupt(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, os.MkdirAll(s.Dir(), 0o755))
	require.NoError(t, os.WriteFile(s.EntryPath("/x.png"), []byte("not an image"), 0o644))

	_, ok := s.Read("/x.png")
	assert.False(t, ok)
}

func TestStore_WriteEmptyFails(t *testing.T) {
	s := newTestStore(t)

	err := s.Write("/x.png", nil)
	require.Error(t, err)
	assert.True(t, failure.Is(err, failure.KindCache))
}

func TestStore_WriteUnwritableDir(t *testing.T) {
	base := t.TempDir()
	blocker := filepath.Join(base, "file")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))

	s := New(filepath.Join(blocker, "thumbnails"), zerolog.Nop())
	err := s.Write("/x.png", testThumb(t))
	require.Error(t, err)
	assert.True(t, failure.Is(err, failure.KindCache))
}

func TestStore_Delete(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Write("/x.png", testThumb(t)))

	require.NoError(t, s.Delete("/x.png"))
	require.NoError(t, s.Delete("/x.png"), "deleting a missing entry is a no-op")

	_, ok := s.Read("/x.png")
	assert.False(t, ok)
}

func TestStore_Clear(t *testing.T) {
	s := newTestStore(t)
	for _, p := range []string{"/a.png", "/b.png", "/c.png"} {
		require.NoError(t, s.Write(p, testThumb(t)))
	}
	require.Equal(t, 3, s.Count())

	require.NoError(t, s.Clear())
	assert.Equal(t, 0, s.Count())
}

func TestStore_ClearMissingDir(t *testing.T) {
	s := newTestStore(t)
	assert.NoError(t, s.Clear())
}

func TestRenderer_Render(t *testing.T) {
	t.Run("downscales preserving aspect", func(t *testing.T) {
		data, err := Renderer{MaxSize: 64}.Render(testImage(256, 128))
		require.NoError(t, err)

		cfg, err := decodeConfig(data)
		require.NoError(t, err)
		assert.Equal(t, 64, cfg.Width)
		assert.Equal(t, 32, cfg.Height)
	})

	t.Run("does not upscale", func(t *testing.T) {
		data, err := Renderer{MaxSize: 64}.Render(testImage(16, 8))
		require.NoError(t, err)

		cfg, err := decodeConfig(data)
		require.NoError(t, err)
		assert.Equal(t, 16, cfg.Width)
	})

	t.Run("nil image", func(t *testing.T) {
		_, err := Renderer{}.Render(nil)
		require.Error(t, err)
	})
}

func decodeConfig(data []byte) (image.Config, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	return cfg, err
}
