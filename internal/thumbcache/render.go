package thumbcache

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"

	"github.com/nfnt/resize"
)

// DefaultMaxSize is the longest side of a rendered thumbnail in pixels.
const DefaultMaxSize = 256

// DefaultQuality is the JPEG quality of rendered thumbnails.
const DefaultQuality = 80

// Renderer downsizes document previews into JPEG thumbnails.
type Renderer struct {
	MaxSize int
	Quality int
}

// Render scales img to fit within MaxSize x MaxSize, preserving aspect ratio,
// and encodes it as JPEG. Images already small enough are not upscaled.
func (r Renderer) Render(img image.Image) ([]byte, error) {
	if img == nil {
		return nil, fmt.Errorf("render thumbnail: no image")
	}

	maxSize := r.MaxSize
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}
	quality := r.Quality
	if quality <= 0 || quality > 100 {
		quality = DefaultQuality
	}

	b := img.Bounds()
	if b.Dx() == 0 || b.Dy() == 0 {
		return nil, fmt.Errorf("render thumbnail: empty image")
	}

	thumb := resize.Thumbnail(uint(maxSize), uint(maxSize), img, resize.Lanczos3)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, thumb, &jpeg.Options{Quality: quality}); err != nil {
		return nil, fmt.Errorf("encode thumbnail: %w", err)
	}
	return buf.Bytes(), nil
}
