// Package localhost implements the host contracts against the local machine:
// documents are raster files on disk, access tokens are signed JWTs and
// prompts run in the terminal.
package localhost

import (
	"context"
	"fmt"
	"image"
	_ "image/gif" // decoder
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"sync"

	"github.com/hay-kot/savedeck/internal/core/host"
)

// Document is a raster file opened as the active document.
type Document struct {
	path string
	img  image.Image
}

// ID returns the document's absolute path.
func (d *Document) ID() string { return d.path }

// Image returns the decoded pixels.
func (d *Document) Image() image.Image { return d.img }

// Documents serves a single document loaded lazily from path.
type Documents struct {
	path string

	mu  sync.Mutex
	doc *Document
}

// NewDocuments creates a Documents for the file at path. An empty path means
// no document is open.
func NewDocuments(path string) *Documents {
	return &Documents{path: path}
}

// ActiveDocument loads and returns the document, or host.ErrNoDocument.
func (d *Documents) ActiveDocument(_ context.Context) (host.Document, error) {
	if d.path == "" {
		return nil, host.ErrNoDocument
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.doc != nil {
		return d.doc, nil
	}

	abs, err := filepath.Abs(d.path)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", d.path, err)
	}

	f, err := os.Open(abs)
	if err != nil {
		return nil, fmt.Errorf("open document: %w", err)
	}
	defer func() { _ = f.Close() }()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", abs, err)
	}

	d.doc = &Document{path: abs, img: img}
	return d.doc, nil
}

// DocumentInfo reports the document's name, path and pixel size.
func (d *Documents) DocumentInfo(_ context.Context, doc host.Document) (host.Info, error) {
	ld, err := asDocument(doc)
	if err != nil {
		return host.Info{}, err
	}

	b := ld.img.Bounds()
	return host.Info{
		Name:        filepath.Base(ld.path),
		Path:        ld.path,
		Width:       host.Measure{Value: float64(b.Dx()), Unit: host.UnitPixels},
		Height:      host.Measure{Value: float64(b.Dy()), Unit: host.UnitPixels},
		Resolution:  72,
		PixelWidth:  float64(b.Dx()),
		PixelHeight: float64(b.Dy()),
	}, nil
}

// Preview returns the document pixels.
func (d *Documents) Preview(_ context.Context, doc host.Document) (image.Image, error) {
	ld, err := asDocument(doc)
	if err != nil {
		return nil, err
	}
	return ld.img, nil
}

func asDocument(doc host.Document) (*Document, error) {
	ld, ok := doc.(*Document)
	if !ok || ld == nil {
		return nil, fmt.Errorf("unsupported document %T", doc)
	}
	return ld, nil
}
