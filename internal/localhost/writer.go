package localhost

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"math"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog"

	"github.com/hay-kot/savedeck/internal/core/format"
	"github.com/hay-kot/savedeck/internal/core/host"
	"github.com/hay-kot/savedeck/pkg/executil"
	"github.com/hay-kot/savedeck/pkg/tmpl"
)

// ErrNoConverter is returned when a format has no native encoder and no
// converter command is configured.
var ErrNoConverter = errors.New("no converter configured")

// SessionVerifier validates write handles.
type SessionVerifier interface {
	VerifySession(h host.Handle) error
}

// ConvertData is the template data for the converter command.
type ConvertData struct {
	Input     string
	Output    string
	Format    string
	Extension string
	Quality   int
	BitDepth  int
	RLE       bool
}

// Writer saves documents to disk. PNG and JPG are encoded natively; other
// formats are produced by the converter command from an intermediate PNG.
type Writer struct {
	verifier  SessionVerifier
	converter string
	exec      executil.Executor
	log       zerolog.Logger

	mu sync.Mutex
}

// NewWriter creates a Writer. converter is a template rendered with
// ConvertData and run through sh -c; it may be empty.
func NewWriter(verifier SessionVerifier, converter string, exec executil.Executor, log zerolog.Logger) *Writer {
	return &Writer{verifier: verifier, converter: converter, exec: exec, log: log}
}

// RunModal serializes writes.
func (w *Writer) RunModal(ctx context.Context, name string, fn func(ctx context.Context) error) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.log.Debug().Str("scope", name).Msg("entering modal scope")
	return fn(ctx)
}

// WriteDocument encodes doc in format f to the file behind h.
func (w *Writer) WriteDocument(ctx context.Context, doc host.Document, h host.Handle, f format.Format, opts format.Options) error {
	if err := w.verifier.VerifySession(h); err != nil {
		return fmt.Errorf("write %s: %w", h.Entry.Path, err)
	}

	ld, err := asDocument(doc)
	if err != nil {
		return err
	}

	target := filepath.FromSlash(h.Entry.Path)

	switch f {
	case format.PNG:
		return writeAtomic(target, func(out io.Writer) error {
			return png.Encode(out, ld.img)
		})
	case format.JPG:
		return writeAtomic(target, func(out io.Writer) error {
			return jpeg.Encode(out, ld.img, &jpeg.Options{Quality: jpegQuality(opts.Quality)})
		})
	default:
		return w.convert(ctx, ld.img, target, f, opts)
	}
}

func (w *Writer) convert(ctx context.Context, img image.Image, target string, f format.Format, opts format.Options) error {
	if w.converter == "" {
		return fmt.Errorf("save %s: %w", f, ErrNoConverter)
	}

	dir, err := os.MkdirTemp("", "savedeck-convert-*")
	if err != nil {
		return fmt.Errorf("create temp dir: %w", err)
	}
	defer func() { _ = os.RemoveAll(dir) }()

	input := filepath.Join(dir, "input.png")
	if err := writeAtomic(input, func(out io.Writer) error { return png.Encode(out, img) }); err != nil {
		return err
	}

	cmd, err := tmpl.Render(w.converter, ConvertData{
		Input:     input,
		Output:    target,
		Format:    string(f),
		Extension: f.Extension(),
		Quality:   opts.Quality,
		BitDepth:  opts.BitDepth,
		RLE:       opts.RLE,
	})
	if err != nil {
		return fmt.Errorf("render converter: %w", err)
	}

	w.log.Debug().Str("cmd", cmd).Msg("running converter")
	if out, err := executil.Shell(ctx, w.exec, cmd); err != nil {
		w.log.Error().Err(err).Bytes("output", out).Msg("converter failed")
		return fmt.Errorf("convert to %s: %w", f, err)
	}
	return nil
}

// jpegQuality maps the 0-12 quality scale onto image/jpeg's 1-100.
func jpegQuality(q int) int {
	v := int(math.Round(float64(q) / 12 * 100))
	return max(1, min(100, v))
}

// writeAtomic writes to a temp file next to path and renames it into place.
func writeAtomic(path string, encode func(io.Writer) error) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".savedeck-*")
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	tmpName := tmp.Name()

	if err := encode(tmp); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("encode %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("close %s: %w", path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("replace %s: %w", path, err)
	}
	return nil
}
