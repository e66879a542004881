// Package format defines the closed set of save formats and the encoder
// parameters each one is written with.
package format

import (
	"fmt"
	"path/filepath"
	"slices"
	"strings"
	"sync"
)

// Format is a canonical uppercase save format name.
type Format string

const (
	PSD Format = "PSD"
	JPG Format = "JPG"
	PNG Format = "PNG"
	TGA Format = "TGA"
)

// Fallback is used when neither a stored format nor a path extension is usable.
const Fallback = PSD

// Options holds the encoder parameters for a format.
type Options struct {
	// Descriptor names the host encoder (e.g. "PNGFormat").
	Descriptor string
	// Extensions lists accepted file extensions without the dot; the first one
	// is used when a name needs an extension appended.
	Extensions []string
	// Quality is on the host's 0-12 scale. Zero means lossless.
	Quality int
	// BitDepth is the per-pixel depth for formats that take one.
	BitDepth int
	// RLE enables run-length compression where supported.
	RLE bool
}

var (
	mu       sync.RWMutex
	registry = map[Format]Options{
		PSD: {Descriptor: "photoshop35Format", Extensions: []string{"psd"}},
		JPG: {Descriptor: "JPEG", Extensions: []string{"jpg", "jpeg"}, Quality: 12},
		PNG: {Descriptor: "PNGFormat", Extensions: []string{"png"}},
		TGA: {Descriptor: "targaFormat", Extensions: []string{"tga"}, BitDepth: 32, RLE: true},
	}
)

// Register adds or replaces the options for a format.
func Register(f Format, opts Options) {
	mu.Lock()
	defer mu.Unlock()
	registry[Format(strings.ToUpper(string(f)))] = opts
}

// Lookup returns the options registered for f.
func Lookup(f Format) (Options, bool) {
	mu.RLock()
	defer mu.RUnlock()
	opts, ok := registry[f]
	return opts, ok
}

// All returns every registered format, sorted by name.
func All() []Format {
	mu.RLock()
	defer mu.RUnlock()

	out := make([]Format, 0, len(registry))
	for f := range registry {
		out = append(out, f)
	}
	slices.Sort(out)
	return out
}

// Parse resolves a format name or file extension (with or without a leading
// dot, any case) to a registered format.
func Parse(s string) (Format, error) {
	s = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(s), "."))
	if s == "" {
		return "", fmt.Errorf("empty format")
	}

	mu.RLock()
	defer mu.RUnlock()

	for f, opts := range registry {
		if strings.EqualFold(string(f), s) || slices.Contains(opts.Extensions, s) {
			return f, nil
		}
	}
	return "", fmt.Errorf("unsupported format %q", s)
}

// FromPath returns the format implied by the extension of path, or Fallback.
func FromPath(path string) Format {
	if f, err := Parse(Ext(path)); err == nil {
		return f
	}
	return Fallback
}

// Resolve picks the format to write: the stored format when it is registered,
// otherwise the format implied by path.
func Resolve(stored string, path string) Format {
	if stored != "" {
		if f, err := Parse(stored); err == nil {
			return f
		}
	}
	return FromPath(path)
}

// Ext returns the extension of the last element of path without the dot.
// Both slash styles are treated as separators.
func Ext(path string) string {
	return strings.TrimPrefix(filepath.Ext(Base(path)), ".")
}

// Base returns the last element of path, treating both slash styles as
// separators regardless of the running OS.
func Base(path string) string {
	if i := strings.LastIndexAny(path, `/\`); i >= 0 {
		return path[i+1:]
	}
	return path
}

// Extension returns the preferred extension for f.
func (f Format) Extension() string {
	if opts, ok := Lookup(f); ok && len(opts.Extensions) > 0 {
		return opts.Extensions[0]
	}
	return strings.ToLower(string(f))
}

// WithExtension appends the preferred extension of f to name when name has none.
func (f Format) WithExtension(name string) string {
	if Ext(name) != "" {
		return name
	}
	return name + "." + f.Extension()
}

// DisplayLabel returns the short badge shown for a record: the stored format,
// else the path extension when it looks like one, else "FILE".
func DisplayLabel(stored, path string) string {
	if stored != "" {
		return strings.ToUpper(stored)
	}
	ext := Ext(path)
	if ext != "" && len(ext) <= 5 {
		return strings.ToUpper(ext)
	}
	return "FILE"
}
