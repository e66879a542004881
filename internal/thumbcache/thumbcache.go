// Package thumbcache stores best-effort thumbnail images keyed by the hash of
// a document path. Every operation logs and swallows I/O failures; the
// returned errors exist so callers and tests can inspect what happened.
package thumbcache

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"github.com/hay-kot/savedeck/internal/core/failure"
	"github.com/hay-kot/savedeck/internal/core/pathkey"
)

// Ext is the file extension of cache entries.
const Ext = ".jpg"

// Store manages a directory of thumbnail blobs.
type Store struct {
	dir string
	log zerolog.Logger
}

// New creates a Store rooted at dir. The directory is created lazily.
func New(dir string, log zerolog.Logger) *Store {
	return &Store{dir: dir, log: log}
}

// Dir returns the cache directory.
func (s *Store) Dir() string {
	return s.dir
}

// EntryPath returns the file an entry for path is stored at.
func (s *Store) EntryPath(path string) string {
	return filepath.Join(s.dir, pathkey.Hash(path)+Ext)
}

// Write replaces the entry for path with data.
func (s *Store) Write(path string, data []byte) error {
	if len(data) == 0 {
		return s.fail("write thumbnail", path, errors.New("empty image"))
	}

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return s.fail("create thumbnail directory", path, err)
	}

	target := s.EntryPath(path)
	if err := os.Remove(target); err != nil && !os.IsNotExist(err) {
		return s.fail("remove previous thumbnail", path, err)
	}

	tmp := target + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		_ = os.Remove(tmp)
		return s.fail("write thumbnail", path, err)
	}

	if err := os.Rename(tmp, target); err != nil {
		_ = os.Remove(tmp)
		return s.fail("rename thumbnail", path, err)
	}

	s.log.Debug().Str("path", path).Str("entry", target).Msg("thumbnail written")
	return nil
}

// Read returns the entry for path. Missing and undecodable entries both
// report ok=false.
func (s *Store) Read(path string) (data []byte, ok bool) {
	data, err := os.ReadFile(s.EntryPath(path))
	if err != nil {
		if !os.IsNotExist(err) {
			_ = s.fail("read thumbnail", path, err)
		}
		return nil, false
	}

	if _, _, err := image.DecodeConfig(bytes.NewReader(data)); err != nil {
		_ = s.fail("decode thumbnail", path, err)
		return nil, false
	}

	return data, true
}

// Delete removes the entry for path. Missing entries are a no-op.
func (s *Store) Delete(path string) error {
	if err := os.Remove(s.EntryPath(path)); err != nil && !os.IsNotExist(err) {
		return s.fail("delete thumbnail", path, err)
	}
	return nil
}

// Clear removes every entry in the cache directory. A missing directory is a no-op.
func (s *Store) Clear() error {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return s.fail("list thumbnails", "", err)
	}

	var errs []error
	for _, e := range entries {
		if e.IsDir() || (!strings.HasSuffix(e.Name(), Ext) && !strings.HasSuffix(e.Name(), Ext+".tmp")) {
			continue
		}
		if err := os.Remove(filepath.Join(s.dir, e.Name())); err != nil && !os.IsNotExist(err) {
			errs = append(errs, fmt.Errorf("%s: %w", e.Name(), err))
		}
	}

	if len(errs) > 0 {
		return s.fail("clear thumbnails", "", errors.Join(errs...))
	}
	return nil
}

// Count returns the number of entries on disk.
func (s *Store) Count() int {
	names, _ := s.Entries()
	return len(names)
}

// Entries returns the file names of every entry on disk. A missing directory
// has no entries.
func (s *Store) Entries() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), Ext) {
			continue
		}
		names = append(names, e.Name())
	}
	return names, nil
}

// Remove deletes the entry file called name, as returned by Entries.
func (s *Store) Remove(name string) error {
	if filepath.Base(name) != name {
		return fmt.Errorf("invalid entry name %q", name)
	}
	if err := os.Remove(filepath.Join(s.dir, name)); err != nil && !os.IsNotExist(err) {
		return s.fail("remove thumbnail", name, err)
	}
	return nil
}

func (s *Store) fail(op, path string, err error) error {
	s.log.Warn().Err(err).Str("path", path).Msg(op)
	return failure.Cache(op, err)
}
