package doctor

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/hay-kot/savedeck/internal/core/history"
)

// Records lists history and rewrites record access.
type Records interface {
	List(ctx context.Context) ([]history.Record, error)
	UpdateAccess(ctx context.Context, id, path, token string) error
}

// ThumbnailCache is the part of the thumbnail cache the checks inspect.
type ThumbnailCache interface {
	EntryPath(path string) string
	Entries() ([]string, error)
	Remove(name string) error
}

// ThumbnailCheck finds cache entries that belong to no history record.
type ThumbnailCheck struct {
	records Records
	cache   ThumbnailCache
	fix     bool
}

// NewThumbnailCheck creates a thumbnail orphan check. If fix is true,
// orphaned entries are deleted.
func NewThumbnailCheck(records Records, cache ThumbnailCache, fix bool) *ThumbnailCheck {
	return &ThumbnailCheck{records: records, cache: cache, fix: fix}
}

func (c *ThumbnailCheck) Name() string {
	return "Thumbnail Cache"
}

func (c *ThumbnailCheck) Run(ctx context.Context) Result {
	result := Result{Name: c.Name()}

	records, err := c.records.List(ctx)
	if err != nil {
		result.add(fail("List history", err.Error()))
		return result
	}

	known := make(map[string]bool, len(records))
	for _, r := range records {
		known[filepath.Base(c.cache.EntryPath(r.Path))] = true
	}

	names, err := c.cache.Entries()
	if err != nil {
		result.add(fail("Read thumbnail directory", err.Error()))
		return result
	}

	var orphans []string
	for _, name := range names {
		if !known[name] {
			orphans = append(orphans, name)
		}
	}

	if len(orphans) == 0 {
		result.add(pass("No orphans", fmt.Sprintf("%d thumbnail(s), all referenced", len(names))))
		return result
	}

	for _, name := range orphans {
		if !c.fix {
			result.add(fixable(name, "orphaned thumbnail (no history record)"))
			continue
		}

		if err := c.cache.Remove(name); err != nil {
			result.add(fail(name, fmt.Sprintf("failed to delete: %v", err)))
		} else {
			result.add(fixed(name, "deleted orphaned thumbnail"))
		}
	}

	return result
}
