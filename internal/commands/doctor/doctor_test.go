package doctor

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hay-kot/savedeck/internal/core/config"
	"github.com/hay-kot/savedeck/internal/core/history"
	"github.com/hay-kot/savedeck/internal/core/host"
	"github.com/hay-kot/savedeck/internal/thumbcache"
)

type mockRecords struct {
	records []history.Record
	updates map[string]string
}

func (m *mockRecords) List(_ context.Context) ([]history.Record, error) {
	return m.records, nil
}

func (m *mockRecords) UpdateAccess(_ context.Context, id, _, token string) error {
	if m.updates == nil {
		m.updates = map[string]string{}
	}
	m.updates[id] = token
	return nil
}

type mockResolver map[string]bool

func (m mockResolver) EntryForPersistentToken(_ context.Context, token string) (host.Entry, error) {
	if m[token] {
		return host.Entry{}, nil
	}
	return host.Entry{}, host.ErrInvalidToken
}

func newCache(t *testing.T, paths ...string) *thumbcache.Store {
	t.Helper()
	cache := thumbcache.New(t.TempDir(), zerolog.Nop())
	for _, p := range paths {
		require.NoError(t, cache.Write(p, []byte("thumb")))
	}
	return cache
}

func TestThumbnailCheck_NoOrphans(t *testing.T) {
	cache := newCache(t, "/art/a.png", "/art/b.png")
	records := &mockRecords{records: []history.Record{{Path: "/art/a.png"}, {Path: "/ART/B.png"}}}

	result := NewThumbnailCheck(records, cache, false).Run(context.Background())

	assert.Equal(t, "Thumbnail Cache", result.Name)
	require.Len(t, result.Items, 1)
	assert.Equal(t, StatusPass, result.Items[0].Status)
	assert.Equal(t, "No orphans", result.Items[0].Label)
}

func TestThumbnailCheck_ReportsOrphans(t *testing.T) {
	cache := newCache(t, "/art/a.png", "/art/gone.png")
	records := &mockRecords{records: []history.Record{{Path: "/art/a.png"}}}

	result := NewThumbnailCheck(records, cache, false).Run(context.Background())

	require.Len(t, result.Items, 1)
	assert.Equal(t, StatusWarn, result.Items[0].Status)
	assert.Equal(t, filepath.Base(cache.EntryPath("/art/gone.png")), result.Items[0].Label)
	assert.True(t, result.Items[0].Fixable)
	assert.Equal(t, 1, CountFixable([]Result{result}))
}

func TestThumbnailCheck_FixDeletesOrphans(t *testing.T) {
	cache := newCache(t, "/art/a.png", "/art/gone.png")
	records := &mockRecords{records: []history.Record{{Path: "/art/a.png"}}}

	result := NewThumbnailCheck(records, cache, true).Run(context.Background())

	require.Len(t, result.Items, 1)
	assert.Equal(t, StatusFixed, result.Items[0].Status)
	assert.Contains(t, result.Items[0].Detail, "deleted")
	assert.Equal(t, 1, CountFixed([]Result{result}))
	assert.Equal(t, 0, CountFixable([]Result{result}))

	_, err := os.Stat(cache.EntryPath("/art/gone.png"))
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(cache.EntryPath("/art/a.png"))
	assert.NoError(t, err)
}

func TestThumbnailCheck_MissingDir(t *testing.T) {
	cache := thumbcache.New(filepath.Join(t.TempDir(), "nope"), zerolog.Nop())

	result := NewThumbnailCheck(&mockRecords{}, cache, false).Run(context.Background())

	require.Len(t, result.Items, 1)
	assert.Equal(t, StatusPass, result.Items[0].Status)
}

func TestTokenCheck(t *testing.T) {
	records := &mockRecords{records: []history.Record{
		{ID: "1", Filename: "a.png", Path: "/a.png", Token: "good"},
		{ID: "2", Filename: "b.png", Path: "/b.png", Token: "stale"},
		{ID: "3", Filename: "c.png", Path: "/c.png"},
	}}
	resolver := mockResolver{"good": true}

	t.Run("report", func(t *testing.T) {
		result := NewTokenCheck(records, resolver, false).Run(context.Background())

		passed, warned, failed := Summary([]Result{result})
		assert.Equal(t, 1, passed)
		assert.Equal(t, 1, warned)
		assert.Equal(t, 0, failed)
		assert.Equal(t, "b.png", result.Items[0].Label)
		assert.Nil(t, records.updates)
	})

	t.Run("fix", func(t *testing.T) {
		result := NewTokenCheck(records, resolver, true).Run(context.Background())

		assert.Equal(t, StatusFixed, result.Items[0].Status)
		passed, warned, _ := Summary([]Result{result})
		assert.Equal(t, 2, passed)
		assert.Equal(t, 0, warned)
		assert.Equal(t, map[string]string{"2": ""}, records.updates)
	})
}

func TestRunAll_SetsStatusStrings(t *testing.T) {
	results := RunAll(context.Background(), []Check{
		NewTokenCheck(&mockRecords{}, mockResolver{}, false),
	})

	require.Len(t, results, 1)
	for _, item := range results[0].Items {
		assert.Equal(t, item.Status.String(), item.StatusStr)
	}
}


func TestConfigCheck(t *testing.T) {
	t.Run("not loaded", func(t *testing.T) {
		result := NewConfigCheck(nil, "").Run(context.Background())

		require.Len(t, result.Items, 1)
		assert.Equal(t, StatusFail, result.Items[0].Status)
	})

	t.Run("reports storage backend", func(t *testing.T) {
		cfg := config.DefaultConfig()
		cfg.DataDir = t.TempDir()
		cfg.Storage.Driver = config.DriverSQLite

		result := NewConfigCheck(&cfg, filepath.Join(cfg.DataDir, "config.yaml")).Run(context.Background())

		last := result.Items[len(result.Items)-1]
		assert.Equal(t, "History storage", last.Label)
		assert.Equal(t, StatusPass, last.Status)
		assert.Contains(t, last.Detail, "sqlite")
	})

	t.Run("field errors become items", func(t *testing.T) {
		cfg := config.DefaultConfig()
		cfg.DataDir = t.TempDir()
		cfg.History.MaxRecords = -1

		result := NewConfigCheck(&cfg, "").Run(context.Background())

		var labels []string
		for _, item := range result.Items {
			if item.Status == StatusFail {
				labels = append(labels, item.Label)
			}
		}
		assert.Contains(t, labels, "history.max_records")
	})
}
