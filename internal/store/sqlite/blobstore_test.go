package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hay-kot/savedeck/internal/core/blob"
)

func openTestStore(t *testing.T, path string) *BlobStore {
	t.Helper()
	s, err := Open(context.Background(), path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestBlobStore(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t, filepath.Join(t.TempDir(), "nested", "history.db"))

	_, err := s.Get(ctx, "saveHistory")
	assert.ErrorIs(t, err, blob.ErrKeyNotFound)

	require.NoError(t, s.Set(ctx, "saveHistory", []byte(`[{"id":"1"}]`)))
	got, err := s.Get(ctx, "saveHistory")
	require.NoError(t, err)
	assert.JSONEq(t, `[{"id":"1"}]`, string(got))

	require.NoError(t, s.Set(ctx, "saveHistory", []byte(`[]`)))
	got, err = s.Get(ctx, "saveHistory")
	require.NoError(t, err)
	assert.Equal(t, `[]`, string(got))

	require.NoError(t, s.Delete(ctx, "saveHistory"))
	_, err = s.Get(ctx, "saveHistory")
	assert.ErrorIs(t, err, blob.ErrKeyNotFound)

	assert.NoError(t, s.Delete(ctx, "saveHistory"), "deleting a missing key is a no-op")
}

func TestBlobStore_Reopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "history.db")

	first, err := Open(ctx, path)
	require.NoError(t, err)
	require.NoError(t, first.Set(ctx, "k", []byte(`{"a":1}`)))
	require.NoError(t, first.Close())

	second := openTestStore(t, path)
	got, err := second.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, `{"a":1}`, string(got))
}
