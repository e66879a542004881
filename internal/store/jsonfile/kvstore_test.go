package jsonfile

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/hay-kot/savedeck/internal/core/blob"
)

func TestKVStore_SetAndGet(t *testing.T) {
	store := NewKVStore(filepath.Join(t.TempDir(), "kv.json"))
	ctx := context.Background()

	if err := store.Set(ctx, "history", []byte(`[{"id":"a"}]`)); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	got, err := store.Get(ctx, "history")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}

	if string(got) != `[{"id":"a"}]` {
		t.Errorf("Get = %s, want %s", got, `[{"id":"a"}]`)
	}
}

func TestKVStore_GetNotFound(t *testing.T) {
	store := NewKVStore(filepath.Join(t.TempDir(), "kv.json"))

	_, err := store.Get(context.Background(), "nonexistent")
	if !errors.Is(err, blob.ErrKeyNotFound) {
		t.Errorf("Get error = %v, want ErrKeyNotFound", err)
	}
}

func TestKVStore_SetOverwrites(t *testing.T) {
	store := NewKVStore(filepath.Join(t.TempDir(), "kv.json"))
	ctx := context.Background()

	for _, v := range []string{`[1]`, `[1,2]`} {
		if err := store.Set(ctx, "key", []byte(v)); err != nil {
			t.Fatalf("Set %s: %v", v, err)
		}
	}

	got, _ := store.Get(ctx, "key")
	if string(got) != `[1,2]` {
		t.Errorf("Get = %s, want [1,2]", got)
	}
}

func TestKVStore_SetRejectsInvalidJSON(t *testing.T) {
	store := NewKVStore(filepath.Join(t.TempDir(), "kv.json"))

	if err := store.Set(context.Background(), "key", []byte("{not json")); err == nil {
		t.Error("Set should reject invalid JSON")
	}
}

func TestKVStore_Delete(t *testing.T) {
	store := NewKVStore(filepath.Join(t.TempDir(), "kv.json"))
	ctx := context.Background()

	_ = store.Set(ctx, "key", []byte(`"v"`))

	if err := store.Delete(ctx, "key"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if err := store.Delete(ctx, "key"); err != nil {
		t.Fatalf("second Delete should be a no-op, got %v", err)
	}

	if _, err := store.Get(ctx, "key"); !errors.Is(err, blob.ErrKeyNotFound) {
		t.Errorf("Get after delete = %v, want ErrKeyNotFound", err)
	}
}

func TestKVStore_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kv.json")
	if err := os.WriteFile(path, []byte("garbage"), 0o644); err != nil {
		t.Fatal(err)
	}

	store := NewKVStore(path)
	if _, err := store.Get(context.Background(), "key"); err == nil {
		t.Error("Get on corrupt file should fail")
	}
}

func TestKVStore_KeysAreIndependent(t *testing.T) {
	store := NewKVStore(filepath.Join(t.TempDir(), "kv.json"))
	ctx := context.Background()

	_ = store.Set(ctx, "a", []byte(`1`))
	_ = store.Set(ctx, "b", []byte(`2`))

	a, _ := store.Get(ctx, "a")
	b, _ := store.Get(ctx, "b")
	if string(a) != "1" || string(b) != "2" {
		t.Errorf("got a=%s b=%s", a, b)
	}
}

func TestKVStore_ConcurrentAccess(t *testing.T) {
	store := NewKVStore(filepath.Join(t.TempDir(), "kv.json"))
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := range 10 {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			_ = store.Set(ctx, "key", []byte{'0' + byte(n)})
			_, _ = store.Get(ctx, "key")
		}(i)
	}
	wg.Wait()

	if _, err := store.Get(ctx, "key"); err != nil {
		t.Errorf("Get after concurrent access: %v", err)
	}
}
