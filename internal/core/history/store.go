package history

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/hay-kot/savedeck/internal/core/blob"
	"github.com/hay-kot/savedeck/internal/core/failure"
	"github.com/hay-kot/savedeck/internal/core/format"
	"github.com/hay-kot/savedeck/internal/core/pathkey"
)

// Store is the history record store. Every mutation is a read-modify-write of
// the whole list persisted under Key.
type Store struct {
	blobs      blob.Store
	thumbs     Thumbnails
	log        zerolog.Logger
	maxRecords int
	now        func() time.Time
	newID      func() string

	mu        sync.Mutex
	renderers []Renderer
}

// Option configures a Store.
type Option func(*Store)

// WithMaxRecords sets the record cap. Values below 1 keep the default.
func WithMaxRecords(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.maxRecords = n
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithIDGenerator overrides record id generation.
func WithIDGenerator(fn func() string) Option {
	return func(s *Store) { s.newID = fn }
}

// NewStore creates a history store persisting to blobs and cascading deletes
// to thumbs.
func NewStore(blobs blob.Store, thumbs Thumbnails, log zerolog.Logger, opts ...Option) *Store {
	s := &Store{
		blobs:      blobs,
		thumbs:     thumbs,
		log:        log,
		maxRecords: DefaultMaxRecords,
		now:        time.Now,
		newID:      newID,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// newID returns a time-ordered UUIDv7 so ids also sort by creation.
func newID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// Subscribe registers r to be called after every successful mutation.
func (s *Store) Subscribe(r Renderer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.renderers = append(s.renderers, r)
}

// List returns all records, most recently touched first. A persistence failure
// is logged and yields an empty list alongside the classified error.
func (s *Store) List(ctx context.Context) ([]Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.load(ctx)
}

// Get returns the record with the given id. Returns ErrNotFound if not found.
func (s *Store) Get(ctx context.Context, id string) (Record, error) {
	records, err := s.List(ctx)
	if err != nil {
		return Record{}, err
	}

	for _, r := range records {
		if r.ID == id {
			return r, nil
		}
	}
	return Record{}, ErrNotFound
}

// FindByPath returns the record whose normalized path equals path.
// Returns ErrNotFound if not found.
func (s *Store) FindByPath(ctx context.Context, path string) (Record, error) {
	records, err := s.List(ctx)
	if err != nil {
		return Record{}, err
	}

	for _, r := range records {
		if pathkey.Equal(r.Path, path) {
			return r, nil
		}
	}
	return Record{}, ErrNotFound
}

// Upsert inserts rec at the front, replacing any record with the same
// normalized path or the same id. An empty ID inherits the replaced record's
// id or gets a fresh one. Timestamp is always set to the current time and
// never moves backwards for a path. Records beyond the cap are evicted from
// the back together with their thumbnails.
//
// The returned record is what was written. On a persistence failure it is
// returned with a KindPersistence error and the stored list is unchanged.
func (s *Store) Upsert(ctx context.Context, rec Record) (Record, error) {
	if strings.TrimSpace(rec.Path) == "" {
		return Record{}, failure.Generic("upsert history", errors.New("record path is required"))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	records, _ := s.load(ctx)

	var prev *Record
	kept := make([]Record, 0, len(records))
	for _, r := range records {
		if pathkey.Equal(r.Path, rec.Path) || (rec.ID != "" && r.ID == rec.ID) {
			if prev == nil {
				p := r
				prev = &p
			}
			continue
		}
		kept = append(kept, r)
	}

	now := s.now()
	if prev != nil {
		if rec.ID == "" {
			rec.ID = prev.ID
		}
		if rec.Format == "" {
			rec.Format = prev.Format
		}
		if !now.After(prev.Timestamp) {
			now = prev.Timestamp.Add(time.Millisecond)
		}
	}
	if rec.ID == "" {
		rec.ID = s.newID()
	}
	if rec.Filename == "" {
		rec.Filename = format.Base(rec.Path)
	}
	rec.Format = strings.ToUpper(rec.Format)
	rec.Timestamp = now

	out := append([]Record{rec}, kept...)

	var evicted []Record
	if len(out) > s.maxRecords {
		evicted = append(evicted, out[s.maxRecords:]...)
		out = out[:s.maxRecords]
	}

	if err := s.persist(ctx, out); err != nil {
		return rec, err
	}

	for _, e := range evicted {
		s.log.Debug().Str("id", e.ID).Str("path", e.Path).Msg("evicting history record")
		_ = s.thumbs.Delete(e.Path)
	}

	s.render(out)
	return rec, nil
}

// UpdateAccess replaces the path and token of the record with the given id in
// place, without reordering. Any other record already holding the new path is
// dropped to keep paths unique.
func (s *Store) UpdateAccess(ctx context.Context, id, path, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.load(ctx)
	if err != nil {
		return err
	}

	idx := -1
	for i, r := range records {
		if r.ID == id {
			idx = i
			break
		}
	}
	if idx == -1 {
		return ErrNotFound
	}

	if path == "" {
		path = records[idx].Path
	}

	out := make([]Record, 0, len(records))
	for i, r := range records {
		if i == idx {
			if !pathkey.Equal(r.Path, path) {
				r.Filename = format.Base(path)
			}
			r.Path = path
			r.Token = token
			out = append(out, r)
			continue
		}
		if pathkey.Equal(r.Path, path) {
			continue
		}
		out = append(out, r)
	}

	if err := s.persist(ctx, out); err != nil {
		return err
	}

	s.render(out)
	return nil
}

// RemoveByID removes the record with the given id and deletes its thumbnail.
// It reports whether a record was removed; removing a missing id is a no-op.
func (s *Store) RemoveByID(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.load(ctx)
	if err != nil {
		return false, err
	}

	var removed *Record
	out := make([]Record, 0, len(records))
	for _, r := range records {
		if r.ID == id && removed == nil {
			rr := r
			removed = &rr
			continue
		}
		out = append(out, r)
	}

	if removed == nil {
		return false, nil
	}

	if err := s.persist(ctx, out); err != nil {
		return false, err
	}

	_ = s.thumbs.Delete(removed.Path)

	s.render(out)
	return true, nil
}

// Clear removes every record and every thumbnail.
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.persist(ctx, []Record{}); err != nil {
		return err
	}

	_ = s.thumbs.Clear()

	s.render(nil)
	return nil
}

// load reads the record list. Absent data is an empty list; unreadable data is
// logged and treated as empty.
func (s *Store) load(ctx context.Context) ([]Record, error) {
	data, err := s.blobs.Get(ctx, Key)
	if err != nil {
		if errors.Is(err, blob.ErrKeyNotFound) {
			return []Record{}, nil
		}
		s.log.Warn().Err(err).Str("key", Key).Msg("read history failed")
		return []Record{}, failure.Persistence("read history", err)
	}

	var records []Record
	if err := json.Unmarshal(data, &records); err != nil {
		s.log.Warn().Err(err).Str("key", Key).Msg("history blob is corrupt, treating as empty")
		return []Record{}, failure.Persistence("parse history", err)
	}

	return records, nil
}

// persist writes the record list, logging failures.
func (s *Store) persist(ctx context.Context, records []Record) error {
	data, err := json.Marshal(records)
	if err != nil {
		return failure.Persistence("marshal history", err)
	}

	if err := s.blobs.Set(ctx, Key, data); err != nil {
		s.log.Warn().Err(err).Str("key", Key).Int("records", len(records)).Msg("write history failed")
		return failure.Persistence("write history", fmt.Errorf("set %s: %w", Key, err))
	}
	return nil
}

func (s *Store) render(records []Record) {
	if records == nil {
		records = []Record{}
	}
	for _, r := range s.renderers {
		r.Render(records)
	}
}
