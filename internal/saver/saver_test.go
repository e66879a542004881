package saver

import (
	"context"
	"errors"
	"fmt"
	"image"
	"path/filepath"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hay-kot/savedeck/internal/core/failure"
	"github.com/hay-kot/savedeck/internal/core/format"
	"github.com/hay-kot/savedeck/internal/core/history"
	"github.com/hay-kot/savedeck/internal/core/host"
	"github.com/hay-kot/savedeck/internal/credential"
	"github.com/hay-kot/savedeck/internal/store/jsonfile"
	"github.com/hay-kot/savedeck/internal/thumbcache"
)

type fakeDoc string

func (d fakeDoc) ID() string { return string(d) }

type fakeDocs struct {
	info    host.Info
	noDoc   bool
	preview image.Image
}

func (f *fakeDocs) ActiveDocument(context.Context) (host.Document, error) {
	if f.noDoc {
		return nil, host.ErrNoDocument
	}
	return fakeDoc("doc-1"), nil
}

func (f *fakeDocs) DocumentInfo(context.Context, host.Document) (host.Info, error) {
	return f.info, nil
}

func (f *fakeDocs) Preview(context.Context, host.Document) (image.Image, error) {
	if f.preview == nil {
		return nil, errors.New("no preview")
	}
	return f.preview, nil
}

type writeCall struct {
	Path   string
	Format format.Format
}

type fakeWriter struct {
	mu    sync.Mutex
	calls []writeCall
	write func(h host.Handle) error
}

func (f *fakeWriter) RunModal(ctx context.Context, _ string, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func (f *fakeWriter) WriteDocument(_ context.Context, _ host.Document, h host.Handle, ft format.Format, _ format.Options) error {
	f.mu.Lock()
	f.calls = append(f.calls, writeCall{Path: h.Entry.Path, Format: ft})
	write := f.write
	f.mu.Unlock()

	if write != nil {
		return write(h)
	}
	return nil
}

type fakePicker struct {
	format  format.Format
	next    func() (host.Entry, error)
	picks   int
	formats int
}

func (f *fakePicker) PickSaveDestination(context.Context, string, []format.Format) (host.Entry, error) {
	f.picks++
	if f.next == nil {
		return host.Entry{}, failure.ErrCancelled
	}
	return f.next()
}

func (f *fakePicker) PickFormat(_ context.Context, suggested format.Format) (format.Format, error) {
	f.formats++
	if f.format == "" {
		return suggested, nil
	}
	return f.format, nil
}

// fakeFS resolves tokens and URLs from maps and issues "tok:" + path tokens.
type fakeFS struct {
	tokens     map[string]host.Entry
	urls       map[string]host.Entry
	persistErr error
}

func (f *fakeFS) EntryForPersistentToken(_ context.Context, token string) (host.Entry, error) {
	if e, ok := f.tokens[token]; ok {
		return e, nil
	}
	return host.Entry{}, host.ErrEntryNotFound
}

func (f *fakeFS) EntryWithURL(_ context.Context, url string) (host.Entry, error) {
	if e, ok := f.urls[url]; ok {
		return e, nil
	}
	return host.Entry{}, host.ErrEntryNotFound
}

func (f *fakeFS) CreatePersistentToken(_ context.Context, e host.Entry) (string, error) {
	if f.persistErr != nil {
		return "", f.persistErr
	}
	return "tok:" + e.Path, nil
}

func (f *fakeFS) CreateSessionToken(_ context.Context, e host.Entry) (host.Handle, error) {
	return host.Handle{Entry: e, Session: "sess:" + e.Path}, nil
}

type harness struct {
	svc     *Service
	docs    *fakeDocs
	writer  *fakeWriter
	picker  *fakePicker
	fs      *fakeFS
	history *history.Store
	thumbs  *thumbcache.Store
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	dir := t.TempDir()
	log := zerolog.Nop()

	thumbs := thumbcache.New(filepath.Join(dir, "thumbnails"), log)
	store := history.NewStore(jsonfile.NewKVStore(filepath.Join(dir, "history.json")), thumbs, log)

	h := &harness{
		docs: &fakeDocs{
			info: host.Info{
				Name:        "Untitled-1",
				PixelWidth:  800,
				PixelHeight: 600,
			},
			preview: image.NewRGBA(image.Rect(0, 0, 800, 600)),
		},
		writer:  &fakeWriter{},
		picker:  &fakePicker{},
		fs:      &fakeFS{tokens: map[string]host.Entry{}, urls: map[string]host.Entry{}},
		history: store,
		thumbs:  thumbs,
	}

	broker := credential.NewBroker(h.fs, h.picker, store, log)
	h.svc = New(Deps{
		Documents:  h.docs,
		Writer:     h.writer,
		Picker:     h.picker,
		Access:     broker,
		History:    store,
		Thumbnails: thumbs,
		Renderer:   thumbcache.Renderer{},
	}, log)

	return h
}

func pickPath(path string) func() (host.Entry, error) {
	return func() (host.Entry, error) {
		return host.Entry{Path: path, Name: format.Base(path)}, nil
	}
}

func TestService_SaveAs(t *testing.T) {
	h := newHarness(t)
	h.picker.next = pickPath("/tmp/x.png")

	res, err := h.svc.SaveAs(context.Background(), SaveAsOptions{Format: format.PNG})
	require.NoError(t, err)
	assert.Equal(t, StatusSaved, res.Status)
	assert.Equal(t, credential.SourcePicked, res.Grant.Source)

	records, err := h.history.List(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 1)

	rec := records[0]
	assert.Equal(t, "x.png", rec.Filename)
	assert.Equal(t, "/tmp/x.png", rec.Path)
	assert.Equal(t, 800, rec.Width)
	assert.Equal(t, 600, rec.Height)
	assert.Equal(t, "PNG", rec.Format)
	assert.Equal(t, "tok:/tmp/x.png", rec.Token)
	assert.Equal(t, res.Record.ID, rec.ID)

	_, ok := h.thumbs.Read("/tmp/x.png")
	assert.True(t, ok, "thumbnail should be cached")

	require.Len(t, h.writer.calls, 1)
	assert.Equal(t, writeCall{Path: "/tmp/x.png", Format: format.PNG}, h.writer.calls[0])
	assert.Equal(t, 0, h.picker.formats, "format given, no prompt expected")
}

func TestService_SaveAsPromptsForFormatAndAddsExtension(t *testing.T) {
	h := newHarness(t)
	h.picker.format = format.JPG
	h.picker.next = func() (host.Entry, error) {
		return host.Entry{Path: "/tmp/photo", Name: "photo"}, nil
	}

	res, err := h.svc.SaveAs(context.Background(), SaveAsOptions{})
	require.NoError(t, err)

	assert.Equal(t, 1, h.picker.formats)
	assert.Equal(t, "/tmp/photo.jpg", res.Record.Path)
	assert.Equal(t, "photo.jpg", res.Record.Filename)
	assert.Equal(t, "JPG", res.Record.Format)
}

func TestService_SaveAsCancelled(t *testing.T) {
	h := newHarness(t)

	res, err := h.svc.SaveAs(context.Background(), SaveAsOptions{Format: format.PNG})
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, res.Status)
	assert.Empty(t, h.writer.calls)

	records, err := h.history.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestService_SaveAsNoDocument(t *testing.T) {
	h := newHarness(t)
	h.docs.noDoc = true

	_, err := h.svc.SaveAs(context.Background(), SaveAsOptions{Format: format.PNG})
	require.Error(t, err)
	assert.ErrorIs(t, err, host.ErrNoDocument)
	assert.True(t, failure.Is(err, failure.KindGeneric))
}

func TestService_SaveAsCapsHistory(t *testing.T) {
	h := newHarness(t)

	n := 0
	h.picker.next = func() (host.Entry, error) {
		n++
		return pickPath(fmt.Sprintf("/tmp/img-%02d.png", n))()
	}

	for range history.DefaultMaxRecords + 1 {
		_, err := h.svc.SaveAs(context.Background(), SaveAsOptions{Format: format.PNG})
		require.NoError(t, err)
	}

	records, err := h.history.List(context.Background())
	require.NoError(t, err)
	require.Len(t, records, history.DefaultMaxRecords)
	assert.Equal(t, "/tmp/img-51.png", records[0].Path)
	assert.Equal(t, "/tmp/img-02.png", records[len(records)-1].Path)

	_, ok := h.thumbs.Read("/tmp/img-01.png")
	assert.False(t, ok, "evicted record thumbnail should be dropped")
	assert.Equal(t, history.DefaultMaxRecords, h.thumbs.Count())
}

func TestService_SaveAsWriteFailureLeavesHistory(t *testing.T) {
	h := newHarness(t)
	h.picker.next = pickPath("/tmp/x.png")
	h.writer.write = func(host.Handle) error { return errors.New("disk full") }

	_, err := h.svc.SaveAs(context.Background(), SaveAsOptions{Format: format.PNG})
	require.Error(t, err)
	assert.True(t, failure.Is(err, failure.KindGeneric))

	records, err := h.history.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestService_OverwriteWithStoredToken(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	seed, err := h.history.Upsert(ctx, history.Record{Path: "/art/a.png", Format: "PNG", Token: "good", Width: 10, Height: 10})
	require.NoError(t, err)
	h.fs.tokens["good"] = host.Entry{Path: "/art/a.png", Name: "a.png"}

	res, err := h.svc.Overwrite(ctx, "/art/a.png")
	require.NoError(t, err)
	assert.Equal(t, StatusSaved, res.Status)
	assert.Equal(t, credential.SourceStored, res.Grant.Source)
	assert.Equal(t, 0, h.picker.picks)

	assert.Equal(t, seed.ID, res.Record.ID)
	assert.Equal(t, "good", res.Record.Token)
	assert.Equal(t, 800, res.Record.Width)
	assert.True(t, res.Record.Timestamp.After(seed.Timestamp))

	records, err := h.history.List(ctx)
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestService_OverwriteRegrantUpdatesPath(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	seed, err := h.history.Upsert(ctx, history.Record{Path: "/art/a.png", Format: "PNG", Token: "stale"})
	require.NoError(t, err)
	h.picker.next = pickPath("/art/b.png")

	res, err := h.svc.Overwrite(ctx, "/art/a.png")
	require.NoError(t, err)
	assert.Equal(t, credential.SourceRegranted, res.Grant.Source)
	assert.Equal(t, 1, h.picker.picks, "picker should be shown exactly once")

	records, err := h.history.List(ctx)
	require.NoError(t, err)
	require.Len(t, records, 1)

	rec := records[0]
	assert.Equal(t, seed.ID, rec.ID)
	assert.Equal(t, "/art/b.png", rec.Path)
	assert.Equal(t, "b.png", rec.Filename)
	assert.Equal(t, "tok:/art/b.png", rec.Token)
	assert.Equal(t, "/art/b.png", h.writer.calls[0].Path)
}

func TestService_OverwriteRegrantWithoutTokenDropsOldToken(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	seed, err := h.history.Upsert(ctx, history.Record{Path: "/art/a.png", Format: "PNG", Token: "stale"})
	require.NoError(t, err)
	h.picker.next = pickPath("/art/b.png")
	h.fs.persistErr = errors.New("token store unavailable")

	res, err := h.svc.Overwrite(ctx, "/art/a.png")
	require.NoError(t, err)
	assert.Equal(t, credential.SourceRegranted, res.Grant.Source)

	records, err := h.history.List(ctx)
	require.NoError(t, err)
	require.Len(t, records, 1)

	rec := records[0]
	assert.Equal(t, seed.ID, rec.ID)
	assert.Equal(t, "/art/b.png", rec.Path)
	assert.Empty(t, rec.Token)
}

func TestService_OverwriteRecoversFromPath(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	seed, err := h.history.Upsert(ctx, history.Record{Path: "C:/art/a.psd", Format: "PSD"})
	require.NoError(t, err)
	h.fs.urls["file:///C:/art/a.psd"] = host.Entry{Path: "C:/art/a.psd", Name: "a.psd"}

	res, err := h.svc.Overwrite(ctx, "C:/art/a.psd")
	require.NoError(t, err)
	assert.Equal(t, credential.SourceRecovered, res.Grant.Source)
	assert.Equal(t, 0, h.picker.picks)
	assert.Equal(t, seed.ID, res.Record.ID)
	assert.Equal(t, "tok:C:/art/a.psd", res.Record.Token)
	assert.Equal(t, format.PSD, h.writer.calls[0].Format)
}

func TestService_OverwriteCancelled(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.history.Upsert(ctx, history.Record{Path: "/art/a.png"})
	require.NoError(t, err)

	res, err := h.svc.Overwrite(ctx, "/art/a.png")
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, res.Status)
	assert.Empty(t, h.writer.calls)
}

func TestService_OverwriteInvalidTokenIsPermission(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.history.Upsert(ctx, history.Record{Path: "/art/a.png", Token: "good"})
	require.NoError(t, err)
	h.fs.tokens["good"] = host.Entry{Path: "/art/a.png"}
	h.writer.write = func(host.Handle) error {
		return fmt.Errorf("save: %w", host.ErrInvalidToken)
	}

	_, err = h.svc.Overwrite(ctx, "/art/a.png")
	require.Error(t, err)
	assert.True(t, failure.Is(err, failure.KindPermission))

	msg, ok := Describe(err)
	assert.True(t, ok)
	assert.Equal(t, "Permission error", msg.Title)
}

func TestService_BusyRejectsConcurrentFlows(t *testing.T) {
	h := newHarness(t)
	h.picker.next = pickPath("/tmp/x.png")

	started := make(chan struct{})
	release := make(chan struct{})
	h.writer.write = func(host.Handle) error {
		close(started)
		<-release
		return nil
	}

	done := make(chan error, 1)
	go func() {
		_, err := h.svc.SaveAs(context.Background(), SaveAsOptions{Format: format.PNG})
		done <- err
	}()

	<-started
	assert.True(t, h.svc.Busy())

	_, err := h.svc.Overwrite(context.Background(), "/tmp/x.png")
	assert.True(t, failure.Is(err, failure.KindBusy))
	assert.ErrorIs(t, err, failure.ErrBusy)

	close(release)
	require.NoError(t, <-done)
	assert.False(t, h.svc.Busy())
}

func TestService_Record(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	h.docs.info.Name = "poster.psd"
	h.docs.info.Path = "/work/poster.psd"
	h.fs.urls["file:///work/poster.psd"] = host.Entry{Path: "/work/poster.psd", Name: "poster.psd"}

	res, err := h.svc.Record(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, StatusRecorded, res.Status)
	assert.Equal(t, "poster.psd", res.Record.Filename)
	assert.Equal(t, "tok:/work/poster.psd", res.Record.Token)
	assert.Empty(t, h.writer.calls, "record must not write")

	_, ok := h.thumbs.Read("/work/poster.psd")
	assert.True(t, ok)

	again, err := h.svc.Record(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, res.Record.ID, again.Record.ID)
}

func TestService_RecordWithoutPath(t *testing.T) {
	h := newHarness(t)

	res, err := h.svc.Record(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, StatusSkipped, res.Status)
}

func TestService_RecordOverridePathWithoutAccess(t *testing.T) {
	h := newHarness(t)

	res, err := h.svc.Record(context.Background(), `D:\out\final.tga`)
	require.NoError(t, err)
	assert.Equal(t, "final.tga", res.Record.Filename)
	assert.Empty(t, res.Record.Token)
	assert.Equal(t, 0, h.picker.picks)
}

func TestService_DeleteAndClear(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.picker.next = pickPath("/tmp/x.png")

	res, err := h.svc.SaveAs(ctx, SaveAsOptions{Format: format.PNG})
	require.NoError(t, err)

	removed, err := h.svc.Delete(ctx, res.Record.ID)
	require.NoError(t, err)
	assert.True(t, removed)
	assert.Equal(t, 0, h.thumbs.Count())

	_, err = h.svc.SaveAs(ctx, SaveAsOptions{Format: format.PNG})
	require.NoError(t, err)
	require.Equal(t, 1, h.thumbs.Count())
	require.NoError(t, h.svc.Clear(ctx))
	assert.Equal(t, 0, h.thumbs.Count())

	records, err := h.history.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestDescribe(t *testing.T) {
	tests := []struct {
		name  string
		err   error
		ok    bool
		title string
	}{
		{name: "nil", err: nil, ok: false},
		{name: "cancelled", err: failure.ErrCancelled, ok: false},
		{name: "permission", err: failure.Permission("write", host.ErrInvalidToken), ok: true, title: "Permission error"},
		{name: "busy", err: failure.New(failure.KindBusy, "save", failure.ErrBusy), ok: true, title: "Busy"},
		{name: "generic", err: failure.Generic("write", errors.New("disk full")), ok: true, title: "Save failed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, ok := Describe(tt.err)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.title, msg.Title)
		})
	}

	msg, _ := Describe(failure.Generic("write", errors.New("disk full")))
	assert.Equal(t, "Save failed: disk full", msg.Body)
}
