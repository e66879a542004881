// Package saver orchestrates save-as, overwrite and record flows: it obtains
// write access, performs the host write, refreshes the thumbnail and updates
// history.
package saver

import (
	"context"
	"errors"
	"image"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/hay-kot/savedeck/internal/core/failure"
	"github.com/hay-kot/savedeck/internal/core/format"
	"github.com/hay-kot/savedeck/internal/core/history"
	"github.com/hay-kot/savedeck/internal/core/host"
	"github.com/hay-kot/savedeck/internal/core/pathkey"
	"github.com/hay-kot/savedeck/internal/credential"
)

// Status is the outcome of a flow that did not fail.
type Status int

const (
	StatusSaved Status = iota + 1
	StatusRecorded
	StatusCancelled
	// StatusSkipped means there was nothing to record (document never saved).
	StatusSkipped
)

func (s Status) String() string {
	switch s {
	case StatusSaved:
		return "saved"
	case StatusRecorded:
		return "recorded"
	case StatusCancelled:
		return "cancelled"
	case StatusSkipped:
		return "skipped"
	default:
		return "unknown"
	}
}

// Result describes a completed flow.
type Result struct {
	Status Status
	Record history.Record
	Grant  credential.Grant
}

// Thumbnails is the write side of the thumbnail cache.
type Thumbnails interface {
	Write(path string, data []byte) error
	Delete(path string) error
}

// ThumbnailRenderer encodes a document preview as a thumbnail blob.
type ThumbnailRenderer interface {
	Render(img image.Image) ([]byte, error)
}

// Access resolves write handles for files.
type Access interface {
	Resolve(ctx context.Context, rec history.Record, target string) (credential.Grant, error)
	Recover(ctx context.Context, path string) (credential.Grant, error)
	Acquire(ctx context.Context, entry host.Entry) (credential.Grant, error)
}

// Deps are the collaborators a Service needs.
type Deps struct {
	Documents     host.Documents
	Writer        host.Writer
	Picker        host.Picker
	Access        Access
	History       *history.Store
	Thumbnails    Thumbnails
	Renderer      ThumbnailRenderer
	DefaultFormat format.Format
}

// Service runs save flows. At most one flow runs at a time; a flow started
// while another is in flight fails with failure.KindBusy.
type Service struct {
	Deps
	log  zerolog.Logger
	busy sync.Mutex
}

// New creates a Service.
func New(deps Deps, log zerolog.Logger) *Service {
	if deps.DefaultFormat == "" {
		deps.DefaultFormat = format.PNG
	}
	return &Service{Deps: deps, log: log}
}

// SaveAsOptions configures SaveAs.
type SaveAsOptions struct {
	// Format skips the format prompt when set.
	Format format.Format
}

// SaveAs writes the active document to a newly picked destination and records
// it in history.
func (s *Service) SaveAs(ctx context.Context, opts SaveAsOptions) (Result, error) {
	release, err := s.begin("save as")
	if err != nil {
		return Result{}, err
	}
	defer release()

	doc, info, err := s.activeDocument(ctx)
	if err != nil {
		return Result{}, err
	}

	f := opts.Format
	if f == "" {
		f, err = s.Picker.PickFormat(ctx, s.DefaultFormat)
		if err != nil {
			return cancelledOr(err, "pick format")
		}
	}

	encoder, ok := format.Lookup(f)
	if !ok {
		return Result{}, failure.Generic("save as", errors.New("unsupported format "+string(f)))
	}

	suggested := strings.TrimSuffix(info.Name, filepath.Ext(info.Name))
	entry, err := s.Picker.PickSaveDestination(ctx, suggested, []format.Format{f})
	if err != nil {
		return cancelledOr(err, "pick destination")
	}
	entry.Path = f.WithExtension(entry.Path)

	grant, err := s.Access.Acquire(ctx, entry)
	if err != nil {
		return Result{}, err
	}

	s.log.Info().Str("path", grant.Path).Str("format", string(f)).Msg("saving document as")

	if err := s.write(ctx, "Save As", doc, grant.Handle, f, encoder); err != nil {
		return Result{}, err
	}

	width, height := s.dimensions(ctx, doc, info)
	s.refreshThumbnail(ctx, doc, grant.Path)

	filename := entry.Name
	if filename == "" {
		filename = format.Base(grant.Path)
	}

	rec, err := s.History.Upsert(ctx, history.Record{
		Filename: f.WithExtension(filename),
		Path:     grant.Path,
		Width:    width,
		Height:   height,
		Format:   string(f),
		Token:    grant.Token,
	})
	if err != nil {
		s.log.Warn().Err(err).Str("path", grant.Path).Msg("saved but history not updated")
	}

	return Result{Status: StatusSaved, Record: rec, Grant: grant}, nil
}

// Overwrite writes the active document over target, reusing the history
// record for target. When access has to be re-granted the user may pick a
// different file; that file becomes the record's path.
func (s *Service) Overwrite(ctx context.Context, target string) (Result, error) {
	release, err := s.begin("overwrite")
	if err != nil {
		return Result{}, err
	}
	defer release()

	doc, info, err := s.activeDocument(ctx)
	if err != nil {
		return Result{}, err
	}

	rec, err := s.History.FindByPath(ctx, target)
	if err != nil {
		if !errors.Is(err, history.ErrNotFound) {
			s.log.Warn().Err(err).Str("path", target).Msg("history lookup failed, continuing without record")
		}
		rec = history.Record{}
	}

	grant, err := s.Access.Resolve(ctx, rec, target)
	if err != nil {
		return cancelledOr(err, "resolve access")
	}

	f := format.Resolve(rec.Format, grant.Path)
	encoder, ok := format.Lookup(f)
	if !ok {
		return Result{}, failure.Generic("overwrite", errors.New("unsupported format "+string(f)))
	}

	s.log.Info().Str("path", grant.Path).Str("format", string(f)).Str("access", grant.Source.String()).Msg("overwriting document")

	if err := s.write(ctx, "Overwrite", doc, grant.Handle, f, encoder); err != nil {
		return Result{}, err
	}

	width, height := s.dimensions(ctx, doc, info)
	s.refreshThumbnail(ctx, doc, grant.Path)
	if !pathkey.Equal(target, grant.Path) {
		_ = s.Thumbnails.Delete(target)
	}

	// the broker may have rewritten path and token; start from the stored copy
	if rec.ID != "" {
		if current, err := s.History.Get(ctx, rec.ID); err == nil {
			rec = current
		}
	}

	update := rec
	moved := !pathkey.Equal(update.Path, grant.Path)
	if update.ID == "" || moved {
		update.Filename = format.Base(grant.Path)
	}
	update.Path = grant.Path
	update.Width = width
	update.Height = height
	if update.Format == "" {
		update.Format = string(f)
	}
	// a token for the old path must not follow the record to a new one
	if grant.Token != "" || moved {
		update.Token = grant.Token
	}

	saved, err := s.History.Upsert(ctx, update)
	if err != nil {
		s.log.Warn().Err(err).Str("path", grant.Path).Msg("overwritten but history not updated")
	}

	return Result{Status: StatusSaved, Record: saved, Grant: grant}, nil
}

// Record adds the active document to history without saving it. path
// overrides the document's own path when set. Access is granted automatically
// when the path can be recovered; the user is never prompted.
func (s *Service) Record(ctx context.Context, path string) (Result, error) {
	release, err := s.begin("record")
	if err != nil {
		return Result{}, err
	}
	defer release()

	doc, info, err := s.activeDocument(ctx)
	if err != nil {
		return Result{}, err
	}

	filename := info.Name
	if path != "" {
		filename = format.Base(path)
	} else {
		path = info.Path
	}

	if path == "" {
		s.log.Info().Str("name", info.Name).Msg("document has no path, skipping record")
		return Result{Status: StatusSkipped}, nil
	}

	var token string
	grant, err := s.Access.Recover(ctx, path)
	if err != nil {
		s.log.Info().Err(err).Str("path", path).Msg("automatic access grant unavailable")
	} else {
		token = grant.Token
	}

	width, height := info.Pixels()
	s.refreshThumbnail(ctx, doc, path)

	rec := history.Record{Filename: filename, Path: path, Width: width, Height: height, Token: token}
	if existing, err := s.History.FindByPath(ctx, path); err == nil {
		rec.ID = existing.ID
		rec.Format = existing.Format
		if token == "" {
			rec.Token = existing.Token
		}
	}

	saved, err := s.History.Upsert(ctx, rec)
	if err != nil {
		return Result{}, err
	}

	return Result{Status: StatusRecorded, Record: saved, Grant: grant}, nil
}

// Delete removes a history record and its thumbnail.
func (s *Service) Delete(ctx context.Context, id string) (bool, error) {
	release, err := s.begin("delete")
	if err != nil {
		return false, err
	}
	defer release()

	return s.History.RemoveByID(ctx, id)
}

// Clear removes all history and thumbnails.
func (s *Service) Clear(ctx context.Context) error {
	release, err := s.begin("clear")
	if err != nil {
		return err
	}
	defer release()

	return s.History.Clear(ctx)
}

// Busy reports whether a flow is in flight.
func (s *Service) Busy() bool {
	if s.busy.TryLock() {
		s.busy.Unlock()
		return false
	}
	return true
}

func (s *Service) begin(op string) (func(), error) {
	if !s.busy.TryLock() {
		return nil, failure.New(failure.KindBusy, op, failure.ErrBusy)
	}
	return s.busy.Unlock, nil
}

func (s *Service) activeDocument(ctx context.Context) (host.Document, host.Info, error) {
	doc, err := s.Documents.ActiveDocument(ctx)
	if err != nil {
		return nil, host.Info{}, failure.Generic("active document", err)
	}

	info, err := s.Documents.DocumentInfo(ctx, doc)
	if err != nil {
		return nil, host.Info{}, failure.Generic("document info", err)
	}
	return doc, info, nil
}

// write runs the host write inside its modal scope and classifies failures.
func (s *Service) write(ctx context.Context, name string, doc host.Document, h host.Handle, f format.Format, opts format.Options) error {
	err := s.Writer.RunModal(ctx, name, func(ctx context.Context) error {
		return s.Writer.WriteDocument(ctx, doc, h, f, opts)
	})
	if err == nil {
		return nil
	}

	s.log.Error().Err(err).Str("path", h.Entry.Path).Msg("write failed")
	if isPermission(err) {
		return failure.Permission("write document", err)
	}
	return failure.Generic("write document", err)
}

// dimensions re-reads the document size after a save, falling back to the
// size read before it.
func (s *Service) dimensions(ctx context.Context, doc host.Document, before host.Info) (int, int) {
	info, err := s.Documents.DocumentInfo(ctx, doc)
	if err != nil {
		s.log.Warn().Err(err).Msg("re-read document info failed")
		info = before
	}
	return info.Pixels()
}

// refreshThumbnail regenerates the cache entry for path. Failures are logged.
func (s *Service) refreshThumbnail(ctx context.Context, doc host.Document, path string) {
	img, err := s.Documents.Preview(ctx, doc)
	if err != nil {
		s.log.Warn().Err(err).Str("path", path).Msg("document preview unavailable")
		return
	}

	data, err := s.Renderer.Render(img)
	if err != nil {
		s.log.Warn().Err(err).Str("path", path).Msg("render thumbnail failed")
		return
	}

	_ = s.Thumbnails.Write(path, data)
}

func isPermission(err error) bool {
	return errors.Is(err, host.ErrInvalidToken) ||
		errors.Is(err, os.ErrPermission) ||
		failure.Is(err, failure.KindPermission) ||
		strings.Contains(err.Error(), host.ErrInvalidToken.Error())
}

// cancelledOr maps a cancellation to StatusCancelled and passes other errors
// through, classifying them when they are not already.
func cancelledOr(err error, op string) (Result, error) {
	switch failure.KindOf(err) {
	case failure.KindCancelled:
		return Result{Status: StatusCancelled}, nil
	case failure.KindGeneric:
		var fe *failure.Error
		if errors.As(err, &fe) {
			return Result{}, err
		}
		return Result{}, failure.Generic(op, err)
	default:
		return Result{}, err
	}
}
