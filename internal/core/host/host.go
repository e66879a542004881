// Package host defines the narrow contracts savedeck uses to talk to the
// image editing application it runs inside.
package host

import (
	"context"
	"errors"
	"image"
	"time"

	"github.com/hay-kot/savedeck/internal/core/format"
)

var (
	// ErrNoDocument is returned when no document is open.
	ErrNoDocument = errors.New("no open document")
	// ErrInvalidToken is returned by the write primitive when the handle it was
	// given is no longer valid.
	ErrInvalidToken = errors.New("invalid file token")
	// ErrEntryNotFound is returned when a token or URL does not resolve to a file.
	ErrEntryNotFound = errors.New("file entry not found")
)

// Document is an open document in the host.
type Document interface {
	ID() string
}

// Entry is a file the host has granted the plugin access to.
type Entry struct {
	Path string
	Name string
}

// Handle is a session-scoped, time-bounded reference sufficient to write a file.
type Handle struct {
	Entry   Entry
	Session string
	Expires time.Time
}

// Valid reports whether the handle is usable at now.
func (h Handle) Valid(now time.Time) bool {
	return h.Session != "" && (h.Expires.IsZero() || now.Before(h.Expires))
}

// Documents gives access to the open documents.
type Documents interface {
	// ActiveDocument returns the focused document or ErrNoDocument.
	ActiveDocument(ctx context.Context) (Document, error)
	// DocumentInfo describes doc.
	DocumentInfo(ctx context.Context, doc Document) (Info, error)
	// Preview returns a raster of doc for thumbnail rendering.
	Preview(ctx context.Context, doc Document) (image.Image, error)
}

// Writer performs document saves.
type Writer interface {
	// RunModal runs fn inside the host's required execution scope.
	RunModal(ctx context.Context, name string, fn func(ctx context.Context) error) error
	// WriteDocument saves doc to the file behind h. Returns ErrInvalidToken
	// (possibly wrapped) when h is rejected.
	WriteDocument(ctx context.Context, doc Document, h Handle, f format.Format, opts format.Options) error
}

// FileSystem is the host's file entry and token API.
type FileSystem interface {
	// EntryForPersistentToken resolves a persisted token.
	EntryForPersistentToken(ctx context.Context, token string) (Entry, error)
	// EntryWithURL resolves a file: URL. Requires broad file access.
	EntryWithURL(ctx context.Context, url string) (Entry, error)
	// CreatePersistentToken issues a token that survives restarts.
	CreatePersistentToken(ctx context.Context, e Entry) (string, error)
	// CreateSessionToken issues a time-bounded write handle.
	CreateSessionToken(ctx context.Context, e Entry) (Handle, error)
}

// Picker asks the user for a save destination.
type Picker interface {
	// PickSaveDestination returns the chosen file or failure.ErrCancelled.
	PickSaveDestination(ctx context.Context, suggestedName string, types []format.Format) (Entry, error)
	// PickFormat returns the chosen save format or failure.ErrCancelled.
	PickFormat(ctx context.Context, suggested format.Format) (format.Format, error)
}

// Dialogs is the request/response contract for confirmations and alerts.
type Dialogs interface {
	Confirm(ctx context.Context, title, message string) (bool, error)
	Alert(ctx context.Context, title, message string) error
}
