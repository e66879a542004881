// Package credential turns persisted access tokens, raw paths, or an
// interactive re-grant into a usable write handle for a file.
package credential

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/hay-kot/savedeck/internal/core/failure"
	"github.com/hay-kot/savedeck/internal/core/format"
	"github.com/hay-kot/savedeck/internal/core/history"
	"github.com/hay-kot/savedeck/internal/core/host"
	"github.com/hay-kot/savedeck/internal/core/pathkey"
)

// ErrTokenMismatch is returned when a stored token resolves to a file other
// than the one requested.
var ErrTokenMismatch = errors.New("stored token does not match path")

// Source records how a grant was obtained.
type Source int

const (
	// SourceStored means the record's persisted token resolved.
	SourceStored Source = iota + 1
	// SourceRecovered means a handle was derived from the raw path.
	SourceRecovered
	// SourceRegranted means the user picked the file again.
	SourceRegranted
	// SourcePicked means the file came from a save-as picker.
	SourcePicked
)

func (s Source) String() string {
	switch s {
	case SourceStored:
		return "stored"
	case SourceRecovered:
		return "recovered"
	case SourceRegranted:
		return "regranted"
	case SourcePicked:
		return "picked"
	default:
		return "unknown"
	}
}

// Grant is a usable write handle plus the canonical path and persisted token
// that go with it. Path may differ from the requested target after a re-grant;
// it is authoritative.
type Grant struct {
	Handle host.Handle
	Path   string
	Token  string
	Source Source
}

// AccessRecorder persists a refreshed path and token onto a history record.
type AccessRecorder interface {
	UpdateAccess(ctx context.Context, id, path, token string) error
}

// Broker resolves write access for history records.
type Broker struct {
	fs      host.FileSystem
	picker  host.Picker
	records AccessRecorder
	log     zerolog.Logger
}

// NewBroker creates a Broker.
func NewBroker(fs host.FileSystem, picker host.Picker, records AccessRecorder, log zerolog.Logger) *Broker {
	return &Broker{fs: fs, picker: picker, records: records, log: log}
}

// Resolve produces a write handle for target, trying in order: the record's
// stored token, path-based recovery, and an interactive re-grant. rec may be
// the zero Record when target has no history. A dismissed picker returns an
// error classified as failure.KindCancelled.
func (b *Broker) Resolve(ctx context.Context, rec history.Record, target string) (Grant, error) {
	if rec.Token != "" {
		g, err := b.fromToken(ctx, rec.Token, target)
		if err == nil {
			b.log.Debug().Str("path", g.Path).Msg("stored token resolved")
			return g, nil
		}
		b.log.Warn().Err(err).Str("path", target).Msg("stored token did not resolve")
	}

	g, err := b.Recover(ctx, target)
	if err == nil {
		b.persist(ctx, rec, g)
		return g, nil
	}
	b.log.Warn().Err(err).Str("path", target).Msg("path based recovery failed, asking user")

	g, err = b.regrant(ctx, rec, target)
	if err != nil {
		return Grant{}, err
	}

	b.persist(ctx, rec, g)
	return g, nil
}

// Recover derives a grant from the raw path alone. It tries every URL
// encoding of path in turn.
func (b *Broker) Recover(ctx context.Context, path string) (Grant, error) {
	if path == "" {
		return Grant{}, host.ErrEntryNotFound
	}

	var errs []error
	for _, u := range URLCandidates(path) {
		entry, err := b.fs.EntryWithURL(ctx, u)
		if err != nil {
			b.log.Debug().Err(err).Str("url", u).Msg("url did not resolve")
			errs = append(errs, fmt.Errorf("%s: %w", u, err))
			continue
		}

		g, err := b.issue(ctx, entry, SourceRecovered)
		if err != nil {
			return Grant{}, err
		}
		return g, nil
	}

	return Grant{}, fmt.Errorf("recover access to %s: %w", path, errors.Join(errs...))
}

// Acquire issues a grant for an entry the user just picked.
func (b *Broker) Acquire(ctx context.Context, entry host.Entry) (Grant, error) {
	return b.issue(ctx, entry, SourcePicked)
}

// fromToken resolves a stored token. A token that resolves to a file other
// than target is rejected.
func (b *Broker) fromToken(ctx context.Context, token, target string) (Grant, error) {
	entry, err := b.fs.EntryForPersistentToken(ctx, token)
	if err != nil {
		return Grant{}, err
	}
	if target != "" && !pathkey.Equal(entry.Path, target) {
		return Grant{}, fmt.Errorf("token resolves to %s: %w", entry.Path, ErrTokenMismatch)
	}

	h, err := b.fs.CreateSessionToken(ctx, entry)
	if err != nil {
		return Grant{}, fmt.Errorf("create session token: %w", err)
	}

	return Grant{Handle: h, Path: entry.Path, Token: token, Source: SourceStored}, nil
}

func (b *Broker) regrant(ctx context.Context, rec history.Record, target string) (Grant, error) {
	types := []format.Format{format.Resolve(rec.Format, target)}

	entry, err := b.picker.PickSaveDestination(ctx, format.Base(target), types)
	if err != nil {
		if errors.Is(err, failure.ErrCancelled) {
			return Grant{}, failure.New(failure.KindCancelled, "re-grant access", err)
		}
		return Grant{}, failure.Generic("re-grant access", err)
	}

	return b.issue(ctx, entry, SourceRegranted)
}

// issue creates a session handle and a persistent token for entry. Failing to
// create the persistent token is logged and leaves Token empty.
func (b *Broker) issue(ctx context.Context, entry host.Entry, src Source) (Grant, error) {
	h, err := b.fs.CreateSessionToken(ctx, entry)
	if err != nil {
		return Grant{}, failure.Generic("create session token", err)
	}

	token, err := b.fs.CreatePersistentToken(ctx, entry)
	if err != nil {
		b.log.Warn().Err(err).Str("path", entry.Path).Msg("create persistent token failed")
		token = ""
	}

	return Grant{Handle: h, Path: entry.Path, Token: token, Source: src}, nil
}

// persist stores a freshly derived path and token on rec. Failures are logged.
func (b *Broker) persist(ctx context.Context, rec history.Record, g Grant) {
	if rec.ID == "" || g.Token == "" || b.records == nil {
		return
	}

	if err := b.records.UpdateAccess(ctx, rec.ID, g.Path, g.Token); err != nil {
		b.log.Warn().Err(err).Str("id", rec.ID).Str("path", g.Path).Msg("persist refreshed token failed")
	}
}
