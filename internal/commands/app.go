package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/hay-kot/savedeck/internal/core/history"
	"github.com/hay-kot/savedeck/internal/localhost"
	"github.com/hay-kot/savedeck/internal/printer"
	"github.com/hay-kot/savedeck/internal/saver"
	"github.com/hay-kot/savedeck/internal/thumbcache"
	"github.com/hay-kot/savedeck/pkg/executil"
)

// App holds the services commands operate on.
type App struct {
	Service   *saver.Service
	History   *history.Store
	Thumbs    *thumbcache.Store
	Files     *localhost.FileSystem
	Documents *localhost.Documents
	Prompt    *localhost.Auto
	Exec      executil.Executor

	Closers []io.Closer
}

// Close releases resources held by the App.
func (a *App) Close() error {
	var errs []error
	for _, c := range a.Closers {
		errs = append(errs, c.Close())
	}
	return errors.Join(errs...)
}

// resolveTarget maps a command argument to a file path: a history record id
// or a path, made absolute.
func (a *App) resolveTarget(ctx context.Context, arg string) (string, history.Record, error) {
	if arg == "" {
		return "", history.Record{}, fmt.Errorf("a record id or path is required")
	}

	if rec, err := a.findRecord(ctx, arg); err == nil {
		return rec.Path, rec, nil
	}

	abs, err := filepath.Abs(arg)
	if err != nil {
		return "", history.Record{}, fmt.Errorf("resolve %s: %w", arg, err)
	}

	rec, err := a.History.FindByPath(ctx, abs)
	if err != nil && !errors.Is(err, history.ErrNotFound) {
		return "", history.Record{}, err
	}
	return abs, rec, nil
}

// findRecord returns the record with the given id. Short ids as printed by
// ls are accepted when they match exactly one record.
func (a *App) findRecord(ctx context.Context, id string) (history.Record, error) {
	records, err := a.History.List(ctx)
	if err != nil {
		return history.Record{}, err
	}

	var matches []history.Record
	for _, r := range records {
		if r.ID == id {
			return r, nil
		}
		if len(id) >= 4 && strings.HasSuffix(shortID(r.ID), strings.ReplaceAll(id, "-", "")) {
			matches = append(matches, r)
		}
	}

	switch len(matches) {
	case 0:
		return history.Record{}, fmt.Errorf("%w: %s", history.ErrNotFound, id)
	case 1:
		return matches[0], nil
	default:
		return history.Record{}, fmt.Errorf("id %q matches %d records", id, len(matches))
	}
}

// confirm asks before a destructive action unless disabled or --yes was given.
func (a *App) confirm(ctx context.Context, enabled bool, title, message string) (bool, error) {
	if !enabled {
		return true, nil
	}
	return a.Prompt.Confirm(ctx, title, message)
}

// report prints the outcome of a save flow. Errors the user should see are
// shown as an alert and turn into a non-zero exit.
func report(ctx context.Context, res saver.Result, err error) error {
	p := printer.Ctx(ctx)

	if err != nil {
		msg, ok := saver.Describe(err)
		if !ok {
			p.Infof("Cancelled")
			return nil
		}
		p.Alert(msg.Title, msg.Body)
		return cli.Exit("", 1)
	}

	rec := res.Record
	switch res.Status {
	case saver.StatusSaved:
		p.Success("Saved "+rec.Filename, fmt.Sprintf("%s %s %s", rec.Label(), printer.Dot, rec.Path))
	case saver.StatusRecorded:
		p.Success("Added "+rec.Filename, rec.Path)
	case saver.StatusCancelled:
		p.Infof("Cancelled")
	case saver.StatusSkipped:
		p.Warnf("The current document has not been saved yet; use 'savedeck save' first")
	}
	return nil
}

// shortID trims a record id for table output.
func shortID(id string) string {
	id = strings.ReplaceAll(id, "-", "")
	if len(id) > 12 {
		return id[len(id)-12:]
	}
	return id
}
