// Package history maintains the ordered, deduplicated, size-bounded record of
// recently saved documents.
package history

import (
	"errors"
	"fmt"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/hay-kot/savedeck/internal/core/format"
)

// Key is the fixed blob key the record list is persisted under.
const Key = "saveHistory"

// DefaultMaxRecords caps the number of stored records.
const DefaultMaxRecords = 50

// ErrNotFound is returned when a record is not found.
var ErrNotFound = errors.New("history record not found")

// Record is a single saved document.
type Record struct {
	ID        string    `json:"id"`
	Filename  string    `json:"filename"`
	Path      string    `json:"path"`
	Timestamp time.Time `json:"timestamp"`
	Width     int       `json:"width"`
	Height    int       `json:"height"`
	Format    string    `json:"format,omitempty"`
	Token     string    `json:"token,omitempty"` // persisted file access token; empty means none
}

// HasToken reports whether the record carries a persisted access token.
func (r Record) HasToken() bool {
	return r.Token != ""
}

// Label returns the short format badge for display.
func (r Record) Label() string {
	return format.DisplayLabel(r.Format, r.Path)
}

// Size returns the pixel dimensions as "W × H".
func (r Record) Size() string {
	return fmt.Sprintf("%d × %d", r.Width, r.Height)
}

// When formats t for display relative to now: "just now" within a minute, a
// relative phrase within a day, otherwise month/day and time.
func When(t, now time.Time) string {
	d := now.Sub(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < 24*time.Hour:
		return humanize.RelTime(t, now, "ago", "from now")
	default:
		t = t.In(now.Location())
		return fmt.Sprintf("%d/%d %d:%02d", t.Month(), t.Day(), t.Hour(), t.Minute())
	}
}

// Renderer is notified with the full ordered list after every successful
// mutation. It is called with the store locked and must not call back into
// the store.
type Renderer interface {
	Render(records []Record)
}

// RenderFunc adapts a function to Renderer.
type RenderFunc func(records []Record)

// Render calls f(records).
func (f RenderFunc) Render(records []Record) { f(records) }

// Thumbnails is the part of the thumbnail cache the store cascades deletes to.
// Implementations swallow their own failures; the returned error is for
// inspection only.
type Thumbnails interface {
	Delete(path string) error
	Clear() error
}
