// Package failure classifies errors crossing savedeck's component boundaries.
package failure

import (
	"errors"
	"fmt"
)

// Kind is the class of a failure.
type Kind int

const (
	KindNone Kind = iota
	// KindCancelled is a user decision, never shown as an error.
	KindCancelled
	// KindPermission means a held or derived file handle was rejected.
	KindPermission
	// KindCache is a thumbnail cache failure; always recovered locally.
	KindCache
	// KindPersistence is a history blob read/write failure; always recovered locally.
	KindPersistence
	// KindBusy means another save flow is in flight.
	KindBusy
	// KindGeneric is anything else.
	KindGeneric
)

func (k Kind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindCancelled:
		return "cancelled"
	case KindPermission:
		return "permission"
	case KindCache:
		return "cache"
	case KindPersistence:
		return "persistence"
	case KindBusy:
		return "busy"
	default:
		return "generic"
	}
}

var (
	// ErrCancelled is returned by prompts the user dismissed.
	ErrCancelled = errors.New("cancelled by user")
	// ErrBusy is returned when a flow is started while another is running.
	ErrBusy = errors.New("another save is in progress")
)

// Error is a classified failure.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Op == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// New wraps err with a kind and operation name. A nil err yields nil.
func New(kind Kind, op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

// Cache wraps a thumbnail cache error.
func Cache(op string, err error) error { return New(KindCache, op, err) }

// Persistence wraps a history blob error.
func Persistence(op string, err error) error { return New(KindPersistence, op, err) }

// Permission wraps a rejected handle error.
func Permission(op string, err error) error { return New(KindPermission, op, err) }

// Generic wraps any other error.
func Generic(op string, err error) error { return New(KindGeneric, op, err) }

// KindOf returns the kind of err. Unclassified non-nil errors are generic,
// except the cancellation and busy sentinels.
func KindOf(err error) Kind {
	if err == nil {
		return KindNone
	}

	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}

	switch {
	case errors.Is(err, ErrCancelled):
		return KindCancelled
	case errors.Is(err, ErrBusy):
		return KindBusy
	default:
		return KindGeneric
	}
}

// Is reports whether err is classified as kind.
func Is(err error, kind Kind) bool {
	return KindOf(err) == kind
}
