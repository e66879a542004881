package saver

import (
	"errors"

	"github.com/hay-kot/savedeck/internal/core/failure"
)

// Message is a user-facing alert.
type Message struct {
	Title string
	Body  string
}

// Describe returns the alert to show for a flow error. ok is false for errors
// that must not be shown (cancellation, nil).
func Describe(err error) (msg Message, ok bool) {
	switch failure.KindOf(err) {
	case failure.KindNone, failure.KindCancelled:
		return Message{}, false
	case failure.KindPermission:
		return Message{
			Title: "Permission error",
			Body:  `savedeck no longer has write access to this file. Run "save" (Save As) on it once to grant access again.`,
		}, true
	case failure.KindBusy:
		return Message{Title: "Busy", Body: "Another save is still in progress. Try again when it finishes."}, true
	default:
		return Message{Title: "Save failed", Body: "Save failed: " + rootMessage(err)}, true
	}
}

// rootMessage returns the innermost error message.
func rootMessage(err error) string {
	for {
		next := errors.Unwrap(err)
		if next == nil {
			return err.Error()
		}
		err = next
	}
}
