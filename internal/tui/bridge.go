package tui

import (
	"context"
	"errors"
	"fmt"
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/hay-kot/savedeck/internal/core/failure"
	"github.com/hay-kot/savedeck/internal/core/format"
	"github.com/hay-kot/savedeck/internal/core/host"
)

// ErrPanelNotRunning is returned by Bridge when no program is attached.
var ErrPanelNotRunning = errors.New("panel is not running")

type pickKind int

const (
	pickDestination pickKind = iota
	pickFormat
)

// pickRequest asks the running panel to show a picker form. The panel answers
// exactly once on reply.
type pickRequest struct {
	kind      pickKind
	suggested string
	types     []format.Format
	format    format.Format
	reply     chan pickReply
}

type pickReply struct {
	entry  host.Entry
	format format.Format
	err    error
}

func (r pickRequest) answer(rep pickReply) {
	select {
	case r.reply <- rep:
	default:
	}
}

// Bridge implements host.Picker by showing pickers inside the running panel.
// Save flows run outside the Bubble Tea event loop and block until the user
// answers.
type Bridge struct {
	mu   sync.Mutex
	send func(tea.Msg)
}

// NewBridge creates a detached Bridge.
func NewBridge() *Bridge {
	return &Bridge{}
}

// Attach routes requests to p.
func (b *Bridge) Attach(p *tea.Program) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.send = p.Send
}

func (b *Bridge) sender() func(tea.Msg) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.send
}

// PickSaveDestination implements host.Picker.
func (b *Bridge) PickSaveDestination(ctx context.Context, suggestedName string, types []format.Format) (host.Entry, error) {
	rep, err := b.ask(ctx, pickRequest{kind: pickDestination, suggested: suggestedName, types: types})
	if err != nil {
		return host.Entry{}, err
	}
	return rep.entry, nil
}

// PickFormat implements host.Picker.
func (b *Bridge) PickFormat(ctx context.Context, suggested format.Format) (format.Format, error) {
	rep, err := b.ask(ctx, pickRequest{kind: pickFormat, format: suggested})
	if err != nil {
		return "", err
	}
	return rep.format, nil
}

func (b *Bridge) ask(ctx context.Context, req pickRequest) (pickReply, error) {
	send := b.sender()
	if send == nil {
		return pickReply{}, ErrPanelNotRunning
	}

	req.reply = make(chan pickReply, 1)
	send(req)

	select {
	case rep := <-req.reply:
		return rep, rep.err
	case <-ctx.Done():
		return pickReply{}, fmt.Errorf("%w: %w", failure.ErrCancelled, ctx.Err())
	}
}
