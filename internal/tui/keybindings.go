package tui

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/charmbracelet/bubbles/key"

	"github.com/hay-kot/savedeck/internal/core/config"
	"github.com/hay-kot/savedeck/internal/core/history"
	"github.com/hay-kot/savedeck/internal/saver"
	"github.com/hay-kot/savedeck/pkg/executil"
	"github.com/hay-kot/savedeck/pkg/tmpl"
)

// ActionType identifies the kind of action a keybinding triggers.
type ActionType int

const (
	ActionTypeNone ActionType = iota
	ActionTypeOverwrite
	ActionTypeDelete
	ActionTypeRecord
	ActionTypeShell
	ActionTypeSaveAs
	ActionTypeClear
)

// Action represents a resolved keybinding action ready for execution.
type Action struct {
	Type     ActionType
	Key      string
	Help     string
	Confirm  string // Non-empty if confirmation required
	ShellCmd string // For shell actions, the rendered command
	RecordID string
	Path     string
}

// NeedsConfirm returns true if the action requires user confirmation.
func (a Action) NeedsConfirm() bool {
	return a.Confirm != ""
}

// Flows is the part of saver.Service the panel drives.
type Flows interface {
	SaveAs(ctx context.Context, opts saver.SaveAsOptions) (saver.Result, error)
	Overwrite(ctx context.Context, target string) (saver.Result, error)
	Record(ctx context.Context, path string) (saver.Result, error)
	Delete(ctx context.Context, id string) (bool, error)
	Clear(ctx context.Context) error
}

// KeybindingHandler resolves keybindings to actions.
type KeybindingHandler struct {
	keybindings map[string]config.Keybinding
	panel       config.PanelConfig
	flows       Flows
	exec        executil.Executor
}

// NewKeybindingHandler creates a new handler with the given config.
func NewKeybindingHandler(keybindings map[string]config.Keybinding, panel config.PanelConfig, flows Flows, exec executil.Executor) *KeybindingHandler {
	return &KeybindingHandler{
		keybindings: keybindings,
		panel:       panel,
		flows:       flows,
		exec:        exec,
	}
}

// Resolve attempts to resolve a key press to an action for the given record.
// rec is the zero Record when the list is empty; only record actions resolve
// then.
func (h *KeybindingHandler) Resolve(key string, rec history.Record) (Action, bool) {
	kb, exists := h.keybindings[key]
	if !exists {
		return Action{}, false
	}

	action := Action{
		Key:      key,
		Help:     kb.Help,
		Confirm:  kb.Confirm,
		RecordID: rec.ID,
		Path:     rec.Path,
	}

	if kb.Action != "" {
		switch kb.Action {
		case config.ActionOverwrite:
			action.Type = ActionTypeOverwrite
			action.Help = orDefault(action.Help, "overwrite")
			if !h.panel.ConfirmOverwrite {
				action.Confirm = ""
			}
		case config.ActionDelete:
			action.Type = ActionTypeDelete
			action.Help = orDefault(action.Help, "delete")
			if !h.panel.ConfirmDelete {
				action.Confirm = ""
			}
		case config.ActionRecord:
			return Action{Type: ActionTypeRecord, Key: key, Help: orDefault(kb.Help, "record"), Confirm: kb.Confirm}, true
		default:
			return Action{}, false
		}

		if rec.ID == "" {
			return Action{}, false
		}
		return action, true
	}

	if kb.Sh != "" {
		if rec.ID == "" {
			return Action{}, false
		}

		data := config.KeybindingTemplateData{
			ID:       rec.ID,
			Path:     rec.Path,
			Filename: rec.Filename,
			Format:   rec.Label(),
		}

		action.Type = ActionTypeShell
		rendered, err := tmpl.Render(kb.Sh, data)
		if err != nil {
			action.ShellCmd = fmt.Sprintf("echo %s", tmpl.ShellQuote("template error: "+err.Error()))
			return action, true
		}

		action.ShellCmd = rendered
		return action, true
	}

	return Action{}, false
}

// Execute runs the given action.
func (h *KeybindingHandler) Execute(ctx context.Context, action Action) (saver.Result, error) {
	switch action.Type {
	case ActionTypeOverwrite:
		return h.flows.Overwrite(ctx, action.Path)
	case ActionTypeDelete:
		_, err := h.flows.Delete(ctx, action.RecordID)
		return saver.Result{}, err
	case ActionTypeRecord:
		return h.flows.Record(ctx, "")
	case ActionTypeShell:
		_, err := executil.Shell(ctx, h.exec, action.ShellCmd)
		return saver.Result{}, err
	case ActionTypeSaveAs:
		return h.flows.SaveAs(ctx, saver.SaveAsOptions{})
	case ActionTypeClear:
		return saver.Result{}, h.flows.Clear(ctx)
	default:
		return saver.Result{}, fmt.Errorf("action type %d not supported by Execute", action.Type)
	}
}

// HelpEntries returns all configured keybindings for display, sorted by key.
func (h *KeybindingHandler) HelpEntries() []string {
	keys := slices.Sorted(maps.Keys(h.keybindings))

	entries := make([]string, 0, len(h.keybindings))
	for _, key := range keys {
		entries = append(entries, fmt.Sprintf("[%s] %s", key, helpText(h.keybindings[key])))
	}
	return entries
}

// HelpString returns a formatted help string for all keybindings.
func (h *KeybindingHandler) HelpString() string {
	return strings.Join(h.HelpEntries(), "  ")
}

// KeyBindings returns key.Binding objects for integration with bubbles help system.
func (h *KeybindingHandler) KeyBindings() []key.Binding {
	keys := slices.Sorted(maps.Keys(h.keybindings))
	bindings := make([]key.Binding, 0, len(keys))

	for _, k := range keys {
		bindings = append(bindings, key.NewBinding(
			key.WithKeys(k),
			key.WithHelp(k, helpText(h.keybindings[k])),
		))
	}

	return bindings
}

func helpText(kb config.Keybinding) string {
	if kb.Help != "" {
		return kb.Help
	}
	if kb.Action != "" {
		return kb.Action
	}
	return "shell"
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
