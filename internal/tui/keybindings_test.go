package tui

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hay-kot/savedeck/internal/core/config"
	"github.com/hay-kot/savedeck/internal/core/history"
	"github.com/hay-kot/savedeck/internal/saver"
	"github.com/hay-kot/savedeck/pkg/executil"
)

type fakeFlows struct {
	overwrites []string
	deletes    []string
	records    int
	saves      int
	clears     int
	err        error
}

func (f *fakeFlows) SaveAs(context.Context, saver.SaveAsOptions) (saver.Result, error) {
	f.saves++
	return saver.Result{Status: saver.StatusSaved, Record: history.Record{Filename: "new.png"}}, f.err
}

func (f *fakeFlows) Overwrite(_ context.Context, target string) (saver.Result, error) {
	f.overwrites = append(f.overwrites, target)
	return saver.Result{Status: saver.StatusSaved, Record: history.Record{Path: target, Filename: "a.png"}}, f.err
}

func (f *fakeFlows) Record(context.Context, string) (saver.Result, error) {
	f.records++
	return saver.Result{Status: saver.StatusRecorded, Record: history.Record{Filename: "cur.png"}}, f.err
}

func (f *fakeFlows) Delete(_ context.Context, id string) (bool, error) {
	f.deletes = append(f.deletes, id)
	return true, f.err
}

func (f *fakeFlows) Clear(context.Context) error {
	f.clears++
	return f.err
}

var testRecord = history.Record{ID: "id-1", Path: "/art/a.png", Filename: "a.png", Format: "PNG"}

func TestKeybindingHandler_Resolve(t *testing.T) {
	keybindings := map[string]config.Keybinding{
		"d": {Action: config.ActionDelete, Confirm: "Remove?"},
		"o": {Action: config.ActionOverwrite, Help: "save over", Confirm: "Overwrite?"},
		"a": {Action: config.ActionRecord},
		"v": {Sh: "open {{ .Path | shq }}", Help: "reveal"},
		"x": {Sh: "echo {{ .Missing }}"},
	}
	panel := config.PanelConfig{ConfirmDelete: true, ConfirmOverwrite: false}

	handler := NewKeybindingHandler(keybindings, panel, &fakeFlows{}, nil)

	tests := []struct {
		name        string
		key         string
		rec         history.Record
		wantOK      bool
		wantType    ActionType
		wantHelp    string
		wantConfirm string
		wantShell   string
	}{
		{
			name:        "delete keeps confirm",
			key:         "d",
			rec:         testRecord,
			wantOK:      true,
			wantType:    ActionTypeDelete,
			wantHelp:    "delete",
			wantConfirm: "Remove?",
		},
		{
			name:     "overwrite confirm disabled by panel config",
			key:      "o",
			rec:      testRecord,
			wantOK:   true,
			wantType: ActionTypeOverwrite,
			wantHelp: "save over",
		},
		{
			name:     "record works with empty list",
			key:      "a",
			wantOK:   true,
			wantType: ActionTypeRecord,
			wantHelp: "record",
		},
		{
			name:   "delete needs a record",
			key:    "d",
			wantOK: false,
		},
		{
			name:      "shell command renders record fields",
			key:       "v",
			rec:       testRecord,
			wantOK:    true,
			wantType:  ActionTypeShell,
			wantHelp:  "reveal",
			wantShell: "open '/art/a.png'",
		},
		{
			name:   "shell command needs a record",
			key:    "v",
			wantOK: false,
		},
		{
			name:   "unknown key returns false",
			key:    "z",
			rec:    testRecord,
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			action, ok := handler.Resolve(tt.key, tt.rec)
			require.Equal(t, tt.wantOK, ok)
			if !ok {
				return
			}
			assert.Equal(t, tt.wantType, action.Type)
			assert.Equal(t, tt.wantHelp, action.Help)
			assert.Equal(t, tt.wantConfirm, action.Confirm)
			if tt.wantShell != "" {
				assert.Equal(t, tt.wantShell, action.ShellCmd)
			}
		})
	}

	t.Run("template error becomes an echo", func(t *testing.T) {
		action, ok := handler.Resolve("x", testRecord)
		require.True(t, ok)
		assert.Contains(t, action.ShellCmd, "echo 'template error:")
	})
}

func TestKeybindingHandler_Execute(t *testing.T) {
	flows := &fakeFlows{}
	rec := &executil.RecordingExecutor{}
	handler := NewKeybindingHandler(nil, config.PanelConfig{}, flows, rec)
	ctx := context.Background()

	_, err := handler.Execute(ctx, Action{Type: ActionTypeOverwrite, Path: "/art/a.png"})
	require.NoError(t, err)
	assert.Equal(t, []string{"/art/a.png"}, flows.overwrites)

	_, err = handler.Execute(ctx, Action{Type: ActionTypeDelete, RecordID: "id-1"})
	require.NoError(t, err)
	assert.Equal(t, []string{"id-1"}, flows.deletes)

	res, err := handler.Execute(ctx, Action{Type: ActionTypeRecord})
	require.NoError(t, err)
	assert.Equal(t, saver.StatusRecorded, res.Status)

	_, err = handler.Execute(ctx, Action{Type: ActionTypeShell, ShellCmd: "echo hi"})
	require.NoError(t, err)
	require.Len(t, rec.Commands, 1)
	assert.Equal(t, []string{"-c", "echo hi"}, rec.Commands[0].Args)

	_, err = handler.Execute(ctx, Action{Type: ActionTypeNone})
	assert.Error(t, err)
}

func TestKeybindingHandler_HelpEntries(t *testing.T) {
	handler := NewKeybindingHandler(map[string]config.Keybinding{
		"v": {Sh: "open ."},
		"d": {Action: config.ActionDelete},
		"o": {Action: config.ActionOverwrite, Help: "save over"},
	}, config.PanelConfig{}, nil, nil)

	assert.Equal(t, []string{"[d] delete", "[o] save over", "[v] shell"}, handler.HelpEntries())
	assert.Len(t, handler.KeyBindings(), 3)
}
