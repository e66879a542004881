package tui

import (
	"context"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hay-kot/savedeck/internal/core/config"
	"github.com/hay-kot/savedeck/internal/core/failure"
	"github.com/hay-kot/savedeck/internal/core/format"
	"github.com/hay-kot/savedeck/internal/core/history"
)

type staticRecords []history.Record

func (s staticRecords) List(context.Context) ([]history.Record, error) {
	return s, nil
}

func keyMsg(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	default:
		return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
	}
}

func newTestModel(t *testing.T, flows *fakeFlows) Model {
	t.Helper()

	cfg := config.DefaultConfig()
	cfg.Keybindings = map[string]config.Keybinding{
		"d": {Action: config.ActionDelete, Confirm: "Remove?"},
		"a": {Action: config.ActionRecord},
	}

	m := New(Options{Config: &cfg, Flows: flows, Records: staticRecords{testRecord}, Dir: t.TempDir()})
	m = update(t, m, tea.WindowSizeMsg{Width: 100, Height: 40})
	m = update(t, m, recordsMsg{records: []history.Record{testRecord}})
	return m
}

func update(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	next, _ := m.Update(msg)
	out, ok := next.(Model)
	require.True(t, ok)
	return out
}

func updateCmd(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	out, ok := next.(Model)
	require.True(t, ok)
	return out, cmd
}

func TestModel_RecordsPopulateList(t *testing.T) {
	m := newTestModel(t, &fakeFlows{})

	require.Len(t, m.list.Items(), 1)
	rec, ok := m.selected()
	require.True(t, ok)
	assert.Equal(t, "id-1", rec.ID)
	assert.Contains(t, m.View(), "a.png")
}

func TestModel_OverwriteAsksForConfirmation(t *testing.T) {
	flows := &fakeFlows{}
	m := newTestModel(t, flows)

	m = update(t, m, keyMsg("enter"))
	require.Equal(t, stateConfirming, m.state)
	assert.Empty(t, flows.overwrites)

	m, cmd := updateCmd(t, m, keyMsg("y"))
	require.NotNil(t, cmd)
	assert.Equal(t, stateNormal, m.state)
	assert.Equal(t, 1, m.inflight)

	done, ok := cmd().(flowDoneMsg)
	require.True(t, ok)
	assert.Equal(t, []string{"/art/a.png"}, flows.overwrites)

	m = update(t, m, done)
	assert.Equal(t, 0, m.inflight)
	assert.Equal(t, "Saved a.png", m.status)
}

func TestModel_ActionsRefusedWhileRunning(t *testing.T) {
	flows := &fakeFlows{}
	m := newTestModel(t, flows)

	m, cmd := updateCmd(t, m, keyMsg("a"))
	require.NotNil(t, cmd)
	require.Equal(t, 1, m.inflight)

	for _, key := range []string{"s", "enter", "c", "d", "a"} {
		var next tea.Cmd
		m, next = updateCmd(t, m, keyMsg(key))
		assert.Nil(t, next, key)
		assert.Equal(t, stateNormal, m.state, key)
		assert.Equal(t, 1, m.inflight, key)
	}
	assert.Equal(t, busyHint, m.status)
	assert.Contains(t, m.View(), busyHint)

	done, ok := cmd().(flowDoneMsg)
	require.True(t, ok)
	m = update(t, m, done)
	assert.Equal(t, 0, m.inflight)
	assert.Equal(t, 1, flows.records)
	assert.Zero(t, flows.saves)
	assert.Empty(t, flows.overwrites)
}

func TestModel_ConfirmCancel(t *testing.T) {
	flows := &fakeFlows{}
	m := newTestModel(t, flows)

	m = update(t, m, keyMsg("d"))
	require.Equal(t, stateConfirming, m.state)

	m, cmd := updateCmd(t, m, keyMsg("esc"))
	assert.Nil(t, cmd)
	assert.Equal(t, stateNormal, m.state)
	assert.Empty(t, flows.deletes)
}

func TestModel_RecordRunsWithoutConfirmation(t *testing.T) {
	flows := &fakeFlows{}
	m := newTestModel(t, flows)

	_, cmd := updateCmd(t, m, keyMsg("a"))
	require.NotNil(t, cmd)
	_ = cmd()
	assert.Equal(t, 1, flows.records)
}

func TestModel_FlowOutcome(t *testing.T) {
	tests := []struct {
		name       string
		msg        flowDoneMsg
		wantStatus string
		wantAlert  string
	}{
		{
			name:       "cancelled is silent",
			msg:        flowDoneMsg{err: failure.New(failure.KindCancelled, "save", failure.ErrCancelled)},
			wantStatus: "Cancelled",
		},
		{
			name:      "busy shows alert",
			msg:       flowDoneMsg{err: failure.New(failure.KindBusy, "save", failure.ErrBusy)},
			wantAlert: "Busy",
		},
		{
			name:      "permission shows alert",
			msg:       flowDoneMsg{err: failure.New(failure.KindPermission, "write", assert.AnError)},
			wantAlert: "Permission error",
		},
		{
			name:       "clear",
			msg:        flowDoneMsg{action: Action{Type: ActionTypeClear}},
			wantStatus: "History cleared",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, alert := outcome(tt.msg)
			assert.Equal(t, tt.wantStatus, status)
			if tt.wantAlert == "" {
				assert.Nil(t, alert)
				return
			}
			require.NotNil(t, alert)
			assert.Equal(t, tt.wantAlert, alert.Title)
		})
	}
}

func TestModel_PickerCancel(t *testing.T) {
	m := newTestModel(t, &fakeFlows{})

	req := pickRequest{kind: pickDestination, suggested: "art", types: []format.Format{format.PNG}, reply: make(chan pickReply, 1)}
	m = update(t, m, req)
	require.Equal(t, statePicking, m.state)
	assert.NotEmpty(t, m.View())

	m = update(t, m, keyMsg("esc"))
	assert.Equal(t, stateNormal, m.state)

	rep := <-req.reply
	assert.ErrorIs(t, rep.err, failure.ErrCancelled)
}

func TestModel_SecondPickerIsBusy(t *testing.T) {
	m := newTestModel(t, &fakeFlows{})

	first := pickRequest{kind: pickFormat, format: format.PNG, reply: make(chan pickReply, 1)}
	second := pickRequest{kind: pickFormat, format: format.PNG, reply: make(chan pickReply, 1)}

	m = update(t, m, first)
	_ = update(t, m, second)

	rep := <-second.reply
	assert.ErrorIs(t, rep.err, failure.ErrBusy)
}

func TestPickState_Reply(t *testing.T) {
	dir := t.TempDir()
	ps := &pickState{req: pickRequest{kind: pickDestination, types: []format.Format{format.JPG}}, name: "out"}

	rep := ps.reply(dir)
	require.NoError(t, rep.err)
	assert.Equal(t, "out.jpg", rep.entry.Name)

	ps = &pickState{req: pickRequest{kind: pickFormat}, format: format.TGA}
	assert.Equal(t, format.TGA, ps.reply(dir).format)
}

func TestBridge(t *testing.T) {
	t.Run("not attached", func(t *testing.T) {
		_, err := NewBridge().PickFormat(context.Background(), format.PNG)
		assert.ErrorIs(t, err, ErrPanelNotRunning)
	})

	t.Run("answered by panel", func(t *testing.T) {
		b := NewBridge()
		b.send = func(msg tea.Msg) {
			req := msg.(pickRequest)
			req.answer(pickReply{format: format.TGA})
		}

		f, err := b.PickFormat(context.Background(), format.PNG)
		require.NoError(t, err)
		assert.Equal(t, format.TGA, f)
	})

	t.Run("context cancelled", func(t *testing.T) {
		b := NewBridge()
		b.send = func(tea.Msg) {}

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := b.PickSaveDestination(ctx, "x", []format.Format{format.PNG})
		assert.ErrorIs(t, err, context.Canceled)
		assert.ErrorIs(t, err, failure.ErrCancelled)
		assert.True(t, failure.Is(err, failure.KindCancelled))
	})
}
