package tui

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"

	"github.com/hay-kot/savedeck/internal/core/config"
	"github.com/hay-kot/savedeck/internal/core/failure"
	"github.com/hay-kot/savedeck/internal/core/format"
	"github.com/hay-kot/savedeck/internal/core/history"
	"github.com/hay-kot/savedeck/internal/localhost"
	"github.com/hay-kot/savedeck/internal/saver"
	"github.com/hay-kot/savedeck/internal/styles"
	"github.com/hay-kot/savedeck/pkg/executil"
)

// UI states.
type state int

const (
	stateNormal state = iota
	stateConfirming
	statePicking
)

// Records lists history for display.
type Records interface {
	List(ctx context.Context) ([]history.Record, error)
}

// recordsMsg carries a fresh record list.
type recordsMsg struct {
	records []history.Record
	err     error
}

// flowDoneMsg is sent when an action finishes.
type flowDoneMsg struct {
	action Action
	result saver.Result
	err    error
}

// pickState holds an open picker form and the values it binds.
type pickState struct {
	req    pickRequest
	form   *huh.Form
	name   string
	format format.Format
}

// Options configures the Model.
type Options struct {
	Config  *config.Config
	Flows   Flows
	Records Records
	Exec    executil.Executor
	// Dir resolves relative destinations typed into the save picker.
	Dir string
	// Document is shown in the header.
	Document string
	Now      func() time.Time
}

// Model is the main Bubble Tea model for the panel.
type Model struct {
	ctx     context.Context
	cancel  context.CancelFunc
	cfg     *config.Config
	flows   Flows
	records Records
	handler *KeybindingHandler
	dir     string
	doc     string

	list     list.Model
	spinner  spinner.Model
	state    state
	modal    Modal
	pending  Action
	pick     *pickState
	inflight int
	status   string
	alert    *saver.Message
	width    int
	height   int
}

// New creates a new Model.
func New(opts Options) Model {
	ctx, cancel := context.WithCancel(context.Background())

	delegate := NewRecordDelegate()
	if opts.Now != nil {
		delegate.Now = opts.Now
	}

	l := list.New([]list.Item{}, delegate, 0, 0)
	l.Title = "Save History"
	l.Styles.Title = titleStyle
	l.SetShowStatusBar(false)
	l.SetShowHelp(false)
	l.SetStatusBarItemName("record", "records")

	s := spinner.New()
	s.Spinner = spinner.MiniDot
	s.Style = spinnerStyle

	return Model{
		ctx:     ctx,
		cancel:  cancel,
		cfg:     opts.Config,
		flows:   opts.Flows,
		records: opts.Records,
		handler: NewKeybindingHandler(opts.Config.Keybindings, opts.Config.Panel, opts.Flows, opts.Exec),
		dir:     opts.Dir,
		doc:     opts.Document,
		list:    l,
		spinner: s,
	}
}

// Subscribe returns a history renderer that pushes every change into p.
func Subscribe(p *tea.Program) history.Renderer {
	return history.RenderFunc(func(records []history.Record) {
		p.Send(recordsMsg{records: slices.Clone(records)})
	})
}

// Init initializes the model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.loadRecords(), m.spinner.Tick)
}

func (m Model) loadRecords() tea.Cmd {
	return func() tea.Msg {
		records, err := m.records.List(m.ctx)
		return recordsMsg{records: records, err: err}
	}
}

const busyHint = "wait for the current action to finish"

// run executes action off the event loop.
func (m *Model) run(action Action) tea.Cmd {
	m.inflight++
	m.status = ""
	m.alert = nil

	ctx, handler := m.ctx, m.handler
	return func() tea.Msg {
		res, err := handler.Execute(ctx, action)
		return flowDoneMsg{action: action, result: res, err: err}
	}
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.list.SetSize(msg.Width, max(msg.Height-headerHeight-footerHeight, 1))
		return m, nil

	case recordsMsg:
		if msg.err != nil {
			m.alert = describe(msg.err)
		}
		items := make([]list.Item, len(msg.records))
		for i, r := range msg.records {
			items[i] = RecordItem{Record: r}
		}
		return m, m.list.SetItems(items)

	case flowDoneMsg:
		m.inflight--
		m.status, m.alert = outcome(msg)
		return m, nil

	case pickRequest:
		return m.openPicker(msg)

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	if m.state == statePicking {
		return m.updatePicker(msg)
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch m.state {
	case stateConfirming:
		return m.handleConfirmModalKey(msg)
	case statePicking:
		if msg.String() == "esc" {
			m.closePicker(pickReply{err: failure.ErrCancelled})
			return m, nil
		}
		return m.updatePicker(msg)
	}

	if m.list.FilterState() == list.Filtering {
		var cmd tea.Cmd
		m.list, cmd = m.list.Update(msg)
		return m, cmd
	}

	keyStr := msg.String()
	switch keyStr {
	case "q", "ctrl+c":
		m.cancel()
		return m, tea.Quit
	case "s":
		return m.dispatch(Action{Type: ActionTypeSaveAs, Key: "s", Help: "save as"})
	case "r":
		return m, m.loadRecords()
	case "c":
		if len(m.list.Items()) == 0 {
			return m, nil
		}
		action := Action{Type: ActionTypeClear, Key: "c", Help: "clear"}
		if m.cfg.Panel.ConfirmDelete {
			action.Confirm = "Remove every entry and thumbnail from history?"
		}
		return m.dispatch(action)
	case "enter":
		rec, ok := m.selected()
		if !ok {
			return m, nil
		}
		action := Action{Type: ActionTypeOverwrite, Key: "enter", Help: "overwrite", RecordID: rec.ID, Path: rec.Path}
		if m.cfg.Panel.ConfirmOverwrite {
			action.Confirm = fmt.Sprintf("Overwrite %s with the current document?", rec.Filename)
		}
		return m.dispatch(action)
	}

	rec, _ := m.selected()
	if action, ok := m.handler.Resolve(keyStr, rec); ok {
		return m.dispatch(action)
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

// dispatch runs action or asks for confirmation first. Actions are refused
// while a flow is running.
func (m Model) dispatch(action Action) (tea.Model, tea.Cmd) {
	if m.inflight > 0 {
		m.status = busyHint
		return m, nil
	}
	if action.NeedsConfirm() {
		m.state = stateConfirming
		m.pending = action
		m.modal = NewModal(action)
		return m, nil
	}
	cmd := m.run(action)
	return m, cmd
}

func (m Model) handleConfirmModalKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "left", "right", "h", "l", "tab":
		m.modal.ToggleSelection()
		return m, nil
	case "esc", "n":
		m.state = stateNormal
		m.pending = Action{}
		return m, nil
	case "enter", "y":
		confirmed := msg.String() == "y" || m.modal.ConfirmSelected()
		action := m.pending
		m.state = stateNormal
		m.pending = Action{}
		if !confirmed {
			return m, nil
		}
		cmd := m.run(action)
		return m, cmd
	}
	return m, nil
}

func (m Model) openPicker(req pickRequest) (tea.Model, tea.Cmd) {
	if m.pick != nil {
		req.answer(pickReply{err: failure.New(failure.KindBusy, "pick", failure.ErrBusy)})
		return m, nil
	}

	ps := &pickState{req: req, name: req.suggested, format: req.format}

	var field huh.Field
	switch req.kind {
	case pickFormat:
		opts := make([]huh.Option[format.Format], 0, len(format.All()))
		for _, f := range format.All() {
			opts = append(opts, huh.NewOption(string(f), f))
		}
		field = huh.NewSelect[format.Format]().
			Title("Format").
			Options(opts...).
			Value(&ps.format)
	default:
		field = huh.NewInput().
			Title("Save as").
			Description(fmt.Sprintf("Relative to %s", m.dir)).
			Value(&ps.name).
			Validate(func(s string) error {
				if s == "" {
					return fmt.Errorf("a file name is required")
				}
				return nil
			})
	}

	ps.form = huh.NewForm(huh.NewGroup(field)).
		WithTheme(styles.FormTheme()).
		WithShowHelp(false)

	m.pick = ps
	m.state = statePicking
	return m, ps.form.Init()
}

func (m Model) updatePicker(msg tea.Msg) (tea.Model, tea.Cmd) {
	if m.pick == nil {
		m.state = stateNormal
		return m, nil
	}

	model, cmd := m.pick.form.Update(msg)
	if f, ok := model.(*huh.Form); ok {
		m.pick.form = f
	}

	switch m.pick.form.State {
	case huh.StateCompleted:
		m.closePicker(m.pick.reply(m.dir))
		return m, nil
	case huh.StateAborted:
		m.closePicker(pickReply{err: failure.ErrCancelled})
		return m, nil
	}

	return m, cmd
}

func (m *Model) closePicker(rep pickReply) {
	if m.pick != nil {
		m.pick.req.answer(rep)
	}
	m.pick = nil
	m.state = stateNormal
}

func (ps *pickState) reply(dir string) pickReply {
	if ps.req.kind == pickFormat {
		return pickReply{format: ps.format}
	}

	f := format.PNG
	if len(ps.req.types) > 0 {
		f = ps.req.types[0]
	}
	entry, err := localhost.Destination(dir, ps.name, f)
	return pickReply{entry: entry, err: err}
}

func (m Model) selected() (history.Record, bool) {
	item, ok := m.list.SelectedItem().(RecordItem)
	if !ok {
		return history.Record{}, false
	}
	return item.Record, true
}

func describe(err error) *saver.Message {
	msg, ok := saver.Describe(err)
	if !ok {
		return nil
	}
	return &msg
}

// outcome returns the status line and alert for a finished action.
func outcome(msg flowDoneMsg) (string, *saver.Message) {
	if msg.err != nil {
		if alert := describe(msg.err); alert != nil {
			return "", alert
		}
		return "Cancelled", nil
	}

	switch msg.result.Status {
	case saver.StatusSaved:
		return "Saved " + msg.result.Record.Filename, nil
	case saver.StatusRecorded:
		return "Added " + msg.result.Record.Filename, nil
	case saver.StatusCancelled:
		return "Cancelled", nil
	case saver.StatusSkipped:
		return "The current document has not been saved yet", nil
	}

	switch msg.action.Type {
	case ActionTypeDelete:
		return "Removed from history", nil
	case ActionTypeShell:
		return "Ran " + msg.action.Help, nil
	case ActionTypeClear:
		return "History cleared", nil
	}
	return "", nil
}
