package tui

import (
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/hay-kot/savedeck/internal/core/history"
)

// RecordItem wraps a history record for the list component.
type RecordItem struct {
	Record history.Record
}

// FilterValue returns the value used for filtering.
func (i RecordItem) FilterValue() string {
	return i.Record.Filename + " " + i.Record.Path
}

// RecordDelegate handles rendering of history records in the list.
type RecordDelegate struct {
	Styles RecordDelegateStyles
	Now    func() time.Time
}

// RecordDelegateStyles defines the styles for the delegate.
type RecordDelegateStyles struct {
	Normal   lipgloss.Style
	Selected lipgloss.Style
	Badge    lipgloss.Style
	Detail   lipgloss.Style
	Granted  lipgloss.Style
	Locked   lipgloss.Style
}

// DefaultRecordDelegateStyles returns the default styles.
func DefaultRecordDelegateStyles() RecordDelegateStyles {
	return RecordDelegateStyles{
		Normal:   normalStyle,
		Selected: selectedStyle,
		Badge:    badgeStyle,
		Detail:   pathStyle,
		Granted:  grantedStyle,
		Locked:   lockedStyle,
	}
}

// NewRecordDelegate creates a new record delegate with default styles.
func NewRecordDelegate() RecordDelegate {
	return RecordDelegate{
		Styles: DefaultRecordDelegateStyles(),
		Now:    time.Now,
	}
}

// Height returns the height of each item.
func (d RecordDelegate) Height() int {
	return 3
}

// Spacing returns the spacing between items.
func (d RecordDelegate) Spacing() int {
	return 1
}

// Update handles item updates.
func (d RecordDelegate) Update(_ tea.Msg, _ *list.Model) tea.Cmd {
	return nil
}

// Render renders a single item.
func (d RecordDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	recordItem, ok := item.(RecordItem)
	if !ok {
		return
	}

	r := recordItem.Record
	isSelected := index == m.Index()

	title := r.Filename
	titleStyle := d.Styles.Normal
	if isSelected {
		titleStyle = d.Styles.Selected
		title = "> " + title
	} else {
		title = "  " + title
	}

	access := d.Styles.Locked.Render(iconLocked)
	if r.HasToken() {
		access = d.Styles.Granted.Render(iconGranted)
	}

	now := time.Now
	if d.Now != nil {
		now = d.Now
	}

	badge := d.Styles.Badge.Render(fmt.Sprintf("[%s]", r.Label()))
	detail := d.Styles.Detail.Render(fmt.Sprintf("%s %s %s", r.Size(), iconDot, history.When(r.Timestamp, now())))

	_, _ = fmt.Fprintf(w, "%s %s %s\n", titleStyle.Render(title), badge, access)
	_, _ = fmt.Fprintf(w, "  %s\n", detail)
	_, _ = fmt.Fprintf(w, "  %s", d.Styles.Detail.Render(r.Path))
}
