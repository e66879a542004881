package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/hay-kot/savedeck/internal/styles"
)

const (
	headerHeight = 5
	footerHeight = 3
)

// View renders the panel.
func (m Model) View() string {
	var b strings.Builder

	b.WriteString(bannerStyle.Render(strings.TrimPrefix(styles.Banner, "\n")))
	b.WriteString("\n")

	if len(m.list.Items()) == 0 {
		b.WriteString(titleStyle.Render(m.list.Title))
		b.WriteString("\n\n")
		b.WriteString(emptyStyle.Render("No saved documents yet. Press s to save the current document."))
		b.WriteString("\n")
	} else {
		b.WriteString(m.list.View())
		b.WriteString("\n")
	}

	b.WriteString(m.footer())

	view := b.String()

	switch m.state {
	case stateConfirming:
		return m.modal.Overlay(view, m.width, m.height)
	case statePicking:
		if m.pick != nil {
			return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, modalStyle.Render(m.pick.form.View()))
		}
	}

	return view
}

func (m Model) footer() string {
	var lines []string

	switch {
	case m.alert != nil:
		lines = append(lines, errorTitleStyle.Render(m.alert.Title+":")+" "+errorBodyStyle.Render(m.alert.Body))
	case m.inflight > 0:
		working := m.spinner.View() + " working..."
		if m.status != "" {
			working += " " + m.status
		}
		lines = append(lines, statusStyle.Render(working))
	case m.status != "":
		lines = append(lines, statusStyle.Render(m.status))
	default:
		lines = append(lines, "")
	}

	if m.doc != "" {
		lines = append(lines, helpStyle.Render("document: "+m.doc))
	}

	help := "[s] save as  [enter] overwrite  [c] clear  [r] reload  [/] filter  [q] quit"
	if extra := m.handler.HelpString(); extra != "" {
		help += "  " + extra
	}
	lines = append(lines, helpStyle.Render(help))

	return strings.Join(lines, "\n")
}
