package tui

import (
	"github.com/charmbracelet/lipgloss"
)

// Modal is a confirmation dialog for a pending panel action.
type Modal struct {
	title           string
	message         string
	confirmLabel    string
	destructive     bool
	visible         bool
	confirmSelected bool // true = confirm button selected, false = cancel button selected
}

// NewModal creates a modal for action, labelling the confirm button with the
// action's help text. Delete and clear render the confirm button in red.
func NewModal(action Action) Modal {
	label := capitalize(action.Help)
	if label == "" {
		label = "Confirm"
	}

	return Modal{
		title:           label,
		message:         action.Confirm,
		confirmLabel:    label,
		destructive:     action.Type == ActionTypeDelete || action.Type == ActionTypeClear,
		visible:         true,
		confirmSelected: true,
	}
}

// ToggleSelection switches the selected button.
func (m *Modal) ToggleSelection() {
	m.confirmSelected = !m.confirmSelected
}

// ConfirmSelected returns true if the confirm button is selected.
func (m Modal) ConfirmSelected() bool {
	return m.confirmSelected
}

// Visible returns whether the modal should be displayed.
func (m Modal) Visible() bool {
	return m.visible
}

// Overlay renders the modal centered in a width x height area in place of the
// background.
func (m Modal) Overlay(background string, width, height int) string {
	if !m.visible {
		return background
	}

	selected := modalButtonSelectedStyle
	if m.destructive {
		selected = modalButtonDangerStyle
	}

	confirmBtn := modalButtonStyle.Render(m.confirmLabel)
	cancelBtn := modalButtonSelectedStyle.Render("Cancel")
	if m.confirmSelected {
		confirmBtn = selected.Render(m.confirmLabel)
		cancelBtn = modalButtonStyle.Render("Cancel")
	}

	buttons := lipgloss.JoinHorizontal(lipgloss.Center, confirmBtn, "  ", cancelBtn)

	content := lipgloss.JoinVertical(
		lipgloss.Left,
		modalTitleStyle.Render(m.title),
		"",
		m.message,
		lipgloss.NewStyle().MarginTop(1).Render(buttons),
		modalHelpStyle.Render("←/→ select  enter choose  y yes  esc cancel"),
	)

	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, modalStyle.Render(content))
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	r := []rune(s)
	if r[0] >= 'a' && r[0] <= 'z' {
		r[0] -= 'a' - 'A'
	}
	return string(r)
}
