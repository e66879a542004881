// Package tui implements the Bubble Tea save history panel.
package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/hay-kot/savedeck/internal/styles"
)

var (
	colorGreen  = styles.ColorGreen
	colorYellow = styles.ColorYellow
	colorBlue   = styles.ColorBlue
	colorGray   = styles.ColorGray
	colorWhite  = styles.ColorWhite
	colorRed    = styles.ColorRed
)

var (
	// Title style for the list header.
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorBlue).
			PaddingLeft(1)

	// Selected item style (matches border color).
	selectedStyle = lipgloss.NewStyle().
			Foreground(colorBlue).
			Bold(true)

	normalStyle = lipgloss.NewStyle()

	// Format badge, e.g. [PNG].
	badgeStyle = lipgloss.NewStyle().
			Foreground(colorYellow).
			Bold(true)

	// Secondary detail text: size, time and path.
	pathStyle = lipgloss.NewStyle().
			Foreground(colorGray)

	grantedStyle = lipgloss.NewStyle().
			Foreground(colorGreen)

	lockedStyle = lipgloss.NewStyle().
			Foreground(colorGray)

	statusStyle = lipgloss.NewStyle().
			Foreground(colorWhite).
			PaddingLeft(1)

	errorTitleStyle = lipgloss.NewStyle().
			Foreground(colorRed).
			Bold(true).
			PaddingLeft(1)

	errorBodyStyle = lipgloss.NewStyle().
			Foreground(colorWhite)

	helpStyle = lipgloss.NewStyle().
			Foreground(colorGray).
			PaddingLeft(1)

	emptyStyle = lipgloss.NewStyle().
			Foreground(colorGray).
			Italic(true).
			PaddingLeft(2)

	spinnerStyle = lipgloss.NewStyle().
			Foreground(colorBlue)
)

// Modal styles.
var (
	modalStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorBlue).
			Padding(1, 2)

	modalTitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorWhite)

	modalHelpStyle = lipgloss.NewStyle().
			Foreground(colorGray).
			MarginTop(1)

	modalButtonStyle = lipgloss.NewStyle().
				Padding(0, 1).
				Background(lipgloss.Color("#3b4261")).
				Foreground(lipgloss.Color("#a9b1d6"))

	modalButtonSelectedStyle = lipgloss.NewStyle().
					Padding(0, 1).
					Background(colorBlue).
					Foreground(lipgloss.Color("#1a1b26")).
					Bold(true)

	modalButtonDangerStyle = modalButtonSelectedStyle.
				Background(colorRed)
)

// Icons and symbols.
const (
	iconDot     = "•"
	iconGranted = "●"
	iconLocked  = "○"
)

var bannerStyle = styles.BannerStyle.
	PaddingLeft(1).
	PaddingBottom(1)
