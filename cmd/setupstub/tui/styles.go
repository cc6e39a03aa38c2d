// Package tui implements the interactive install wizard shown when the
// stub runs without flags. It uses Charmbracelet's Bubble Tea, Lip Gloss,
// and Bubbles.
package tui

import "github.com/charmbracelet/lipgloss"

// Color palette for the wizard.
var (
	primaryColor = lipgloss.Color("#7D56F4")
	accentColor  = lipgloss.Color("#00D9FF")

	successColor = lipgloss.Color("#28A745")
	dangerColor  = lipgloss.Color("#DC3545")

	mutedColor  = lipgloss.Color("#666666")
	borderColor = lipgloss.Color("#333333")
)

// Container and text styles.
var (
	// outerBoxStyle is the main container style.
	outerBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(primaryColor).
			Padding(1, 2)

	// titleStyle for step titles.
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(primaryColor)

	// mutedTextStyle for hints and secondary text.
	mutedTextStyle = lipgloss.NewStyle().
			Foreground(mutedColor)

	// errorTextStyle for error messages.
	errorTextStyle = lipgloss.NewStyle().
			Foreground(dangerColor)

	// successTextStyle for completion messages.
	successTextStyle = lipgloss.NewStyle().
				Foreground(successColor)

	// licenseStyle frames the scrollable license text.
	licenseStyle = lipgloss.NewStyle().
			Border(lipgloss.NormalBorder()).
			BorderForeground(borderColor).
			Padding(0, 1)

	// checkedStyle for selected task checkboxes.
	checkedStyle = lipgloss.NewStyle().
			Foreground(successColor).
			Bold(true)

	// uncheckedStyle for unselected task checkboxes.
	uncheckedStyle = lipgloss.NewStyle().
			Foreground(mutedColor)

	// cursorStyle for the task cursor indicator.
	cursorStyle = lipgloss.NewStyle().
			Foreground(primaryColor).
			Bold(true)

	// fileStyle for the file currently being installed.
	fileStyle = lipgloss.NewStyle().
			Foreground(accentColor)
)
