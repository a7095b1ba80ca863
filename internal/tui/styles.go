// Package tui renders lmsready's terminal output and prompts.
package tui

import (
	"github.com/charmbracelet/lipgloss"
)

// Color palette
var (
	colorPrimary   = lipgloss.Color("#7C3AED") // Purple
	colorSecondary = lipgloss.Color("#06B6D4") // Cyan

	colorBorder    = lipgloss.Color("#4B5563")
	colorText      = lipgloss.Color("#F3F4F6")
	colorTextMuted = lipgloss.Color("#9CA3AF")
	colorSuccess   = lipgloss.Color("#10B981")
	colorWarning   = lipgloss.Color("#F59E0B")
	colorError     = lipgloss.Color("#EF4444")
)

// Styles holds all the output styles.
type Styles struct {
	Header lipgloss.Style
	Panel  lipgloss.Style

	Title   lipgloss.Style
	Label   lipgloss.Style
	Value   lipgloss.Style
	Muted   lipgloss.Style
	Error   lipgloss.Style
	Success lipgloss.Style
	Warning lipgloss.Style

	Model       lipgloss.Style
	ActiveModel lipgloss.Style
}

// DefaultStyles returns the default style configuration.
func DefaultStyles() Styles {
	return Styles{
		Header: lipgloss.NewStyle().
			Bold(true).
			Foreground(colorPrimary).
			BorderStyle(lipgloss.NormalBorder()).
			BorderBottom(true).
			BorderForeground(colorBorder).
			Padding(0, 1),

		Panel: lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(colorBorder).
			Padding(0, 1),

		Title: lipgloss.NewStyle().
			Bold(true).
			Foreground(colorPrimary),

		Label: lipgloss.NewStyle().
			Foreground(colorTextMuted).
			Width(10),

		Value: lipgloss.NewStyle().
			Foreground(colorText),

		Muted: lipgloss.NewStyle().
			Foreground(colorTextMuted),

		Error: lipgloss.NewStyle().
			Foreground(colorError),

		Success: lipgloss.NewStyle().
			Foreground(colorSuccess),

		Warning: lipgloss.NewStyle().
			Foreground(colorWarning),

		Model: lipgloss.NewStyle().
			Foreground(colorText),

		ActiveModel: lipgloss.NewStyle().
			Bold(true).
			Foreground(colorSecondary),
	}
}

// PlainStyles returns styles without colors or borders, for piped output.
func PlainStyles() Styles {
	plain := lipgloss.NewStyle()
	return Styles{
		Header:      plain,
		Panel:       plain,
		Title:       plain,
		Label:       plain.Width(10),
		Value:       plain,
		Muted:       plain,
		Error:       plain,
		Success:     plain,
		Warning:     plain,
		Model:       plain,
		ActiveModel: plain,
	}
}
