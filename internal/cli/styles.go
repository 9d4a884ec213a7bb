// Package cli renders operator-facing terminal output with lipgloss.
package cli

import (
	"github.com/charmbracelet/lipgloss"
)

// Palette.
var (
	Green  = lipgloss.Color("#2ECC71")
	Teal   = lipgloss.Color("#4ECDC4")
	Yellow = lipgloss.Color("#FFE66D")
	Red    = lipgloss.Color("#FF6B6B")
	Gray   = lipgloss.Color("#666666")
	Border = lipgloss.Color("#333")
)

var (
	TitleStyle   = lipgloss.NewStyle().Bold(true).Foreground(Green)
	SuccessStyle = lipgloss.NewStyle().Foreground(Teal)
	WarningStyle = lipgloss.NewStyle().Foreground(Yellow)
	ErrorStyle   = lipgloss.NewStyle().Foreground(Red)
	SubtleStyle  = lipgloss.NewStyle().Foreground(Gray)

	// BoxStyle frames one bet or one summary.
	BoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(Border).
			Padding(1, 2)

	// LabelStyle right-aligns field labels so values line up.
	LabelStyle = lipgloss.NewStyle().
			Foreground(Gray).
			Width(12).
			Align(lipgloss.Right).
			MarginRight(1)

	TableHeaderStyle = lipgloss.NewStyle().
				Bold(true).
				BorderStyle(lipgloss.NormalBorder()).
				BorderBottom(true).
				BorderForeground(Border)

	TableCellStyle = lipgloss.NewStyle()
)

const (
	SuccessIcon   = "✓"
	ErrorIcon     = "✗"
	WarningIcon   = "⚠️"
	DuplicateIcon = "♻️"
	BetIcon       = "🎯"
	ChartIcon     = "📊"
)

func iconLine(style lipgloss.Style, icon, message string) string {
	return style.Render(icon + " " + message)
}

// FormatSuccess renders a one-line success message.
func FormatSuccess(message string) string { return iconLine(SuccessStyle, SuccessIcon, message) }

// FormatError renders a one-line error message.
func FormatError(message string) string { return iconLine(ErrorStyle, ErrorIcon, message) }

// FormatWarning renders a one-line warning.
func FormatWarning(message string) string { return iconLine(WarningStyle, WarningIcon, message) }

// RenderBox renders content under a bold title inside a rounded border.
func RenderBox(title, content string) string {
	return BoxStyle.Render(lipgloss.JoinVertical(lipgloss.Left, TitleStyle.Render(title), content))
}
