// Package cli renders txmatch output in the terminal and drives the
// interactive review of uncertain matches.
package cli

import (
	"github.com/charmbracelet/lipgloss"
)

// Icons prefixed to match sources and messages.
const (
	SuccessIcon = "✓"
	ErrorIcon   = "✗"
	WarningIcon = "⚠️"
	InfoIcon    = "ℹ️"
	LedgerIcon  = "📒"
	RobotIcon   = "🤖"
	RuleIcon    = "📐"
	ChartIcon   = "📊"
)

var (
	accent = lipgloss.Color("#5B8DEF")
	border = lipgloss.Color("#333")

	// TitleStyle renders headings and the transaction under review.
	TitleStyle   = lipgloss.NewStyle().Bold(true).Foreground(accent).MarginBottom(1)
	// SuccessStyle renders accepted or current accounts.
	SuccessStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#4ECDC4"))
	// WarningStyle renders alternatives and unknown accounts.
	WarningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFE66D"))

	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B"))
	infoStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#95E1D3"))
	promptStyle = lipgloss.NewStyle().Bold(true).Foreground(accent)
	boxStyle    = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(border).Padding(1, 2)
	headerStyle = lipgloss.NewStyle().Bold(true).
			BorderStyle(lipgloss.NormalBorder()).BorderBottom(true).BorderForeground(border)
	cellStyle = lipgloss.NewStyle().PaddingRight(2)
)

func withIcon(style lipgloss.Style, icon, message string) string {
	return style.Render(icon + " " + message)
}

// FormatSuccess renders a confirmation line.
func FormatSuccess(message string) string { return withIcon(SuccessStyle, SuccessIcon, message) }

// FormatError renders an error line.
func FormatError(message string) string { return withIcon(errorStyle, ErrorIcon, message) }

// FormatWarning renders a warning line.
func FormatWarning(message string) string { return withIcon(WarningStyle, WarningIcon, message) }

// FormatInfo renders an informational line.
func FormatInfo(message string) string { return withIcon(infoStyle, InfoIcon, message) }

// FormatTitle renders a section heading.
func FormatTitle(title string) string { return withIcon(TitleStyle, LedgerIcon, title) }

// FormatPrompt renders an input prompt ending in an arrow.
func FormatPrompt(prompt string) string {
	return promptStyle.Render(prompt + " → ")
}

// RenderBox draws content in a rounded box under a bold title.
func RenderBox(title, content string) string {
	heading := TitleStyle.UnsetMargins().Render(title)
	return boxStyle.Render(lipgloss.JoinVertical(lipgloss.Left, heading, content))
}

// RenderTable renders rows under an underlined header, each column as wide
// as its widest cell.
func RenderTable(headers []string, rows [][]string) string {
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = lipgloss.Width(h)
	}
	for _, row := range rows {
		for i := 0; i < len(row) && i < len(widths); i++ {
			widths[i] = max(widths[i], lipgloss.Width(row[i]))
		}
	}

	line := func(cells []string, style lipgloss.Style) string {
		rendered := make([]string, len(widths))
		for i, w := range widths {
			var cell string
			if i < len(cells) {
				cell = cells[i]
			}
			rendered[i] = style.Width(w + cellStyle.GetPaddingRight()).Render(cell)
		}
		return lipgloss.JoinHorizontal(lipgloss.Top, rendered...)
	}

	lines := make([]string, 0, len(rows)+1)
	lines = append(lines, line(headers, headerStyle))
	for _, row := range rows {
		lines = append(lines, line(row, cellStyle))
	}
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}
