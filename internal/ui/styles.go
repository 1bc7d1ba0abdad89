package ui

import (
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

var (
	// Color palette using terminal colors for consistency
	ColorSuccess = lipgloss.AdaptiveColor{Light: "2", Dark: "2"} // Green
	ColorError   = lipgloss.AdaptiveColor{Light: "1", Dark: "1"} // Red
	ColorPrimary = lipgloss.AdaptiveColor{Light: "5", Dark: "5"} // Magenta/Purple
	ColorInfo    = lipgloss.AdaptiveColor{Light: "6", Dark: "6"} // Cyan
	ColorMuted   = lipgloss.AdaptiveColor{Light: "8", Dark: "8"} // Gray
	ColorWarning = lipgloss.AdaptiveColor{Light: "3", Dark: "3"} // Yellow

	StyleSuccess = lipgloss.NewStyle().Foreground(ColorSuccess).Bold(true)
	StyleError   = lipgloss.NewStyle().Foreground(ColorError).Bold(true)
	StyleInfo    = lipgloss.NewStyle().Foreground(ColorInfo)
	StyleMuted   = lipgloss.NewStyle().Foreground(ColorMuted)
	StyleWarning = lipgloss.NewStyle().Foreground(ColorWarning).Bold(true)
	StyleTitle   = lipgloss.NewStyle().Foreground(ColorPrimary).Bold(true).Underline(true)
	StyleHeader  = lipgloss.NewStyle().Foreground(ColorPrimary).Bold(true)

	StyleChip         = lipgloss.NewStyle().Foreground(ColorMuted).Padding(0, 1)
	StyleChipSelected = lipgloss.NewStyle().Foreground(ColorSuccess).Bold(true).Padding(0, 1)

	IconSuccess = "✔"
	IconError   = "✘"
	IconInfo    = "ℹ"
	IconWarning = "⚠"
)

// FormatSuccess returns a success message with icon
func FormatSuccess(msg string) string {
	return StyleSuccess.Render(IconSuccess + " " + msg)
}

// FormatError returns an error message with icon
func FormatError(msg string) string {
	return StyleError.Render(IconError + " " + msg)
}

// FormatInfo returns an info message with icon
func FormatInfo(msg string) string {
	return StyleInfo.Render(IconInfo + " " + msg)
}

// FormatWarning returns a warning message with icon
func FormatWarning(msg string) string {
	return StyleWarning.Render(IconWarning + " " + msg)
}

func FormatTitle(title string) string {
	return StyleTitle.Render(title)
}

func FormatMuted(text string) string {
	return StyleMuted.Render(text)
}

// FormatNotification renders a user notification the way the outcome demands.
func FormatNotification(msg string, isError bool) string {
	if isError {
		return FormatError(msg)
	}
	return FormatSuccess(msg)
}

// Chip is a tag with its count; selected chips are highlighted.
type Chip struct {
	Tag      string
	Count    int
	Selected bool
}

func FormatChips(chips []Chip) string {
	rendered := make([]string, 0, len(chips))
	for _, c := range chips {
		text := "#" + c.Tag + " (" + strconv.Itoa(c.Count) + ")"
		if c.Selected {
			rendered = append(rendered, StyleChipSelected.Render(text))
		} else {
			rendered = append(rendered, StyleChip.Render(text))
		}
	}
	return strings.Join(rendered, " ")
}

// NewTable returns a table with the shared header and border styling.
func NewTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(StyleMuted).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return StyleHeader.Padding(0, 1)
			}
			return lipgloss.NewStyle().Padding(0, 1)
		}).
		Headers(headers...)
}

// Truncate shortens s to at most n runes, marking the cut with an ellipsis.
func Truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n <= 1 {
		return string(r[:n])
	}
	return string(r[:n-1]) + "…"
}
