package output

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/jamesainslie/backsweep/pkg/backsweep/types"
)

// Color constants using the ANSI 256-color palette.
const (
	ColorPrimary = lipgloss.Color("39")
	ColorSuccess = lipgloss.Color("42")
	ColorWarning = lipgloss.Color("214")
	ColorDanger  = lipgloss.Color("196")
	ColorMuted   = lipgloss.Color("245")
	ColorInfo    = lipgloss.Color("141")
)

// Box styles.
var (
	HeaderBox = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorPrimary).
			Padding(0, 1).
			MarginBottom(1)

	FooterBox = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorMuted).
			Padding(0, 1).
			MarginTop(1)
)

// Text styles.
var (
	LabelStyle = lipgloss.NewStyle().
			Foreground(ColorMuted)

	ValueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("255"))

	WarningStyle = lipgloss.NewStyle().
			Foreground(ColorWarning)

	MutedStyle = lipgloss.NewStyle().
			Foreground(ColorMuted)

	PathStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("255"))

	SizeStyle = lipgloss.NewStyle().
			Foreground(ColorPrimary).
			Bold(true)

	TableHeaderStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(ColorMuted)
)

// KindStyle returns the style used for a match kind. Colors live here, not
// on the record.
func KindStyle(k types.MatchKind) lipgloss.Style {
	switch k {
	case types.ExactMatch:
		return lipgloss.NewStyle().Foreground(ColorSuccess)
	case types.NameMatch:
		return lipgloss.NewStyle().Foreground(ColorWarning)
	case types.SizeMatch:
		return lipgloss.NewStyle().Foreground(ColorInfo)
	case types.AlternativeMatch:
		return lipgloss.NewStyle().Foreground(ColorMuted)
	default:
		return lipgloss.NewStyle().Foreground(ColorDanger)
	}
}
