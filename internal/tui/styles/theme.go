package styles

import (
	"github.com/allbin/serialterm/internal/tui/colors"
	"github.com/charmbracelet/lipgloss"
)

// Theme is the set of styles derived from one palette
type Theme struct {
	Palette colors.Palette

	Title         lipgloss.Style
	ContentBorder lipgloss.Style
	Input         lipgloss.Style
	Error         lipgloss.Style
	Info          lipgloss.Style

	// Transcript
	Timestamp lipgloss.Style
	Outbound  lipgloss.Style
	Inbound   lipgloss.Style
	System    lipgloss.Style

	// Status bar
	Bar       lipgloss.Style
	Connected lipgloss.Style
	Offline   lipgloss.Style
	Pending   lipgloss.Style
	Divider   lipgloss.Style
}

func New(p colors.Palette) Theme {
	return Theme{
		Palette: p,
		Title: lipgloss.NewStyle().
			Bold(true).
			Foreground(p.Mauve).
			Background(p.Surface0).
			Padding(0, 1),
		ContentBorder: lipgloss.NewStyle().
			BorderTop(true).
			BorderStyle(lipgloss.NormalBorder()).
			BorderForeground(p.Surface1),
		Input: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(p.Surface2).
			Padding(0, 1),
		Error: lipgloss.NewStyle().
			Bold(true).
			Foreground(p.Red),
		Info: lipgloss.NewStyle().
			Bold(true).
			Foreground(p.Mauve),

		Timestamp: lipgloss.NewStyle().Foreground(p.Subtext0),
		Outbound:  lipgloss.NewStyle().Foreground(p.Peach).Bold(true),
		Inbound:   lipgloss.NewStyle().Foreground(p.Sky).Bold(true),
		System:    lipgloss.NewStyle().Foreground(p.Mauve).Italic(true),

		Bar: lipgloss.NewStyle().
			Foreground(p.Text).
			Background(p.Surface0),
		Connected: lipgloss.NewStyle().Foreground(p.Green).Bold(true),
		Offline:   lipgloss.NewStyle().Foreground(p.Red).Bold(true),
		Pending:   lipgloss.NewStyle().Foreground(p.Yellow).Bold(true),
		Divider:   lipgloss.NewStyle().Foreground(p.Surface2).Padding(0, 1),
	}
}

// Default is the Mocha theme
func Default() Theme {
	return New(colors.Mocha)
}

type StatusType int

const (
	StatusConnected StatusType = iota
	StatusDisconnected
	StatusConnecting
	StatusError
)

func (t Theme) StatusStyle(status StatusType) lipgloss.Style {
	switch status {
	case StatusConnected:
		return t.Connected
	case StatusConnecting:
		return t.Pending
	default:
		return t.Offline
	}
}
