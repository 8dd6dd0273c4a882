package components

import (
	"fmt"

	"github.com/allbin/serialterm/internal/tui/styles"
	"github.com/charmbracelet/lipgloss"
)

// ConnectionInfo is the static part of the status bar
type ConnectionInfo struct {
	Driver string
	Mode   string // e.g. "115200 8N1"
}

// StatusView is the per-frame state the status bar renders
type StatusView struct {
	InputMode   string
	SendingMode string
	Connected   bool
	Connecting  bool
	Records     int
	Following   bool
	Clock       string
}

type StatusBar struct {
	portPath       string
	width          int
	theme          styles.Theme
	connectionInfo ConnectionInfo
}

func NewStatusBar(portPath string, info ConnectionInfo, theme styles.Theme) *StatusBar {
	return &StatusBar{
		portPath:       portPath,
		connectionInfo: info,
		theme:          theme,
	}
}

func (sb *StatusBar) SetWidth(width int) {
	sb.width = width
}

func (sb *StatusBar) SetPort(portPath string) {
	sb.portPath = portPath
}

func (sb *StatusBar) indicator(v StatusView) string {
	switch {
	case v.Connected:
		return sb.theme.StatusStyle(styles.StatusConnected).Render("●")
	case v.Connecting:
		return sb.theme.StatusStyle(styles.StatusConnecting).Render("○")
	default:
		return sb.theme.StatusStyle(styles.StatusDisconnected).Render("○")
	}
}

// View renders the status bar: mode, port and state on the left,
// connection details and clock on the right.
func (sb *StatusBar) View(v StatusView) string {
	p := sb.theme.Palette
	terminalWidth := sb.width
	if terminalWidth <= 0 {
		terminalWidth = 80
	}

	modeBg := p.Blue
	if v.InputMode == "INSERT" {
		modeBg = p.Green
	}
	mode := lipgloss.NewStyle().
		Foreground(p.Base).
		Background(modeBg).
		Bold(true).
		Padding(0, 1).
		Render(v.InputMode)

	port := lipgloss.NewStyle().
		Foreground(p.Mauve).
		Bold(true).
		Padding(0, 1).
		Render(sb.portPath)

	divider := sb.theme.Divider.Render("│")

	left := []string{mode, port, sb.indicator(v)}
	if v.InputMode == "INSERT" {
		left = append(left, lipgloss.NewStyle().
			Foreground(p.Peach).
			Bold(true).
			Padding(0, 1).
			Render(fmt.Sprintf("[%s] Tab to toggle", v.SendingMode)))
	}
	if !v.Following {
		left = append(left, lipgloss.NewStyle().
			Foreground(p.Yellow).
			Padding(0, 1).
			Render("SCROLL"))
	}
	left = append(left, divider)
	leftSide := lipgloss.JoinHorizontal(lipgloss.Left, left...)

	details := lipgloss.NewStyle().
		Foreground(p.Subtext0).
		Padding(0, 1).
		Render(fmt.Sprintf("⚡ %s %s  %d rec", sb.connectionInfo.Driver, sb.connectionInfo.Mode, v.Records))
	clock := lipgloss.NewStyle().
		Foreground(p.Subtext1).
		Padding(0, 1).
		Render(v.Clock)
	rightSide := lipgloss.JoinHorizontal(lipgloss.Left, details, divider, clock)

	spacerWidth := terminalWidth - lipgloss.Width(leftSide) - lipgloss.Width(rightSide)
	if spacerWidth < 1 {
		spacerWidth = 1
	}
	spacer := lipgloss.NewStyle().Width(spacerWidth).Render("")

	content := lipgloss.JoinHorizontal(lipgloss.Left, leftSide, spacer, rightSide)
	return sb.theme.Bar.Width(terminalWidth).Render(content)
}
