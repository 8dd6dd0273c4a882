package components

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/allbin/serialterm/internal/tui/styles"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

const historyLimit = 100

const (
	placeholderASCII = "Type a command and press Enter to send..."
	placeholderHex   = "Enter hex (e.g. 41540D or 41 54 0D)..."
)

type SendingMode int

const (
	SendingModeASCII SendingMode = iota
	SendingModeHex
)

func (s SendingMode) String() string {
	switch s {
	case SendingModeHex:
		return "HEX"
	default:
		return "ASCII"
	}
}

// Input is the command line: a text field with history and an ASCII/hex
// entry mode.
type Input struct {
	textInput     textinput.Model
	sendingMode   SendingMode
	history       []string
	historyIndex  int
	currentInput  string // saved while navigating history
	terminalWidth int
	theme         styles.Theme
}

func NewInput(theme styles.Theme) *Input {
	ti := textinput.New()
	ti.Placeholder = placeholderASCII
	ti.CharLimit = 256
	ti.Prompt = ""

	return &Input{
		textInput:    ti,
		sendingMode:  SendingModeASCII,
		historyIndex: -1,
		theme:        theme,
	}
}

func (i *Input) SetWidth(width int) {
	i.terminalWidth = width
	// border(2) + padding(2) + prompt(1) + space(1)
	usableWidth := width - 6
	if usableWidth < 20 {
		usableWidth = 20
	}
	i.textInput.Width = usableWidth
}

func (i *Input) Focus() tea.Cmd {
	return i.textInput.Focus()
}

func (i *Input) Blur() {
	i.textInput.Blur()
}

func (i *Input) Value() string {
	return i.textInput.Value()
}

func (i *Input) SetValue(value string) {
	i.textInput.SetValue(value)
}

// Command converts the current value into the command text to send. In hex
// mode the digits are decoded to the raw bytes they name.
func (i *Input) Command() (string, error) {
	value := i.textInput.Value()
	if i.sendingMode == SendingModeASCII {
		return value, nil
	}
	data, err := ParseHex(value)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func (i *Input) ToggleSendingMode() {
	switch i.sendingMode {
	case SendingModeASCII:
		i.sendingMode = SendingModeHex
		i.textInput.Placeholder = placeholderHex
	case SendingModeHex:
		i.sendingMode = SendingModeASCII
		i.textInput.Placeholder = placeholderASCII
	}
}

func (i *Input) GetSendingMode() SendingMode {
	return i.sendingMode
}

func (i *Input) Update(msg tea.Msg) (*Input, tea.Cmd) {
	var cmd tea.Cmd
	i.textInput, cmd = i.textInput.Update(msg)
	return i, cmd
}

func (i *Input) View(isInsertMode bool) string {
	p := i.theme.Palette

	promptSymbol, promptColor := ">", p.Green
	if i.sendingMode == SendingModeHex {
		promptSymbol, promptColor = "#", p.Yellow
	}
	prompt := lipgloss.NewStyle().Foreground(promptColor).Bold(true).Render(promptSymbol)

	var field string
	if isInsertMode {
		field = i.textInput.View()
	} else {
		field = lipgloss.NewStyle().
			Foreground(p.Overlay0).
			Render("Press 'i' to enter insert mode")
	}
	content := lipgloss.JoinHorizontal(lipgloss.Left, prompt, " ", field)

	// RoundedBorder and horizontal padding take four columns
	adjustedWidth := i.terminalWidth - 4
	if adjustedWidth < 10 {
		adjustedWidth = 10
	}
	style := i.theme.Input.
		Width(adjustedWidth).
		AlignHorizontal(lipgloss.Left)
	if isInsertMode {
		style = style.BorderForeground(p.Green)
	}
	return style.Render(content)
}

// AddToHistory appends a command unless it is blank or repeats the last one
func (i *Input) AddToHistory(command string) {
	command = strings.TrimSpace(command)
	if command == "" {
		return
	}
	if len(i.history) > 0 && i.history[len(i.history)-1] == command {
		return
	}

	i.history = append(i.history, command)
	if len(i.history) > historyLimit {
		i.history = i.history[1:]
	}

	i.historyIndex = -1
	i.currentInput = ""
}

func (i *Input) History() []string {
	return i.history
}

func (i *Input) NavigateHistoryUp() {
	if len(i.history) == 0 {
		return
	}

	if i.historyIndex == -1 {
		i.currentInput = i.textInput.Value()
		i.historyIndex = len(i.history) - 1
	} else if i.historyIndex > 0 {
		i.historyIndex--
	}

	i.textInput.SetValue(i.history[i.historyIndex])
}

func (i *Input) NavigateHistoryDown() {
	if len(i.history) == 0 || i.historyIndex == -1 {
		return
	}

	if i.historyIndex < len(i.history)-1 {
		i.historyIndex++
		i.textInput.SetValue(i.history[i.historyIndex])
		return
	}
	i.historyIndex = -1
	i.textInput.SetValue(i.currentInput)
	i.currentInput = ""
}

// ParseHex converts hex digits to bytes. Spaces between digits are
// ignored, so both "41 54 0D" and "41540D" are accepted.
func ParseHex(hexStr string) ([]byte, error) {
	clean := strings.ReplaceAll(strings.TrimSpace(hexStr), " ", "")
	if len(clean) == 0 {
		return nil, fmt.Errorf("empty input")
	}

	for _, char := range clean {
		if !((char >= '0' && char <= '9') || (char >= 'A' && char <= 'F') || (char >= 'a' && char <= 'f')) {
			return nil, fmt.Errorf("invalid hex character '%c'", char)
		}
	}

	if len(clean)%2 != 0 {
		return nil, fmt.Errorf("hex string must have even number of digits (got %d)", len(clean))
	}

	out := make([]byte, 0, len(clean)/2)
	for i := 0; i < len(clean); i += 2 {
		b, err := strconv.ParseUint(clean[i:i+2], 16, 8)
		if err != nil {
			return nil, fmt.Errorf("invalid hex byte '%s': %w", clean[i:i+2], err)
		}
		out = append(out, byte(b))
	}
	return out, nil
}
