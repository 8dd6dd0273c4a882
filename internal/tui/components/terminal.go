package components

import (
	"strings"

	"github.com/allbin/serialterm/internal/transcript"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
)

// Terminal shows the transcript in a scrolling viewport. Clearing only
// hides what has been shown so far; the transcript itself is never touched.
type Terminal struct {
	viewport  viewport.Model
	formatter *DataFormatter
	records   []transcript.Record
	offset    int
	follow    bool
}

func NewTerminal(width, height int, formatter *DataFormatter) *Terminal {
	return &Terminal{
		viewport:  viewport.New(width, height),
		formatter: formatter,
		follow:    true,
	}
}

func (t *Terminal) SetSize(width, height int) {
	t.viewport.Width = width
	t.viewport.Height = height
	t.render()
}

func (t *Terminal) GetViewport() viewport.Model {
	return t.viewport
}

// SetRecords replaces the displayed records with a full transcript snapshot
func (t *Terminal) SetRecords(records []transcript.Record) {
	t.records = records
	if t.offset > len(records) {
		t.offset = len(records)
	}
	t.render()
}

// Visible returns the records currently displayed
func (t *Terminal) Visible() []transcript.Record {
	return t.records[t.offset:]
}

func (t *Terminal) render() {
	lines := t.formatter.FormatRecords(t.Visible())
	t.viewport.SetContent(strings.Join(lines, "\n"))
	if t.follow {
		t.viewport.GotoBottom()
	}
}

func (t *Terminal) Clear() {
	t.offset = len(t.records)
	t.render()
}

func (t *Terminal) ToggleHex() {
	t.formatter.ToggleHex()
	t.render()
}

func (t *Terminal) ToggleASCII() {
	t.formatter.ToggleASCII()
	t.render()
}

func (t *Terminal) ToggleTimestamps() {
	t.formatter.ToggleTimestamps()
	t.render()
}

func (t *Terminal) GetDisplayMode() DisplayMode {
	return t.formatter.GetDisplayMode()
}

// ScrollUp leaves follow mode so new records do not yank the view
func (t *Terminal) ScrollUp(n int) {
	t.follow = false
	t.viewport.LineUp(n)
}

func (t *Terminal) ScrollDown(n int) {
	t.viewport.LineDown(n)
	if t.viewport.AtBottom() {
		t.follow = true
	}
}

func (t *Terminal) GotoTop() {
	t.follow = false
	t.viewport.GotoTop()
}

func (t *Terminal) GotoBottom() {
	t.follow = true
	t.viewport.GotoBottom()
}

func (t *Terminal) Following() bool {
	return t.follow
}

func (t *Terminal) Update(msg tea.Msg) (viewport.Model, tea.Cmd) {
	// Only window sizes reach the viewport so it never consumes key bindings
	switch msg.(type) {
	case tea.WindowSizeMsg:
		return t.viewport.Update(msg)
	default:
		return t.viewport, nil
	}
}

func (t *Terminal) View() string {
	return t.viewport.View()
}
