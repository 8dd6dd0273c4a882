package models

import (
	"fmt"
	"time"

	"github.com/allbin/serialterm/internal/transcript"
	"github.com/allbin/serialterm/internal/tui/components"
	"github.com/allbin/serialterm/internal/tui/keys"
	"github.com/allbin/serialterm/internal/tui/styles"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

const (
	inputHeight     = 3
	statusBarHeight = 1
	outboxSize      = 32
)

// ConnectModel is the interactive terminal over a session. It only reads
// the transcript and calls the session operations; everything it shows
// comes from transcript records.
type ConnectModel struct {
	term     Terminal
	portPath string
	theme    styles.Theme

	terminal  *components.Terminal
	statusBar *components.StatusBar
	input     *components.Input
	help      help.Model
	keys      keys.ConnectKeys

	inputMode  InputMode
	connecting bool
	ready      bool
	width      int
	height     int
	notice     string
	now        time.Time

	records []transcript.Record
	changes <-chan struct{}
	outbox  chan string
	stopped bool
}

func NewConnectModel(term Terminal, portPath string, theme styles.Theme) *ConnectModel {
	m := &ConnectModel{
		term:     term,
		portPath: portPath,
		theme:    theme,
		terminal: components.NewTerminal(0, 0, components.NewDataFormatter(theme)),
		statusBar: components.NewStatusBar(portPath, components.ConnectionInfo{
			Driver: term.DriverName(),
			Mode:   term.Mode().String(),
		}, theme),
		input:   components.NewInput(theme),
		help:    help.New(),
		keys:    keys.NewConnectKeys(),
		changes: term.Transcript().Subscribe(),
		outbox:  make(chan string, outboxSize),
		now:     time.Now(),
	}
	go m.drain(m.outbox)
	return m
}

// drain forwards queued commands to the session one at a time so the
// transcript keeps the order they were entered in.
func (m *ConnectModel) drain(outbox <-chan string) {
	for command := range outbox {
		m.term.Send(command)
	}
}

func (m *ConnectModel) Init() tea.Cmd {
	cmds := []tea.Cmd{WaitForChange(m.changes), tick()}
	if m.portPath != "" {
		cmds = append(cmds, m.connect())
	}
	m.sync()
	return tea.Batch(cmds...)
}

func (m *ConnectModel) connect() tea.Cmd {
	if m.connecting || m.term.IsConnected() {
		return nil
	}
	if m.portPath == "" {
		m.notice = "No port selected"
		return nil
	}
	m.connecting = true
	m.notice = ""
	port := m.portPath
	return func() tea.Msg {
		m.term.Connect(port)
		return ConnectDoneMsg{}
	}
}

func (m *ConnectModel) disconnect() tea.Cmd {
	return func() tea.Msg {
		m.term.Disconnect()
		return nil
	}
}

// Stop releases the transcript subscription and the send queue. It is
// safe to call more than once.
func (m *ConnectModel) Stop() {
	if m.stopped {
		return
	}
	m.stopped = true
	m.term.Transcript().Unsubscribe(m.changes)
	close(m.outbox)
}

// sync pulls the records appended since the last render
func (m *ConnectModel) sync() {
	fresh := m.term.Transcript().Since(len(m.records))
	if len(fresh) == 0 && m.records != nil {
		return
	}
	m.records = append(m.records, fresh...)
	m.terminal.SetRecords(m.records)
}

func (m *ConnectModel) layout() {
	if m.width == 0 {
		return
	}
	helpHeight := 0
	if m.help.ShowAll {
		helpHeight = lipgloss.Height(m.help.View(m.keys))
	}
	noticeHeight := 0
	if m.notice != "" {
		noticeHeight = 1
	}
	// ContentBorderStyle draws one line above the viewport
	height := m.height - inputHeight - statusBarHeight - helpHeight - noticeHeight - 1
	if height < 1 {
		height = 1
	}
	m.terminal.SetSize(m.width, height)
	m.input.SetWidth(m.width)
	m.statusBar.SetWidth(m.width)
	m.help.Width = m.width
}

func (m *ConnectModel) queue(command string) {
	if m.stopped {
		return
	}
	select {
	case m.outbox <- command:
	default:
		m.notice = "Send queue full, command dropped"
	}
}

func (m *ConnectModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.ready = true
		m.layout()

	case TranscriptChangedMsg:
		m.sync()
		cmds = append(cmds, WaitForChange(m.changes))

	case TranscriptClosedMsg:
		m.sync()

	case ConnectDoneMsg:
		m.connecting = false

	case tickMsg:
		m.now = time.Time(msg)
		cmds = append(cmds, tick())

	case tea.KeyMsg:
		if m.inputMode == InputModeInsert {
			switch {
			case key.Matches(msg, m.keys.Escape):
				m.inputMode = InputModeNormal
				m.input.Blur()
				return m, tea.Batch(cmds...)

			case key.Matches(msg, m.keys.Enter):
				m.submit()
				m.layout()
				return m, tea.Batch(cmds...)

			case msg.Type == tea.KeyUp:
				m.input.NavigateHistoryUp()
				return m, tea.Batch(cmds...)

			case msg.Type == tea.KeyDown:
				m.input.NavigateHistoryDown()
				return m, tea.Batch(cmds...)

			case key.Matches(msg, m.keys.ToggleSendMode):
				m.input.ToggleSendingMode()
				return m, tea.Batch(cmds...)
			}

			var cmd tea.Cmd
			m.input, cmd = m.input.Update(msg)
			cmds = append(cmds, cmd)
			return m, tea.Batch(cmds...)
		}

		switch {
		case key.Matches(msg, m.keys.Quit):
			m.Stop()
			return m, tea.Quit

		case key.Matches(msg, m.keys.InsertMode):
			m.inputMode = InputModeInsert
			cmds = append(cmds, m.input.Focus())

		case key.Matches(msg, m.keys.Connect):
			cmds = append(cmds, m.connect())
			m.layout()

		case key.Matches(msg, m.keys.Disconnect):
			cmds = append(cmds, m.disconnect())

		case key.Matches(msg, m.keys.Clear):
			m.terminal.Clear()

		case key.Matches(msg, m.keys.Help):
			m.help.ShowAll = !m.help.ShowAll
			m.layout()

		case key.Matches(msg, m.keys.ToggleHex):
			m.terminal.ToggleHex()

		case key.Matches(msg, m.keys.ToggleASCII):
			m.terminal.ToggleASCII()

		case key.Matches(msg, m.keys.ToggleTimestamps):
			m.terminal.ToggleTimestamps()

		case key.Matches(msg, m.keys.ToggleSendMode):
			m.input.ToggleSendingMode()

		case key.Matches(msg, m.keys.Up):
			m.terminal.ScrollUp(1)

		case key.Matches(msg, m.keys.Down):
			m.terminal.ScrollDown(1)

		case key.Matches(msg, m.keys.GotoTop):
			m.terminal.GotoTop()

		case key.Matches(msg, m.keys.GotoBottom):
			m.terminal.GotoBottom()
		}
	}

	if _, ok := msg.(tea.WindowSizeMsg); ok {
		_, cmd := m.terminal.Update(msg)
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

// submit queues the command line for sending. Invalid hex stays in the
// field with a notice so it can be corrected.
func (m *ConnectModel) submit() {
	raw := m.input.Value()
	if raw == "" {
		return
	}
	command, err := m.input.Command()
	if err != nil {
		m.notice = fmt.Sprintf("Invalid hex input: %v", err)
		return
	}
	m.notice = ""
	m.queue(command)
	m.input.AddToHistory(raw)
	m.input.SetValue("")
}

func (m *ConnectModel) View() string {
	content := "Initializing..."
	if m.ready {
		content = m.terminal.View()
	}

	sections := []string{m.theme.ContentBorder.Render(content)}
	if m.notice != "" {
		sections = append(sections, m.theme.Error.Render(m.notice))
	}
	sections = append(sections, m.input.View(m.inputMode == InputModeInsert))
	if m.help.ShowAll {
		sections = append(sections, m.help.View(m.keys))
	}
	sections = append(sections, m.statusBar.View(components.StatusView{
		InputMode:   m.inputMode.String(),
		SendingMode: m.input.GetSendingMode().String(),
		Connected:   m.term.IsConnected(),
		Connecting:  m.connecting,
		Records:     len(m.records),
		Following:   m.terminal.Following(),
		Clock:       m.now.Format("15:04:05"),
	}))

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

// Records returns what the model has rendered so far
func (m *ConnectModel) Records() []transcript.Record {
	return m.records
}

func (m *ConnectModel) InputMode() InputMode {
	return m.inputMode
}

func (m *ConnectModel) Notice() string {
	return m.notice
}
