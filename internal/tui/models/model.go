package models

import (
	"time"

	"github.com/allbin/serialterm/internal/transcript"
	"github.com/allbin/serialterm/internal/transport"
	tea "github.com/charmbracelet/bubbletea"
)

// InputMode represents the current input mode (vim-like)
type InputMode int

const (
	InputModeNormal InputMode = iota
	InputModeInsert
)

func (m InputMode) String() string {
	switch m {
	case InputModeInsert:
		return "INSERT"
	default:
		return "NORMAL"
	}
}

// Terminal is the session surface the TUI drives
type Terminal interface {
	Transcript() transcript.Reader
	IsConnected() bool
	Port() string
	DriverName() string
	Mode() transport.Mode
	Connect(port string)
	Disconnect()
	Send(command string)
}

// TranscriptChangedMsg is delivered after the transcript or the
// connection state changed.
type TranscriptChangedMsg struct{}

// TranscriptClosedMsg is delivered once the transcript stops notifying
type TranscriptClosedMsg struct{}

// ConnectDoneMsg reports that a Connect call returned
type ConnectDoneMsg struct{}

type tickMsg time.Time

// WaitForChange blocks on a transcript subscription and converts the next
// event into a message. It has to be re-armed after every delivery.
func WaitForChange(ch <-chan struct{}) tea.Cmd {
	return func() tea.Msg {
		if _, ok := <-ch; !ok {
			return TranscriptClosedMsg{}
		}
		return TranscriptChangedMsg{}
	}
}

func tick() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}
