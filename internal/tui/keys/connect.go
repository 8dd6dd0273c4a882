package keys

import "github.com/charmbracelet/bubbles/key"

// ConnectKeys adds sending, scrolling and connection control to the
// terminal keys.
type ConnectKeys struct {
	TerminalKeys
	Enter          key.Binding
	ToggleSendMode key.Binding
	Up             key.Binding
	Down           key.Binding
	GotoTop        key.Binding
	GotoBottom     key.Binding
	Connect        key.Binding
	Disconnect     key.Binding
}

func NewConnectKeys() ConnectKeys {
	return ConnectKeys{
		TerminalKeys: NewTerminalKeys(),
		Enter: key.NewBinding(
			key.WithKeys("enter", "ctrl+s"),
			key.WithHelp("enter", "send command"),
		),
		ToggleSendMode: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("tab", "toggle send mode"),
		),
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "up"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "down"),
		),
		GotoTop: key.NewBinding(
			key.WithKeys("g"),
			key.WithHelp("g", "goto top"),
		),
		GotoBottom: key.NewBinding(
			key.WithKeys("G"),
			key.WithHelp("G", "goto bottom"),
		),
		Connect: key.NewBinding(
			key.WithKeys("C"),
			key.WithHelp("C", "connect"),
		),
		Disconnect: key.NewBinding(
			key.WithKeys("D"),
			key.WithHelp("D", "disconnect"),
		),
	}
}

func (k ConnectKeys) ShortHelp() []key.Binding {
	return []key.Binding{k.Help, k.InsertMode, k.Connect, k.Disconnect, k.Quit}
}

func (k ConnectKeys) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.InsertMode, k.Escape, k.Enter, k.ToggleSendMode},
		{k.ToggleHex, k.ToggleASCII, k.ToggleTimestamps, k.Clear},
		{k.GotoTop, k.GotoBottom, k.Up, k.Down},
		{k.Connect, k.Disconnect, k.Help, k.Quit},
	}
}
