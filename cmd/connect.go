/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"context"
	"fmt"

	"github.com/allbin/serialterm/internal/session"
	"github.com/allbin/serialterm/internal/tui/colors"
	"github.com/allbin/serialterm/internal/tui/models"
	"github.com/allbin/serialterm/internal/tui/styles"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// connectCmd represents the connect command
var connectCmd = &cobra.Command{
	Use:   "connect [port]",
	Short: "Open an interactive terminal on a serial port",
	Long: `Connect to a serial port with an interactive terminal interface.

The terminal shows the session transcript as it grows: commands sent,
data received and messages from the session itself. Features include:
- Insert mode command line with history (i / esc, ↑/↓)
- ASCII and hex entry (tab) and display (a, h)
- Connect and disconnect without leaving the terminal (C, D)
- Connection status, driver and framing in the status bar

Without a port the first enumerated port is used. When the accessory
driver reports that permission was requested, accept the prompt and
press C to connect again.

Example usage:
  serialterm connect
  serialterm connect /dev/ttyUSB0
  serialterm connect /dev/ttyACM0 --driver accessory --history`,
	Args:        cobra.MaximumNArgs(1),
	Annotations: map[string]string{quietConsole: "true"},
	RunE: func(cmd *cobra.Command, args []string) error {
		sess, err := newSession(cmd)
		if err != nil {
			return err
		}
		defer sess.Close()

		portPath := ""
		if len(args) == 1 {
			portPath = args[0]
		} else {
			portPath = defaultPort(sess)
		}

		return runConnectTUI(cmd.Context(), sess, portPath)
	},
}

func init() {
	rootCmd.AddCommand(connectCmd)
}

// defaultPort picks the first enumerated port. Enumeration failures are
// already in the transcript and show up once the terminal starts.
func defaultPort(sess *session.Session) string {
	ports := sess.ListAvailablePorts()
	if len(ports) == 0 {
		return ""
	}
	return ports[0]
}

func runConnectTUI(ctx context.Context, sess *session.Session, portPath string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	stopHistory := startHistory(ctx, sess, portPath)
	defer stopHistory()

	theme := styles.New(colors.ByName(cfg.TUI.Theme))
	m := models.NewConnectModel(sess, portPath, theme)
	defer m.Stop()

	log.Info().Str("port", portPath).Str("driver", sess.DriverName()).Msg("Starting terminal")

	p := tea.NewProgram(m, tea.WithAltScreen())
	_, err := p.Run()

	// Disconnect before the recorder stops so the final record is kept
	sess.Disconnect()
	if err != nil {
		return fmt.Errorf("terminal failed: %w", err)
	}
	return nil
}
