/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/allbin/serialterm/internal/session"
	"github.com/allbin/serialterm/internal/tui/components"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
)

// sendCmd represents the send command
var sendCmd = &cobra.Command{
	Use:   "send [command] <port>",
	Short: "Send commands to a serial port and print the replies",
	Long: `Connect, send one or more commands, collect replies and disconnect.

Commands are framed with CR LF unless they already end in a line break.
They can be provided as:
- Command line argument: send "AT+GMR" /dev/ttyUSB0
- From stdin, one command per line: printf "AT\nATI\n" | serialterm send /dev/ttyUSB0
- Interactive prompt: serialterm send /dev/ttyUSB0

After each command the session keeps receiving for the --wait window, then
the full transcript is printed.

Example usage:
  serialterm send AT /dev/ttyUSB0
  serialterm send 41540D /dev/ttyUSB0 --hex
  serialterm send ATI /dev/ttyUSB0 --wait 3s`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		var commands []string
		var portPath string

		if len(args) == 1 {
			portPath = args[0]
			stat, err := os.Stdin.Stat()
			if err != nil || (stat.Mode()&os.ModeCharDevice) != 0 {
				commands = []string{promptForData()}
			} else {
				commands, err = readCommands(os.Stdin)
				if err != nil {
					return fmt.Errorf("error reading from stdin: %w", err)
				}
			}
		} else {
			commands = []string{args[0]}
			portPath = args[1]
		}

		hexMode, _ := cmd.Flags().GetBool("hex")
		wait, _ := cmd.Flags().GetDuration("wait")

		if hexMode {
			for i, c := range commands {
				data, err := components.ParseHex(c)
				if err != nil {
					return fmt.Errorf("invalid hex data: %w", err)
				}
				commands[i] = string(data)
			}
		}

		sess, err := newSession(cmd)
		if err != nil {
			return err
		}
		defer sess.Close()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		return sendCommands(ctx, sess, portPath, commands, wait, os.Stdout)
	},
}

func init() {
	rootCmd.AddCommand(sendCmd)

	sendCmd.Flags().BoolP("hex", "x", false, "Interpret commands as hexadecimal (e.g., '41540D' for 'AT\\r')")
	sendCmd.Flags().DurationP("wait", "w", time.Second, "How long to collect replies after each command")
}

// readCommands returns the non-empty lines of r
func readCommands(r io.Reader) ([]string, error) {
	var commands []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		if strings.TrimSpace(line) != "" {
			commands = append(commands, line)
		}
	}
	return commands, scanner.Err()
}

func promptForData() string {
	promptStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("99"))

	fmt.Print(promptStyle.Render("Enter command to send: "))

	scanner := bufio.NewScanner(os.Stdin)
	if scanner.Scan() {
		return scanner.Text()
	}
	return ""
}

// sendCommands runs one connect/send/disconnect cycle and prints the
// transcript to w. It fails when the port could not be opened.
func sendCommands(ctx context.Context, sess *session.Session, portPath string, commands []string, wait time.Duration, w io.Writer) error {
	stopHistory := startHistory(ctx, sess, portPath)
	defer stopHistory()

	sess.Connect(portPath)
	if !sess.IsConnected() {
		printRecords(w, sess.Transcript().Records())
		return fmt.Errorf("could not connect to %s", portPath)
	}

	for _, c := range commands {
		if c == "" {
			continue
		}
		sess.Send(c)
		if !sleepContext(ctx, wait) {
			break
		}
		if !sess.IsConnected() {
			break
		}
	}

	sess.Disconnect()
	printRecords(w, sess.Transcript().Records())
	return nil
}

// sleepContext waits for d and reports false if ctx ended first
func sleepContext(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
