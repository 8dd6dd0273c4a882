/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/allbin/serialterm/internal/session"
	"github.com/allbin/serialterm/internal/transcript"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// captureCmd represents the capture command
var captureCmd = &cobra.Command{
	Use:   "capture <port> <output-file>",
	Short: "Capture received serial data to a file",
	Long: `Capture incoming serial data to a file for later parsing.

Connects to the port and appends every received chunk, exactly as decoded,
to the output file. Runs until interrupted (Ctrl+C) or until the session
disconnects after a read error.

The output file is opened in append mode, allowing you to resume captures
without overwriting existing data.

Example usage:
  serialterm capture /dev/ttyUSB0 data.log
  serialterm capture /dev/ttyUSB0 capture.log --console`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		portPath := args[0]
		outputPath := args[1]
		showConsole, _ := cmd.Flags().GetBool("console")

		f, err := os.OpenFile(outputPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return fmt.Errorf("failed to open output file: %w", err)
		}
		defer f.Close()

		sess, err := newSession(cmd)
		if err != nil {
			return err
		}
		defer sess.Close()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		var console io.Writer
		if showConsole {
			console = os.Stdout
		}
		fmt.Fprintf(os.Stderr, "Capturing %s to %s (Ctrl+C to stop)\n", portPath, outputPath)
		return runCapture(ctx, sess, portPath, f, console)
	},
}

func init() {
	rootCmd.AddCommand(captureCmd)

	captureCmd.Flags().BoolP("console", "c", false, "Display the transcript on the console while capturing")
}

// runCapture connects and copies inbound records to out until ctx ends or
// the session disconnects. System records go to stderr, and every record
// is echoed to console when it is set.
func runCapture(ctx context.Context, sess *session.Session, portPath string, out, console io.Writer) error {
	stopHistory := startHistory(ctx, sess, portPath)
	defer stopHistory()

	changes := sess.Transcript().Subscribe()
	defer sess.Transcript().Unsubscribe(changes)

	sess.Connect(portPath)

	var written int64
	next := 0
	drain := func() error {
		fresh := sess.Transcript().Since(next)
		next += len(fresh)
		for _, rec := range fresh {
			if console != nil {
				printRecord(console, rec)
			}
			switch rec.Direction {
			case transcript.Inbound:
				n, err := io.WriteString(out, rec.Text)
				written += int64(n)
				if err != nil {
					return fmt.Errorf("failed to write capture: %w", err)
				}
			case transcript.System:
				if console == nil {
					fmt.Fprintln(os.Stderr, rec.Text)
				}
			}
		}
		return nil
	}

	if err := drain(); err != nil {
		return err
	}
	if !sess.IsConnected() {
		return fmt.Errorf("could not connect to %s", portPath)
	}

	for {
		select {
		case <-ctx.Done():
			sess.Disconnect()
			err := drain()
			log.Info().Int64("bytes", written).Str("port", portPath).Msg("Capture finished")
			return err
		case _, ok := <-changes:
			if err := drain(); err != nil {
				sess.Disconnect()
				return err
			}
			if !ok || !sess.IsConnected() {
				log.Info().Int64("bytes", written).Str("port", portPath).Msg("Capture ended by disconnect")
				return nil
			}
		}
	}
}
