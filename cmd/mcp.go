/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"github.com/allbin/serialterm/internal/mcpserver"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// mcpCmd represents the mcp command
var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Expose the session as MCP tools over stdio",
	Long: `Run a Model Context Protocol server on stdin/stdout.

Tools: list_ports, get_state, connect, disconnect, send, get_transcript.
Logs always go to stderr or the configured log file; stdout is the
protocol transport.

Example client configuration:
  {"command": "serialterm", "args": ["mcp", "--driver", "native"]}`,
	RunE: func(cmd *cobra.Command, args []string) error {
		sess, err := newSession(cmd)
		if err != nil {
			return err
		}
		defer sess.Close()

		stopHistory := startHistory(cmd.Context(), sess, "")
		defer stopHistory()

		log.Info().Str("driver", sess.DriverName()).Msg("Starting MCP server on stdio")
		err = mcpserver.NewServer(sess, Version).ServeStdio()
		sess.Disconnect()
		return err
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}
