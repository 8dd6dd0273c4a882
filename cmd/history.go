/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/allbin/serialterm/internal/history"
	"github.com/spf13/cobra"
)

// historyCmd represents the history command
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show persisted session transcripts",
	Long: `List recorded sessions, newest first, or print the transcript of one.

Sessions are recorded by connect, send, capture, serve and mcp when
history is enabled (--history or history.enabled in the config file).

Example usage:
  serialterm history
  serialterm history --limit 5
  serialterm history --session 3f1c... --limit 100`,
	RunE: func(cmd *cobra.Command, args []string) error {
		sessionID, _ := cmd.Flags().GetString("session")
		limit, _ := cmd.Flags().GetInt("limit")

		db, err := history.Open(cmd.Context(), cfg.History.Path)
		if err != nil {
			return err
		}
		defer db.Close()

		if sessionID != "" {
			return showSession(cmd, db.Sessions(), sessionID, limit, os.Stdout)
		}
		return listSessions(cmd, db.Sessions(), limit, os.Stdout)
	},
}

func init() {
	rootCmd.AddCommand(historyCmd)

	historyCmd.Flags().StringP("session", "s", "", "print the records of this session")
	historyCmd.Flags().IntP("limit", "n", 20, "maximum sessions or records to show (0 for all)")
}

func listSessions(cmd *cobra.Command, store history.Store, limit int, w io.Writer) error {
	sessions, err := store.ListSessions(cmd.Context(), limit)
	if err != nil {
		return err
	}
	if len(sessions) == 0 {
		fmt.Fprintln(w, "No recorded sessions")
		return nil
	}
	for _, s := range sessions {
		port := s.Port
		if port == "" {
			port = "-"
		}
		fmt.Fprintf(w, "%s  %s  %-10s %-16s %d records\n",
			s.ID, s.StartedAt.Local().Format("2006-01-02 15:04:05"), s.Driver, port, s.Records)
	}
	return nil
}

func showSession(cmd *cobra.Command, store history.Store, id string, limit int, w io.Writer) error {
	s, err := store.GetSession(cmd.Context(), id)
	if err != nil {
		return err
	}
	records, err := store.Records(cmd.Context(), id, limit)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "Session %s (%s, %s) started %s\n\n",
		s.ID, s.Driver, s.Port, s.StartedAt.Local().Format("2006-01-02 15:04:05"))
	printRecords(w, records)
	return nil
}
