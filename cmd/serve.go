/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/allbin/serialterm/internal/api"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the session over HTTP with live transcript events",
	Long: `Run an HTTP server that exposes one serial session.

Endpoints:
  GET  /health
  GET  /api/v1/ports
  GET  /api/v1/state
  POST /api/v1/connect     {"port": "/dev/ttyUSB0"}
  POST /api/v1/disconnect
  POST /api/v1/send        {"command": "AT"}
  GET  /api/v1/transcript?since=N
  GET  /api/v1/events      server-sent transcript events

Example usage:
  serialterm serve
  serialterm serve --addr 0.0.0.0:9000 --history`,
	RunE: func(cmd *cobra.Command, args []string) error {
		sess, err := newSession(cmd)
		if err != nil {
			return err
		}
		defer sess.Close()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		stopHistory := startHistory(ctx, sess, "")
		defer stopHistory()

		router := api.NewRouter(sess)
		log.Info().Str("addr", cfg.Serve.Addr).Str("driver", sess.DriverName()).Msg("Starting API server")
		if err := router.Serve(ctx, cfg.Serve.Addr); err != nil {
			return err
		}

		log.Info().Msg("Shutting down...")
		sess.Disconnect()
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("addr", "", "listen address (default 127.0.0.1:8080)")
	_ = v.BindPFlag("serve.addr", serveCmd.Flags().Lookup("addr"))
}
