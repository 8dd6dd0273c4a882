/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/allbin/serialterm/internal/config"
	"github.com/allbin/serialterm/internal/drivers"
	"github.com/allbin/serialterm/internal/history"
	"github.com/allbin/serialterm/internal/session"
	"github.com/allbin/serialterm/internal/transport/native"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Version is set at build time
var Version = "dev"

// quietConsole marks commands that own the terminal; they only log to a file
const quietConsole = "quiet-console"

var (
	cfgFile string
	v       = viper.New()
	cfg     config.Config
	logFile io.Closer
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "serialterm",
	Short: "Serial terminal for USB-serial and native ports",
	Long: `A serial terminal session engine with several front ends.

Every front end drives the same session: connect to a port at 115200 8N1,
send newline-terminated commands and watch a timestamped transcript of
everything sent, received and reported by the session.

  serialterm list --table          enumerate ports
  serialterm connect /dev/ttyUSB0  interactive terminal
  serialterm send AT /dev/ttyUSB0  one-shot command
  serialterm serve                 HTTP API with live events
  serialterm mcp                   MCP tools over stdio`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return initConfig(cmd)
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logFile != nil {
			_ = logFile.Close()
		}
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default $XDG_CONFIG_HOME/serialterm/config.yaml)")
	rootCmd.PersistentFlags().String("driver", "", "transport driver: native or accessory (default: platform driver)")
	rootCmd.PersistentFlags().String("log-level", "", "log level: trace, debug, info, warn, error")
	rootCmd.PersistentFlags().String("log-file", "", "write logs to this file instead of stderr")
	rootCmd.PersistentFlags().Bool("history", false, "persist the transcript to the history database")
	rootCmd.PersistentFlags().String("dtr", "", "native driver: set DTR on open (on|off, default: leave as is)")
	rootCmd.PersistentFlags().String("rts", "", "native driver: set RTS on open (on|off, default: leave as is)")

	_ = v.BindPFlag("driver", rootCmd.PersistentFlags().Lookup("driver"))
	_ = v.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level"))
	_ = v.BindPFlag("log.file", rootCmd.PersistentFlags().Lookup("log-file"))
	_ = v.BindPFlag("history.enabled", rootCmd.PersistentFlags().Lookup("history"))
}

// initConfig reads in config file and ENV variables if set, then configures
// logging from the result.
func initConfig(cmd *cobra.Command) error {
	config.Setup(v, cfgFile)

	loaded, err := config.Load(v)
	if err != nil {
		return err
	}
	cfg = loaded

	quiet := cmd.Annotations[quietConsole] == "true"
	if err := setupLogging(cfg.Log, quiet); err != nil {
		return err
	}

	if used := v.ConfigFileUsed(); used != "" {
		log.Debug().Str("file", used).Msg("Using config file")
	}
	return nil
}

// setupLogging configures the global zerolog logger. Logs go to the
// configured file, or to stderr unless the command owns the terminal.
func setupLogging(lc config.LogConfig, quiet bool) error {
	level := zerolog.InfoLevel
	if lc.Level != "" {
		parsed, err := zerolog.ParseLevel(strings.ToLower(lc.Level))
		if err != nil {
			return fmt.Errorf("invalid log level %q: %w", lc.Level, err)
		}
		level = parsed
	}
	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	switch {
	case lc.File != "":
		f, err := os.OpenFile(lc.File, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
		if err != nil {
			return fmt.Errorf("failed to open log file: %w", err)
		}
		logFile = f
		log.Logger = zerolog.New(f).With().Timestamp().Logger()
	case quiet:
		log.Logger = zerolog.Nop()
	default:
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
	return nil
}

// parseLine reads an on/off modem line flag. An empty value leaves the
// line untouched.
func parseLine(name, value string) (*bool, error) {
	switch strings.ToLower(value) {
	case "":
		return nil, nil
	case "on", "1", "true", "high":
		on := true
		return &on, nil
	case "off", "0", "false", "low":
		off := false
		return &off, nil
	default:
		return nil, fmt.Errorf("invalid %s state %q (expected on or off)", name, value)
	}
}

// nativeOptions translates the modem line flags into native driver options
func nativeOptions(cmd *cobra.Command) ([]native.Option, error) {
	var opts []native.Option
	dtrFlag, _ := cmd.Flags().GetString("dtr")
	rtsFlag, _ := cmd.Flags().GetString("rts")

	dtr, err := parseLine("DTR", dtrFlag)
	if err != nil {
		return nil, err
	}
	if dtr != nil {
		opts = append(opts, native.WithInitialDTR(*dtr))
	}

	rts, err := parseLine("RTS", rtsFlag)
	if err != nil {
		return nil, err
	}
	if rts != nil {
		opts = append(opts, native.WithInitialRTS(*rts))
	}
	return opts, nil
}

// newSession builds the configured driver and a session that owns it
func newSession(cmd *cobra.Command) (*session.Session, error) {
	nativeOpts, err := nativeOptions(cmd)
	if err != nil {
		return nil, err
	}

	driver, err := drivers.New(cfg.Driver, drivers.Options{
		GrantCommand: cfg.Accessory.GrantCommand,
		GrantTimeout: cfg.Accessory.GrantTimeout,
		Native:       nativeOpts,
	})
	if err != nil {
		return nil, err
	}

	opts := []session.Option{session.WithIdleDelay(cfg.IdleDelay)}
	if cfg.ReadTimeout > 0 {
		opts = append(opts, session.WithReadTimeout(cfg.ReadTimeout))
	}
	if cfg.WriteTimeout > 0 {
		opts = append(opts, session.WithWriteTimeout(cfg.WriteTimeout))
	}

	sess, err := session.New(driver, opts...)
	if err != nil {
		return nil, err
	}
	log.Debug().Str("driver", driver.Name()).Msg("Session created")
	return sess, nil
}

// startHistory records the session transcript when history is enabled. The
// returned stop function flushes the recorder and closes the database.
// History failures are logged and never stop the session.
func startHistory(ctx context.Context, sess *session.Session, port string) (stop func()) {
	if !cfg.History.Enabled {
		return func() {}
	}

	db, err := history.Open(ctx, cfg.History.Path)
	if err != nil {
		log.Warn().Err(err).Str("path", cfg.History.Path).Msg("History disabled")
		return func() {}
	}

	rec, err := history.NewRecorder(ctx, db, sess.Transcript(), sess.DriverName(), port)
	if err != nil {
		log.Warn().Err(err).Msg("History disabled")
		_ = db.Close()
		return func() {}
	}
	log.Info().Str("session", rec.SessionID()).Str("path", db.Path()).Msg("Recording history")

	runCtx, cancel := context.WithCancel(ctx)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := rec.Run(runCtx); err != nil {
			log.Error().Err(err).Str("session", rec.SessionID()).Msg("History recorder stopped")
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			cancel()
			wg.Wait()
			if err := db.Close(); err != nil {
				log.Error().Err(err).Msg("Failed to close history database")
			}
		})
	}
}
