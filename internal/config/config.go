// Package config loads application settings through viper. Values come from
// defaults, the config file, SERIALTERM_* environment variables and bound
// command-line flags, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix is the prefix for environment overrides, e.g. SERIALTERM_DRIVER
const EnvPrefix = "SERIALTERM"

// AppName names the config directory and default files
const AppName = "serialterm"

// Config is the full application configuration
type Config struct {
	Driver       string          `mapstructure:"driver"`
	ReadTimeout  time.Duration   `mapstructure:"read_timeout"`
	WriteTimeout time.Duration   `mapstructure:"write_timeout"`
	IdleDelay    time.Duration   `mapstructure:"idle_delay"`
	Log          LogConfig       `mapstructure:"log"`
	History      HistoryConfig   `mapstructure:"history"`
	Serve        ServeConfig     `mapstructure:"serve"`
	Accessory    AccessoryConfig `mapstructure:"accessory"`
	TUI          TUIConfig       `mapstructure:"tui"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
	File  string `mapstructure:"file"`
}

type HistoryConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

type ServeConfig struct {
	Addr string `mapstructure:"addr"`
}

// AccessoryConfig controls how device permission is requested
type AccessoryConfig struct {
	GrantCommand string        `mapstructure:"grant_command"`
	GrantTimeout time.Duration `mapstructure:"grant_timeout"`
}

// TUIConfig holds terminal UI preferences
type TUIConfig struct {
	Theme string `mapstructure:"theme"`
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() Config {
	return Config{
		ReadTimeout:  200 * time.Millisecond,
		WriteTimeout: 500 * time.Millisecond,
		IdleDelay:    50 * time.Millisecond,
		Log: LogConfig{
			Level: "info",
		},
		Serve: ServeConfig{
			Addr: "127.0.0.1:8080",
		},
		Accessory: AccessoryConfig{
			GrantTimeout: 2 * time.Minute,
		},
		TUI: TUIConfig{
			Theme: "mocha",
		},
	}
}

// Known driver names accepted in the "driver" key
var knownDrivers = map[string]bool{"": true, "native": true, "accessory": true}

// Sentinel validation errors
var (
	ErrUnknownDriver    = errors.New("unknown driver")
	ErrNegativeDuration = errors.New("duration must not be negative")
	ErrInvalidLogLevel  = errors.New("invalid log level")
	ErrUnknownTheme     = errors.New("unknown theme")
)

var themes = map[string]bool{"mocha": true, "latte": true}

var logLevels = map[string]bool{
	"trace": true, "debug": true, "info": true, "warn": true,
	"error": true, "fatal": true, "panic": true, "disabled": true,
}

// SetDefaults registers every key's default on v so that env lookups and
// Unmarshal see the full key set.
func SetDefaults(v *viper.Viper) {
	d := DefaultConfig()
	v.SetDefault("driver", d.Driver)
	v.SetDefault("read_timeout", d.ReadTimeout)
	v.SetDefault("write_timeout", d.WriteTimeout)
	v.SetDefault("idle_delay", d.IdleDelay)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.file", d.Log.File)
	v.SetDefault("history.enabled", d.History.Enabled)
	v.SetDefault("history.path", d.History.Path)
	v.SetDefault("serve.addr", d.Serve.Addr)
	v.SetDefault("accessory.grant_command", d.Accessory.GrantCommand)
	v.SetDefault("accessory.grant_timeout", d.Accessory.GrantTimeout)
	v.SetDefault("tui.theme", d.TUI.Theme)
}

// Setup prepares v for loading: defaults, env overrides and the config
// file location. An empty file means the default location.
func Setup(v *viper.Viper, file string) {
	SetDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if file != "" {
		v.SetConfigFile(file)
		return
	}
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	if dir, err := Dir(); err == nil {
		v.AddConfigPath(dir)
	}
}

// Load reads the config file if one exists and decodes v into a Config.
// A missing default config file is not an error.
func Load(v *viper.Viper) (Config, error) {
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	if cfg.History.Path == "" {
		if dir, err := Dir(); err == nil {
			cfg.History.Path = filepath.Join(dir, "history.db")
		}
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the configuration for values the program cannot honour
func (c Config) Validate() error {
	if !knownDrivers[c.Driver] {
		return fmt.Errorf("%w: %q (expected native or accessory)", ErrUnknownDriver, c.Driver)
	}

	durations := []struct {
		key string
		val time.Duration
	}{
		{"read_timeout", c.ReadTimeout},
		{"write_timeout", c.WriteTimeout},
		{"idle_delay", c.IdleDelay},
		{"accessory.grant_timeout", c.Accessory.GrantTimeout},
	}
	for _, d := range durations {
		if d.val < 0 {
			return fmt.Errorf("%w: %s=%v", ErrNegativeDuration, d.key, d.val)
		}
	}

	if !logLevels[strings.ToLower(c.Log.Level)] {
		return fmt.Errorf("%w: %q", ErrInvalidLogLevel, c.Log.Level)
	}
	if !themes[strings.ToLower(c.TUI.Theme)] {
		return fmt.Errorf("%w: %q (expected mocha or latte)", ErrUnknownTheme, c.TUI.Theme)
	}
	return nil
}

// Dir returns the per-user configuration directory for the application
func Dir() (string, error) {
	var baseDir string

	switch runtime.GOOS {
	case "linux":
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			baseDir = xdg
		} else {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", err
			}
			baseDir = filepath.Join(home, ".config")
		}
	default:
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		baseDir = filepath.Join(home, ".config")
	}

	return filepath.Join(baseDir, AppName), nil
}
