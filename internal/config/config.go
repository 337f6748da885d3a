package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dshills/termwindow/internal/terminal"
	"github.com/dshills/termwindow/internal/window"
)

// Config holds all termwindow settings.
type Config struct {
	Terminal TerminalConfig `toml:"terminal"`
	Window   WindowConfig   `toml:"window"`
	Watch    WatchConfig    `toml:"watch"`
	Logging  LoggingConfig  `toml:"logging"`
}

// TerminalConfig configures headless sessions and spawned commands.
type TerminalConfig struct {
	// Shell runs when watch is given no command. Empty means $SHELL.
	Shell      string `toml:"shell"`
	Cols       int    `toml:"cols"`
	Rows       int    `toml:"rows"`
	Scrollback int    `toml:"scrollback"`
	MaxMarkers int    `toml:"max_markers"`
}

// WindowConfig configures window reads.
type WindowConfig struct {
	Mode             string `toml:"mode"`
	MaxLines         int    `toml:"max_lines"`
	MergeWrapped     bool   `toml:"merge_wrapped"`
	CleanupThreshold int    `toml:"cleanup_threshold"`
}

// WatchConfig configures the watch command.
type WatchConfig struct {
	Interval Duration `toml:"interval"`
	Format   string   `toml:"format"`
}

// LoggingConfig configures the logger.
type LoggingConfig struct {
	// Level is one of trace, debug, info, warn, error.
	Level string `toml:"level"`
	// Format is console, json or auto (console on a terminal, json otherwise).
	Format string `toml:"format"`
}

// Duration is a time.Duration written as a string such as "250ms".
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		Terminal: TerminalConfig{
			Cols:       80,
			Rows:       24,
			Scrollback: terminal.DefaultScrollback,
			MaxMarkers: terminal.DefaultMaxMarkers,
		},
		Window: WindowConfig{
			Mode:             string(window.ModeTail),
			MaxLines:         window.DefaultMaxLines,
			MergeWrapped:     true,
			CleanupThreshold: window.DefaultCleanupThreshold,
		},
		Watch: WatchConfig{
			Interval: Duration{500 * time.Millisecond},
			Format:   "json",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "auto",
		},
	}
}

var (
	logLevels   = []string{"trace", "debug", "info", "warn", "error"}
	logFormats  = []string{"auto", "console", "json"}
	wireFormats = []string{"json", "cbor"}
)

// Validate reports every unusable setting.
func (c *Config) Validate() error {
	var errs []error
	positive := func(setting string, v int) {
		if v <= 0 {
			errs = append(errs, invalid(setting, "must be positive, got %d", v))
		}
	}
	oneOf := func(setting, v string, allowed []string) {
		for _, a := range allowed {
			if v == a {
				return
			}
		}
		errs = append(errs, invalid(setting, "must be one of %s, got %q", strings.Join(allowed, "|"), v))
	}

	positive("terminal.cols", c.Terminal.Cols)
	positive("terminal.rows", c.Terminal.Rows)
	positive("terminal.scrollback", c.Terminal.Scrollback)
	positive("terminal.max_markers", c.Terminal.MaxMarkers)

	if _, ok := window.ParseMode(c.Window.Mode); !ok {
		errs = append(errs, invalid("window.mode", "must be one of tail|viewport|delta, got %q", c.Window.Mode))
	}
	positive("window.max_lines", c.Window.MaxLines)
	positive("window.cleanup_threshold", c.Window.CleanupThreshold)

	if c.Watch.Interval.Duration <= 0 {
		errs = append(errs, invalid("watch.interval", "must be positive, got %s", c.Watch.Interval))
	}
	oneOf("watch.format", c.Watch.Format, wireFormats)

	oneOf("logging.level", strings.ToLower(c.Logging.Level), logLevels)
	oneOf("logging.format", c.Logging.Format, logFormats)

	return errors.Join(errs...)
}

// Mode returns the configured read mode, Tail if unset or unknown.
func (c *Config) Mode() window.Mode {
	mode, _ := window.ParseMode(c.Window.Mode)
	return mode
}

// ReadOptions returns the per-read options implied by the window settings.
func (c *Config) ReadOptions() []window.Option {
	return []window.Option{
		window.WithMaxLines(c.Window.MaxLines),
		window.WithMergeWrapped(c.Window.MergeWrapped),
	}
}

// SessionOptions returns headless session options for the terminal and
// window settings.
func (c *Config) SessionOptions() terminal.SessionOptions {
	return terminal.SessionOptions{
		Cols:             c.Terminal.Cols,
		Rows:             c.Terminal.Rows,
		Scrollback:       c.Terminal.Scrollback,
		MaxMarkers:       c.Terminal.MaxMarkers,
		MaxLines:         c.Window.MaxLines,
		CleanupThreshold: c.Window.CleanupThreshold,
	}
}

// TerminalOptions returns PTY terminal options running the configured
// shell, or command when given.
func (c *Config) TerminalOptions(command []string) terminal.Options {
	opts := terminal.Options{
		Shell:            c.Terminal.Shell,
		Cols:             c.Terminal.Cols,
		Rows:             c.Terminal.Rows,
		Scrollback:       c.Terminal.Scrollback,
		MaxMarkers:       c.Terminal.MaxMarkers,
		MaxLines:         c.Window.MaxLines,
		CleanupThreshold: c.Window.CleanupThreshold,
	}
	if len(command) > 0 {
		opts.Shell = command[0]
		opts.Args = command[1:]
		opts.Name = command[0]
	}
	return opts
}

func (c *Config) String() string {
	return fmt.Sprintf("terminal=%dx%d scrollback=%d mode=%s max_lines=%d", c.Terminal.Cols, c.Terminal.Rows,
		c.Terminal.Scrollback, c.Window.Mode, c.Window.MaxLines)
}
