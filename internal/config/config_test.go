package config

import (
	"io/fs"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/termwindow/internal/window"
)

type memFS map[string]string

func (m memFS) ReadFile(path string) ([]byte, error) {
	data, ok := m[path]
	if !ok {
		return nil, fs.ErrNotExist
	}
	return []byte(data), nil
}

func Test_Default_Validates(t *testing.T) {
	cfg := Default()

	require.NoError(t, cfg.Validate())
	assert.Equal(t, window.ModeTail, cfg.Mode())
	assert.Equal(t, 500*time.Millisecond, cfg.Watch.Interval.Duration)
	assert.True(t, cfg.Window.MergeWrapped)
}

func Test_LoadWithFS_MissingFileKeepsDefaults(t *testing.T) {
	cfg, err := LoadWithFS(memFS{}, "/etc/termwindow.toml")

	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func Test_LoadWithFS_File(t *testing.T) {
	files := memFS{"cfg.toml": `
[terminal]
shell = "/bin/zsh"
cols = 120
rows = 40

[window]
mode = "delta"
max_lines = 80
merge_wrapped = false

[watch]
interval = "250ms"
format = "cbor"

[logging]
level = "debug"
format = "json"
`}

	cfg, err := LoadWithFS(files, "cfg.toml")
	require.NoError(t, err)

	assert.Equal(t, "/bin/zsh", cfg.Terminal.Shell)
	assert.Equal(t, 120, cfg.Terminal.Cols)
	assert.Equal(t, 40, cfg.Terminal.Rows)
	assert.Equal(t, Default().Terminal.Scrollback, cfg.Terminal.Scrollback, "unset keys keep defaults")
	assert.Equal(t, window.ModeDelta, cfg.Mode())
	assert.Equal(t, 80, cfg.Window.MaxLines)
	assert.False(t, cfg.Window.MergeWrapped)
	assert.Equal(t, 250*time.Millisecond, cfg.Watch.Interval.Duration)
	assert.Equal(t, "cbor", cfg.Watch.Format)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
}

func Test_LoadWithFS_ParseErrors(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{name: "malformed table", data: "[window\nmax_lines = 3\n"},
		{name: "unknown key", data: "[window]\nmaxlines = 3\n"},
		{name: "wrong type", data: "[terminal]\ncols = \"wide\"\n"},
		{name: "bad duration", data: "[watch]\ninterval = \"soon\"\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadWithFS(memFS{"cfg.toml": tt.data}, "cfg.toml")

			var perr *ParseError
			require.ErrorAs(t, err, &perr)
			assert.Equal(t, "cfg.toml", perr.Path)
			assert.Contains(t, err.Error(), "cfg.toml")
		})
	}
}

func Test_LoadWithFS_ParseErrorPosition(t *testing.T) {
	_, err := LoadWithFS(memFS{"cfg.toml": "[window]\nmax_lines = = 3\n"}, "cfg.toml")

	var perr *ParseError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, 2, perr.Line)
}

func Test_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		setting string
	}{
		{name: "cols", mutate: func(c *Config) { c.Terminal.Cols = 0 }, setting: "terminal.cols"},
		{name: "rows", mutate: func(c *Config) { c.Terminal.Rows = -1 }, setting: "terminal.rows"},
		{name: "scrollback", mutate: func(c *Config) { c.Terminal.Scrollback = 0 }, setting: "terminal.scrollback"},
		{name: "mode", mutate: func(c *Config) { c.Window.Mode = "sideways" }, setting: "window.mode"},
		{name: "max lines", mutate: func(c *Config) { c.Window.MaxLines = 0 }, setting: "window.max_lines"},
		{name: "threshold", mutate: func(c *Config) { c.Window.CleanupThreshold = 0 }, setting: "window.cleanup_threshold"},
		{name: "interval", mutate: func(c *Config) { c.Watch.Interval = Duration{} }, setting: "watch.interval"},
		{name: "watch format", mutate: func(c *Config) { c.Watch.Format = "xml" }, setting: "watch.format"},
		{name: "level", mutate: func(c *Config) { c.Logging.Level = "loud" }, setting: "logging.level"},
		{name: "log format", mutate: func(c *Config) { c.Logging.Format = "yaml" }, setting: "logging.format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)

			err := cfg.Validate()
			require.ErrorIs(t, err, ErrInvalidConfig)
			assert.Contains(t, err.Error(), tt.setting)
		})
	}
}

func Test_Validate_ReportsEveryProblem(t *testing.T) {
	cfg := Default()
	cfg.Terminal.Cols = 0
	cfg.Window.Mode = "nope"

	err := cfg.Validate()
	require.ErrorIs(t, err, ErrInvalidConfig)
	assert.Contains(t, err.Error(), "terminal.cols")
	assert.Contains(t, err.Error(), "window.mode")
}

func Test_Validate_LevelIsCaseInsensitive(t *testing.T) {
	cfg := Default()
	cfg.Logging.Level = "DEBUG"

	assert.NoError(t, cfg.Validate())
}

func Test_LoadWithFS_EnvOverridesFile(t *testing.T) {
	t.Setenv("TERMWINDOW_WINDOW_MAX_LINES", "12")
	t.Setenv("TERMWINDOW_WINDOW_MERGE_WRAPPED", "false")
	t.Setenv("TERMWINDOW_WATCH_INTERVAL", "2s")
	t.Setenv("TERMWINDOW_LOG_LEVEL", "trace")
	t.Setenv("TERMWINDOW_UNRELATED", "ignored")

	cfg, err := LoadWithFS(memFS{"cfg.toml": "[window]\nmax_lines = 80\n"}, "cfg.toml")
	require.NoError(t, err)

	assert.Equal(t, 12, cfg.Window.MaxLines)
	assert.False(t, cfg.Window.MergeWrapped)
	assert.Equal(t, 2*time.Second, cfg.Watch.Interval.Duration)
	assert.Equal(t, "trace", cfg.Logging.Level)
}

func Test_LoadWithFS_InvalidEnv(t *testing.T) {
	t.Setenv("TERMWINDOW_TERMINAL_COLS", "-5")

	_, err := LoadWithFS(memFS{}, "")
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func Test_LoadWithFS_MistypedEnv(t *testing.T) {
	t.Setenv("TERMWINDOW_TERMINAL_COLS", "wide")

	_, err := LoadWithFS(memFS{}, "")
	var perr *ParseError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "environment", perr.Path)
}

func Test_envToPath(t *testing.T) {
	tests := []struct {
		env  string
		want string
	}{
		{env: "TERMWINDOW_WINDOW_MAX_LINES", want: "window.max_lines"},
		{env: "TERMWINDOW_TERMINAL_COLS", want: "terminal.cols"},
		{env: "TERMWINDOW_WATCH", want: "watch."},
	}

	for _, tt := range tests {
		t.Run(tt.env, func(t *testing.T) {
			assert.Equal(t, tt.want, envToPath(tt.env))
		})
	}
}

func Test_parseValue(t *testing.T) {
	assert.Equal(t, true, parseValue("on"))
	assert.Equal(t, false, parseValue("False"))
	assert.Equal(t, int64(42), parseValue("42"))
	assert.Equal(t, "250ms", parseValue("250ms"))
	assert.Equal(t, "/bin/zsh", parseValue("/bin/zsh"))
}

func Test_SessionAndTerminalOptions(t *testing.T) {
	cfg := Default()
	cfg.Terminal.Shell = "/bin/bash"
	cfg.Window.MaxLines = 7

	session := cfg.SessionOptions()
	assert.Equal(t, 80, session.Cols)
	assert.Equal(t, 24, session.Rows)
	assert.Equal(t, 7, session.MaxLines)
	assert.Equal(t, cfg.Window.CleanupThreshold, session.CleanupThreshold)

	shell := cfg.TerminalOptions(nil)
	assert.Equal(t, "/bin/bash", shell.Shell)
	assert.Empty(t, shell.Args)

	cmd := cfg.TerminalOptions([]string{"make", "test"})
	assert.Equal(t, "make", cmd.Shell)
	assert.Equal(t, []string{"test"}, cmd.Args)
	assert.Equal(t, "make", cmd.Name)

	assert.Len(t, cfg.ReadOptions(), 2)
}
