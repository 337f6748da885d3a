package logx

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pkt.systems/pslog"

	"github.com/dshills/termwindow/internal/config"
	"github.com/dshills/termwindow/internal/window"
)

type logCapture struct {
	buf bytes.Buffer
}

func (c *logCapture) Write(p []byte) (int, error) {
	return c.buf.Write(p)
}

func (c *logCapture) firstEntry(t *testing.T) map[string]any {
	t.Helper()
	data := c.buf.Bytes()
	idx := bytes.IndexByte(data, '\n')
	if idx == -1 {
		idx = len(data)
	}
	line := bytes.TrimSpace(data[:idx])
	entry := map[string]any{}
	require.NoError(t, json.Unmarshal(line, &entry), "parse log entry")
	return entry
}

func newCapture() (*logCapture, pslog.Logger) {
	capture := &logCapture{}
	logger := pslog.NewWithOptions(capture, pslog.Options{
		Mode:          pslog.ModeStructured,
		NoColor:       true,
		MinLevel:      pslog.InfoLevel,
		VerboseFields: true,
	})
	return capture, logger
}

func Test_Level(t *testing.T) {
	tests := []struct {
		name string
		want pslog.Level
	}{
		{name: "trace", want: pslog.TraceLevel},
		{name: "DEBUG", want: pslog.DebugLevel},
		{name: "warn", want: pslog.WarnLevel},
		{name: "error", want: pslog.ErrorLevel},
		{name: "info", want: pslog.InfoLevel},
		{name: "bogus", want: pslog.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Level(tt.name))
		})
	}
}

func Test_New_NonTerminalAutoWritesJSON(t *testing.T) {
	capture := &logCapture{}
	log := New(capture, config.LoggingConfig{Level: "info", Format: "auto"})
	log.Info("hello", "rows", 3)

	entry := capture.firstEntry(t)
	assert.Equal(t, float64(3), entry["rows"])
}

func Test_New_FiltersBelowLevel(t *testing.T) {
	capture := &logCapture{}
	log := New(capture, config.LoggingConfig{Level: "error", Format: "json"})
	log.Info("quiet")

	assert.Zero(t, capture.buf.Len())
}

func Test_WithTerminal(t *testing.T) {
	capture, logger := newCapture()
	WithTerminal(logger, "abc").Info("hello")

	assert.Equal(t, "abc", capture.firstEntry(t)["terminal"])
}

func Test_WithTerminal_EmptyID(t *testing.T) {
	capture, logger := newCapture()
	WithTerminal(logger, "").Info("hello")

	_, ok := capture.firstEntry(t)["terminal"]
	assert.False(t, ok)
}

func Test_WithMarker(t *testing.T) {
	capture, logger := newCapture()
	id := 7
	WithMarker(logger, &id).Info("hello")

	assert.Equal(t, float64(7), capture.firstEntry(t)["marker"])
}

func Test_WithRead(t *testing.T) {
	capture, logger := newCapture()
	id := 4
	snap := window.Snapshot{BufferType: window.BufferNormal, MarkerID: &id}
	WithRead(logger, window.ModeDelta, snap).Info("read")

	entry := capture.firstEntry(t)
	assert.Equal(t, "delta", entry["mode"])
	assert.Equal(t, "normal", entry["buffer"])
	assert.Equal(t, float64(4), entry["marker"])
}
