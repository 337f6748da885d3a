// Package logx builds loggers from configuration and annotates them with
// terminal and window fields.
package logx

import (
	"context"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
	"pkt.systems/pslog"

	"github.com/dshills/termwindow/internal/config"
	"github.com/dshills/termwindow/internal/window"
)

// New returns a logger writing to w at the configured level. The auto
// format writes console output to a terminal and JSON otherwise.
func New(w io.Writer, cfg config.LoggingConfig) pslog.Logger {
	mode := pslog.ModeConsole
	switch cfg.Format {
	case "json":
		mode = pslog.ModeStructured
	case "auto", "":
		if !isTerminal(w) {
			mode = pslog.ModeStructured
		}
	}
	return pslog.NewWithOptions(w, pslog.Options{
		Mode:     mode,
		NoColor:  !isTerminal(w),
		MinLevel: Level(cfg.Level),
	})
}

// Level maps a level name to a pslog level. Unknown names map to info.
func Level(name string) pslog.Level {
	switch strings.ToLower(name) {
	case "trace":
		return pslog.TraceLevel
	case "debug":
		return pslog.DebugLevel
	case "warn", "warning":
		return pslog.WarnLevel
	case "error":
		return pslog.ErrorLevel
	default:
		return pslog.InfoLevel
	}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// Ctx returns the logger bound to the provided context.
func Ctx(ctx context.Context) pslog.Logger {
	return pslog.Ctx(ctx)
}

// WithTerminal annotates the logger with a terminal id when available.
func WithTerminal(log pslog.Logger, id string) pslog.Logger {
	if id != "" {
		log = log.With("terminal", id)
	}
	return log
}

// WithMarker annotates the logger with a marker id when available.
func WithMarker(log pslog.Logger, id *int) pslog.Logger {
	if id != nil {
		log = log.With("marker", *id)
	}
	return log
}

// WithRead annotates the logger with the mode and buffer of a snapshot.
func WithRead(log pslog.Logger, mode window.Mode, snap window.Snapshot) pslog.Logger {
	log = log.With("mode", mode.String(), "buffer", string(snap.BufferType))
	return WithMarker(log, snap.MarkerID)
}
