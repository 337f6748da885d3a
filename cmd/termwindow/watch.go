package main

import (
	"context"
	"slices"
	"time"

	"github.com/spf13/cobra"
	"pkt.systems/pslog"

	"github.com/dshills/termwindow/internal/logx"
	"github.com/dshills/termwindow/internal/terminal"
	"github.com/dshills/termwindow/internal/window"
	"github.com/dshills/termwindow/internal/wire"
)

const shutdownTimeout = 5 * time.Second

type watchFlags struct {
	cols     int
	rows     int
	interval time.Duration
	format   string
}

func newWatchCmd(root *rootOptions) *cobra.Command {
	var flags watchFlags
	cmd := &cobra.Command{
		Use:   "watch [-- command [args...]]",
		Short: "Run a command on a PTY and stream its new output",
		Long: `Watch runs a command (or the configured shell) on a pseudo-terminal and
polls it, printing every non-empty snapshot. The first poll prints the tail
of the screen; later polls print the rows written below it. It stops when
the command exits or on SIGINT/SIGTERM.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := root.cfg
			if cmd.Flags().Changed("cols") {
				cfg.Terminal.Cols = flags.cols
			}
			if cmd.Flags().Changed("rows") {
				cfg.Terminal.Rows = flags.rows
			}
			if cmd.Flags().Changed("interval") {
				cfg.Watch.Interval.Duration = flags.interval
			}
			if cmd.Flags().Changed("format") {
				cfg.Watch.Format = flags.format
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			enc, err := wire.NewEncoder(cfg.Watch.Format, cmd.OutOrStdout())
			if err != nil {
				return err
			}

			logger := logx.Ctx(cmd.Context())
			mgr := terminal.NewManager(terminal.ManagerConfig{
				DefaultShell:     cfg.Terminal.Shell,
				DefaultCols:      cfg.Terminal.Cols,
				DefaultRows:      cfg.Terminal.Rows,
				Scrollback:       cfg.Terminal.Scrollback,
				MaxLines:         cfg.Window.MaxLines,
				CleanupThreshold: cfg.Window.CleanupThreshold,
				Logger:           logger,
			})
			defer mgr.Shutdown(shutdownTimeout)

			term, err := mgr.Create(cfg.TerminalOptions(args))
			if err != nil {
				return err
			}
			w := newWatcher(term, enc, cfg.ReadOptions(), logx.WithTerminal(logger, term.ID()))
			err = w.run(cmd.Context(), term.Done(), cfg.Watch.Interval.Duration)
			if !term.IsRunning() {
				w.log.Info("command exited", "exit_code", term.ExitCode())
			}
			return err
		},
	}
	cmd.Flags().IntVar(&flags.cols, "cols", 0, "terminal width")
	cmd.Flags().IntVar(&flags.rows, "rows", 0, "terminal height")
	cmd.Flags().DurationVarP(&flags.interval, "interval", "i", 0, "poll interval")
	cmd.Flags().StringVarP(&flags.format, "format", "f", "", "output format: json or cbor")
	return cmd
}

// bufferReader is the read side of a session or PTY terminal.
type bufferReader interface {
	ReadBuffer(mode window.Mode, opts ...window.Option) window.Snapshot
}

// watcher polls a buffer with delta reads and encodes the new output.
type watcher struct {
	src  bufferReader
	enc  wire.Encoder
	opts []window.Option
	log  pslog.Logger

	primed        bool
	marker        *int
	lastAlternate string
}

func newWatcher(src bufferReader, enc wire.Encoder, opts []window.Option, log pslog.Logger) *watcher {
	return &watcher{src: src, enc: enc, opts: opts, log: log}
}

// run polls every interval until ctx is done or done is closed, then polls
// once more so the last output is not lost.
func (w *watcher) run(ctx context.Context, done <-chan struct{}, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return w.poll()
		case <-done:
			return w.poll()
		case <-ticker.C:
			if err := w.poll(); err != nil {
				return err
			}
		}
	}
}

// poll performs one delta read. The first poll emits a tail read before it
// registers the marker. A disposed marker is dropped so the next poll
// registers a fresh one; the tail returned in its place is emitted.
// Alternate buffer reads are emitted only when the screen changed.
func (w *watcher) poll() error {
	if !w.primed {
		w.primed = true
		if err := w.emit(w.src.ReadBuffer(window.ModeTail, w.opts...)); err != nil {
			return err
		}
	}

	opts := append(slices.Clip(w.opts), window.WithMarkerID(w.marker))
	snap := w.src.ReadBuffer(window.ModeDelta, opts...)

	switch {
	case snap.MarkerDisposed != nil && *snap.MarkerDisposed:
		logx.WithMarker(w.log, snap.MarkerID).Info("marker disposed, re-registering")
		w.marker = nil
	case snap.MarkerID != nil:
		w.marker = snap.MarkerID
	}
	return w.emit(snap)
}

func (w *watcher) emit(snap window.Snapshot) error {
	if snap.BufferType == window.BufferAlternate {
		if snap.Text == w.lastAlternate {
			return nil
		}
		w.lastAlternate = snap.Text
	} else {
		w.lastAlternate = ""
	}

	if snap.Empty() {
		return nil
	}
	w.log.Trace("new output", "buffer", string(snap.BufferType), "lines", len(snap.Lines))
	return w.enc.Encode(snap)
}
