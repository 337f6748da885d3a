package main

import (
	"fmt"
	"io"
	"os"
	"slices"

	"github.com/spf13/cobra"
	"pkt.systems/pslog"

	"github.com/dshills/termwindow/internal/logx"
	"github.com/dshills/termwindow/internal/terminal"
	"github.com/dshills/termwindow/internal/window"
	"github.com/dshills/termwindow/internal/wire"
)

type readFlags struct {
	cols     int
	rows     int
	modes    []string
	maxLines int
	noMerge  bool
	format   string
	markAt   int
}

func newReadCmd(root *rootOptions) *cobra.Command {
	var flags readFlags
	cmd := &cobra.Command{
		Use:   "read [file]",
		Short: "Replay captured terminal output and print windows of it",
		Long: `Read feeds a captured byte stream (a file, or stdin when no file is given)
into a headless terminal and prints one snapshot per --mode.

A delta read reports the rows written below the cursor row reached after
--mark-at bytes of the stream.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := root.cfg
			if cmd.Flags().Changed("cols") {
				cfg.Terminal.Cols = flags.cols
			}
			if cmd.Flags().Changed("rows") {
				cfg.Terminal.Rows = flags.rows
			}
			if cmd.Flags().Changed("max-lines") {
				cfg.Window.MaxLines = flags.maxLines
			}
			if flags.noMerge {
				cfg.Window.MergeWrapped = false
			}
			format := cfg.Watch.Format
			if cmd.Flags().Changed("format") {
				format = flags.format
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			parsed := []window.Mode{cfg.Mode()}
			if len(flags.modes) > 0 {
				parsed = parsed[:0]
				for _, name := range flags.modes {
					mode, ok := window.ParseMode(name)
					if !ok {
						return fmt.Errorf("unknown mode %q", name)
					}
					parsed = append(parsed, mode)
				}
			}

			data, err := readInput(cmd.InOrStdin(), args)
			if err != nil {
				return err
			}
			enc, err := wire.NewEncoder(format, cmd.OutOrStdout())
			if err != nil {
				return err
			}

			logger := logx.Ctx(cmd.Context())
			opts := cfg.SessionOptions()
			opts.Logger = logger
			session := terminal.NewSession(opts)
			defer session.Close()

			return replay(session, data, flags.markAt, parsed, cfg.ReadOptions(), enc, logger)
		},
	}
	cmd.Flags().IntVar(&flags.cols, "cols", 0, "terminal width")
	cmd.Flags().IntVar(&flags.rows, "rows", 0, "terminal height")
	cmd.Flags().StringSliceVarP(&flags.modes, "mode", "m", nil, "read modes: tail, viewport, delta (repeatable)")
	cmd.Flags().IntVarP(&flags.maxLines, "max-lines", "n", 0, "tail line budget")
	cmd.Flags().BoolVar(&flags.noMerge, "no-merge", false, "keep wrapped rows separate")
	cmd.Flags().StringVarP(&flags.format, "format", "f", "", "output format: json or cbor")
	cmd.Flags().IntVar(&flags.markAt, "mark-at", 0, "byte offset at which delta reads place their marker")
	return cmd
}

func readInput(stdin io.Reader, args []string) ([]byte, error) {
	if len(args) == 0 || args[0] == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return nil, fmt.Errorf("read stdin: %w", err)
		}
		return data, nil
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return nil, fmt.Errorf("read input: %w", err)
	}
	return data, nil
}

// replay feeds data into session and encodes one snapshot per mode. When a
// delta read is requested the marker is placed after the first markAt bytes.
func replay(session *terminal.Session, data []byte, markAt int, modes []window.Mode, readOpts []window.Option, enc wire.Encoder, logger pslog.Logger) error {
	markAt = min(max(markAt, 0), len(data))

	var marker *int
	for _, mode := range modes {
		if mode == window.ModeDelta {
			if err := session.Feed(data[:markAt]); err != nil {
				return err
			}
			data = data[markAt:]
			marker = session.ReadBuffer(window.ModeDelta).MarkerID
			break
		}
	}
	if err := session.Feed(data); err != nil {
		return err
	}

	for _, mode := range modes {
		opts := readOpts
		if mode == window.ModeDelta {
			opts = append(slices.Clip(opts), window.WithMarkerID(marker))
		}
		snap := session.ReadBuffer(mode, opts...)
		logx.WithRead(logger, mode, snap).Debug("window read", "lines", len(snap.Lines))
		if err := enc.Encode(snap); err != nil {
			return err
		}
	}
	return nil
}
