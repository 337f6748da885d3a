// Command termwindow reads windows of terminal output: from a captured
// byte stream, or live from a command running on a PTY.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"pkt.systems/pslog"

	"github.com/dshills/termwindow/internal/config"
	"github.com/dshills/termwindow/internal/logx"
)

// Version information (set via ldflags during build).
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := run(ctx, os.Args[1:])
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string) int {
	logger := pslog.LoggerFromEnv(
		pslog.WithEnvWriter(os.Stderr),
		pslog.WithEnvOptions(pslog.Options{Mode: pslog.ModeConsole}),
	)
	ctx = pslog.ContextWithLogger(ctx, logger)
	log.SetOutput(pslog.LogLogger(logger).Writer())
	log.SetFlags(0)

	root := newRootCmd()
	root.SetArgs(args)

	if err := root.ExecuteContext(ctx); err != nil {
		logger.With("err", err).Error("termwindow command failed")
		return 1
	}
	return 0
}

// rootOptions holds the global flags and the configuration they resolve to.
type rootOptions struct {
	configPath string
	logLevel   string

	cfg *config.Config
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:           "termwindow",
		Short:         "Read tail, viewport and delta windows of terminal output",
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.load(cmd)
		},
	}
	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", os.Getenv("TERMWINDOW_CONFIG"), "path to config file")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "log level (trace, debug, info, warn, error)")

	root.AddCommand(newReadCmd(opts))
	root.AddCommand(newWatchCmd(opts))
	root.AddCommand(newVersionCmd())
	return root
}

// load resolves the configuration and installs the configured logger on the
// command context.
func (o *rootOptions) load(cmd *cobra.Command) error {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if o.logLevel != "" {
		cfg.Logging.Level = o.logLevel
		if err := cfg.Validate(); err != nil {
			return err
		}
	}
	o.cfg = cfg

	logger := logx.New(cmd.ErrOrStderr(), cfg.Logging)
	cmd.SetContext(pslog.ContextWithLogger(cmd.Context(), logger))
	logger.Debug("config loaded", "path", o.configPath, "config", cfg.String())
	return nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "termwindow %s (commit %s, built %s)\n", version, commit, date)
			return err
		},
	}
}
