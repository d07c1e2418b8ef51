package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"stage-tracker/internal/app"
	"stage-tracker/internal/config"
	"stage-tracker/internal/logging"
)

var Version = "dev"

// cli carries what every subcommand needs once the root has set it up.
type cli struct {
	verbose bool
	log     *slog.Logger
	cfg     config.Config
	app     *app.App
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	c := &cli{}
	root := &cobra.Command{
		Use:           "stage-tracker",
		Short:         "Track time spent per workflow stage and keep a log of finished sessions",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.setup(cmd.Context())
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if c.app == nil {
				return nil
			}
			return c.app.Close()
		},
	}
	root.PersistentFlags().BoolVarP(&c.verbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(c.runCmd())
	root.AddCommand(c.serveCmd())
	root.AddCommand(c.stagesCmd())
	root.AddCommand(c.logsCmd())
	root.AddCommand(c.mirrorCmd())
	return root
}

func (c *cli) setup(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	level := cfg.LogLevel
	if c.verbose {
		level = "debug"
	}
	c.log = logging.New(level, cfg.LogFormat, os.Stderr)
	slog.SetDefault(c.log)
	c.cfg = cfg

	a, err := app.New(ctx, c.log, cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize app: %w", err)
	}
	c.app = a
	return nil
}
