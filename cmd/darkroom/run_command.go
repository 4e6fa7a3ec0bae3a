package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"darkroom/internal/daemon"
	"darkroom/internal/errsink"
	"darkroom/internal/journal"
	"darkroom/internal/logging"
	"darkroom/internal/pipeline"
)

// newRunCommand runs the daemon in the foreground. Useful for development
// and for supervisors that want the process attached to a terminal.
func newRunCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Watch the incoming folder in the foreground",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			logger, err := logging.NewFromConfig(cfg)
			if err != nil {
				return err
			}

			store, err := journal.Open(cfg)
			if err != nil {
				return err
			}

			d, err := daemon.New(cfg, store, logger)
			if err != nil {
				_ = store.Close()
				return err
			}
			defer d.Close()

			runCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			runErr := d.Run(runCtx)
			switch {
			case runErr == nil:
				return nil
			case pipeline.IsStopped(runErr):
				logger.Warn("stopped on error as configured")
				return nil
			case errors.Is(runErr, errsink.ErrSinkFailure):
				logger.Error("quarantine is not writable", logging.Error(runErr))
				return runErr
			default:
				return runErr
			}
		},
	}
}
