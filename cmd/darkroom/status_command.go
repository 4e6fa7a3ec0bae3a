package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show daemon state and session totals",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			store, err := ctx.openJournal()
			if err != nil {
				return err
			}
			defer store.Close()

			summary, err := store.Summarize(cmd.Context())
			if err != nil {
				return fmt.Errorf("read journal: %w", err)
			}

			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)

			running, lockErr := daemonRunning(filepath.Join(cfg.Paths.LogDir, "darkroomd.lock"))
			switch {
			case lockErr != nil:
				fmt.Fprintln(out, renderStatusLine("Daemon", statusWarn, lockErr.Error(), colorize))
			case running:
				fmt.Fprintln(out, renderStatusLine("Daemon", statusOK, "running", colorize))
			default:
				fmt.Fprintln(out, renderStatusLine("Daemon", statusInfo, "not running", colorize))
			}

			fmt.Fprintln(out, renderStatusLine("Watch folder", statusInfo, cfg.Paths.WatchDir, colorize))
			fmt.Fprintln(out, renderStatusLine("Journal", statusInfo, store.Path(), colorize))
			fmt.Fprintln(out, renderStatusLine("Sessions", statusInfo, fmt.Sprintf("%d total", summary.Sessions), colorize))
			fmt.Fprintln(out, renderStatusLine("Committed", statusOK, fmt.Sprintf("%d", summary.Committed), colorize))

			failedKind := statusOK
			if summary.Failed > 0 {
				failedKind = statusError
			}
			fmt.Fprintln(out, renderStatusLine("Failed", failedKind, fmt.Sprintf("%d", summary.Failed), colorize))

			rejectedKind := statusOK
			if summary.Rejected > 0 {
				rejectedKind = statusWarn
			}
			fmt.Fprintln(out, renderStatusLine("Rejected", rejectedKind, fmt.Sprintf("%d", summary.Rejected), colorize))

			errorKind := statusOK
			if summary.Errors > 0 {
				errorKind = statusWarn
			}
			fmt.Fprintln(out, renderStatusLine("File errors", errorKind, fmt.Sprintf("%d", summary.Errors), colorize))
			return nil
		},
	}
}

// daemonRunning probes the daemon lock. Taking the lock succeeding means no
// daemon holds it.
func daemonRunning(lockPath string) (bool, error) {
	if _, err := os.Stat(lockPath); os.IsNotExist(err) {
		return false, nil
	}
	probe := flock.New(lockPath)
	acquired, err := probe.TryLock()
	if err != nil {
		return false, fmt.Errorf("probe lock: %w", err)
	}
	if acquired {
		_ = probe.Unlock()
		return false, nil
	}
	return true, nil
}
