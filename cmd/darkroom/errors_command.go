package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"
)

func newErrorsCommand(ctx *commandContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "errors",
		Short: "List recently quarantined files",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.openJournal()
			if err != nil {
				return err
			}
			defer store.Close()

			records, err := store.RecentErrors(cmd.Context(), limit)
			if err != nil {
				return fmt.Errorf("read journal: %w", err)
			}

			out := cmd.OutOrStdout()
			if len(records) == 0 {
				fmt.Fprintln(out, "No file errors recorded.")
				return nil
			}

			rows := make([][]string, 0, len(records))
			for _, rec := range records {
				rows = append(rows, []string{
					filepath.Base(rec.FilePath),
					rec.Reason,
					rec.Detail,
					rec.SessionID,
					rec.CreatedAt.Format("2006-01-02 15:04:05"),
				})
			}
			headers := []string{"File", "Reason", "Detail", "Session", "Recorded"}
			fmt.Fprintln(out, renderTable(headers, rows))
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of errors to list")
	return cmd
}
