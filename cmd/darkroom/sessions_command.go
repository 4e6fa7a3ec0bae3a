package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

func newSessionsCommand(ctx *commandContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "List recently processed sessions",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.openJournal()
			if err != nil {
				return err
			}
			defer store.Close()

			records, err := store.RecentSessions(cmd.Context(), limit)
			if err != nil {
				return fmt.Errorf("read journal: %w", err)
			}

			out := cmd.OutOrStdout()
			if len(records) == 0 {
				fmt.Fprintln(out, "No sessions recorded yet.")
				return nil
			}

			rows := make([][]string, 0, len(records))
			for _, rec := range records {
				rows = append(rows, []string{
					rec.SessionID,
					rec.PatientID,
					string(rec.Status),
					strconv.Itoa(rec.PhotoCount),
					rec.DestDir,
					rec.UpdatedAt.Format("2006-01-02 15:04:05"),
				})
			}
			headers := []string{"Session", "Patient", "Status", "Photos", "Destination", "Updated"}
			fmt.Fprintln(out, renderTable(headers, rows, 3))
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of sessions to list")
	return cmd
}
