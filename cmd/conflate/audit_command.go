package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"conflate/internal/audit"
	"conflate/internal/config"
	"conflate/internal/entity"
)

func newAuditCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Show the merge audit trail, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			var rows []audit.Row
			err := ctx.withStore(func(cfg *config.Config, store *entity.Store) error {
				var err error
				rows, err = audit.History(cmd.Context(), store.DB(), limit)
				return err
			})
			if err != nil {
				return err
			}

			if jsonOut {
				return writeJSON(cmd, rows)
			}

			out := cmd.OutOrStdout()
			if len(rows) == 0 {
				fmt.Fprintln(out, "No merges recorded")
				return nil
			}

			tableRows := make([][]string, 0, len(rows))
			for _, row := range rows {
				tableRows = append(tableRows, []string{
					row.CreatedAt.Local().Format(time.DateTime),
					fmt.Sprintf("%d", row.Entry.SourceID),
					row.Entry.SourceName,
					fmt.Sprintf("%d", row.Entry.TargetID),
					row.Entry.TargetName,
					fmt.Sprintf("%d", row.Entry.MentionsTransferred),
					fmt.Sprintf("%.1f", row.Entry.Confidence),
					row.Entry.Method,
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"When", "Source", "Name", "Target", "Name", "Mentions", "Confidence", "Method"},
				tableRows,
				[]columnAlignment{alignLeft, alignRight, alignLeft, alignRight, alignLeft, alignRight, alignRight, alignLeft},
			))
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 50, "Maximum rows to show (0 for all)")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit audit rows as JSON")
	return cmd
}
