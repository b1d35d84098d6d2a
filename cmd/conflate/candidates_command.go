package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"conflate/internal/config"
	"conflate/internal/consolidate"
	"conflate/internal/entity"
	"conflate/internal/match"
)

func newCandidatesCommand(ctx *commandContext) *cobra.Command {
	var typeFlag string
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "candidates",
		Short: "Preview duplicate candidates without merging",
		RunE: func(cmd *cobra.Command, args []string) error {
			entityType, err := parseTypeFlag(typeFlag)
			if err != nil {
				return err
			}

			var plan *consolidate.Plan
			err = ctx.withStore(func(cfg *config.Config, store *entity.Store) error {
				plan, err = consolidate.New(cfg, store, nil).Plan(cmd.Context(), entityType)
				return err
			})
			if err != nil {
				return err
			}

			if jsonOut {
				return writeJSON(cmd, plan.Resolution.Accepted)
			}

			out := cmd.OutOrStdout()
			if len(plan.Resolution.Accepted) == 0 {
				fmt.Fprintf(out, "No duplicate candidates found across %d entities\n", plan.Scanned)
				return nil
			}

			rows := make([][]string, 0, len(plan.Resolution.Accepted))
			for _, candidate := range plan.Resolution.Accepted {
				rows = append(rows, candidateRow(candidate))
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Source", "ID", "Target", "ID", "Confidence", "Method"},
				rows,
				[]columnAlignment{alignLeft, alignRight, alignLeft, alignRight, alignRight, alignLeft},
			))
			fmt.Fprintf(out, "%d merges planned across %d entities (%d candidates dropped)\n",
				len(plan.Resolution.Accepted), plan.Scanned,
				plan.Resolution.DroppedRedirected+plan.Resolution.DroppedCircular)
			return nil
		},
	}

	cmd.Flags().StringVarP(&typeFlag, "type", "t", "", "Restrict to one entity type (person or organization)")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit accepted candidates as JSON")
	return cmd
}

func candidateRow(candidate *match.Candidate) []string {
	return []string{
		candidate.SourceName,
		fmt.Sprintf("%d", candidate.SourceID),
		candidate.TargetName,
		fmt.Sprintf("%d", candidate.TargetID),
		fmt.Sprintf("%.1f", candidate.Confidence),
		candidate.Method.String(),
	}
}
