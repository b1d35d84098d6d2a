package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"conflate/internal/config"
	"conflate/internal/consolidate"
	"conflate/internal/entity"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	var dryRun bool
	var typeFlag string
	var auditFile string
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Detect and merge duplicate entities",
		Long: `Scans the archive for duplicate entities, resolves overlapping merge
candidates into a consistent plan, and applies each merge in its own
transaction. A JSON audit trail is written for every run that changes
the database. Use --dry-run to see what would happen without writing.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			entityType, err := parseTypeFlag(typeFlag)
			if err != nil {
				return err
			}

			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}

			var summary *consolidate.Summary
			err = ctx.withStore(func(cfg *config.Config, store *entity.Store) error {
				engine := consolidate.New(cfg, store, logger)
				summary, err = engine.Run(cmd.Context(), consolidate.Options{
					DryRun:     dryRun,
					EntityType: entityType,
					AuditPath:  strings.TrimSpace(auditFile),
				})
				return err
			})
			if err != nil {
				return err
			}

			if jsonOut {
				return writeJSON(cmd, summary)
			}
			printSummary(cmd, summary)
			return nil
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Plan and report without modifying the database")
	cmd.Flags().StringVarP(&typeFlag, "type", "t", "", "Restrict to one entity type (person or organization)")
	cmd.Flags().StringVar(&auditFile, "audit-file", "", "Write the run's audit trail to this path")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit the run summary as JSON")
	return cmd
}

func printSummary(cmd *cobra.Command, summary *consolidate.Summary) {
	out := cmd.OutOrStdout()
	mode := "run"
	if summary.DryRun {
		mode = "dry run"
	}
	fmt.Fprintf(out, "Consolidation %s %s finished in %s\n", mode, summary.RunID, summary.Duration.Round(time.Millisecond))

	rows := [][]string{
		{"Entities scanned", fmt.Sprintf("%d", summary.Scanned)},
		{"Candidates found", fmt.Sprintf("%d", summary.Candidates)},
		{"Dropped (redirected)", fmt.Sprintf("%d", summary.DroppedRedirected)},
		{"Dropped (circular)", fmt.Sprintf("%d", summary.DroppedCircular)},
		{"Merged", fmt.Sprintf("%d", summary.Merged)},
		{"Failed", fmt.Sprintf("%d", summary.Failed)},
		{"Mentions moved", fmt.Sprintf("%d", summary.MentionsMoved)},
	}
	fmt.Fprintln(out, renderTable([]string{"Metric", "Value"}, rows, []columnAlignment{alignLeft, alignRight}))

	if summary.BackupFile != "" {
		fmt.Fprintf(out, "Backup: %s\n", summary.BackupFile)
	}
	if summary.AuditFile != "" {
		fmt.Fprintf(out, "Audit trail: %s\n", summary.AuditFile)
	}
}

func parseTypeFlag(value string) (entity.Type, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", nil
	}
	entityType, err := entity.ParseType(value)
	if err != nil {
		return "", err
	}
	return entityType, nil
}
