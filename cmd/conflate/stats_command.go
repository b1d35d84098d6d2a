package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"conflate/internal/config"
	"conflate/internal/entity"
)

func newStatsCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show archive entity statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			var stats entity.Stats
			err := ctx.withStore(func(cfg *config.Config, store *entity.Store) error {
				var err error
				stats, err = store.Stats(cmd.Context())
				return err
			})
			if err != nil {
				return err
			}

			if jsonOut {
				return writeJSON(cmd, statsPayload(stats))
			}

			rows := [][]string{
				{"Total entities", fmt.Sprintf("%d", stats.TotalEntities)},
				{"Total mentions", fmt.Sprintf("%d", stats.TotalMentions)},
				{"Person records", fmt.Sprintf("%d", stats.PersonRows)},
			}
			for _, entityType := range sortedTypes(stats.ByType) {
				rows = append(rows, []string{
					fmt.Sprintf("Entities (%s)", entityType),
					fmt.Sprintf("%d", stats.ByType[entityType]),
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Metric", "Value"}, rows,
				[]columnAlignment{alignLeft, alignRight},
			))
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit statistics as JSON")
	return cmd
}

func sortedTypes(byType map[entity.Type]int64) []entity.Type {
	types := make([]entity.Type, 0, len(byType))
	for entityType := range byType {
		types = append(types, entityType)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
	return types
}

func statsPayload(stats entity.Stats) map[string]any {
	byType := make(map[string]int64, len(stats.ByType))
	for entityType, count := range stats.ByType {
		byType[string(entityType)] = count
	}
	return map[string]any{
		"total_entities": stats.TotalEntities,
		"total_mentions": stats.TotalMentions,
		"person_records": stats.PersonRows,
		"by_type":        byType,
	}
}
