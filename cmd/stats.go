package cmd

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/synthql/synthql/internal/knowledge"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show knowledge store statistics",
	Long:  `Display element counts by type, ingested tables, and relationship graph size.`,
	RunE:  runStats,
}

func init() {
	rootCmd.AddCommand(statsCmd)
}

func runStats(_ *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	store, err := openStore(cfg)
	if err != nil {
		return err
	}

	stats := store.GetStats()

	fmt.Printf("Knowledge store: %s\n\n", cfg.Store.Path)
	fmt.Printf("Tables:             %d\n", stats.TableCount)
	fmt.Printf("Relationship edges: %d\n", stats.EdgeCount)
	fmt.Println("\nElements by type:")

	types := make([]knowledge.ElementType, 0, len(stats.ElementCounts))
	for t := range stats.ElementCounts {
		types = append(types, t)
	}

	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })

	for _, t := range types {
		fmt.Printf("  %-13s %d\n", t, stats.ElementCounts[t])
	}

	if stats.TableCount > 0 {
		fmt.Println("\nIngested tables:")

		for _, table := range store.Tables() {
			fmt.Printf("  %s (%d columns)\n", table.QualifiedName(), len(table.Columns))
		}
	}

	return nil
}
