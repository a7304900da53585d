package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/briandowns/spinner"
	"github.com/spf13/cobra"

	"github.com/synthql/synthql/internal/errors"
	"github.com/synthql/synthql/internal/knowledge"
	"github.com/synthql/synthql/internal/schema"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest <schema-file>",
	Short: "Ingest table descriptors into the knowledge store",
	Long: `Read a JSON file of table descriptors, embed each table and column as a
semantic vector, rebuild the relationship graph, and persist the store.

The file holds an array of table descriptors:

  [{"schema": "hr", "table": "Employee", "columns": [...], ...}]

Re-ingesting the same schema replaces existing elements in place.`,
	Args: cobra.ExactArgs(1),
	RunE: runIngest,
}

func init() {
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	if err := cfg.EnsureDirectories(); err != nil {
		return errors.Wrap(err, errors.ErrTypeConfig, "failed to create data directories")
	}

	tables, err := readSchemaFile(args[0])
	if err != nil {
		return err
	}

	store, err := openStore(cfg)
	if err != nil {
		return err
	}

	sp := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	sp.Suffix = fmt.Sprintf(" Ingesting %d tables...", len(tables))
	sp.Start()

	ingestErr := store.Ingest(ctx, tables)

	sp.Stop()

	if ingestErr != nil {
		return errors.Wrap(ingestErr, errors.ErrTypeIngestion, "schema ingestion failed")
	}

	if err := store.Save(); err != nil {
		return err
	}

	stats := store.GetStats()

	fmt.Printf("Ingested %d tables (%d elements, %d relationship edges).\n",
		stats.TableCount, totalElements(stats.ElementCounts), stats.EdgeCount)
	fmt.Printf("Knowledge store saved to %s\n", cfg.Store.Path)

	return nil
}

// readSchemaFile parses the table descriptor array from disk
func readSchemaFile(path string) ([]schema.TableDescriptor, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrTypeIngestion,
			"failed to read schema file %s", path).
			WithSuggestion("Check that the file exists and is readable")
	}

	var tables []schema.TableDescriptor
	if err := json.Unmarshal(data, &tables); err != nil {
		return nil, errors.Wrapf(err, errors.ErrTypeValidation,
			"failed to parse schema file %s", path).
			WithSuggestion("The file must contain a JSON array of table descriptors")
	}

	if len(tables) == 0 {
		return nil, errors.New(errors.ErrTypeValidation, "schema file contains no tables")
	}

	return tables, nil
}

func totalElements(counts map[knowledge.ElementType]int) int {
	total := 0
	for _, n := range counts {
		total += n
	}

	return total
}
