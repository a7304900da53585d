package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/synthql/synthql/internal/config"
	"github.com/synthql/synthql/internal/embedding"
	"github.com/synthql/synthql/internal/errors"
	"github.com/synthql/synthql/internal/knowledge"
	"github.com/synthql/synthql/internal/logging"
)

var (
	flagStorePath string
	flagLogLevel  string
	flagProvider  string
)

var rootCmd = &cobra.Command{
	Use:   "synthql",
	Short: "Synthesize SQL from natural-language intents over an ingested schema",
	Long: `synthql maintains a local knowledge store of database schema elements as
semantic vectors. Ingested tables, columns, and relationships become searchable
by meaning, and the synthesis engine turns a classified natural-language intent
into a SQL query with a confidence score and provenance.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the CLI, printing structured errors and their suggestions
// before reporting failure to main.
func Execute() error {
	err := rootCmd.ExecuteContext(context.Background())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)

		for _, suggestion := range errors.GetSuggestions(err) {
			fmt.Fprintf(os.Stderr, "  hint: %s\n", suggestion)
		}
	}

	return err
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagStorePath, "store-path", "",
		"Path to the knowledge store file")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "",
		"Log level: debug, info, warn, or error")
	rootCmd.PersistentFlags().StringVar(&flagProvider, "embedding-provider", "",
		"Embedding provider to use")
}

// loadConfig resolves configuration with flag overrides applied and
// initializes the global logger.
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadConfigWithOverrides(map[string]interface{}{
		"store-path":         flagStorePath,
		"log-level":          flagLogLevel,
		"embedding-provider": flagProvider,
	})
	if err != nil {
		return nil, err
	}

	cfg.ExpandAllPaths()

	if err := logging.Initialize(cfg.Logging); err != nil {
		logging.SetupFallbackLogger()
	}

	return cfg, nil
}

// openStore builds the embedding manager and the knowledge store, then loads
// the persisted snapshot. A missing or unreadable snapshot yields an empty
// store, not an error.
func openStore(cfg *config.Config) (*knowledge.Store, error) {
	manager, err := embedding.NewManager(cfg.Embedding)
	if err != nil {
		return nil, err
	}

	store := knowledge.NewStore(manager, cfg.Store, cfg.Scoring, logging.GetLogger())

	if err := store.Load(); err != nil {
		return nil, err
	}

	return store, nil
}
