package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/synthql/synthql/internal/errors"
)

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete the persisted knowledge store",
	Long:  `Remove the knowledge store file. This action requires confirmation.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		force, _ := cmd.Flags().GetBool("force")
		return runClear(force)
	},
}

func init() {
	clearCmd.Flags().BoolP("force", "f", false, "Skip confirmation prompt")

	rootCmd.AddCommand(clearCmd)
}

func runClear(force bool) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	if _, err := os.Stat(cfg.Store.Path); os.IsNotExist(err) {
		fmt.Println("Knowledge store is already empty.")
		return nil
	}

	store, err := openStore(cfg)
	if err != nil {
		return err
	}

	stats := store.GetStats()

	fmt.Printf("This will delete:\n")
	fmt.Printf("  - %d tables\n", stats.TableCount)
	fmt.Printf("  - %d relationship edges\n", stats.EdgeCount)
	fmt.Printf("  - %d stored elements\n", totalElements(stats.ElementCounts))

	if !force {
		fmt.Printf("\nAre you sure you want to clear the knowledge store? This action cannot be undone.\n")
		fmt.Printf("Type 'yes' to confirm: ")

		reader := bufio.NewReader(os.Stdin)

		response, err := reader.ReadString('\n')
		if err != nil {
			return errors.Wrap(err, errors.ErrTypeInternal, "failed to read input")
		}

		if strings.TrimSpace(strings.ToLower(response)) != "yes" {
			fmt.Println("Operation cancelled.")
			return nil
		}
	}

	if err := os.Remove(cfg.Store.Path); err != nil {
		return errors.Wrap(err, errors.ErrTypePersistence, "failed to delete knowledge store")
	}

	fmt.Println("Knowledge store cleared.")

	return nil
}
