package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/spsync/internal/core/domain"
)

var fullSyncCmd = &cobra.Command{
	Use:   "full-sync",
	Short: "Synchronise all content from the configured start time",
	Long: `Walks every configured site collection over the full configured window
and indexes all sites, lists, list items and drive items found.`,
	RunE: runFullSync,
}

func init() {
	rootCmd.AddCommand(fullSyncCmd)
}

func runFullSync(cmd *cobra.Command, _ []string) error {
	if syncer == nil {
		return errors.New("sync service not configured")
	}

	cmd.Println("Starting full synchronisation...")
	if err := syncer.Run(cmd.Context(), domain.SyncModeFull); err != nil {
		return fmt.Errorf("full sync failed: %w", err)
	}
	cmd.Println("Full synchronisation finished.")
	return nil
}
