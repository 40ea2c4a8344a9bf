package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/spsync/internal/core/domain"
)

var incrementalSyncCmd = &cobra.Command{
	Use:   "incremental-sync",
	Short: "Synchronise content changed since the last checkpoint",
	Long: `Walks every configured site collection from its stored checkpoint to
now. A collection without a checkpoint falls back to the configured
start time.`,
	RunE: runIncrementalSync,
}

func init() {
	rootCmd.AddCommand(incrementalSyncCmd)
}

func runIncrementalSync(cmd *cobra.Command, _ []string) error {
	if syncer == nil {
		return errors.New("sync service not configured")
	}

	cmd.Println("Starting incremental synchronisation...")
	if err := syncer.Run(cmd.Context(), domain.SyncModeIncremental); err != nil {
		return fmt.Errorf("incremental sync failed: %w", err)
	}
	cmd.Println("Incremental synchronisation finished.")
	return nil
}
