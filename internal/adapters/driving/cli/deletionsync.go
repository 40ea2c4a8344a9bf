package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var deletionSyncCmd = &cobra.Command{
	Use:   "deletion-sync",
	Short: "Remove index entries for objects deleted at the source",
	Long: `Probes every object recorded in the local inventory against the farm
and removes the index entries of objects that no longer exist.`,
	RunE: runDeletionSync,
}

func init() {
	rootCmd.AddCommand(deletionSyncCmd)
}

func runDeletionSync(cmd *cobra.Command, _ []string) error {
	if deletionSyncer == nil {
		return errors.New("deletion sync service not configured")
	}

	cmd.Println("Starting deletion synchronisation...")
	removed, err := deletionSyncer.Run(cmd.Context())
	if err != nil {
		return fmt.Errorf("deletion sync failed: %w", err)
	}
	cmd.Printf("Deletion synchronisation finished, %d documents removed.\n", len(removed))
	return nil
}
