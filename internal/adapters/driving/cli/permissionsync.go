package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var permissionSyncCmd = &cobra.Command{
	Use:   "permission-sync",
	Short: "Mirror user and group permissions into the search index",
	Long: `Fetches the site users and group memberships of every configured
collection and replaces the per-user permission grants stored in the
index. Requires enable_document_permission in the configuration.`,
	RunE: runPermissionSync,
}

func init() {
	rootCmd.AddCommand(permissionSyncCmd)
}

func runPermissionSync(cmd *cobra.Command, _ []string) error {
	if permSyncer == nil {
		return errors.New("permission sync service not configured")
	}

	cmd.Println("Starting permission synchronisation...")
	if err := permSyncer.Run(cmd.Context()); err != nil {
		return fmt.Errorf("permission sync failed: %w", err)
	}
	cmd.Println("Permission synchronisation finished.")
	return nil
}
