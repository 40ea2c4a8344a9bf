package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var bootstrapName string

var bootstrapCmd = &cobra.Command{
	Use:   "bootstrap",
	Short: "Create a content source in the search index",
	Long: `Provisions a content source configured for the document shape this
connector produces and prints its id for use as search_index.source_id.`,
	RunE: runBootstrap,
}

func init() {
	bootstrapCmd.Flags().StringVarP(&bootstrapName, "name", "n", "", "name of the content source to create")
	_ = bootstrapCmd.MarkFlagRequired("name")
	rootCmd.AddCommand(bootstrapCmd)
}

func runBootstrap(cmd *cobra.Command, _ []string) error {
	if searchIndex == nil {
		return errors.New("search index not configured")
	}

	id, err := searchIndex.CreateContentSource(cmd.Context(), bootstrapName)
	if err != nil {
		return fmt.Errorf("bootstrap failed: %w", err)
	}
	cmd.Printf("Created content source %s with id %s.\n", bootstrapName, id)
	cmd.Println("Set search_index.source_id in the configuration to this id.")
	return nil
}
