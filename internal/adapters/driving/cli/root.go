// Package cli implements the command line interface: full, incremental,
// deletion and permission sync commands plus content source bootstrap.
package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/spsync/internal/adapters/driven/extract"
	"github.com/custodia-labs/spsync/internal/adapters/driven/sharepoint"
	"github.com/custodia-labs/spsync/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/spsync/internal/adapters/driven/workplace"
	"github.com/custodia-labs/spsync/internal/config"
	"github.com/custodia-labs/spsync/internal/core/domain"
	"github.com/custodia-labs/spsync/internal/core/ports/driven"
	"github.com/custodia-labs/spsync/internal/core/ports/driving"
	"github.com/custodia-labs/spsync/internal/core/services"
	"github.com/custodia-labs/spsync/internal/logger"
)

// version is set at build time via -ldflags.
var version = "dev"

var (
	cfgFile     string
	verboseFlag bool

	settings *domain.Settings
	store    *sqlite.Store

	syncer         driving.Syncer
	deletionSyncer driving.DeletionSyncer
	permSyncer     driving.PermissionSyncer
	searchIndex    driven.SearchIndex
)

var rootCmd = &cobra.Command{
	Use:   "spsync",
	Short: "Synchronise SharePoint Server content into a search index",
	Long: `spsync mirrors the site, list, list item and drive item hierarchy of
a SharePoint Server farm into a search index. Full syncs walk the whole
window, incremental syncs resume from per-collection checkpoints, and
the deletion sync removes index entries for objects deleted at the source.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		switch cmd.Name() {
		case "version", "help", "completion":
			return nil
		}
		return initServices()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config-file", "c", "", "path to the YAML configuration file")
	rootCmd.PersistentFlags().BoolVar(&verboseFlag, "verbose", false, "enable debug logging")
}

// initServices loads the configuration and wires the adapters and
// services. Tests bypass it by preassigning the service variables.
func initServices() error {
	if syncer != nil {
		return nil
	}

	s, err := config.Load(cfgFile)
	if err != nil {
		return err
	}
	if verboseFlag || s.Verbose {
		logger.SetVerbose(true)
	}

	client, err := sharepoint.NewClient(s)
	if err != nil {
		return fmt.Errorf("configure sharepoint client: %w", err)
	}
	index := workplace.NewClient(s)

	var extractor driven.TextExtractor
	if s.ExtractorHostURL != "" {
		extractor = extract.NewTikaExtractor(s.ExtractorHostURL)
	}

	st, err := sqlite.NewStore(s.StatePath)
	if err != nil {
		return fmt.Errorf("open state store: %w", err)
	}

	settings = s
	store = st
	searchIndex = index
	checkpoints := st.CheckpointStore(s.StartTime)
	inventories := st.InventoryStore()

	syncer = services.NewSyncOrchestrator(client, index, extractor, checkpoints, inventories, s)
	deletionSyncer = services.NewDeletionReconciler(client, index, inventories, s)
	permSyncer = services.NewPermissionSyncService(client, index, s)
	return nil
}

// Execute runs the root command under the given context.
func Execute(ctx context.Context) error {
	defer func() {
		if store != nil {
			store.Close()
		}
	}()
	return rootCmd.ExecuteContext(ctx)
}
