package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/bookvault/bookvault/config"
	"github.com/bookvault/bookvault/log"
	"github.com/bookvault/bookvault/store"
	"github.com/bookvault/bookvault/store/db"
	"github.com/bookvault/bookvault/version"
)

// Global flag values.
var (
	flagConfigFile string
	flagDataDir    string
)

// Shared handles, initialized on startup.
var (
	appDB    *db.DB
	appStore *store.Store
)

var rootCmd = &cobra.Command{
	Use:     "bookvault",
	Short:   "Bookvault is a personal book-tracking library",
	Version: version.Version,
	Long: `Bookvault tracks the books you want to read, are reading, or have
finished, with progress and notes, in a local database. The whole
library can be exported to and restored from a JSON backup file.`,
	PersistentPreRunE:  initVault,
	PersistentPostRunE: closeVault,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfigFile, "config", "", "config file (optional)")
	rootCmd.PersistentFlags().StringVar(&flagDataDir, "data", "", "data directory (default: ~/.bookvault)")

	rootCmd.AddCommand(addCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(updateCmd)
	rootCmd.AddCommand(removeCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(importCmd)
}

// initVault loads config, sets up logging and opens the store.
func initVault(cmd *cobra.Command, args []string) error {
	config.GetDefaultOptions()
	if flagConfigFile != "" {
		if _, err := config.ParseFile(flagConfigFile); err != nil {
			return err
		}
	}
	if flagDataDir != "" {
		config.Opts.Data = flagDataDir
	}
	if _, err := config.GetConfig(); err != nil {
		return err
	}

	log.Logger = log.NewLogger()

	d, err := db.NewDB(config.Opts.DSN)
	if err != nil {
		log.Error("Error opening database", zap.Error(err))
		return err
	}
	if err := d.Migrate(cmd.Context()); err != nil {
		d.Close()
		log.Error("Error migrating database", zap.Error(err))
		return err
	}

	appDB = d
	appStore = store.NewStore(d)
	return nil
}

// closeVault releases the store handle.
func closeVault(cmd *cobra.Command, args []string) error {
	defer log.Logger.Sync()
	if appDB != nil {
		return appDB.Close()
	}
	return nil
}
