package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"ukepenger/internal/pkg/logger"
	"ukepenger/internal/platform/config"
	"ukepenger/internal/platform/database"
)

var (
	cfgFile string
	db      *database.DB
)

var rootCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Manage the ukepenger schema",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgFile)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		logger.Init(cfg.Logging)

		db, err = database.Open(cfg.Database)
		if err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if db != nil {
			db.Close()
		}
	},
}

var upCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply all pending migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := db.Migrate(cmd.Context()); err != nil {
			return err
		}
		version, err := db.SchemaVersion(cmd.Context())
		if err != nil {
			return err
		}
		log.Info().Int("version", version).Msg("schema up to date")
		return nil
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the applied and latest available schema versions",
	RunE: func(cmd *cobra.Command, args []string) error {
		applied, err := db.SchemaVersion(cmd.Context())
		if err != nil {
			return err
		}
		migrations, err := database.Migrations(db.Dialect())
		if err != nil {
			return err
		}
		latest := 0
		if n := len(migrations); n > 0 {
			latest = migrations[n-1].Version
		}
		fmt.Fprintf(cmd.OutOrStdout(), "applied %d, latest %d (%s)\n", applied, latest, db.Dialect().Name())
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "configs/config.yaml", "Path to config file")
	rootCmd.AddCommand(upCmd, versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
