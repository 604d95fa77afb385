package main

import (
	"errors"
	"fmt"
	"os"

	"chronic_go_backend/cmd/api/config"
	"chronic_go_backend/internal/database"
	"chronic_go_backend/internal/logging"

	"github.com/ardanlabs/conf/v3"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

var build = "develop"

func main() {
	rootCmd := &cobra.Command{
		Use:           "chronic",
		Short:         "Chronic task management API",
		Version:       build,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Bring the database schema up to date and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := setup()
			if err != nil || cfg == nil {
				return err
			}
			db, err := openDB(cfg)
			if err != nil {
				return err
			}
			if err := database.Migrate(db); err != nil {
				return err
			}
			log.Info().Str("driver", cfg.DB.Driver).Msg("Database migrated")
			return nil
		},
	}
}

// setup loads the configuration and builds the process logger. A nil config
// with a nil error means the usage text was printed.
func setup() (*config.Config, zerolog.Logger, error) {
	cfg, help, err := config.Load()
	if err != nil {
		if errors.Is(err, conf.ErrHelpWanted) {
			fmt.Println(help)
			return nil, zerolog.Nop(), nil
		}
		return nil, zerolog.Nop(), err
	}
	cfg.Version.Build = build
	log := logging.New(cfg.Log.Level, cfg.Log.Pretty)
	return cfg, log, nil
}

func openDB(cfg *config.Config) (*gorm.DB, error) {
	return database.Open(database.Options{
		Driver:       cfg.DB.Driver,
		DSN:          cfg.DB.DSN,
		MaxOpenConns: cfg.DB.MaxOpenConns,
		MaxIdleConns: cfg.DB.MaxIdleConns,
	})
}
