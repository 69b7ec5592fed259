package main

import (
	"database/sql"
	"encoding/json"
	"errors"
	"os"

	"marketplace-ledger/internal/config"
	"marketplace-ledger/internal/db"
	"marketplace-ledger/internal/logger"
	"marketplace-ledger/internal/services"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// boot loads config, builds the logger and opens the database.
func boot() (config.Config, zerolog.Logger, *sql.DB, error) {
	cfg := config.LoadConfig()
	log := logger.New(os.Stderr, cfg.LogFormat, cfg.LogLevel)

	if cfg.DBUrl == "" {
		return cfg, log, nil, errors.New("DB_URL is not set")
	}
	database, err := db.InitDB(cfg.DBUrl)
	if err != nil {
		return cfg, log, nil, err
	}
	return cfg, log, database, nil
}

func migrate(database *sql.DB, log zerolog.Logger) error {
	if err := db.RunMigrations(database); err != nil {
		log.Error().Err(err).Msg("Migration failed")
		return err
	}
	log.Info().Msg("Migrations applied")
	return nil
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create the journal and wallet tables",
	RunE: func(cmd *cobra.Command, args []string) error {
		_, log, database, err := boot()
		if err != nil {
			return err
		}
		defer database.Close()
		return migrate(database, log)
	},
}

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Replay the journal offline and check value conservation and payout wallets",
	RunE: func(cmd *cobra.Command, args []string) error {
		_, log, database, err := boot()
		if err != nil {
			return err
		}
		defer database.Close()

		report, err := services.NewAuditService(database, log).Run(cmd.Context())
		if report != nil {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if encErr := enc.Encode(report); encErr != nil {
				return encErr
			}
		}
		return err
	},
}
