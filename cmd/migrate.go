package main

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/PR-botsAI/VolleyCoachAI-sub000/db"
	"github.com/PR-botsAI/VolleyCoachAI-sub000/logging"
)

var migrateDSN string

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Manage the database schema",
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply all pending migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withMigrationDB(func(logger *slog.Logger, conn *sql.DB) error {
			applied, err := db.Migrate(cmd.Context(), conn)
			if err != nil {
				return err
			}
			logger.Info("migrations applied", slog.Int("count", applied))
			return nil
		})
	},
}

var migrateDownCmd = &cobra.Command{
	Use:   "down",
	Short: "Roll back the most recent migration",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withMigrationDB(func(logger *slog.Logger, conn *sql.DB) error {
			if err := db.Rollback(cmd.Context(), conn); err != nil {
				return err
			}
			logger.Info("migration rolled back")
			return nil
		})
	},
}

var migrateVersionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the current schema version",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withMigrationDB(func(_ *slog.Logger, conn *sql.DB) error {
			version, err := db.MigrationVersion(cmd.Context(), conn)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), version)
			return nil
		})
	},
}

func init() {
	migrateCmd.PersistentFlags().StringVar(&migrateDSN, "dsn", "", "Postgres DSN (defaults to DATABASE_URL)")
	migrateCmd.AddCommand(migrateUpCmd)
	migrateCmd.AddCommand(migrateDownCmd)
	migrateCmd.AddCommand(migrateVersionCmd)
}

// withMigrationDB opens a short-lived connection; migrations do not need the
// rest of the server configuration.
func withMigrationDB(fn func(logger *slog.Logger, conn *sql.DB) error) error {
	_ = godotenv.Load()

	logger := logging.New(os.Stdout, os.Getenv("LOG_LEVEL"), os.Getenv("LOG_FORMAT"))
	dsn := migrateDSN
	if dsn == "" {
		dsn = os.Getenv("DATABASE_URL")
	}
	if dsn == "" {
		return errors.New("database DSN is required: pass --dsn or set DATABASE_URL")
	}

	conn, err := db.Connect(dsn, 5*time.Second, logger)
	if err != nil {
		return err
	}
	defer conn.Close()

	return fn(logger, conn)
}
