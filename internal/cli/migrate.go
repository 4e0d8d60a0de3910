package cli

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	_ "github.com/lib/pq"
	"github.com/spf13/cobra"

	"github.com/EgehanKilicarslan/bienesraices/internal/config"
	"github.com/EgehanKilicarslan/bienesraices/internal/database"
)

var errSQLiteMigrations = errors.New("migrations target PostgreSQL, the SQLite schema is created on startup")

func newMigrateCommand() *cobra.Command {
	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
	}

	for _, sub := range []struct {
		name  string
		short string
	}{
		{"up", "Apply all up migrations"},
		{"down", "Roll back the latest migration"},
		{"status", "Print the migration status"},
	} {
		command := sub.name
		migrateCmd.AddCommand(&cobra.Command{
			Use:   command,
			Short: sub.short,
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				cfg, logger := bootstrap()
				return runMigrations(cfg, command, logger)
			},
		})
	}

	return migrateCmd
}

func runMigrations(cfg *config.Config, command string, logger *slog.Logger) error {
	if cfg.DBDriver == "sqlite" {
		return errSQLiteMigrations
	}

	sqlDB, err := sql.Open("postgres", database.PostgresDSN(cfg))
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer sqlDB.Close()

	if err := sqlDB.Ping(); err != nil {
		return fmt.Errorf("failed to reach database: %w", err)
	}

	logger.Info("🔄 [Migrate] Running migrations...", "command", command)
	if err := database.RunMigrations(sqlDB, command); err != nil {
		return err
	}
	logger.Info("✅ [Migrate] Done", "command", command)
	return nil
}
