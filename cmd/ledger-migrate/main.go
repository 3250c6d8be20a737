package main

import (
	"os"

	"github.com/jonssons-io/project-yoshi-sub001/internal/cli"
	"github.com/jonssons-io/project-yoshi-sub001/internal/config"
	"github.com/jonssons-io/project-yoshi-sub001/internal/log"
	"github.com/jonssons-io/project-yoshi-sub001/internal/storage"
)

// ledger-migrate applies the embedded schema migrations to SQLITE_DB_PATH
// and reports the resulting version. ValidateStore creates the database
// directory.
func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"))

	cfg := cli.LoadAndValidateConfig(logger, (*config.Config).ValidateStore)
	if cfg.DataBackend != "sqlite" {
		logger.Error("ledger-migrate only applies to the sqlite backend",
			"data_backend", cfg.DataBackend,
			log.FieldErrorType, log.ErrorTypeConfiguration)
		os.Exit(1)
	}

	before, _, err := storage.MigrationVersion(cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("Failed to read schema version", log.FieldError, err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}

	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	if err := repo.Close(); err != nil {
		logger.Warn("Error closing database", log.FieldError, err)
	}

	after, dirty, err := storage.MigrationVersion(cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("Failed to read schema version", log.FieldError, err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	if dirty {
		logger.Error("Database left dirty by a failed migration", "version", after)
		os.Exit(1)
	}

	logger.Info("Schema up to date",
		"path", cfg.SQLiteDBPath,
		"from_version", before,
		"to_version", after)
}
