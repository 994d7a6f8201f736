package app

import (
	"fmt"
	"os"

	"frameforge/internal/config"
	"frameforge/internal/database"
	"frameforge/internal/database/migrations"
)

// MigrateDatabase brings the configured database to the latest schema,
// creating the data directory when needed. It returns the database path.
func MigrateDatabase(cfg config.DatabaseConfig) (string, error) {
	if cfg.Type == "sqlite" && cfg.DataDir != "" {
		if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
			return "", fmt.Errorf("creating data directory: %w", err)
		}
	}
	store, err := database.NewStoreFromConfig(cfg)
	if err != nil {
		return "", fmt.Errorf("opening database: %w", err)
	}
	defer store.Close()

	if err := store.MigrateUp(); err != nil {
		return "", err
	}
	return store.Path(), nil
}

// DatabaseStatus reports the schema version of the configured database
// without changing it.
func DatabaseStatus(cfg config.DatabaseConfig) (migrations.Status, error) {
	store, err := database.NewStoreFromConfig(cfg)
	if err != nil {
		return migrations.Status{}, fmt.Errorf("opening database: %w", err)
	}
	defer store.Close()
	return store.SchemaStatus()
}
