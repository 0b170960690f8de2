package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"

	"github.com/agrovista/cosecha/internal/alert"
	"github.com/agrovista/cosecha/internal/engine"
	"github.com/agrovista/cosecha/internal/storage"
)

// openStorage opens the configured database and ensures the schema is
// current.
func openStorage(ctx context.Context) (*storage.SQLiteStorage, error) {
	dbPath := viper.GetString("database.path")
	if dbPath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		dbPath = filepath.Join(home, ".local", "share", "cosecha", "cosecha.db")
	}

	store, err := storage.NewSQLiteStorage(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open storage: %w", err)
	}

	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// newEngine builds an engine from the configured thresholds.
func newEngine(store *storage.SQLiteStorage) *engine.Engine {
	config := engine.DefaultConfig()
	config.Thresholds = alert.Thresholds{
		VariancePercent:   decimal.NewFromFloat(viper.GetFloat64("alerts.variance_threshold")),
		QuantityDeviation: decimal.NewFromFloat(viper.GetFloat64("alerts.quantity_threshold")),
	}
	config.TopCategories = viper.GetInt("reconcile.top_categories")
	config.LockTimeout = viper.GetDuration("lock.timeout")
	config.MinConfidence = viper.GetInt("match.min_confidence")

	return engine.NewWithConfig(store, config)
}
