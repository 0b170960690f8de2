package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
)

// ExpectedSchemaVersion is the latest schema version that the application expects.
// If the database cannot be migrated to this version, it's a fatal error.
const ExpectedSchemaVersion = 3

// Migration represents a database schema migration.
type Migration struct {
	Up          func(*sql.Tx) error
	Description string
	Version     int
}

var migrations = []Migration{
	{
		Version:     1,
		Description: "Initial schema",
		Up: func(tx *sql.Tx) error {
			queries := []string{
				`CREATE TABLE IF NOT EXISTS budget_lines (
					campaign_id TEXT NOT NULL,
					category TEXT NOT NULL,
					process TEXT NOT NULL,
					budget_amount TEXT NOT NULL,
					actual_amount TEXT,
					actual_source TEXT NOT NULL DEFAULT 'none',
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
					updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
					PRIMARY KEY (campaign_id, category, process)
				)`,
				`CREATE INDEX idx_budget_lines_campaign ON budget_lines(campaign_id)`,

				`CREATE TABLE IF NOT EXISTS taxonomy_concepts (
					campaign_id TEXT NOT NULL,
					name TEXT NOT NULL,
					total_amount TEXT NOT NULL,
					nursery_total TEXT NOT NULL DEFAULT '0',
					field_total TEXT NOT NULL DEFAULT '0',
					packing_total TEXT NOT NULL DEFAULT '0',
					PRIMARY KEY (campaign_id, name)
				)`,

				`CREATE TABLE IF NOT EXISTS category_mappings (
					campaign_id TEXT NOT NULL,
					budget_category TEXT NOT NULL,
					budget_process TEXT NOT NULL,
					eeff_concept TEXT NOT NULL DEFAULT '',
					confidence INTEGER NOT NULL DEFAULT 0,
					match_type TEXT NOT NULL DEFAULT 'none',
					confirmed INTEGER NOT NULL DEFAULT 0,
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
					updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
					PRIMARY KEY (campaign_id, budget_category, budget_process)
				)`,
				`CREATE INDEX idx_mappings_confirmed ON category_mappings(campaign_id, confirmed)`,

				`CREATE TABLE IF NOT EXISTS production_orders (
					campaign_id TEXT NOT NULL,
					number TEXT NOT NULL,
					type TEXT NOT NULL,
					status TEXT NOT NULL,
					estimated_qty TEXT NOT NULL DEFAULT '0',
					produced_qty TEXT NOT NULL DEFAULT '0',
					total_cost TEXT NOT NULL DEFAULT '0',
					PRIMARY KEY (campaign_id, number)
				)`,
			}

			for _, query := range queries {
				if _, err := tx.Exec(query); err != nil {
					return fmt.Errorf("failed to execute query: %w", err)
				}
			}
			return nil
		},
	},
	{
		Version:     2,
		Description: "Alerts with per-entity deduplication",
		Up: func(tx *sql.Tx) error {
			queries := []string{
				`CREATE TABLE IF NOT EXISTS alerts (
					id TEXT PRIMARY KEY,
					campaign_id TEXT NOT NULL,
					severity TEXT NOT NULL,
					type TEXT NOT NULL,
					message TEXT NOT NULL,
					related_entity TEXT NOT NULL,
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
					acknowledged_at DATETIME
				)`,
				// One alert per entity and condition; re-evaluation must not
				// produce duplicates.
				`CREATE UNIQUE INDEX idx_alerts_entity_type
					ON alerts(campaign_id, related_entity, type)`,
			}

			for _, query := range queries {
				if _, err := tx.Exec(query); err != nil {
					return fmt.Errorf("failed to execute query: %w", err)
				}
			}
			return nil
		},
	},
	{
		Version:     3,
		Description: "KPI projection cache",
		Up: func(tx *sql.Tx) error {
			query := `CREATE TABLE IF NOT EXISTS campaign_kpis (
				campaign_id TEXT PRIMARY KEY,
				total_budget TEXT NOT NULL,
				total_actual TEXT NOT NULL,
				variance TEXT NOT NULL,
				variance_percent TEXT NOT NULL,
				unit_cost TEXT NOT NULL,
				total_produced_qty TEXT NOT NULL,
				open_orders INTEGER NOT NULL,
				closed_orders INTEGER NOT NULL,
				per_process TEXT NOT NULL,
				top_categories TEXT NOT NULL,
				computed_at DATETIME NOT NULL
			)`
			if _, err := tx.Exec(query); err != nil {
				return fmt.Errorf("failed to execute query: %w", err)
			}
			return nil
		},
	},
}

// Migrate applies any pending schema migrations.
func (s *SQLiteStorage) Migrate(ctx context.Context) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	// Get current version
	var currentVersion int
	err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&currentVersion)
	if err != nil {
		return fmt.Errorf("failed to get schema version: %w", err)
	}

	for _, migration := range migrations {
		if migration.Version <= currentVersion {
			continue
		}

		tx, txErr := s.db.BeginTx(ctx, nil)
		if txErr != nil {
			return fmt.Errorf("failed to begin transaction: %w", txErr)
		}

		if upErr := migration.Up(tx); upErr != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %d failed: %w", migration.Version, upErr)
		}

		if _, execErr := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", migration.Version)); execErr != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to update schema version: %w", execErr)
		}

		if commitErr := tx.Commit(); commitErr != nil {
			return fmt.Errorf("failed to commit migration %d: %w", migration.Version, commitErr)
		}

		slog.Info("Applied migration",
			"version", migration.Version,
			"description", migration.Description)
	}

	// Verify we're at the expected schema version
	var finalVersion int
	err = s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&finalVersion)
	if err != nil {
		return fmt.Errorf("failed to verify final schema version: %w", err)
	}

	if finalVersion != ExpectedSchemaVersion {
		return fmt.Errorf("database schema version mismatch: expected %d, got %d", ExpectedSchemaVersion, finalVersion)
	}

	return nil
}
