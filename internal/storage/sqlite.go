package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/shopspring/decimal"

	"github.com/agrovista/cosecha/internal/model"
	"github.com/agrovista/cosecha/internal/service"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// SQLiteStorage implements the Storage interface using SQLite.
type SQLiteStorage struct {
	db     *sql.DB
	dbPath string
}

// queryable abstracts *sql.DB and *sql.Tx so entity helpers can run inside
// or outside a transaction.
type queryable interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// NewSQLiteStorage creates a new SQLite storage instance.
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	if err := validateString(dbPath, "dbPath"); err != nil {
		return nil, err
	}

	// Ensure directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite doesn't benefit from multiple connections
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &SQLiteStorage{
		db:     db,
		dbPath: dbPath,
	}, nil
}

// Close closes the database connection.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// BeginTx starts a new database transaction.
func (s *SQLiteStorage) BeginTx(ctx context.Context) (service.Transaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}

	return &sqliteTransaction{
		tx:      tx,
		storage: s,
	}, nil
}

// sqliteTransaction wraps sql.Tx to implement service.Transaction.
type sqliteTransaction struct {
	tx      *sql.Tx
	storage *SQLiteStorage
}

func (t *sqliteTransaction) Commit() error {
	return t.tx.Commit()
}

func (t *sqliteTransaction) Rollback() error {
	return t.tx.Rollback()
}

// Storage methods delegate to the shared helpers with the transaction handle.

func (t *sqliteTransaction) SaveBudgetLines(ctx context.Context, lines []model.BudgetLine) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateBudgetLines(lines); err != nil {
		return err
	}
	return saveBudgetLinesTx(ctx, t.tx, lines)
}

func (t *sqliteTransaction) GetBudgetLines(ctx context.Context, campaignID string) ([]model.BudgetLine, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	return getBudgetLinesTx(ctx, t.tx, campaignID)
}

func (t *sqliteTransaction) UpdateBudgetLineActual(ctx context.Context, campaignID string, key model.MappingKey, actual decimal.NullDecimal, source model.ActualSource) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	return updateBudgetLineActualTx(ctx, t.tx, campaignID, key, actual, source)
}

func (t *sqliteTransaction) ReplaceTaxonomy(ctx context.Context, campaignID string, concepts []model.TaxonomyConcept) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	return replaceTaxonomyTx(ctx, t.tx, campaignID, concepts)
}

func (t *sqliteTransaction) GetTaxonomy(ctx context.Context, campaignID string) ([]model.TaxonomyConcept, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	return getTaxonomyTx(ctx, t.tx, campaignID)
}

func (t *sqliteTransaction) GetMapping(ctx context.Context, campaignID string, key model.MappingKey) (*model.CategoryMapping, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	return getMappingTx(ctx, t.tx, campaignID, key)
}

func (t *sqliteTransaction) GetMappings(ctx context.Context, campaignID string) ([]model.CategoryMapping, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	return getMappingsTx(ctx, t.tx, campaignID)
}

func (t *sqliteTransaction) SaveMapping(ctx context.Context, mapping *model.CategoryMapping) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateMapping(mapping); err != nil {
		return err
	}
	return saveMappingTx(ctx, t.tx, mapping)
}

func (t *sqliteTransaction) SaveProductionOrders(ctx context.Context, orders []model.ProductionOrder) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateProductionOrders(orders); err != nil {
		return err
	}
	return saveProductionOrdersTx(ctx, t.tx, orders)
}

func (t *sqliteTransaction) GetProductionOrders(ctx context.Context, campaignID string) ([]model.ProductionOrder, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	return getProductionOrdersTx(ctx, t.tx, campaignID)
}

func (t *sqliteTransaction) SaveAlerts(ctx context.Context, alerts []model.Alert) (int, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}
	return saveAlertsTx(ctx, t.tx, alerts)
}

func (t *sqliteTransaction) GetAlerts(ctx context.Context, campaignID string) ([]model.Alert, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	return getAlertsTx(ctx, t.tx, campaignID)
}

func (t *sqliteTransaction) AcknowledgeAlert(ctx context.Context, alertID string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	return acknowledgeAlertTx(ctx, t.tx, alertID)
}

func (t *sqliteTransaction) SaveKPIs(ctx context.Context, kpis *model.CampaignKPIs) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	return saveKPIsTx(ctx, t.tx, kpis)
}

func (t *sqliteTransaction) GetKPIs(ctx context.Context, campaignID string) (*model.CampaignKPIs, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	return getKPIsTx(ctx, t.tx, campaignID)
}

func (t *sqliteTransaction) ListCampaigns(ctx context.Context) ([]service.CampaignSummary, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	return listCampaignsTx(ctx, t.tx)
}

func (t *sqliteTransaction) Migrate(_ context.Context) error {
	return fmt.Errorf("cannot migrate inside a transaction")
}

func (t *sqliteTransaction) BeginTx(_ context.Context) (service.Transaction, error) {
	return nil, fmt.Errorf("nested transactions are not supported")
}

func (t *sqliteTransaction) Close() error {
	return fmt.Errorf("cannot close storage from a transaction")
}
