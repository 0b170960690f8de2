// Package testutil provides shared helpers for tests that need a real
// database: in-memory storage setup and fixture builders for campaign data.
package testutil

import (
	"context"
	"fmt"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/agrovista/cosecha/internal/model"
	"github.com/agrovista/cosecha/internal/service"
	"github.com/agrovista/cosecha/internal/storage"
)

// TestDB wraps an in-memory database for one test.
type TestDB struct {
	Storage service.Storage
	t       *testing.T
}

// SetupTestDB creates a migrated in-memory database. Cleanup is automatic.
func SetupTestDB(t *testing.T) *TestDB {
	t.Helper()

	store, err := storage.NewSQLiteStorage(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	ctx := context.Background()
	if err := store.Migrate(ctx); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	t.Cleanup(func() {
		_ = store.Close()
	})

	return &TestDB{Storage: store, t: t}
}

// SeedBudgetLines stores the given lines or fails the test.
func (db *TestDB) SeedBudgetLines(ctx context.Context, lines []model.BudgetLine) {
	db.t.Helper()
	if err := db.Storage.SaveBudgetLines(ctx, lines); err != nil {
		db.t.Fatalf("failed to seed budget lines: %v", err)
	}
}

// SeedTaxonomy replaces the campaign's taxonomy or fails the test.
func (db *TestDB) SeedTaxonomy(ctx context.Context, campaignID string, concepts []model.TaxonomyConcept) {
	db.t.Helper()
	if err := db.Storage.ReplaceTaxonomy(ctx, campaignID, concepts); err != nil {
		db.t.Fatalf("failed to seed taxonomy: %v", err)
	}
}

// SeedOrders stores the given production orders or fails the test.
func (db *TestDB) SeedOrders(ctx context.Context, orders []model.ProductionOrder) {
	db.t.Helper()
	if err := db.Storage.SaveProductionOrders(ctx, orders); err != nil {
		db.t.Fatalf("failed to seed production orders: %v", err)
	}
}

// WithTransaction runs fn inside a transaction that is always rolled back.
func (db *TestDB) WithTransaction(fn func(tx service.Transaction) error) error {
	tx, err := db.Storage.BeginTx(context.Background())
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	return fn(tx)
}

// Dec parses a decimal literal or fails the test.
func Dec(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	if err != nil {
		t.Fatalf("bad decimal literal %q: %v", s, err)
	}
	return d
}

// BudgetLine builds a budget line with no actual resolved yet.
func BudgetLine(t *testing.T, campaignID, category string, process model.Process, budget string) model.BudgetLine {
	t.Helper()
	return model.BudgetLine{
		CampaignID:   campaignID,
		Category:     category,
		Process:      process,
		BudgetAmount: Dec(t, budget),
		ActualSource: model.ActualSourceNone,
	}
}

// Concept builds a taxonomy concept. Pass "0" for sub-totals that have no
// breakdown in the source statement.
func Concept(t *testing.T, campaignID, name, total, nursery, field, packing string) model.TaxonomyConcept {
	t.Helper()
	return model.TaxonomyConcept{
		CampaignID:   campaignID,
		Name:         name,
		TotalAmount:  Dec(t, total),
		NurseryTotal: Dec(t, nursery),
		FieldTotal:   Dec(t, field),
		PackingTotal: Dec(t, packing),
	}
}

// Order builds a production order.
func Order(t *testing.T, campaignID, number string, process model.Process, status model.OrderStatus, estimated, produced, cost string) model.ProductionOrder {
	t.Helper()
	return model.ProductionOrder{
		CampaignID:   campaignID,
		Number:       number,
		Type:         process,
		Status:       status,
		EstimatedQty: Dec(t, estimated),
		ProducedQty:  Dec(t, produced),
		TotalCost:    Dec(t, cost),
	}
}
