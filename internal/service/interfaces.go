// Package service defines the interfaces for all application services.
package service

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/agrovista/cosecha/internal/model"
)

// Storage defines the contract for our persistence layer.
type Storage interface {
	// Budget line operations
	SaveBudgetLines(ctx context.Context, lines []model.BudgetLine) error
	GetBudgetLines(ctx context.Context, campaignID string) ([]model.BudgetLine, error)
	UpdateBudgetLineActual(ctx context.Context, campaignID string, key model.MappingKey, actual decimal.NullDecimal, source model.ActualSource) error

	// Taxonomy operations
	ReplaceTaxonomy(ctx context.Context, campaignID string, concepts []model.TaxonomyConcept) error
	GetTaxonomy(ctx context.Context, campaignID string) ([]model.TaxonomyConcept, error)

	// Mapping ledger rows
	GetMapping(ctx context.Context, campaignID string, key model.MappingKey) (*model.CategoryMapping, error)
	GetMappings(ctx context.Context, campaignID string) ([]model.CategoryMapping, error)
	SaveMapping(ctx context.Context, mapping *model.CategoryMapping) error

	// Production order operations
	SaveProductionOrders(ctx context.Context, orders []model.ProductionOrder) error
	GetProductionOrders(ctx context.Context, campaignID string) ([]model.ProductionOrder, error)

	// Alert operations
	SaveAlerts(ctx context.Context, alerts []model.Alert) (int, error)
	GetAlerts(ctx context.Context, campaignID string) ([]model.Alert, error)
	AcknowledgeAlert(ctx context.Context, alertID string) error

	// KPI projection
	SaveKPIs(ctx context.Context, kpis *model.CampaignKPIs) error
	GetKPIs(ctx context.Context, campaignID string) (*model.CampaignKPIs, error)

	// Campaign overview
	ListCampaigns(ctx context.Context) ([]CampaignSummary, error)

	// Database management
	Migrate(ctx context.Context) error
	BeginTx(ctx context.Context) (Transaction, error)
	Close() error
}

// Transaction represents a database transaction.
type Transaction interface {
	Commit() error
	Rollback() error
	// Include all Storage methods for use within transaction
	Storage
}

// CampaignSummary describes the amount of data loaded for one campaign.
type CampaignSummary struct {
	CampaignID        string
	BudgetLines       int
	TaxonomyConcepts  int
	Mappings          int
	ConfirmedMappings int
	ProductionOrders  int
}

// RetryOptions configures retry behavior for operations.
type RetryOptions struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}
