package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// ActualSource records where a budget line's actual amount came from.
type ActualSource string

// Actual amount provenance.
const (
	// ActualSourceNone means no actual has been resolved for the line yet.
	ActualSourceNone ActualSource = "none"
	// ActualSourceImport means the actual came directly from an ingestion file.
	// Imported actuals always take precedence over reconciled ones.
	ActualSourceImport ActualSource = "import"
	// ActualSourceReconciled means the actual was derived from a confirmed
	// mapping onto the accounting taxonomy.
	ActualSourceReconciled ActualSource = "reconciled"
)

// BudgetLine is a single budgeted cost item within a campaign. Its identity
// (Category, Process) is immutable for the life of the campaign.
type BudgetLine struct {
	CreatedAt    time.Time
	UpdatedAt    time.Time
	CampaignID   string
	Category     string
	Process      Process
	ActualSource ActualSource
	BudgetAmount decimal.Decimal
	ActualAmount decimal.NullDecimal
}

// Key returns the ledger key identifying this line within its campaign.
func (b *BudgetLine) Key() MappingKey {
	return MappingKey{Category: b.Category, Process: b.Process}
}
