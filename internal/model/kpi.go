package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// ProcessTotals holds the budget/actual aggregate for one production process.
type ProcessTotals struct {
	Budget decimal.Decimal
	Actual decimal.Decimal
}

// CategoryShare is one entry of the top-N category distribution surfaced for
// reporting. Amount is the line's actual when non-zero, otherwise its budget.
type CategoryShare struct {
	Category string
	Process  Process
	Amount   decimal.Decimal
}

// CampaignKPIs is the derived campaign-level summary. It is always a
// projection recomputed from reconciliation output and production orders,
// never a source of truth.
type CampaignKPIs struct {
	ComputedAt       time.Time
	CampaignID       string
	PerProcess       map[Process]ProcessTotals
	TopCategories    []CategoryShare
	TotalBudget      decimal.Decimal
	TotalActual      decimal.Decimal
	Variance         decimal.Decimal
	VariancePercent  decimal.Decimal
	UnitCost         decimal.Decimal
	TotalProducedQty decimal.Decimal
	OpenOrders       int
	ClosedOrders     int
}
