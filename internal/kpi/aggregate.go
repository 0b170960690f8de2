// Package kpi rolls reconciled process totals and production orders into
// campaign-level summary metrics.
package kpi

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/agrovista/cosecha/internal/model"
)

var hundred = decimal.NewFromInt(100)

// Aggregate computes the campaign KPI projection. It is pure and safely
// re-callable; persistence is the caller's concern.
//
// When every process actual is zero the total actual falls back to the sum of
// order costs, preserving partial visibility for campaigns that have orders
// before any mapping is confirmed. Variance percent and unit cost are zero,
// never an error, when their denominators are zero.
func Aggregate(campaignID string, totals map[model.Process]model.ProcessTotals, topCategories []model.CategoryShare, orders []model.ProductionOrder) model.CampaignKPIs {
	kpis := model.CampaignKPIs{
		CampaignID:       campaignID,
		ComputedAt:       time.Now(),
		PerProcess:       make(map[model.Process]model.ProcessTotals, len(totals)),
		TopCategories:    topCategories,
		TotalBudget:      decimal.Zero,
		TotalActual:      decimal.Zero,
		TotalProducedQty: decimal.Zero,
	}

	for p, t := range totals {
		kpis.PerProcess[p] = t
		kpis.TotalBudget = kpis.TotalBudget.Add(t.Budget)
		kpis.TotalActual = kpis.TotalActual.Add(t.Actual)
	}

	orderCost := decimal.Zero
	for i := range orders {
		o := &orders[i]
		orderCost = orderCost.Add(o.TotalCost)
		kpis.TotalProducedQty = kpis.TotalProducedQty.Add(o.ProducedQty)
		switch o.Status {
		case model.OrderStatusClosed:
			kpis.ClosedOrders++
		default:
			kpis.OpenOrders++
		}
	}

	if kpis.TotalActual.IsZero() {
		kpis.TotalActual = orderCost
	}

	kpis.Variance = kpis.TotalActual.Sub(kpis.TotalBudget)
	if kpis.TotalBudget.GreaterThan(decimal.Zero) {
		kpis.VariancePercent = kpis.Variance.Div(kpis.TotalBudget).Mul(hundred)
	} else {
		kpis.VariancePercent = decimal.Zero
	}

	if kpis.TotalProducedQty.GreaterThan(decimal.Zero) {
		kpis.UnitCost = kpis.TotalActual.Div(kpis.TotalProducedQty)
	} else {
		kpis.UnitCost = decimal.Zero
	}

	return kpis
}
