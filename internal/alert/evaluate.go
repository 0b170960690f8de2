// Package alert evaluates campaign KPIs against configured thresholds and
// emits alerts.
package alert

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/agrovista/cosecha/internal/model"
)

// Thresholds configures the alert rules. Values are percentages.
type Thresholds struct {
	// VariancePercent triggers a campaign alert when the absolute budget
	// variance exceeds it.
	VariancePercent decimal.Decimal
	// QuantityDeviation triggers an order alert when produced quantity
	// deviates from the estimate by more than this fraction of the estimate.
	QuantityDeviation decimal.Decimal
}

// DefaultThresholds returns the default 10% thresholds.
func DefaultThresholds() Thresholds {
	ten := decimal.NewFromInt(10)
	return Thresholds{
		VariancePercent:   ten,
		QuantityDeviation: ten,
	}
}

var hundred = decimal.NewFromInt(100)

// Evaluate applies the alert rules to one campaign's KPIs and orders. It is
// pure and produces at most one alert per (related entity, type); the storage
// layer deduplicates against previously persisted alerts on the same key.
func Evaluate(kpis *model.CampaignKPIs, orders []model.ProductionOrder, thresholds Thresholds) []model.Alert {
	now := time.Now()
	var alerts []model.Alert

	if kpis.VariancePercent.Abs().GreaterThan(thresholds.VariancePercent) {
		severity := model.SeverityWarning
		direction := "over"
		if kpis.VariancePercent.IsNegative() {
			severity = model.SeverityInfo
			direction = "under"
		}
		alerts = append(alerts, model.Alert{
			ID:            uuid.NewString(),
			CampaignID:    kpis.CampaignID,
			Severity:      severity,
			Type:          model.AlertTypeBudgetVariance,
			Message:       fmt.Sprintf("campaign is %s budget by %s%%", direction, kpis.VariancePercent.Abs().StringFixed(1)),
			RelatedEntity: "campaign/" + kpis.CampaignID,
			CreatedAt:     now,
		})
	}

	for i := range orders {
		o := &orders[i]
		if !o.EstimatedQty.GreaterThan(decimal.Zero) {
			continue
		}
		deviation := o.ProducedQty.Sub(o.EstimatedQty).Abs().Div(o.EstimatedQty).Mul(hundred)
		if !deviation.GreaterThan(thresholds.QuantityDeviation) {
			continue
		}
		alerts = append(alerts, model.Alert{
			ID:         uuid.NewString(),
			CampaignID: kpis.CampaignID,
			Severity:   model.SeverityWarning,
			Type:       model.AlertTypeOrderQuantity,
			Message: fmt.Sprintf("order %s produced %s against an estimate of %s (%s%% deviation)",
				o.Number, o.ProducedQty.String(), o.EstimatedQty.String(), deviation.StringFixed(1)),
			RelatedEntity: "order/" + o.Number,
			CreatedAt:     now,
		})
	}

	return alerts
}
