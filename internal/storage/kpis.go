package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/agrovista/cosecha/internal/common"
	"github.com/agrovista/cosecha/internal/model"
)

// SaveKPIs stores the campaign's KPI projection. The projection is a cache
// of derived values; the source of truth is always a fresh recompute.
func (s *SQLiteStorage) SaveKPIs(ctx context.Context, kpis *model.CampaignKPIs) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if kpis == nil {
		return fmt.Errorf("%w: kpis", ErrNilParameter)
	}
	if err := validateString(kpis.CampaignID, "kpis.CampaignID"); err != nil {
		return err
	}
	return saveKPIsTx(ctx, s.db, kpis)
}

func saveKPIsTx(ctx context.Context, q queryable, kpis *model.CampaignKPIs) error {
	perProcess, err := json.Marshal(kpis.PerProcess)
	if err != nil {
		return fmt.Errorf("failed to marshal per-process totals: %w", err)
	}
	topCategories, err := json.Marshal(kpis.TopCategories)
	if err != nil {
		return fmt.Errorf("failed to marshal top categories: %w", err)
	}

	computedAt := kpis.ComputedAt
	if computedAt.IsZero() {
		computedAt = time.Now()
	}

	_, err = q.ExecContext(ctx, `
		INSERT INTO campaign_kpis (campaign_id, total_budget, total_actual, variance, variance_percent,
			unit_cost, total_produced_qty, open_orders, closed_orders, per_process, top_categories, computed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(campaign_id) DO UPDATE SET
			total_budget = excluded.total_budget,
			total_actual = excluded.total_actual,
			variance = excluded.variance,
			variance_percent = excluded.variance_percent,
			unit_cost = excluded.unit_cost,
			total_produced_qty = excluded.total_produced_qty,
			open_orders = excluded.open_orders,
			closed_orders = excluded.closed_orders,
			per_process = excluded.per_process,
			top_categories = excluded.top_categories,
			computed_at = excluded.computed_at
	`, kpis.CampaignID, decToText(kpis.TotalBudget), decToText(kpis.TotalActual),
		decToText(kpis.Variance), decToText(kpis.VariancePercent), decToText(kpis.UnitCost),
		decToText(kpis.TotalProducedQty), kpis.OpenOrders, kpis.ClosedOrders,
		string(perProcess), string(topCategories), computedAt)

	if err != nil {
		return fmt.Errorf("failed to save KPI projection: %w", err)
	}
	return nil
}

// GetKPIs retrieves the last persisted KPI projection for a campaign.
// Returns common.ErrNotFound when no projection has been computed yet.
func (s *SQLiteStorage) GetKPIs(ctx context.Context, campaignID string) (*model.CampaignKPIs, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(campaignID, "campaignID"); err != nil {
		return nil, err
	}
	return getKPIsTx(ctx, s.db, campaignID)
}

func getKPIsTx(ctx context.Context, q queryable, campaignID string) (*model.CampaignKPIs, error) {
	var (
		kpis          model.CampaignKPIs
		totalBudget   string
		totalActual   string
		variance      string
		variancePct   string
		unitCost      string
		producedQty   string
		perProcess    string
		topCategories string
	)

	err := q.QueryRowContext(ctx, `
		SELECT campaign_id, total_budget, total_actual, variance, variance_percent,
			unit_cost, total_produced_qty, open_orders, closed_orders, per_process, top_categories, computed_at
		FROM campaign_kpis
		WHERE campaign_id = ?
	`, campaignID).Scan(
		&kpis.CampaignID,
		&totalBudget,
		&totalActual,
		&variance,
		&variancePct,
		&unitCost,
		&producedQty,
		&kpis.OpenOrders,
		&kpis.ClosedOrders,
		&perProcess,
		&topCategories,
		&kpis.ComputedAt,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: KPIs for campaign %s", common.ErrNotFound, campaignID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get KPI projection: %w", err)
	}

	if kpis.TotalBudget, err = textToDec(totalBudget); err != nil {
		return nil, err
	}
	if kpis.TotalActual, err = textToDec(totalActual); err != nil {
		return nil, err
	}
	if kpis.Variance, err = textToDec(variance); err != nil {
		return nil, err
	}
	if kpis.VariancePercent, err = textToDec(variancePct); err != nil {
		return nil, err
	}
	if kpis.UnitCost, err = textToDec(unitCost); err != nil {
		return nil, err
	}
	if kpis.TotalProducedQty, err = textToDec(producedQty); err != nil {
		return nil, err
	}
	if err = json.Unmarshal([]byte(perProcess), &kpis.PerProcess); err != nil {
		return nil, fmt.Errorf("failed to unmarshal per-process totals: %w", err)
	}
	if err = json.Unmarshal([]byte(topCategories), &kpis.TopCategories); err != nil {
		return nil, fmt.Errorf("failed to unmarshal top categories: %w", err)
	}

	return &kpis, nil
}
