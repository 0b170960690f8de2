package storage

import (
	"context"
	"fmt"

	"github.com/agrovista/cosecha/internal/model"
)

// SaveProductionOrders inserts or updates production orders by number.
// Status only ever moves open -> closed; a re-import reflects the export's
// current state.
func (s *SQLiteStorage) SaveProductionOrders(ctx context.Context, orders []model.ProductionOrder) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateProductionOrders(orders); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := saveProductionOrdersTx(ctx, tx, orders); err != nil {
		return err
	}

	return tx.Commit()
}

func saveProductionOrdersTx(ctx context.Context, q queryable, orders []model.ProductionOrder) error {
	for i := range orders {
		o := &orders[i]
		_, err := q.ExecContext(ctx, `
			INSERT INTO production_orders (campaign_id, number, type, status, estimated_qty, produced_qty, total_cost)
			VALUES (?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(campaign_id, number) DO UPDATE SET
				type = excluded.type,
				status = excluded.status,
				estimated_qty = excluded.estimated_qty,
				produced_qty = excluded.produced_qty,
				total_cost = excluded.total_cost
		`, o.CampaignID, o.Number, string(o.Type), string(o.Status),
			decToText(o.EstimatedQty), decToText(o.ProducedQty), decToText(o.TotalCost))
		if err != nil {
			return fmt.Errorf("failed to save production order %q: %w", o.Number, err)
		}
	}
	return nil
}

// GetProductionOrders retrieves the campaign's production orders by number.
func (s *SQLiteStorage) GetProductionOrders(ctx context.Context, campaignID string) ([]model.ProductionOrder, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(campaignID, "campaignID"); err != nil {
		return nil, err
	}
	return getProductionOrdersTx(ctx, s.db, campaignID)
}

func getProductionOrdersTx(ctx context.Context, q queryable, campaignID string) ([]model.ProductionOrder, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT campaign_id, number, type, status, estimated_qty, produced_qty, total_cost
		FROM production_orders
		WHERE campaign_id = ?
		ORDER BY number
	`, campaignID)
	if err != nil {
		return nil, fmt.Errorf("failed to query production orders: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var orders []model.ProductionOrder
	for rows.Next() {
		var (
			o                         model.ProductionOrder
			orderType, status         string
			estimated, produced, cost string
		)
		if err := rows.Scan(&o.CampaignID, &o.Number, &orderType, &status, &estimated, &produced, &cost); err != nil {
			return nil, fmt.Errorf("failed to scan production order: %w", err)
		}
		o.Type = model.Process(orderType)
		o.Status = model.OrderStatus(status)
		if o.EstimatedQty, err = textToDec(estimated); err != nil {
			return nil, err
		}
		if o.ProducedQty, err = textToDec(produced); err != nil {
			return nil, err
		}
		if o.TotalCost, err = textToDec(cost); err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}

	return orders, rows.Err()
}
