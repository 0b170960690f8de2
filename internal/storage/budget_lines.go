package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/agrovista/cosecha/internal/common"
	"github.com/agrovista/cosecha/internal/model"
)

// SaveBudgetLines inserts or updates budget lines. The (campaign, category,
// process) identity is immutable; re-importing a file updates amounts in
// place. A direct import never downgrades an imported actual to a derived one.
func (s *SQLiteStorage) SaveBudgetLines(ctx context.Context, lines []model.BudgetLine) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateBudgetLines(lines); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := saveBudgetLinesTx(ctx, tx, lines); err != nil {
		return err
	}

	return tx.Commit()
}

func saveBudgetLinesTx(ctx context.Context, q queryable, lines []model.BudgetLine) error {
	for i := range lines {
		line := &lines[i]
		if line.ActualSource == "" {
			line.ActualSource = model.ActualSourceNone
		}
		_, err := q.ExecContext(ctx, `
			INSERT INTO budget_lines (campaign_id, category, process, budget_amount, actual_amount, actual_source, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
			ON CONFLICT(campaign_id, category, process) DO UPDATE SET
				budget_amount = excluded.budget_amount,
				actual_amount = COALESCE(excluded.actual_amount, budget_lines.actual_amount),
				actual_source = CASE
					WHEN excluded.actual_amount IS NOT NULL THEN excluded.actual_source
					ELSE budget_lines.actual_source
				END,
				updated_at = CURRENT_TIMESTAMP
		`, line.CampaignID, line.Category, string(line.Process),
			decToText(line.BudgetAmount), nullDecToText(line.ActualAmount), string(line.ActualSource))
		if err != nil {
			return fmt.Errorf("failed to save budget line %q/%s: %w", line.Category, line.Process, err)
		}
	}
	return nil
}

// GetBudgetLines retrieves every budget line of a campaign, ordered by
// process and category for stable output.
func (s *SQLiteStorage) GetBudgetLines(ctx context.Context, campaignID string) ([]model.BudgetLine, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(campaignID, "campaignID"); err != nil {
		return nil, err
	}
	return getBudgetLinesTx(ctx, s.db, campaignID)
}

func getBudgetLinesTx(ctx context.Context, q queryable, campaignID string) ([]model.BudgetLine, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT campaign_id, category, process, budget_amount, actual_amount, actual_source, created_at, updated_at
		FROM budget_lines
		WHERE campaign_id = ?
		ORDER BY process, category
	`, campaignID)
	if err != nil {
		return nil, fmt.Errorf("failed to query budget lines: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var lines []model.BudgetLine
	for rows.Next() {
		var (
			line      model.BudgetLine
			process   string
			budget    string
			actual    sql.NullString
			source    string
			createdAt time.Time
			updatedAt time.Time
		)
		if err := rows.Scan(&line.CampaignID, &line.Category, &process, &budget, &actual, &source, &createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan budget line: %w", err)
		}
		line.Process = model.Process(process)
		line.ActualSource = model.ActualSource(source)
		line.CreatedAt = createdAt
		line.UpdatedAt = updatedAt
		if line.BudgetAmount, err = textToDec(budget); err != nil {
			return nil, err
		}
		if line.ActualAmount, err = textToNullDec(actual); err != nil {
			return nil, err
		}
		lines = append(lines, line)
	}

	return lines, rows.Err()
}

// UpdateBudgetLineActual sets or clears the resolved actual amount of one
// line. Only the reconciliation engine and direct import call this.
func (s *SQLiteStorage) UpdateBudgetLineActual(ctx context.Context, campaignID string, key model.MappingKey, actual decimal.NullDecimal, source model.ActualSource) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(campaignID, "campaignID"); err != nil {
		return err
	}
	return updateBudgetLineActualTx(ctx, s.db, campaignID, key, actual, source)
}

func updateBudgetLineActualTx(ctx context.Context, q queryable, campaignID string, key model.MappingKey, actual decimal.NullDecimal, source model.ActualSource) error {
	result, err := q.ExecContext(ctx, `
		UPDATE budget_lines
		SET actual_amount = ?, actual_source = ?, updated_at = CURRENT_TIMESTAMP
		WHERE campaign_id = ? AND category = ? AND process = ?
	`, nullDecToText(actual), string(source), campaignID, key.Category, string(key.Process))
	if err != nil {
		return fmt.Errorf("failed to update budget line actual: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: budget line %s/%s", common.ErrNotFound, key.Category, key.Process)
	}
	return nil
}
