package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/agrovista/cosecha/internal/common"
	"github.com/agrovista/cosecha/internal/model"
)

// GetMapping retrieves one ledger row by its key. Returns common.ErrNotFound
// when no row exists.
func (s *SQLiteStorage) GetMapping(ctx context.Context, campaignID string, key model.MappingKey) (*model.CategoryMapping, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(campaignID, "campaignID"); err != nil {
		return nil, err
	}
	return getMappingTx(ctx, s.db, campaignID, key)
}

func getMappingTx(ctx context.Context, q queryable, campaignID string, key model.MappingKey) (*model.CategoryMapping, error) {
	var (
		m         model.CategoryMapping
		process   string
		matchType string
		confirmed int
	)

	err := q.QueryRowContext(ctx, `
		SELECT campaign_id, budget_category, budget_process, eeff_concept, confidence, match_type, confirmed, created_at, updated_at
		FROM category_mappings
		WHERE campaign_id = ? AND budget_category = ? AND budget_process = ?
	`, campaignID, key.Category, string(key.Process)).Scan(
		&m.CampaignID,
		&m.BudgetCategory,
		&process,
		&m.EEFFConcept,
		&m.Confidence,
		&matchType,
		&confirmed,
		&m.CreatedAt,
		&m.UpdatedAt,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: mapping %s/%s", common.ErrNotFound, key.Category, key.Process)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get mapping: %w", err)
	}

	m.BudgetProcess = model.Process(process)
	m.MatchType = model.MatchType(matchType)
	m.Confirmed = confirmed != 0

	return &m, nil
}

// GetMappings retrieves all ledger rows of a campaign in key order.
func (s *SQLiteStorage) GetMappings(ctx context.Context, campaignID string) ([]model.CategoryMapping, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(campaignID, "campaignID"); err != nil {
		return nil, err
	}
	return getMappingsTx(ctx, s.db, campaignID)
}

func getMappingsTx(ctx context.Context, q queryable, campaignID string) ([]model.CategoryMapping, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT campaign_id, budget_category, budget_process, eeff_concept, confidence, match_type, confirmed, created_at, updated_at
		FROM category_mappings
		WHERE campaign_id = ?
		ORDER BY budget_process, budget_category
	`, campaignID)
	if err != nil {
		return nil, fmt.Errorf("failed to query mappings: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var mappings []model.CategoryMapping
	for rows.Next() {
		var (
			m         model.CategoryMapping
			process   string
			matchType string
			confirmed int
		)
		if err := rows.Scan(
			&m.CampaignID,
			&m.BudgetCategory,
			&process,
			&m.EEFFConcept,
			&m.Confidence,
			&matchType,
			&confirmed,
			&m.CreatedAt,
			&m.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan mapping: %w", err)
		}
		m.BudgetProcess = model.Process(process)
		m.MatchType = model.MatchType(matchType)
		m.Confirmed = confirmed != 0
		mappings = append(mappings, m)
	}

	return mappings, rows.Err()
}

// SaveMapping inserts or updates a ledger row. Rows are never deleted; the
// ignored state supersedes deletion so history stays auditable.
func (s *SQLiteStorage) SaveMapping(ctx context.Context, mapping *model.CategoryMapping) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateMapping(mapping); err != nil {
		return err
	}
	return saveMappingTx(ctx, s.db, mapping)
}

func saveMappingTx(ctx context.Context, q queryable, mapping *model.CategoryMapping) error {
	if mapping.CreatedAt.IsZero() {
		mapping.CreatedAt = time.Now()
	}
	mapping.UpdatedAt = time.Now()

	confirmed := 0
	if mapping.Confirmed {
		confirmed = 1
	}

	_, err := q.ExecContext(ctx, `
		INSERT INTO category_mappings (campaign_id, budget_category, budget_process, eeff_concept, confidence, match_type, confirmed, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(campaign_id, budget_category, budget_process) DO UPDATE SET
			eeff_concept = excluded.eeff_concept,
			confidence = excluded.confidence,
			match_type = excluded.match_type,
			confirmed = excluded.confirmed,
			updated_at = excluded.updated_at
	`, mapping.CampaignID, mapping.BudgetCategory, string(mapping.BudgetProcess),
		mapping.EEFFConcept, mapping.Confidence, string(mapping.MatchType),
		confirmed, mapping.CreatedAt, mapping.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to save mapping: %w", err)
	}

	return nil
}
