package storage

import (
	"context"
	"fmt"

	"github.com/agrovista/cosecha/internal/model"
)

// ReplaceTaxonomy swaps the campaign's EEFF concept set wholesale. Each
// accounting ingestion replaces the previous set; downstream stages only
// ever read it.
func (s *SQLiteStorage) ReplaceTaxonomy(ctx context.Context, campaignID string, concepts []model.TaxonomyConcept) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(campaignID, "campaignID"); err != nil {
		return err
	}
	if err := validateConcepts(concepts); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := replaceTaxonomyTx(ctx, tx, campaignID, concepts); err != nil {
		return err
	}

	return tx.Commit()
}

func replaceTaxonomyTx(ctx context.Context, q queryable, campaignID string, concepts []model.TaxonomyConcept) error {
	if _, err := q.ExecContext(ctx, `DELETE FROM taxonomy_concepts WHERE campaign_id = ?`, campaignID); err != nil {
		return fmt.Errorf("failed to clear taxonomy: %w", err)
	}

	for i := range concepts {
		c := &concepts[i]
		_, err := q.ExecContext(ctx, `
			INSERT INTO taxonomy_concepts (campaign_id, name, total_amount, nursery_total, field_total, packing_total)
			VALUES (?, ?, ?, ?, ?, ?)
		`, campaignID, c.Name, decToText(c.TotalAmount),
			decToText(c.NurseryTotal), decToText(c.FieldTotal), decToText(c.PackingTotal))
		if err != nil {
			return fmt.Errorf("failed to insert concept %q: %w", c.Name, err)
		}
	}
	return nil
}

// GetTaxonomy retrieves the campaign's concept set in lexical order. An empty
// result is not an error; reconciliation degrades to budget-only output.
func (s *SQLiteStorage) GetTaxonomy(ctx context.Context, campaignID string) ([]model.TaxonomyConcept, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(campaignID, "campaignID"); err != nil {
		return nil, err
	}
	return getTaxonomyTx(ctx, s.db, campaignID)
}

func getTaxonomyTx(ctx context.Context, q queryable, campaignID string) ([]model.TaxonomyConcept, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT campaign_id, name, total_amount, nursery_total, field_total, packing_total
		FROM taxonomy_concepts
		WHERE campaign_id = ?
		ORDER BY name
	`, campaignID)
	if err != nil {
		return nil, fmt.Errorf("failed to query taxonomy: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var concepts []model.TaxonomyConcept
	for rows.Next() {
		var (
			c                             model.TaxonomyConcept
			total, nursery, field, packing string
		)
		if err := rows.Scan(&c.CampaignID, &c.Name, &total, &nursery, &field, &packing); err != nil {
			return nil, fmt.Errorf("failed to scan concept: %w", err)
		}
		if c.TotalAmount, err = textToDec(total); err != nil {
			return nil, err
		}
		if c.NurseryTotal, err = textToDec(nursery); err != nil {
			return nil, err
		}
		if c.FieldTotal, err = textToDec(field); err != nil {
			return nil, err
		}
		if c.PackingTotal, err = textToDec(packing); err != nil {
			return nil, err
		}
		concepts = append(concepts, c)
	}

	return concepts, rows.Err()
}
