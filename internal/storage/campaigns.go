package storage

import (
	"context"
	"fmt"
	"sort"

	"github.com/agrovista/cosecha/internal/service"
)

// ListCampaigns summarizes every campaign present in the database, sorted by
// campaign ID.
func (s *SQLiteStorage) ListCampaigns(ctx context.Context) ([]service.CampaignSummary, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	return listCampaignsTx(ctx, s.db)
}

func listCampaignsTx(ctx context.Context, q queryable) ([]service.CampaignSummary, error) {
	byID := make(map[string]*service.CampaignSummary)

	summary := func(id string) *service.CampaignSummary {
		cs, ok := byID[id]
		if !ok {
			cs = &service.CampaignSummary{CampaignID: id}
			byID[id] = cs
		}
		return cs
	}

	type countQuery struct {
		query string
		apply func(cs *service.CampaignSummary, n int)
	}

	queries := []countQuery{
		{
			query: `SELECT campaign_id, COUNT(*) FROM budget_lines GROUP BY campaign_id`,
			apply: func(cs *service.CampaignSummary, n int) { cs.BudgetLines = n },
		},
		{
			query: `SELECT campaign_id, COUNT(*) FROM taxonomy_concepts GROUP BY campaign_id`,
			apply: func(cs *service.CampaignSummary, n int) { cs.TaxonomyConcepts = n },
		},
		{
			query: `SELECT campaign_id, COUNT(*) FROM category_mappings GROUP BY campaign_id`,
			apply: func(cs *service.CampaignSummary, n int) { cs.Mappings = n },
		},
		{
			query: `SELECT campaign_id, COUNT(*) FROM category_mappings WHERE confirmed = 1 GROUP BY campaign_id`,
			apply: func(cs *service.CampaignSummary, n int) { cs.ConfirmedMappings = n },
		},
		{
			query: `SELECT campaign_id, COUNT(*) FROM production_orders GROUP BY campaign_id`,
			apply: func(cs *service.CampaignSummary, n int) { cs.ProductionOrders = n },
		},
	}

	for _, cq := range queries {
		rows, err := q.QueryContext(ctx, cq.query)
		if err != nil {
			return nil, fmt.Errorf("failed to query campaign summary: %w", err)
		}
		for rows.Next() {
			var (
				id string
				n  int
			)
			if err := rows.Scan(&id, &n); err != nil {
				_ = rows.Close()
				return nil, fmt.Errorf("failed to scan campaign summary: %w", err)
			}
			cq.apply(summary(id), n)
		}
		if err := rows.Err(); err != nil {
			_ = rows.Close()
			return nil, err
		}
		_ = rows.Close()
	}

	summaries := make([]service.CampaignSummary, 0, len(byID))
	for _, cs := range byID {
		summaries = append(summaries, *cs)
	}
	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].CampaignID < summaries[j].CampaignID
	})

	return summaries, nil
}
