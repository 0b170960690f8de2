// Package engine orchestrates the budget reconciliation pipeline: matching
// proposals into the mapping ledger, reconciliation, KPI aggregation and
// alert evaluation.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/agrovista/cosecha/internal/alert"
	"github.com/agrovista/cosecha/internal/common"
	"github.com/agrovista/cosecha/internal/kpi"
	"github.com/agrovista/cosecha/internal/ledger"
	"github.com/agrovista/cosecha/internal/match"
	"github.com/agrovista/cosecha/internal/model"
	"github.com/agrovista/cosecha/internal/reconcile"
	"github.com/agrovista/cosecha/internal/service"
)

// Engine exposes the operation surface of the reconciliation subsystem.
// Every mutating operation and every recompute for a campaign runs under
// that campaign's lock; operations on different campaigns are independent.
type Engine struct {
	storage service.Storage
	ledger  *ledger.Ledger
	matcher *match.Matcher
	locks   *common.CampaignLocks
	config  Config
}

// Config holds configuration options for the engine.
type Config struct {
	Thresholds    alert.Thresholds
	LockTimeout   time.Duration
	TopCategories int
	// MinConfidence is the matcher's similarity floor; zero means the
	// matcher default.
	MinConfidence int
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		Thresholds:    alert.DefaultThresholds(),
		LockTimeout:   common.DefaultLockTimeout,
		TopCategories: reconcile.DefaultTopCategories,
		MinConfidence: match.DefaultConfig().MinConfidence,
	}
}

// New creates an engine with the default configuration.
func New(storage service.Storage) *Engine {
	return NewWithConfig(storage, DefaultConfig())
}

// NewWithConfig creates an engine with custom configuration.
func NewWithConfig(storage service.Storage, config Config) *Engine {
	if config.TopCategories <= 0 {
		config.TopCategories = reconcile.DefaultTopCategories
	}
	return &Engine{
		storage: storage,
		ledger:  ledger.New(storage),
		matcher: match.NewWithConfig(match.Config{MinConfidence: config.MinConfidence}),
		locks:   common.NewCampaignLocks(config.LockTimeout),
		config:  config,
	}
}

// ProposalStats counts the outcome of a matching run by match type.
type ProposalStats struct {
	Exact     int
	Suggested int
	None      int
	Skipped   int
}

// Total returns the number of budget lines examined.
func (s ProposalStats) Total() int {
	return s.Exact + s.Suggested + s.None + s.Skipped
}

// ProposeMappings runs the matcher over every budget line of the campaign and
// applies the proposals through the ledger. Confirmed and ignored rows are
// never touched; re-running with no operator action in between leaves the
// ledger unchanged.
func (e *Engine) ProposeMappings(ctx context.Context, campaignID string) (ProposalStats, error) {
	var stats ProposalStats

	release, err := e.locks.Acquire(ctx, campaignID)
	if err != nil {
		return stats, err
	}
	defer release()

	lines, err := e.storage.GetBudgetLines(ctx, campaignID)
	if err != nil {
		return stats, fmt.Errorf("failed to load budget lines: %w", err)
	}
	taxonomy, err := e.storage.GetTaxonomy(ctx, campaignID)
	if err != nil {
		return stats, fmt.Errorf("failed to load taxonomy: %w", err)
	}

	slog.Info("Proposing mappings",
		"campaign", campaignID,
		"lines", len(lines),
		"concepts", len(taxonomy))

	for i := range lines {
		proposal := e.matcher.Propose(lines[i], taxonomy)

		applied, err := e.ledger.UpsertProposal(ctx, proposal)
		if err != nil {
			return stats, fmt.Errorf("failed to apply proposal for %q/%s: %w", lines[i].Category, lines[i].Process, err)
		}
		if !applied {
			stats.Skipped++
			continue
		}
		switch proposal.MatchType {
		case model.MatchTypeExact:
			stats.Exact++
		case model.MatchTypeSuggested:
			stats.Suggested++
		default:
			stats.None++
		}
	}

	return stats, nil
}

// Mappings returns the campaign's ledger rows.
func (e *Engine) Mappings(ctx context.Context, campaignID string) ([]model.CategoryMapping, error) {
	return e.storage.GetMappings(ctx, campaignID)
}

// SetMapping manually sets or clears the concept of a ledger row.
func (e *Engine) SetMapping(ctx context.Context, campaignID string, key model.MappingKey, eeffConcept string) error {
	return e.withLock(ctx, campaignID, func() error {
		return e.ledger.SetMapping(ctx, campaignID, key, eeffConcept)
	})
}

// ConfirmMapping marks a ledger row as human-confirmed.
func (e *Engine) ConfirmMapping(ctx context.Context, campaignID string, key model.MappingKey) error {
	return e.withLock(ctx, campaignID, func() error {
		return e.ledger.Confirm(ctx, campaignID, key)
	})
}

// ConfirmAllSuggested confirms every mapped exact/suggested row atomically.
func (e *Engine) ConfirmAllSuggested(ctx context.Context, campaignID string) (int, error) {
	var confirmed int
	err := e.withLock(ctx, campaignID, func() error {
		var err error
		confirmed, err = e.ledger.ConfirmAllSuggested(ctx, campaignID)
		return err
	})
	return confirmed, err
}

// IgnoreMapping excludes a ledger row from mapping.
func (e *Engine) IgnoreMapping(ctx context.Context, campaignID string, key model.MappingKey) error {
	return e.withLock(ctx, campaignID, func() error {
		return e.ledger.Ignore(ctx, campaignID, key)
	})
}

// RestoreMapping returns an ignored ledger row to the unmapped state.
func (e *Engine) RestoreMapping(ctx context.Context, campaignID string, key model.MappingKey) error {
	return e.withLock(ctx, campaignID, func() error {
		return e.ledger.Restore(ctx, campaignID, key)
	})
}

// Recalculate runs reconciliation, KPI aggregation and alert evaluation for
// one campaign, persists the projection and returns it. The whole recompute
// runs under the campaign lock so it observes either the pre- or fully-post
// state of any batch ledger edit.
func (e *Engine) Recalculate(ctx context.Context, campaignID string) (*model.CampaignKPIs, []model.Alert, error) {
	var (
		kpis   *model.CampaignKPIs
		alerts []model.Alert
	)

	err := e.withLock(ctx, campaignID, func() error {
		lines, err := e.storage.GetBudgetLines(ctx, campaignID)
		if err != nil {
			return fmt.Errorf("failed to load budget lines: %w", err)
		}
		taxonomy, err := e.storage.GetTaxonomy(ctx, campaignID)
		if err != nil {
			return fmt.Errorf("failed to load taxonomy: %w", err)
		}
		confirmed, err := e.ledger.ConfirmedMappings(ctx, campaignID)
		if err != nil {
			return fmt.Errorf("failed to load confirmed mappings: %w", err)
		}
		orders, err := e.storage.GetProductionOrders(ctx, campaignID)
		if err != nil {
			return fmt.Errorf("failed to load production orders: %w", err)
		}

		result := reconcile.Reconcile(lines, taxonomy, confirmed, e.config.TopCategories)
		if result.TaxonomyMissing {
			// Soft failure: keep the budget view alive without actuals.
			slog.Warn("Recalculating without taxonomy",
				"campaign", campaignID,
				"error", common.ErrMissingTaxonomy)
		}

		// Persist derived actuals so the budget view shows them; imported
		// actuals are never overwritten here.
		resolved := make(map[model.MappingKey]bool, len(result.Lines))
		for _, la := range result.Lines {
			if la.Source != model.ActualSourceReconciled {
				continue
			}
			resolved[la.Key] = true
			actual := decimal.NullDecimal{Decimal: la.Amount, Valid: true}
			if err := e.storage.UpdateBudgetLineActual(ctx, campaignID, la.Key, actual, la.Source); err != nil {
				return fmt.Errorf("failed to persist resolved actual: %w", err)
			}
		}
		// A previously reconciled actual whose mapping no longer resolves
		// (ignored, un-confirmed, concept gone) must not outlive the run that
		// derived it; clear it so the stored line agrees with the projection.
		for i := range lines {
			if lines[i].ActualSource != model.ActualSourceReconciled || resolved[lines[i].Key()] {
				continue
			}
			if err := e.storage.UpdateBudgetLineActual(ctx, campaignID, lines[i].Key(), decimal.NullDecimal{}, model.ActualSourceNone); err != nil {
				return fmt.Errorf("failed to clear stale actual: %w", err)
			}
		}

		computed := kpi.Aggregate(campaignID, result.Totals, result.TopCategories, orders)
		kpis = &computed

		alerts = alert.Evaluate(kpis, orders, e.config.Thresholds)
		inserted, err := e.storage.SaveAlerts(ctx, alerts)
		if err != nil {
			return fmt.Errorf("failed to persist alerts: %w", err)
		}
		if err := e.storage.SaveKPIs(ctx, kpis); err != nil {
			return fmt.Errorf("failed to persist KPI projection: %w", err)
		}

		slog.Info("Recalculated campaign",
			"campaign", campaignID,
			"total_budget", kpis.TotalBudget,
			"total_actual", kpis.TotalActual,
			"variance_percent", kpis.VariancePercent,
			"alerts_evaluated", len(alerts),
			"alerts_new", inserted)
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	return kpis, alerts, nil
}

// KPIs returns the last persisted KPI projection.
func (e *Engine) KPIs(ctx context.Context, campaignID string) (*model.CampaignKPIs, error) {
	return e.storage.GetKPIs(ctx, campaignID)
}

// Alerts returns the campaign's stored alerts.
func (e *Engine) Alerts(ctx context.Context, campaignID string) ([]model.Alert, error) {
	return e.storage.GetAlerts(ctx, campaignID)
}

// AcknowledgeAlert records operator acknowledgment of an alert.
func (e *Engine) AcknowledgeAlert(ctx context.Context, alertID string) error {
	return e.storage.AcknowledgeAlert(ctx, alertID)
}

func (e *Engine) withLock(ctx context.Context, campaignID string, fn func() error) error {
	release, err := e.locks.Acquire(ctx, campaignID)
	if err != nil {
		return err
	}
	defer release()
	return fn()
}
