// Package ledger implements the durable record of mapping decisions and the
// state machine governing their transitions.
//
// Per row the states are: none -> suggested/exact -> confirmed, with side
// transitions any -> ignored and ignored -> none (restore). Rows are never
// hard-deleted.
package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/agrovista/cosecha/internal/common"
	"github.com/agrovista/cosecha/internal/model"
	"github.com/agrovista/cosecha/internal/service"
)

// Ledger owns mapping confirmation state. It performs no locking of its own;
// callers serialize operations per campaign (see engine).
type Ledger struct {
	storage service.Storage
}

// New creates a ledger over the given storage. Passing a service.Transaction
// scopes every operation to that transaction.
func New(storage service.Storage) *Ledger {
	return &Ledger{storage: storage}
}

// UpsertProposal applies a matcher proposal to the ledger. A new row is
// inserted when none exists for the key. An existing row is overwritten only
// while it is proposable; confirmed and ignored decisions are sticky, and the
// proposal is silently discarded. Reports whether the proposal was applied.
func (l *Ledger) UpsertProposal(ctx context.Context, proposal model.CategoryMapping) (bool, error) {
	existing, err := l.storage.GetMapping(ctx, proposal.CampaignID, proposal.Key())
	if err != nil {
		if !errors.Is(err, common.ErrNotFound) {
			return false, err
		}
		proposal.Confirmed = false
		if err := l.storage.SaveMapping(ctx, &proposal); err != nil {
			return false, err
		}
		return true, nil
	}

	if !existing.Proposable() {
		return false, nil
	}

	existing.EEFFConcept = proposal.EEFFConcept
	existing.Confidence = proposal.Confidence
	existing.MatchType = proposal.MatchType

	if err := l.storage.SaveMapping(ctx, existing); err != nil {
		return false, err
	}
	return true, nil
}

// SetMapping manually sets or clears the target concept of an existing row.
// A manual edit always requires re-confirmation.
func (l *Ledger) SetMapping(ctx context.Context, campaignID string, key model.MappingKey, eeffConcept string) error {
	existing, err := l.getForEdit(ctx, campaignID, key)
	if err != nil {
		return err
	}

	existing.EEFFConcept = eeffConcept
	existing.Confidence = 0
	existing.Confirmed = false
	if eeffConcept != "" {
		existing.MatchType = model.MatchTypeManual
	} else {
		existing.MatchType = model.MatchTypeNone
	}

	return l.storage.SaveMapping(ctx, existing)
}

// Confirm marks a mapped row as accepted by a human. Confirming an unmapped
// or ignored row is an invalid state transition.
func (l *Ledger) Confirm(ctx context.Context, campaignID string, key model.MappingKey) error {
	existing, err := l.getForEdit(ctx, campaignID, key)
	if err != nil {
		return err
	}

	if existing.MatchType == model.MatchTypeIgnored {
		return fmt.Errorf("%w: cannot confirm ignored row %s/%s", common.ErrInvalidState, key.Category, key.Process)
	}
	if !existing.Mapped() {
		return fmt.Errorf("%w: cannot confirm unmapped row %s/%s", common.ErrInvalidState, key.Category, key.Process)
	}

	existing.Confirmed = true
	return l.storage.SaveMapping(ctx, existing)
}

// ConfirmAllSuggested confirms every exact or suggested row that links to a
// concept and is not yet confirmed. The batch runs in one transaction so a
// concurrent recompute never observes a half-confirmed ledger. Returns the
// number of rows confirmed.
func (l *Ledger) ConfirmAllSuggested(ctx context.Context, campaignID string) (int, error) {
	tx, err := l.storage.BeginTx(ctx)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }()

	mappings, err := tx.GetMappings(ctx, campaignID)
	if err != nil {
		return 0, err
	}

	confirmed := 0
	for i := range mappings {
		m := &mappings[i]
		if m.Confirmed || !m.Mapped() {
			continue
		}
		if m.MatchType != model.MatchTypeExact && m.MatchType != model.MatchTypeSuggested {
			continue
		}
		m.Confirmed = true
		if err := tx.SaveMapping(ctx, m); err != nil {
			return 0, err
		}
		confirmed++
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit confirm-all: %w", err)
	}
	return confirmed, nil
}

// Ignore excludes a row from mapping. The linked concept is kept for audit
// but the row stops counting as confirmed.
func (l *Ledger) Ignore(ctx context.Context, campaignID string, key model.MappingKey) error {
	existing, err := l.getForEdit(ctx, campaignID, key)
	if err != nil {
		return err
	}

	existing.MatchType = model.MatchTypeIgnored
	existing.Confirmed = false
	return l.storage.SaveMapping(ctx, existing)
}

// Restore returns an ignored row to the unmapped state, ready for
// re-proposal.
func (l *Ledger) Restore(ctx context.Context, campaignID string, key model.MappingKey) error {
	existing, err := l.getForEdit(ctx, campaignID, key)
	if err != nil {
		return err
	}

	if existing.MatchType != model.MatchTypeIgnored {
		return fmt.Errorf("%w: cannot restore row %s/%s in state %s", common.ErrInvalidState, key.Category, key.Process, existing.MatchType)
	}

	existing.MatchType = model.MatchTypeNone
	existing.EEFFConcept = ""
	existing.Confidence = 0
	existing.Confirmed = false
	return l.storage.SaveMapping(ctx, existing)
}

// ConfirmedMappings returns the confirmed concept per ledger key. This is the
// only view of the ledger the reconciliation engine consumes.
func (l *Ledger) ConfirmedMappings(ctx context.Context, campaignID string) (map[model.MappingKey]string, error) {
	mappings, err := l.storage.GetMappings(ctx, campaignID)
	if err != nil {
		return nil, err
	}

	confirmed := make(map[model.MappingKey]string)
	for i := range mappings {
		m := &mappings[i]
		if m.Confirmed && m.Mapped() {
			confirmed[m.Key()] = m.EEFFConcept
		}
	}
	return confirmed, nil
}

// getForEdit loads a row for mutation, translating a missing key into an
// invalid state error: transition operations only apply to existing rows.
func (l *Ledger) getForEdit(ctx context.Context, campaignID string, key model.MappingKey) (*model.CategoryMapping, error) {
	existing, err := l.storage.GetMapping(ctx, campaignID, key)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, fmt.Errorf("%w: no mapping row for %s/%s", common.ErrInvalidState, key.Category, key.Process)
		}
		return nil, err
	}
	return existing, nil
}
