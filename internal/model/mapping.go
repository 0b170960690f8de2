package model

import "time"

// MatchType records the provenance and state of a category mapping.
type MatchType string

// Match type constants.
const (
	// MatchTypeExact means the category name equals a concept name after
	// normalization.
	MatchTypeExact MatchType = "exact"
	// MatchTypeSuggested means the matcher proposed the concept from a fuzzy
	// similarity score.
	MatchTypeSuggested MatchType = "suggested"
	// MatchTypeManual means an operator set the concept by hand.
	MatchTypeManual MatchType = "manual"
	// MatchTypeIgnored means an operator excluded the line from mapping.
	// Ignored supersedes deletion so the decision history stays auditable.
	MatchTypeIgnored MatchType = "ignored"
	// MatchTypeNone means no concept is linked.
	MatchTypeNone MatchType = "none"
)

// Valid reports whether m is a known match type.
func (m MatchType) Valid() bool {
	switch m {
	case MatchTypeExact, MatchTypeSuggested, MatchTypeManual, MatchTypeIgnored, MatchTypeNone:
		return true
	}
	return false
}

// MappingKey identifies a mapping row within a campaign.
type MappingKey struct {
	Category string
	Process  Process
}

// CategoryMapping links one budget line to at most one taxonomy concept.
// At most one row exists per (campaign, category, process); re-running the
// matcher updates rows in place and never duplicates them.
type CategoryMapping struct {
	CreatedAt      time.Time
	UpdatedAt      time.Time
	CampaignID     string
	BudgetCategory string
	BudgetProcess  Process
	EEFFConcept    string
	MatchType      MatchType
	Confidence     int
	Confirmed      bool
}

// Key returns the row's ledger key.
func (m *CategoryMapping) Key() MappingKey {
	return MappingKey{Category: m.BudgetCategory, Process: m.BudgetProcess}
}

// Mapped reports whether the row links to a concept.
func (m *CategoryMapping) Mapped() bool {
	return m.EEFFConcept != ""
}

// Proposable reports whether a matcher proposal may overwrite this row.
// Confirmed and ignored decisions are sticky against re-matching.
func (m *CategoryMapping) Proposable() bool {
	return !m.Confirmed && m.MatchType != MatchTypeIgnored
}
