package match

import (
	"math"
	"sort"

	"github.com/agnivade/levenshtein"

	"github.com/agrovista/cosecha/internal/model"
)

// Config holds configuration options for the matcher.
type Config struct {
	// MinConfidence is the similarity floor (0-100) below which no
	// suggestion is proposed.
	MinConfidence int
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		MinConfidence: 40,
	}
}

// Matcher proposes taxonomy concepts for budget lines. It is pure and
// side-effect free: the mapping ledger decides whether a proposal is applied.
type Matcher struct {
	minConfidence int
}

// New creates a matcher with the default configuration.
func New() *Matcher {
	return NewWithConfig(DefaultConfig())
}

// NewWithConfig creates a matcher with custom configuration.
func NewWithConfig(config Config) *Matcher {
	if config.MinConfidence <= 0 || config.MinConfidence > 100 {
		config.MinConfidence = DefaultConfig().MinConfidence
	}
	return &Matcher{minConfidence: config.MinConfidence}
}

// Propose returns the mapping proposal for one budget line against the full
// concept set of its campaign. Identical inputs always yield the identical
// proposal: concepts are scanned in lexical name order and only a strictly
// better score displaces the current candidate.
func (m *Matcher) Propose(line model.BudgetLine, taxonomy []model.TaxonomyConcept) model.CategoryMapping {
	proposal := model.CategoryMapping{
		CampaignID:     line.CampaignID,
		BudgetCategory: line.Category,
		BudgetProcess:  line.Process,
		MatchType:      model.MatchTypeNone,
	}

	normCategory := Normalize(line.Category)
	if normCategory == "" || len(taxonomy) == 0 {
		return proposal
	}

	names := make([]string, len(taxonomy))
	for i, c := range taxonomy {
		names[i] = c.Name
	}
	sort.Strings(names)

	categoryTokens := tokenSet(tokenize(line.Category))

	bestScore := 0.0
	bestName := ""
	for _, name := range names {
		normName := Normalize(name)
		if normName == normCategory {
			proposal.EEFFConcept = name
			proposal.MatchType = model.MatchTypeExact
			proposal.Confidence = 100
			return proposal
		}

		score := m.similarity(normCategory, categoryTokens, normName, name)
		if score > bestScore {
			bestScore = score
			bestName = name
		}
	}

	confidence := int(math.Round(bestScore * 100))
	if confidence > 99 {
		// 100 is reserved for exact matches.
		confidence = 99
	}

	if confidence >= m.minConfidence {
		proposal.EEFFConcept = bestName
		proposal.MatchType = model.MatchTypeSuggested
		proposal.Confidence = confidence
	}

	return proposal
}

// similarity blends stemmed-token overlap (Dice coefficient) with an edit
// distance ratio over the normalized strings. Token overlap dominates so
// reworded categories still land; the edit component separates near-identical
// spellings from loose word-bag matches.
func (m *Matcher) similarity(normA string, tokensA map[string]struct{}, normB, rawB string) float64 {
	tokensB := tokenSet(tokenize(rawB))

	overlap := 0
	for t := range tokensA {
		if _, ok := tokensB[t]; ok {
			overlap++
		}
	}

	dice := 0.0
	if len(tokensA)+len(tokensB) > 0 {
		dice = 2 * float64(overlap) / float64(len(tokensA)+len(tokensB))
	}

	maxLen := len([]rune(normA))
	if l := len([]rune(normB)); l > maxLen {
		maxLen = l
	}
	lev := 0.0
	if maxLen > 0 {
		dist := levenshtein.ComputeDistance(normA, normB)
		lev = 1 - float64(dist)/float64(maxLen)
	}

	return 0.6*dice + 0.4*lev
}
