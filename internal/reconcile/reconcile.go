// Package reconcile computes actual spend per production process by combining
// direct-imported actuals with confirmed mappings onto the EEFF taxonomy.
package reconcile

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/agrovista/cosecha/internal/model"
)

// DefaultTopCategories caps the category distribution surfaced for reporting.
const DefaultTopCategories = 5

// LineActual is the resolved actual for one budget line, reported back so the
// caller can persist it. Lines with no resolved actual are omitted.
type LineActual struct {
	Key    model.MappingKey
	Amount decimal.Decimal
	Source model.ActualSource
}

// Result is the output of one reconciliation run.
type Result struct {
	// Totals always carries an entry for every process, so budget sums are
	// conserved even when a process has no lines.
	Totals map[model.Process]model.ProcessTotals
	// TopCategories is the top-N distribution by actual-then-budget amount.
	TopCategories []model.CategoryShare
	// Lines holds the per-line resolved actuals.
	Lines []LineActual
	// TaxonomyMissing is set when the campaign has no taxonomy at all and the
	// run degraded to budget-only aggregates.
	TaxonomyMissing bool
}

// Reconcile derives per-process budget/actual totals for one campaign.
//
// Per line: a direct-imported actual is used as-is (explicit OP-level cost
// data beats a redistributed statement total). Otherwise the confirmed
// mapping resolves the line to a concept: the process sub-total applies when
// it is greater than zero, else the concept's whole total. A concept with no
// process breakdown is attributed in full to every process that references
// it; this can double-count and is preserved deliberately. Unmapped lines
// contribute budget only, so unmapped spend never vanishes from the budget
// view but stays visibly absent from the actual view.
//
// When the taxonomy set is absent entirely the run returns budget-only
// aggregates instead of failing.
func Reconcile(lines []model.BudgetLine, taxonomy []model.TaxonomyConcept, confirmed map[model.MappingKey]string, topN int) Result {
	if topN <= 0 {
		topN = DefaultTopCategories
	}

	result := Result{
		Totals:          make(map[model.Process]model.ProcessTotals, 3),
		TaxonomyMissing: len(taxonomy) == 0,
	}
	for _, p := range model.Processes() {
		result.Totals[p] = model.ProcessTotals{Budget: decimal.Zero, Actual: decimal.Zero}
	}

	conceptsByName := make(map[string]*model.TaxonomyConcept, len(taxonomy))
	for i := range taxonomy {
		conceptsByName[taxonomy[i].Name] = &taxonomy[i]
	}

	var shares []model.CategoryShare

	for i := range lines {
		line := &lines[i]

		totals := result.Totals[line.Process]
		totals.Budget = totals.Budget.Add(line.BudgetAmount)

		actual, source := resolveActual(line, conceptsByName, confirmed, result.TaxonomyMissing)
		if source != model.ActualSourceNone {
			totals.Actual = totals.Actual.Add(actual)
			result.Lines = append(result.Lines, LineActual{
				Key:    line.Key(),
				Amount: actual,
				Source: source,
			})
		}
		result.Totals[line.Process] = totals

		share := actual
		if share.IsZero() {
			share = line.BudgetAmount
		}
		if !share.IsZero() {
			shares = append(shares, model.CategoryShare{
				Category: line.Category,
				Process:  line.Process,
				Amount:   share,
			})
		}
	}

	// Largest first; ties break on category then process for stable output.
	sort.SliceStable(shares, func(i, j int) bool {
		if c := shares[i].Amount.Cmp(shares[j].Amount); c != 0 {
			return c > 0
		}
		if shares[i].Category != shares[j].Category {
			return shares[i].Category < shares[j].Category
		}
		return shares[i].Process < shares[j].Process
	})
	if len(shares) > topN {
		shares = shares[:topN]
	}
	result.TopCategories = shares

	return result
}

func resolveActual(line *model.BudgetLine, concepts map[string]*model.TaxonomyConcept, confirmed map[model.MappingKey]string, taxonomyMissing bool) (decimal.Decimal, model.ActualSource) {
	// Imported actuals take precedence over derived ones.
	if line.ActualSource == model.ActualSourceImport && line.ActualAmount.Valid {
		return line.ActualAmount.Decimal, model.ActualSourceImport
	}

	if taxonomyMissing {
		return decimal.Zero, model.ActualSourceNone
	}

	conceptName, ok := confirmed[line.Key()]
	if !ok {
		return decimal.Zero, model.ActualSourceNone
	}
	concept, ok := concepts[conceptName]
	if !ok {
		return decimal.Zero, model.ActualSourceNone
	}

	sub := concept.ProcessTotal(line.Process)
	if sub.GreaterThan(decimal.Zero) {
		return sub, model.ActualSourceReconciled
	}
	return concept.TotalAmount, model.ActualSourceReconciled
}
