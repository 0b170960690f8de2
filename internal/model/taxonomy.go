package model

import "github.com/shopspring/decimal"

// TaxonomyConcept is a line item from the campaign's accounting financial
// statement (EEFF). Concepts are replaced wholesale on each accounting
// ingestion and are read-only to every downstream stage.
//
// Process sub-totals may be partial or missing; the source data does not
// guarantee NurseryTotal + FieldTotal + PackingTotal <= TotalAmount. A zero
// sub-total means "no breakdown available", not "zero spend".
type TaxonomyConcept struct {
	CampaignID   string
	Name         string
	TotalAmount  decimal.Decimal
	NurseryTotal decimal.Decimal
	FieldTotal   decimal.Decimal
	PackingTotal decimal.Decimal
}

// ProcessTotal returns the concept's sub-total for the given process.
func (c *TaxonomyConcept) ProcessTotal(p Process) decimal.Decimal {
	switch p {
	case ProcessNursery:
		return c.NurseryTotal
	case ProcessField:
		return c.FieldTotal
	case ProcessPacking:
		return c.PackingTotal
	}
	return decimal.Zero
}
