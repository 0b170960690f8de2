// Package importer is the ingestion boundary: it reads budget, accounting and
// production spreadsheets into validated typed entities. Validation happens
// here, never inside the engine.
package importer

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/agrovista/cosecha/internal/model"
)

// ReadBudgetLines parses a budget workbook. Expected columns, after a header
// row: category, process, budget amount, optional actual amount.
func ReadBudgetLines(path, campaignID string) ([]model.BudgetLine, error) {
	rows, err := readRows(path)
	if err != nil {
		return nil, err
	}

	var lines []model.BudgetLine
	for i, row := range rows {
		if i == 0 || emptyRow(row) {
			continue
		}
		line, err := ParseBudgetRow(row, campaignID)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+1, err)
		}
		lines = append(lines, line)
	}
	return lines, nil
}

// ParseBudgetRow converts one spreadsheet row into a budget line.
func ParseBudgetRow(row []string, campaignID string) (model.BudgetLine, error) {
	var line model.BudgetLine

	if len(row) < 3 {
		return line, fmt.Errorf("expected at least 3 columns, got %d", len(row))
	}

	category := strings.TrimSpace(cell(row, 0))
	if category == "" {
		return line, fmt.Errorf("missing category")
	}

	process, err := model.ParseProcess(strings.ToLower(strings.TrimSpace(cell(row, 1))))
	if err != nil {
		return line, err
	}

	budget, err := parseAmount(cell(row, 2))
	if err != nil {
		return line, fmt.Errorf("budget amount: %w", err)
	}

	line = model.BudgetLine{
		CampaignID:   campaignID,
		Category:     category,
		Process:      process,
		BudgetAmount: budget,
		ActualSource: model.ActualSourceNone,
	}

	if raw := strings.TrimSpace(cell(row, 3)); raw != "" {
		actual, err := parseAmount(raw)
		if err != nil {
			return line, fmt.Errorf("actual amount: %w", err)
		}
		line.ActualAmount = decimal.NullDecimal{Decimal: actual, Valid: true}
		line.ActualSource = model.ActualSourceImport
	}

	return line, nil
}

// ReadTaxonomy parses an EEFF concepts workbook. Expected columns, after a
// header row: concept name, total, then optional nursery/field/packing
// sub-totals.
func ReadTaxonomy(path, campaignID string) ([]model.TaxonomyConcept, error) {
	rows, err := readRows(path)
	if err != nil {
		return nil, err
	}

	var concepts []model.TaxonomyConcept
	for i, row := range rows {
		if i == 0 || emptyRow(row) {
			continue
		}
		concept, err := ParseTaxonomyRow(row, campaignID)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+1, err)
		}
		concepts = append(concepts, concept)
	}
	return concepts, nil
}

// ParseTaxonomyRow converts one spreadsheet row into a taxonomy concept.
// Missing sub-total cells parse as zero, meaning "no breakdown available".
func ParseTaxonomyRow(row []string, campaignID string) (model.TaxonomyConcept, error) {
	var concept model.TaxonomyConcept

	if len(row) < 2 {
		return concept, fmt.Errorf("expected at least 2 columns, got %d", len(row))
	}

	name := strings.TrimSpace(cell(row, 0))
	if name == "" {
		return concept, fmt.Errorf("missing concept name")
	}

	total, err := parseAmount(cell(row, 1))
	if err != nil {
		return concept, fmt.Errorf("total amount: %w", err)
	}
	nursery, err := parseOptionalAmount(cell(row, 2))
	if err != nil {
		return concept, fmt.Errorf("nursery total: %w", err)
	}
	field, err := parseOptionalAmount(cell(row, 3))
	if err != nil {
		return concept, fmt.Errorf("field total: %w", err)
	}
	packing, err := parseOptionalAmount(cell(row, 4))
	if err != nil {
		return concept, fmt.Errorf("packing total: %w", err)
	}

	return model.TaxonomyConcept{
		CampaignID:   campaignID,
		Name:         name,
		TotalAmount:  total,
		NurseryTotal: nursery,
		FieldTotal:   field,
		PackingTotal: packing,
	}, nil
}

// ReadProductionOrders parses a production orders workbook. Expected columns,
// after a header row: number, type, status, estimated qty, produced qty,
// total cost.
func ReadProductionOrders(path, campaignID string) ([]model.ProductionOrder, error) {
	rows, err := readRows(path)
	if err != nil {
		return nil, err
	}

	var orders []model.ProductionOrder
	for i, row := range rows {
		if i == 0 || emptyRow(row) {
			continue
		}
		order, err := ParseOrderRow(row, campaignID)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+1, err)
		}
		orders = append(orders, order)
	}
	return orders, nil
}

// ParseOrderRow converts one spreadsheet row into a production order.
func ParseOrderRow(row []string, campaignID string) (model.ProductionOrder, error) {
	var order model.ProductionOrder

	if len(row) < 3 {
		return order, fmt.Errorf("expected at least 3 columns, got %d", len(row))
	}

	number := strings.TrimSpace(cell(row, 0))
	if number == "" {
		return order, fmt.Errorf("missing order number")
	}

	orderType, err := model.ParseProcess(strings.ToLower(strings.TrimSpace(cell(row, 1))))
	if err != nil {
		return order, err
	}
	status, err := model.ParseOrderStatus(strings.ToLower(strings.TrimSpace(cell(row, 2))))
	if err != nil {
		return order, err
	}

	estimated, err := parseOptionalAmount(cell(row, 3))
	if err != nil {
		return order, fmt.Errorf("estimated qty: %w", err)
	}
	produced, err := parseOptionalAmount(cell(row, 4))
	if err != nil {
		return order, fmt.Errorf("produced qty: %w", err)
	}
	cost, err := parseOptionalAmount(cell(row, 5))
	if err != nil {
		return order, fmt.Errorf("total cost: %w", err)
	}

	return model.ProductionOrder{
		CampaignID:   campaignID,
		Number:       number,
		Type:         orderType,
		Status:       status,
		EstimatedQty: estimated,
		ProducedQty:  produced,
		TotalCost:    cost,
	}, nil
}

// readRows opens a workbook and returns the rows of its first sheet.
func readRows(path string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer func() { _ = f.Close() }()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook has no sheets")
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheets[0], err)
	}
	return rows, nil
}

func cell(row []string, i int) string {
	if i >= len(row) {
		return ""
	}
	return row[i]
}

func emptyRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// parseAmount parses a required monetary cell. Thousands separators the
// accounting export emits ("1 234 567,89" or "1,234,567.89") are tolerated.
func parseAmount(raw string) (decimal.Decimal, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return decimal.Zero, fmt.Errorf("missing amount")
	}
	s = strings.ReplaceAll(s, " ", "")
	if strings.Contains(s, ",") {
		if strings.Contains(s, ".") {
			// "1,234,567.89": comma is the thousands separator.
			s = strings.ReplaceAll(s, ",", "")
		} else {
			// "1234567,89": comma is the decimal separator.
			s = strings.ReplaceAll(s, ",", ".")
		}
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid amount %q", raw)
	}
	return d, nil
}

// parseOptionalAmount treats an empty cell as zero.
func parseOptionalAmount(raw string) (decimal.Decimal, error) {
	if strings.TrimSpace(raw) == "" {
		return decimal.Zero, nil
	}
	return parseAmount(raw)
}
