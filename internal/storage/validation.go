// Package storage provides the data persistence layer for the cosecha application.
package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/agrovista/cosecha/internal/model"
)

// Validation errors.
var (
	ErrNilContext      = errors.New("context cannot be nil")
	ErrEmptyString     = errors.New("string parameter cannot be empty")
	ErrNilParameter    = errors.New("parameter cannot be nil")
	ErrEmptySlice      = errors.New("slice cannot be empty")
	ErrInvalidLine     = errors.New("invalid budget line")
	ErrInvalidConcept  = errors.New("invalid taxonomy concept")
	ErrInvalidMapping  = errors.New("invalid category mapping")
	ErrInvalidOrder    = errors.New("invalid production order")
	ErrInvalidSeverity = errors.New("invalid alert severity")
)

// validateContext ensures the context is not nil.
func validateContext(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	return nil
}

// validateString ensures a string parameter is not empty.
func validateString(s string, paramName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: %s", ErrEmptyString, paramName)
	}
	return nil
}

// validateBudgetLines validates a slice of budget lines.
func validateBudgetLines(lines []model.BudgetLine) error {
	if lines == nil {
		return fmt.Errorf("%w: lines", ErrNilParameter)
	}
	if len(lines) == 0 {
		return fmt.Errorf("%w: lines", ErrEmptySlice)
	}

	for i, line := range lines {
		if err := validateBudgetLine(&line); err != nil {
			return fmt.Errorf("budget line at index %d: %w", i, err)
		}
	}
	return nil
}

// validateBudgetLine validates a single budget line.
func validateBudgetLine(line *model.BudgetLine) error {
	if line == nil {
		return fmt.Errorf("%w: line", ErrNilParameter)
	}
	if line.CampaignID == "" {
		return fmt.Errorf("%w: missing campaign ID", ErrInvalidLine)
	}
	if strings.TrimSpace(line.Category) == "" {
		return fmt.Errorf("%w: missing category", ErrInvalidLine)
	}
	if !line.Process.Valid() {
		return fmt.Errorf("%w: process %q", ErrInvalidLine, line.Process)
	}
	return nil
}

// validateConcepts validates a slice of taxonomy concepts.
func validateConcepts(concepts []model.TaxonomyConcept) error {
	for i, c := range concepts {
		if strings.TrimSpace(c.Name) == "" {
			return fmt.Errorf("concept at index %d: %w: missing name", i, ErrInvalidConcept)
		}
	}
	return nil
}

// validateMapping validates a category mapping row.
func validateMapping(mapping *model.CategoryMapping) error {
	if mapping == nil {
		return fmt.Errorf("%w: mapping", ErrNilParameter)
	}
	if mapping.CampaignID == "" {
		return fmt.Errorf("%w: missing campaign ID", ErrInvalidMapping)
	}
	if strings.TrimSpace(mapping.BudgetCategory) == "" {
		return fmt.Errorf("%w: missing budget category", ErrInvalidMapping)
	}
	if !mapping.BudgetProcess.Valid() {
		return fmt.Errorf("%w: process %q", ErrInvalidMapping, mapping.BudgetProcess)
	}
	if !mapping.MatchType.Valid() {
		return fmt.Errorf("%w: match type %q", ErrInvalidMapping, mapping.MatchType)
	}
	if mapping.Confidence < 0 || mapping.Confidence > 100 {
		return fmt.Errorf("%w: confidence must be between 0 and 100", ErrInvalidMapping)
	}
	return nil
}

// validateProductionOrders validates a slice of production orders.
func validateProductionOrders(orders []model.ProductionOrder) error {
	if orders == nil {
		return fmt.Errorf("%w: orders", ErrNilParameter)
	}
	if len(orders) == 0 {
		return fmt.Errorf("%w: orders", ErrEmptySlice)
	}

	for i, o := range orders {
		if o.CampaignID == "" {
			return fmt.Errorf("order at index %d: %w: missing campaign ID", i, ErrInvalidOrder)
		}
		if strings.TrimSpace(o.Number) == "" {
			return fmt.Errorf("order at index %d: %w: missing number", i, ErrInvalidOrder)
		}
		if !o.Type.Valid() {
			return fmt.Errorf("order at index %d: %w: type %q", i, ErrInvalidOrder, o.Type)
		}
		if o.Status != model.OrderStatusOpen && o.Status != model.OrderStatusClosed {
			return fmt.Errorf("order at index %d: %w: status %q", i, ErrInvalidOrder, o.Status)
		}
	}
	return nil
}

// validateAlert validates an alert before persistence.
func validateAlert(alert *model.Alert) error {
	if alert == nil {
		return fmt.Errorf("%w: alert", ErrNilParameter)
	}
	if alert.ID == "" {
		return fmt.Errorf("%w: missing alert ID", ErrNilParameter)
	}
	switch alert.Severity {
	case model.SeverityInfo, model.SeverityWarning, model.SeverityCritical:
	default:
		return fmt.Errorf("%w: %s", ErrInvalidSeverity, alert.Severity)
	}
	return nil
}
