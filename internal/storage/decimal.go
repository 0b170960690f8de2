package storage

import (
	"database/sql"
	"fmt"

	"github.com/shopspring/decimal"
)

// Amounts are stored as TEXT so SQLite never coerces them through floating
// point. These helpers convert between decimal.Decimal and the column type.

func decToText(d decimal.Decimal) string {
	return d.String()
}

func textToDec(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to parse stored amount %q: %w", s, err)
	}
	return d, nil
}

func nullDecToText(d decimal.NullDecimal) sql.NullString {
	if !d.Valid {
		return sql.NullString{}
	}
	return sql.NullString{String: d.Decimal.String(), Valid: true}
}

func textToNullDec(s sql.NullString) (decimal.NullDecimal, error) {
	if !s.Valid {
		return decimal.NullDecimal{}, nil
	}
	d, err := textToDec(s.String)
	if err != nil {
		return decimal.NullDecimal{}, err
	}
	return decimal.NullDecimal{Decimal: d, Valid: true}, nil
}
