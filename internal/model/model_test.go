package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseProcess(t *testing.T) {
	tests := []struct {
		input   string
		want    Process
		wantErr bool
	}{
		{input: "nursery", want: ProcessNursery},
		{input: "almacigo", want: ProcessNursery},
		{input: "almácigo", want: ProcessNursery},
		{input: "vivero", want: ProcessNursery},
		{input: "field", want: ProcessField},
		{input: "campo", want: ProcessField},
		{input: "packing", want: ProcessPacking},
		{input: "empaque", want: ProcessPacking},
		{input: "packing-planta", want: ProcessPacking},
		{input: "invernadero", wantErr: true},
		{input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseProcess(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseOrderStatus(t *testing.T) {
	tests := []struct {
		input   string
		want    OrderStatus
		wantErr bool
	}{
		{input: "open", want: OrderStatusOpen},
		{input: "abierta", want: OrderStatusOpen},
		{input: "abierto", want: OrderStatusOpen},
		{input: "closed", want: OrderStatusClosed},
		{input: "cerrada", want: OrderStatusClosed},
		{input: "cerrado", want: OrderStatusClosed},
		{input: "pendiente", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseOrderStatus(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMatchTypeValid(t *testing.T) {
	for _, mt := range []MatchType{MatchTypeExact, MatchTypeSuggested, MatchTypeManual, MatchTypeIgnored, MatchTypeNone} {
		assert.True(t, mt.Valid(), string(mt))
	}
	assert.False(t, MatchType("fuzzy").Valid())
}

func TestProposable(t *testing.T) {
	tests := []struct {
		name    string
		mapping CategoryMapping
		want    bool
	}{
		{name: "fresh row", mapping: CategoryMapping{MatchType: MatchTypeNone}, want: true},
		{name: "suggested", mapping: CategoryMapping{MatchType: MatchTypeSuggested}, want: true},
		{name: "manual unconfirmed", mapping: CategoryMapping{MatchType: MatchTypeManual}, want: true},
		{name: "confirmed", mapping: CategoryMapping{MatchType: MatchTypeSuggested, Confirmed: true}, want: false},
		{name: "ignored", mapping: CategoryMapping{MatchType: MatchTypeIgnored}, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.mapping.Proposable())
		})
	}
}
