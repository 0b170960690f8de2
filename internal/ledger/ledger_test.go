package ledger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agrovista/cosecha/internal/common"
	"github.com/agrovista/cosecha/internal/model"
	"github.com/agrovista/cosecha/internal/testutil"
)

const campaignID = "camp-2026"

func proposal(category string, process model.Process, concept string, matchType model.MatchType, confidence int) model.CategoryMapping {
	return model.CategoryMapping{
		CampaignID:     campaignID,
		BudgetCategory: category,
		BudgetProcess:  process,
		EEFFConcept:    concept,
		MatchType:      matchType,
		Confidence:     confidence,
	}
}

func key(category string, process model.Process) model.MappingKey {
	return model.MappingKey{Category: category, Process: process}
}

func TestUpsertProposalInsertsNewRow(t *testing.T) {
	db := testutil.SetupTestDB(t)
	l := New(db.Storage)
	ctx := context.Background()

	applied, err := l.UpsertProposal(ctx, proposal("Semillas", model.ProcessNursery, "Semilla", model.MatchTypeSuggested, 95))
	require.NoError(t, err)
	assert.True(t, applied)

	got, err := db.Storage.GetMapping(ctx, campaignID, key("Semillas", model.ProcessNursery))
	require.NoError(t, err)
	assert.Equal(t, "Semilla", got.EEFFConcept)
	assert.Equal(t, model.MatchTypeSuggested, got.MatchType)
	assert.Equal(t, 95, got.Confidence)
	assert.False(t, got.Confirmed)
}

func TestUpsertProposalOverwritesProposableRow(t *testing.T) {
	db := testutil.SetupTestDB(t)
	l := New(db.Storage)
	ctx := context.Background()

	_, err := l.UpsertProposal(ctx, proposal("Semillas", model.ProcessNursery, "Semilla", model.MatchTypeSuggested, 60))
	require.NoError(t, err)

	applied, err := l.UpsertProposal(ctx, proposal("Semillas", model.ProcessNursery, "Semilla certificada", model.MatchTypeSuggested, 85))
	require.NoError(t, err)
	assert.True(t, applied)

	got, err := db.Storage.GetMapping(ctx, campaignID, key("Semillas", model.ProcessNursery))
	require.NoError(t, err)
	assert.Equal(t, "Semilla certificada", got.EEFFConcept)
	assert.Equal(t, 85, got.Confidence)
}

func TestUpsertProposalSkipsConfirmedRow(t *testing.T) {
	db := testutil.SetupTestDB(t)
	l := New(db.Storage)
	ctx := context.Background()

	_, err := l.UpsertProposal(ctx, proposal("Semillas", model.ProcessNursery, "Semilla", model.MatchTypeSuggested, 95))
	require.NoError(t, err)
	require.NoError(t, l.Confirm(ctx, campaignID, key("Semillas", model.ProcessNursery)))

	applied, err := l.UpsertProposal(ctx, proposal("Semillas", model.ProcessNursery, "Otro concepto", model.MatchTypeSuggested, 99))
	require.NoError(t, err)
	assert.False(t, applied)

	got, err := db.Storage.GetMapping(ctx, campaignID, key("Semillas", model.ProcessNursery))
	require.NoError(t, err)
	assert.Equal(t, "Semilla", got.EEFFConcept, "confirmed decision must survive re-matching")
	assert.True(t, got.Confirmed)
}

func TestUpsertProposalSkipsIgnoredRow(t *testing.T) {
	db := testutil.SetupTestDB(t)
	l := New(db.Storage)
	ctx := context.Background()

	_, err := l.UpsertProposal(ctx, proposal("Imprevistos", model.ProcessField, "", model.MatchTypeNone, 0))
	require.NoError(t, err)
	require.NoError(t, l.Ignore(ctx, campaignID, key("Imprevistos", model.ProcessField)))

	applied, err := l.UpsertProposal(ctx, proposal("Imprevistos", model.ProcessField, "Otros Gastos", model.MatchTypeSuggested, 70))
	require.NoError(t, err)
	assert.False(t, applied)

	got, err := db.Storage.GetMapping(ctx, campaignID, key("Imprevistos", model.ProcessField))
	require.NoError(t, err)
	assert.Equal(t, model.MatchTypeIgnored, got.MatchType)
}

func TestUpsertProposalIdempotent(t *testing.T) {
	db := testutil.SetupTestDB(t)
	l := New(db.Storage)
	ctx := context.Background()

	p := proposal("Semillas", model.ProcessNursery, "Semilla", model.MatchTypeSuggested, 95)
	for i := 0; i < 3; i++ {
		_, err := l.UpsertProposal(ctx, p)
		require.NoError(t, err)
	}

	mappings, err := db.Storage.GetMappings(ctx, campaignID)
	require.NoError(t, err)
	assert.Len(t, mappings, 1, "re-running the matcher must never duplicate rows")
}

func TestSetMappingManual(t *testing.T) {
	db := testutil.SetupTestDB(t)
	l := New(db.Storage)
	ctx := context.Background()

	_, err := l.UpsertProposal(ctx, proposal("Fletes", model.ProcessPacking, "", model.MatchTypeNone, 0))
	require.NoError(t, err)

	require.NoError(t, l.SetMapping(ctx, campaignID, key("Fletes", model.ProcessPacking), "Transporte"))

	got, err := db.Storage.GetMapping(ctx, campaignID, key("Fletes", model.ProcessPacking))
	require.NoError(t, err)
	assert.Equal(t, "Transporte", got.EEFFConcept)
	assert.Equal(t, model.MatchTypeManual, got.MatchType)
	assert.Zero(t, got.Confidence)
	assert.False(t, got.Confirmed, "a manual edit always requires re-confirmation")
}

func TestSetMappingClearResetsRow(t *testing.T) {
	db := testutil.SetupTestDB(t)
	l := New(db.Storage)
	ctx := context.Background()

	_, err := l.UpsertProposal(ctx, proposal("Fletes", model.ProcessPacking, "Transporte", model.MatchTypeSuggested, 75))
	require.NoError(t, err)
	require.NoError(t, l.Confirm(ctx, campaignID, key("Fletes", model.ProcessPacking)))

	require.NoError(t, l.SetMapping(ctx, campaignID, key("Fletes", model.ProcessPacking), ""))

	got, err := db.Storage.GetMapping(ctx, campaignID, key("Fletes", model.ProcessPacking))
	require.NoError(t, err)
	assert.Empty(t, got.EEFFConcept)
	assert.Equal(t, model.MatchTypeNone, got.MatchType)
	assert.False(t, got.Confirmed)
}

func TestEditMissingRowIsInvalidState(t *testing.T) {
	db := testutil.SetupTestDB(t)
	l := New(db.Storage)
	ctx := context.Background()
	missing := key("Inexistente", model.ProcessField)

	assert.ErrorIs(t, l.SetMapping(ctx, campaignID, missing, "Transporte"), common.ErrInvalidState)
	assert.ErrorIs(t, l.Confirm(ctx, campaignID, missing), common.ErrInvalidState)
	assert.ErrorIs(t, l.Ignore(ctx, campaignID, missing), common.ErrInvalidState)
	assert.ErrorIs(t, l.Restore(ctx, campaignID, missing), common.ErrInvalidState)
}

func TestConfirmUnmappedRowFails(t *testing.T) {
	db := testutil.SetupTestDB(t)
	l := New(db.Storage)
	ctx := context.Background()

	_, err := l.UpsertProposal(ctx, proposal("Imprevistos", model.ProcessField, "", model.MatchTypeNone, 0))
	require.NoError(t, err)

	err = l.Confirm(ctx, campaignID, key("Imprevistos", model.ProcessField))
	assert.ErrorIs(t, err, common.ErrInvalidState)
}

func TestConfirmIgnoredRowFails(t *testing.T) {
	db := testutil.SetupTestDB(t)
	l := New(db.Storage)
	ctx := context.Background()

	_, err := l.UpsertProposal(ctx, proposal("Semillas", model.ProcessNursery, "Semilla", model.MatchTypeSuggested, 95))
	require.NoError(t, err)
	require.NoError(t, l.Ignore(ctx, campaignID, key("Semillas", model.ProcessNursery)))

	err = l.Confirm(ctx, campaignID, key("Semillas", model.ProcessNursery))
	assert.ErrorIs(t, err, common.ErrInvalidState)
}

func TestConfirmAllSuggested(t *testing.T) {
	db := testutil.SetupTestDB(t)
	l := New(db.Storage)
	ctx := context.Background()

	// Three suggested/exact rows but only two carry a concept; plus one
	// manual and one already-confirmed row, neither of which should count.
	seeds := []model.CategoryMapping{
		proposal("Semillas", model.ProcessNursery, "Semilla", model.MatchTypeExact, 100),
		proposal("Fertilizantes", model.ProcessField, "Fertilizante", model.MatchTypeSuggested, 88),
		proposal("Imprevistos", model.ProcessField, "", model.MatchTypeNone, 0),
		proposal("Fletes", model.ProcessPacking, "Transporte", model.MatchTypeManual, 0),
	}
	for _, s := range seeds {
		_, err := l.UpsertProposal(ctx, s)
		require.NoError(t, err)
	}

	confirmed, err := l.ConfirmAllSuggested(ctx, campaignID)
	require.NoError(t, err)
	assert.Equal(t, 2, confirmed)

	// Manual rows need an explicit per-row confirmation.
	fletes, err := db.Storage.GetMapping(ctx, campaignID, key("Fletes", model.ProcessPacking))
	require.NoError(t, err)
	assert.False(t, fletes.Confirmed)

	// A second run finds nothing left to confirm.
	confirmed, err = l.ConfirmAllSuggested(ctx, campaignID)
	require.NoError(t, err)
	assert.Zero(t, confirmed)
}

func TestIgnoreKeepsConceptForAudit(t *testing.T) {
	db := testutil.SetupTestDB(t)
	l := New(db.Storage)
	ctx := context.Background()

	_, err := l.UpsertProposal(ctx, proposal("Semillas", model.ProcessNursery, "Semilla", model.MatchTypeSuggested, 95))
	require.NoError(t, err)
	require.NoError(t, l.Confirm(ctx, campaignID, key("Semillas", model.ProcessNursery)))

	require.NoError(t, l.Ignore(ctx, campaignID, key("Semillas", model.ProcessNursery)))

	got, err := db.Storage.GetMapping(ctx, campaignID, key("Semillas", model.ProcessNursery))
	require.NoError(t, err)
	assert.Equal(t, model.MatchTypeIgnored, got.MatchType)
	assert.Equal(t, "Semilla", got.EEFFConcept)
	assert.False(t, got.Confirmed)
}

func TestRestore(t *testing.T) {
	db := testutil.SetupTestDB(t)
	l := New(db.Storage)
	ctx := context.Background()

	_, err := l.UpsertProposal(ctx, proposal("Semillas", model.ProcessNursery, "Semilla", model.MatchTypeSuggested, 95))
	require.NoError(t, err)

	t.Run("fails on non-ignored row", func(t *testing.T) {
		err := l.Restore(ctx, campaignID, key("Semillas", model.ProcessNursery))
		assert.ErrorIs(t, err, common.ErrInvalidState)
	})

	require.NoError(t, l.Ignore(ctx, campaignID, key("Semillas", model.ProcessNursery)))
	require.NoError(t, l.Restore(ctx, campaignID, key("Semillas", model.ProcessNursery)))

	got, err := db.Storage.GetMapping(ctx, campaignID, key("Semillas", model.ProcessNursery))
	require.NoError(t, err)
	assert.Equal(t, model.MatchTypeNone, got.MatchType)
	assert.Empty(t, got.EEFFConcept)
	assert.False(t, got.Confirmed)

	// A restored row is proposable again.
	applied, err := l.UpsertProposal(ctx, proposal("Semillas", model.ProcessNursery, "Semilla", model.MatchTypeSuggested, 95))
	require.NoError(t, err)
	assert.True(t, applied)
}

func TestConfirmedMappings(t *testing.T) {
	db := testutil.SetupTestDB(t)
	l := New(db.Storage)
	ctx := context.Background()

	_, err := l.UpsertProposal(ctx, proposal("Semillas", model.ProcessNursery, "Semilla", model.MatchTypeExact, 100))
	require.NoError(t, err)
	_, err = l.UpsertProposal(ctx, proposal("Fertilizantes", model.ProcessField, "Fertilizante", model.MatchTypeSuggested, 88))
	require.NoError(t, err)
	require.NoError(t, l.Confirm(ctx, campaignID, key("Semillas", model.ProcessNursery)))

	confirmed, err := l.ConfirmedMappings(ctx, campaignID)
	require.NoError(t, err)

	assert.Equal(t, map[model.MappingKey]string{
		key("Semillas", model.ProcessNursery): "Semilla",
	}, confirmed, "unconfirmed suggestions never feed reconciliation")
}
