package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agrovista/cosecha/internal/common"
	"github.com/agrovista/cosecha/internal/model"
)

const campaignID = "camp-2026"

func setupStorage(t *testing.T) *SQLiteStorage {
	t.Helper()

	store, err := NewSQLiteStorage(":memory:")
	require.NoError(t, err)
	require.NoError(t, store.Migrate(context.Background()))

	t.Cleanup(func() {
		_ = store.Close()
	})
	return store
}

func dec(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	require.NoError(t, err)
	return d
}

func budgetLine(t *testing.T, category string, process model.Process, budget string) model.BudgetLine {
	t.Helper()
	return model.BudgetLine{
		CampaignID:   campaignID,
		Category:     category,
		Process:      process,
		BudgetAmount: dec(t, budget),
		ActualSource: model.ActualSourceNone,
	}
}

func TestNewSQLiteStorageCreatesParentDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "cosecha.db")

	store, err := NewSQLiteStorage(path)
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	require.NoError(t, store.Migrate(context.Background()))
}

func TestMigrateIsIdempotent(t *testing.T) {
	store := setupStorage(t)
	ctx := context.Background()

	require.NoError(t, store.Migrate(ctx))
	require.NoError(t, store.Migrate(ctx))

	var version int
	require.NoError(t, store.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&version))
	assert.Equal(t, ExpectedSchemaVersion, version)
}

func TestSaveBudgetLinesRoundtrip(t *testing.T) {
	store := setupStorage(t)
	ctx := context.Background()

	lines := []model.BudgetLine{
		budgetLine(t, "Semillas", model.ProcessNursery, "1000.50"),
		budgetLine(t, "Fertilizantes", model.ProcessField, "2500"),
	}
	require.NoError(t, store.SaveBudgetLines(ctx, lines))

	got, err := store.GetBudgetLines(ctx, campaignID)
	require.NoError(t, err)
	require.Len(t, got, 2)

	// Ordered by process then category; nursery sorts after field.
	assert.Equal(t, "Fertilizantes", got[0].Category)
	assert.True(t, got[0].BudgetAmount.Equal(dec(t, "2500")))
	assert.Equal(t, "Semillas", got[1].Category)
	assert.True(t, got[1].BudgetAmount.Equal(dec(t, "1000.50")))
	assert.False(t, got[1].ActualAmount.Valid)
	assert.Equal(t, model.ActualSourceNone, got[1].ActualSource)
}

func TestSaveBudgetLinesReimportPreservesActuals(t *testing.T) {
	store := setupStorage(t)
	ctx := context.Background()

	line := budgetLine(t, "Semillas", model.ProcessNursery, "1000")
	line.ActualAmount = decimal.NullDecimal{Decimal: dec(t, "950"), Valid: true}
	line.ActualSource = model.ActualSourceImport
	require.NoError(t, store.SaveBudgetLines(ctx, []model.BudgetLine{line}))

	// Re-import the same line with a new budget and no actual column.
	require.NoError(t, store.SaveBudgetLines(ctx, []model.BudgetLine{
		budgetLine(t, "Semillas", model.ProcessNursery, "1100"),
	}))

	got, err := store.GetBudgetLines(ctx, campaignID)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.True(t, got[0].BudgetAmount.Equal(dec(t, "1100")))
	require.True(t, got[0].ActualAmount.Valid, "re-import without actuals must not clear them")
	assert.True(t, got[0].ActualAmount.Decimal.Equal(dec(t, "950")))
	assert.Equal(t, model.ActualSourceImport, got[0].ActualSource)
}

func TestUpdateBudgetLineActual(t *testing.T) {
	store := setupStorage(t)
	ctx := context.Background()
	key := model.MappingKey{Category: "Semillas", Process: model.ProcessNursery}

	require.NoError(t, store.SaveBudgetLines(ctx, []model.BudgetLine{
		budgetLine(t, "Semillas", model.ProcessNursery, "1000"),
	}))

	actual := decimal.NullDecimal{Decimal: dec(t, "1200"), Valid: true}
	require.NoError(t, store.UpdateBudgetLineActual(ctx, campaignID, key, actual, model.ActualSourceReconciled))

	got, err := store.GetBudgetLines(ctx, campaignID)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.True(t, got[0].ActualAmount.Decimal.Equal(dec(t, "1200")))
	assert.Equal(t, model.ActualSourceReconciled, got[0].ActualSource)
}

func TestUpdateBudgetLineActualMissingLine(t *testing.T) {
	store := setupStorage(t)
	ctx := context.Background()
	key := model.MappingKey{Category: "Inexistente", Process: model.ProcessField}

	err := store.UpdateBudgetLineActual(ctx, campaignID, key, decimal.NullDecimal{}, model.ActualSourceNone)
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestReplaceTaxonomy(t *testing.T) {
	store := setupStorage(t)
	ctx := context.Background()

	first := []model.TaxonomyConcept{
		{CampaignID: campaignID, Name: "Semilla", TotalAmount: dec(t, "1200"), NurseryTotal: dec(t, "800"), FieldTotal: dec(t, "400")},
		{CampaignID: campaignID, Name: "Fertilizante", TotalAmount: dec(t, "500")},
	}
	require.NoError(t, store.ReplaceTaxonomy(ctx, campaignID, first))

	second := []model.TaxonomyConcept{
		{CampaignID: campaignID, Name: "Mano de Obra", TotalAmount: dec(t, "3000")},
	}
	require.NoError(t, store.ReplaceTaxonomy(ctx, campaignID, second))

	got, err := store.GetTaxonomy(ctx, campaignID)
	require.NoError(t, err)
	require.Len(t, got, 1, "ingestion replaces the concept set wholesale")
	assert.Equal(t, "Mano de Obra", got[0].Name)
	assert.True(t, got[0].TotalAmount.Equal(dec(t, "3000")))
}

func TestGetMappingNotFound(t *testing.T) {
	store := setupStorage(t)

	_, err := store.GetMapping(context.Background(), campaignID, model.MappingKey{Category: "X", Process: model.ProcessField})
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestSaveMappingUpsert(t *testing.T) {
	store := setupStorage(t)
	ctx := context.Background()

	mapping := &model.CategoryMapping{
		CampaignID:     campaignID,
		BudgetCategory: "Semillas",
		BudgetProcess:  model.ProcessNursery,
		EEFFConcept:    "Semilla",
		MatchType:      model.MatchTypeSuggested,
		Confidence:     95,
	}
	require.NoError(t, store.SaveMapping(ctx, mapping))

	mapping.Confirmed = true
	require.NoError(t, store.SaveMapping(ctx, mapping))

	all, err := store.GetMappings(ctx, campaignID)
	require.NoError(t, err)
	require.Len(t, all, 1, "same key must update in place")
	assert.True(t, all[0].Confirmed)
	assert.Equal(t, 95, all[0].Confidence)
}

func TestSaveProductionOrdersUpsert(t *testing.T) {
	store := setupStorage(t)
	ctx := context.Background()

	order := model.ProductionOrder{
		CampaignID:   campaignID,
		Number:       "OP-001",
		Type:         model.ProcessField,
		Status:       model.OrderStatusOpen,
		EstimatedQty: dec(t, "1000"),
		ProducedQty:  dec(t, "0"),
		TotalCost:    dec(t, "0"),
	}
	require.NoError(t, store.SaveProductionOrders(ctx, []model.ProductionOrder{order}))

	order.Status = model.OrderStatusClosed
	order.ProducedQty = dec(t, "980")
	order.TotalCost = dec(t, "15000")
	require.NoError(t, store.SaveProductionOrders(ctx, []model.ProductionOrder{order}))

	got, err := store.GetProductionOrders(ctx, campaignID)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, model.OrderStatusClosed, got[0].Status)
	assert.True(t, got[0].ProducedQty.Equal(dec(t, "980")))
	assert.True(t, got[0].TotalCost.Equal(dec(t, "15000")))
}

func alert(entity string) model.Alert {
	return model.Alert{
		ID:            uuid.NewString(),
		CampaignID:    campaignID,
		Severity:      model.SeverityWarning,
		Type:          model.AlertTypeBudgetVariance,
		Message:       "campaign is over budget by 15.0%",
		RelatedEntity: entity,
		CreatedAt:     time.Now(),
	}
}

func TestSaveAlertsDeduplicates(t *testing.T) {
	store := setupStorage(t)
	ctx := context.Background()

	inserted, err := store.SaveAlerts(ctx, []model.Alert{alert("campaign/" + campaignID)})
	require.NoError(t, err)
	assert.Equal(t, 1, inserted)

	// Same entity and type with a fresh ID: skipped.
	inserted, err = store.SaveAlerts(ctx, []model.Alert{alert("campaign/" + campaignID)})
	require.NoError(t, err)
	assert.Zero(t, inserted)

	// Different entity: inserted.
	inserted, err = store.SaveAlerts(ctx, []model.Alert{alert("order/OP-001")})
	require.NoError(t, err)
	assert.Equal(t, 1, inserted)

	alerts, err := store.GetAlerts(ctx, campaignID)
	require.NoError(t, err)
	assert.Len(t, alerts, 2)
}

func TestAcknowledgeAlert(t *testing.T) {
	store := setupStorage(t)
	ctx := context.Background()

	a := alert("campaign/" + campaignID)
	_, err := store.SaveAlerts(ctx, []model.Alert{a})
	require.NoError(t, err)

	require.NoError(t, store.AcknowledgeAlert(ctx, a.ID))

	alerts, err := store.GetAlerts(ctx, campaignID)
	require.NoError(t, err)
	require.Len(t, alerts, 1)
	require.True(t, alerts[0].Acknowledged())
	firstAck := *alerts[0].AcknowledgedAt

	// Acknowledging twice keeps the original timestamp.
	require.NoError(t, store.AcknowledgeAlert(ctx, a.ID))
	alerts, err = store.GetAlerts(ctx, campaignID)
	require.NoError(t, err)
	assert.True(t, alerts[0].AcknowledgedAt.Equal(firstAck))
}

func TestAcknowledgeUnknownAlert(t *testing.T) {
	store := setupStorage(t)

	err := store.AcknowledgeAlert(context.Background(), "no-such-alert")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestKPIsRoundtrip(t *testing.T) {
	store := setupStorage(t)
	ctx := context.Background()

	kpis := &model.CampaignKPIs{
		CampaignID: campaignID,
		ComputedAt: time.Now(),
		PerProcess: map[model.Process]model.ProcessTotals{
			model.ProcessNursery: {Budget: dec(t, "1000"), Actual: dec(t, "800")},
			model.ProcessField:   {Budget: dec(t, "2000"), Actual: dec(t, "2400")},
			model.ProcessPacking: {Budget: decimal.Zero, Actual: decimal.Zero},
		},
		TopCategories: []model.CategoryShare{
			{Category: "Semillas", Process: model.ProcessNursery, Amount: dec(t, "800")},
		},
		TotalBudget:      dec(t, "3000"),
		TotalActual:      dec(t, "3200"),
		Variance:         dec(t, "200"),
		VariancePercent:  dec(t, "6.67"),
		UnitCost:         dec(t, "3.2"),
		TotalProducedQty: dec(t, "1000"),
		OpenOrders:       2,
		ClosedOrders:     1,
	}
	require.NoError(t, store.SaveKPIs(ctx, kpis))

	got, err := store.GetKPIs(ctx, campaignID)
	require.NoError(t, err)
	assert.True(t, got.TotalBudget.Equal(kpis.TotalBudget))
	assert.True(t, got.TotalActual.Equal(kpis.TotalActual))
	assert.True(t, got.VariancePercent.Equal(kpis.VariancePercent))
	assert.Equal(t, 2, got.OpenOrders)
	require.Len(t, got.TopCategories, 1)
	assert.Equal(t, "Semillas", got.TopCategories[0].Category)
	assert.True(t, got.PerProcess[model.ProcessField].Actual.Equal(dec(t, "2400")))

	// A second save replaces the projection.
	kpis.TotalActual = dec(t, "3500")
	require.NoError(t, store.SaveKPIs(ctx, kpis))
	got, err = store.GetKPIs(ctx, campaignID)
	require.NoError(t, err)
	assert.True(t, got.TotalActual.Equal(dec(t, "3500")))
}

func TestGetKPIsNotFound(t *testing.T) {
	store := setupStorage(t)

	_, err := store.GetKPIs(context.Background(), campaignID)
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestListCampaigns(t *testing.T) {
	store := setupStorage(t)
	ctx := context.Background()

	require.NoError(t, store.SaveBudgetLines(ctx, []model.BudgetLine{
		budgetLine(t, "Semillas", model.ProcessNursery, "1000"),
		budgetLine(t, "Fletes", model.ProcessPacking, "200"),
	}))
	require.NoError(t, store.ReplaceTaxonomy(ctx, campaignID, []model.TaxonomyConcept{
		{CampaignID: campaignID, Name: "Semilla", TotalAmount: dec(t, "1200")},
	}))
	require.NoError(t, store.SaveMapping(ctx, &model.CategoryMapping{
		CampaignID:     campaignID,
		BudgetCategory: "Semillas",
		BudgetProcess:  model.ProcessNursery,
		EEFFConcept:    "Semilla",
		MatchType:      model.MatchTypeExact,
		Confidence:     100,
		Confirmed:      true,
	}))

	other := budgetLine(t, "Otra cosa", model.ProcessField, "10")
	other.CampaignID = "camp-2027"
	require.NoError(t, store.SaveBudgetLines(ctx, []model.BudgetLine{other}))

	summaries, err := store.ListCampaigns(ctx)
	require.NoError(t, err)
	require.Len(t, summaries, 2)

	assert.Equal(t, campaignID, summaries[0].CampaignID)
	assert.Equal(t, 2, summaries[0].BudgetLines)
	assert.Equal(t, 1, summaries[0].TaxonomyConcepts)
	assert.Equal(t, 1, summaries[0].Mappings)
	assert.Equal(t, 1, summaries[0].ConfirmedMappings)
	assert.Zero(t, summaries[0].ProductionOrders)

	assert.Equal(t, "camp-2027", summaries[1].CampaignID)
	assert.Equal(t, 1, summaries[1].BudgetLines)
}

func TestTransactionRollback(t *testing.T) {
	store := setupStorage(t)
	ctx := context.Background()

	tx, err := store.BeginTx(ctx)
	require.NoError(t, err)

	require.NoError(t, tx.SaveBudgetLines(ctx, []model.BudgetLine{
		budgetLine(t, "Semillas", model.ProcessNursery, "1000"),
	}))
	require.NoError(t, tx.Rollback())

	lines, err := store.GetBudgetLines(ctx, campaignID)
	require.NoError(t, err)
	assert.Empty(t, lines)
}

func TestTransactionCommit(t *testing.T) {
	store := setupStorage(t)
	ctx := context.Background()

	tx, err := store.BeginTx(ctx)
	require.NoError(t, err)

	require.NoError(t, tx.SaveBudgetLines(ctx, []model.BudgetLine{
		budgetLine(t, "Semillas", model.ProcessNursery, "1000"),
	}))
	require.NoError(t, tx.Commit())

	lines, err := store.GetBudgetLines(ctx, campaignID)
	require.NoError(t, err)
	assert.Len(t, lines, 1)
}

func TestValidation(t *testing.T) {
	store := setupStorage(t)
	ctx := context.Background()

	t.Run("empty campaign ID", func(t *testing.T) {
		_, err := store.GetBudgetLines(ctx, "")
		assert.Error(t, err)
	})

	t.Run("budget line without category", func(t *testing.T) {
		err := store.SaveBudgetLines(ctx, []model.BudgetLine{
			{CampaignID: campaignID, Process: model.ProcessField, BudgetAmount: dec(t, "1")},
		})
		assert.Error(t, err)
	})

	t.Run("budget line with invalid process", func(t *testing.T) {
		err := store.SaveBudgetLines(ctx, []model.BudgetLine{
			{CampaignID: campaignID, Category: "X", Process: "greenhouse", BudgetAmount: dec(t, "1")},
		})
		assert.Error(t, err)
	})

	t.Run("nil mapping", func(t *testing.T) {
		assert.Error(t, store.SaveMapping(ctx, nil))
	})
}
