package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/agrovista/cosecha/internal/cli"
	"github.com/agrovista/cosecha/internal/common"
	"github.com/agrovista/cosecha/internal/model"
	"github.com/agrovista/cosecha/internal/service"
)

func recalculateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "recalculate",
		Short: "Reconcile actuals and recompute KPIs and alerts",
		Long: `Recompute the campaign projection from its current sources of truth:
budget lines, the EEFF taxonomy, confirmed mappings and production orders.
Reconciled actuals, KPIs and alerts are persisted; already imported actuals
are never overwritten.`,
		RunE: runRecalculate,
	}
	cmd.Flags().StringP("campaign", "c", "", "campaign ID (required)")
	_ = cmd.MarkFlagRequired("campaign")
	return cmd
}

func runRecalculate(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	campaignID, _ := cmd.Flags().GetString("campaign")

	store, err := openStorage(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	eng := newEngine(store)

	var (
		kpis   *model.CampaignKPIs
		alerts []model.Alert
	)
	// Lock contention with a concurrent edit is transient; replay the whole
	// recompute rather than failing the command.
	err = common.WithRetry(ctx, func() error {
		var err error
		kpis, alerts, err = eng.Recalculate(ctx, campaignID)
		return err
	}, service.RetryOptions{MaxAttempts: viper.GetInt("retry.max_attempts")})
	if err != nil {
		return err
	}

	fmt.Println(cli.RenderBox(cli.ChartIcon+" Campaign "+campaignID, formatKPIs(kpis)))

	if len(alerts) == 0 {
		fmt.Println(cli.FormatSuccess("No new alerts"))
		return nil
	}

	fmt.Println(cli.FormatWarning(fmt.Sprintf("%d new alert(s):", len(alerts))))
	for i := range alerts {
		a := &alerts[i]
		fmt.Printf("  %s %s\n", cli.SeverityStyle(a.Severity).Render("["+string(a.Severity)+"]"), a.Message)
	}
	return nil
}

func formatKPIs(k *model.CampaignKPIs) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Total budget:   %s\n", k.TotalBudget.StringFixed(2))
	fmt.Fprintf(&b, "Total actual:   %s\n", k.TotalActual.StringFixed(2))
	fmt.Fprintf(&b, "Variance:       %s (%s%%)\n", k.Variance.StringFixed(2), k.VariancePercent.StringFixed(1))
	fmt.Fprintf(&b, "Produced qty:   %s\n", k.TotalProducedQty.StringFixed(2))
	fmt.Fprintf(&b, "Unit cost:      %s\n", k.UnitCost.StringFixed(4))
	fmt.Fprintf(&b, "Orders:         %d open / %d closed\n", k.OpenOrders, k.ClosedOrders)

	b.WriteString("\nPer process:\n")
	for _, p := range model.Processes() {
		t := k.PerProcess[p]
		fmt.Fprintf(&b, "  %-8s budget %s / actual %s\n", p, t.Budget.StringFixed(2), t.Actual.StringFixed(2))
	}

	if len(k.TopCategories) > 0 {
		b.WriteString("\nTop categories:\n")
		for _, c := range k.TopCategories {
			fmt.Fprintf(&b, "  %-30s %-8s %s\n", truncate(c.Category, 30), c.Process, c.Amount.StringFixed(2))
		}
	}

	return strings.TrimRight(b.String(), "\n")
}
