package main

import (
	"fmt"
	"log/slog"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/agrovista/cosecha/internal/cli"
	"github.com/agrovista/cosecha/internal/common"
	"github.com/agrovista/cosecha/internal/importer"
	"github.com/agrovista/cosecha/internal/model"
)

func importCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import campaign data from spreadsheets",
		Long: `Import budget lines, EEFF taxonomy concepts or production orders from
an .xlsx workbook. Validation happens at this boundary; the engine only ever
sees typed entities.`,
	}

	cmd.AddCommand(importBudgetCmd())
	cmd.AddCommand(importTaxonomyCmd())
	cmd.AddCommand(importOrdersCmd())

	return cmd
}

func importBudgetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "budget <file.xlsx>",
		Short: "Import budget lines for a campaign",
		Args:  cobra.ExactArgs(1),
		RunE:  runImportBudget,
	}
	cmd.Flags().StringP("campaign", "c", "", "campaign ID (required)")
	_ = cmd.MarkFlagRequired("campaign")
	return cmd
}

func runImportBudget(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	campaignID, _ := cmd.Flags().GetString("campaign")

	lines, err := importer.ReadBudgetLines(args[0], campaignID)
	if err != nil {
		return common.NewUserError(fmt.Sprintf("Could not read budget file %s", args[0]), err)
	}
	if len(lines) == 0 {
		slog.Warn("No budget lines found in file", "file", args[0])
		return nil
	}

	store, err := openStorage(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	bar := progressbar.Default(int64(len(lines)), "importing budget lines")
	for i := range lines {
		if err := store.SaveBudgetLines(ctx, lines[i:i+1]); err != nil {
			return fmt.Errorf("failed to save budget line %q: %w", lines[i].Category, err)
		}
		_ = bar.Add(1)
	}
	_ = bar.Finish()

	fmt.Println(cli.FormatSuccess(fmt.Sprintf("Imported %d budget lines for campaign %s", len(lines), campaignID)))
	return nil
}

func importTaxonomyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "taxonomy <file.xlsx>",
		Short: "Import EEFF taxonomy concepts for a campaign",
		Long: `Import the campaign's accounting concept set. The existing set is
replaced wholesale; confirmed mappings survive and re-resolve against the new
concepts on the next recalculate.`,
		Args: cobra.ExactArgs(1),
		RunE: runImportTaxonomy,
	}
	cmd.Flags().StringP("campaign", "c", "", "campaign ID (required)")
	_ = cmd.MarkFlagRequired("campaign")
	return cmd
}

func runImportTaxonomy(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	campaignID, _ := cmd.Flags().GetString("campaign")

	concepts, err := importer.ReadTaxonomy(args[0], campaignID)
	if err != nil {
		return common.NewUserError(fmt.Sprintf("Could not read taxonomy file %s", args[0]), err)
	}

	store, err := openStorage(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	if err := store.ReplaceTaxonomy(ctx, campaignID, concepts); err != nil {
		return fmt.Errorf("failed to replace taxonomy: %w", err)
	}

	fmt.Println(cli.FormatSuccess(fmt.Sprintf("Imported %d EEFF concepts for campaign %s", len(concepts), campaignID)))
	return nil
}

func importOrdersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "orders <file.xlsx>",
		Short: "Import production orders for a campaign",
		Args:  cobra.ExactArgs(1),
		RunE:  runImportOrders,
	}
	cmd.Flags().StringP("campaign", "c", "", "campaign ID (required)")
	_ = cmd.MarkFlagRequired("campaign")
	return cmd
}

func runImportOrders(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	campaignID, _ := cmd.Flags().GetString("campaign")

	orders, err := importer.ReadProductionOrders(args[0], campaignID)
	if err != nil {
		return common.NewUserError(fmt.Sprintf("Could not read orders file %s", args[0]), err)
	}
	if len(orders) == 0 {
		slog.Warn("No production orders found in file", "file", args[0])
		return nil
	}

	store, err := openStorage(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	if err := store.SaveProductionOrders(ctx, orders); err != nil {
		return fmt.Errorf("failed to save production orders: %w", err)
	}

	open := 0
	for _, o := range orders {
		if o.Status == model.OrderStatusOpen {
			open++
		}
	}

	fmt.Println(cli.FormatSuccess(fmt.Sprintf("Imported %d production orders (%d open) for campaign %s", len(orders), open, campaignID)))
	return nil
}
