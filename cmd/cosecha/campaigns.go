package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/agrovista/cosecha/internal/cli"
)

func campaignsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "campaigns",
		Short: "List known campaigns and their loaded data",
		RunE:  runCampaigns,
	}
}

func runCampaigns(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	store, err := openStorage(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	campaigns, err := store.ListCampaigns(ctx)
	if err != nil {
		return err
	}
	if len(campaigns) == 0 {
		fmt.Println(cli.FormatInfo("No campaigns yet. Run 'cosecha import' to get started."))
		return nil
	}

	header := fmt.Sprintf("%-20s %8s %8s %10s %10s %8s",
		"CAMPAIGN", "BUDGET", "TAXONOMY", "MAPPINGS", "CONFIRMED", "ORDERS")
	fmt.Println(cli.TableHeaderStyle.Render(header))

	for _, c := range campaigns {
		fmt.Printf("%-20s %8d %8d %10d %10d %8d\n",
			truncate(c.CampaignID, 20), c.BudgetLines, c.TaxonomyConcepts,
			c.Mappings, c.ConfirmedMappings, c.ProductionOrders)
	}
	return nil
}
