package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/agrovista/cosecha/internal/cli"
)

func proposeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "propose",
		Short: "Propose mappings from budget categories to EEFF concepts",
		Long: `Run the matching engine over every budget line of a campaign and record
the proposals in the mapping ledger. Rows an operator has confirmed or
ignored are never touched, so re-running is always safe.`,
		RunE: runPropose,
	}
	cmd.Flags().StringP("campaign", "c", "", "campaign ID (required)")
	_ = cmd.MarkFlagRequired("campaign")
	return cmd
}

func runPropose(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	campaignID, _ := cmd.Flags().GetString("campaign")

	store, err := openStorage(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	stats, err := newEngine(store).ProposeMappings(ctx, campaignID)
	if err != nil {
		return err
	}

	content := fmt.Sprintf(`Exact:     %d
Suggested: %d
No match:  %d
Skipped:   %d (confirmed or ignored)`,
		stats.Exact, stats.Suggested, stats.None, stats.Skipped)

	fmt.Println(cli.RenderBox(fmt.Sprintf("Proposals for %s (%d lines)", campaignID, stats.Total()), content))
	return nil
}
