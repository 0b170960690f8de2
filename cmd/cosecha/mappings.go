package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/agrovista/cosecha/internal/cli"
	"github.com/agrovista/cosecha/internal/model"
)

func mappingsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mappings",
		Short: "Inspect and edit the mapping ledger",
	}

	cmd.AddCommand(mappingsListCmd())
	cmd.AddCommand(mappingsSetCmd())
	cmd.AddCommand(mappingsConfirmCmd())
	cmd.AddCommand(mappingsConfirmAllCmd())
	cmd.AddCommand(mappingsIgnoreCmd())
	cmd.AddCommand(mappingsRestoreCmd())

	return cmd
}

// keyFlags adds the --campaign/--process/--category trio shared by the
// row-level subcommands.
func keyFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("campaign", "c", "", "campaign ID (required)")
	cmd.Flags().StringP("process", "p", "", "production process: nursery, field or packing (required)")
	cmd.Flags().String("category", "", "budget category (required)")
	_ = cmd.MarkFlagRequired("campaign")
	_ = cmd.MarkFlagRequired("process")
	_ = cmd.MarkFlagRequired("category")
}

func mappingKeyFromFlags(cmd *cobra.Command) (string, model.MappingKey, error) {
	campaignID, _ := cmd.Flags().GetString("campaign")
	processArg, _ := cmd.Flags().GetString("process")
	category, _ := cmd.Flags().GetString("category")

	process, err := model.ParseProcess(processArg)
	if err != nil {
		return "", model.MappingKey{}, err
	}
	return campaignID, model.MappingKey{Category: category, Process: process}, nil
}

func mappingsListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the campaign's mapping ledger",
		RunE:  runMappingsList,
	}
	cmd.Flags().StringP("campaign", "c", "", "campaign ID (required)")
	_ = cmd.MarkFlagRequired("campaign")
	return cmd
}

func runMappingsList(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	campaignID, _ := cmd.Flags().GetString("campaign")

	store, err := openStorage(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	mappings, err := newEngine(store).Mappings(ctx, campaignID)
	if err != nil {
		return err
	}
	if len(mappings) == 0 {
		fmt.Println(cli.FormatInfo("No mappings yet. Run 'cosecha propose' first."))
		return nil
	}

	header := fmt.Sprintf("%-10s %-30s %-30s %-10s %5s  %s",
		"PROCESS", "CATEGORY", "EEFF CONCEPT", "TYPE", "CONF", "STATE")
	fmt.Println(cli.TableHeaderStyle.Render(header))

	for i := range mappings {
		m := &mappings[i]
		state := ""
		switch {
		case m.Confirmed:
			state = cli.FormatSuccess("confirmed")
		case m.MatchType == model.MatchTypeIgnored:
			state = cli.SubtleStyle.Render("ignored")
		case m.Mapped():
			state = cli.FormatWarning("pending")
		default:
			state = cli.SubtleStyle.Render("unmapped")
		}

		concept := m.EEFFConcept
		if concept == "" {
			concept = "-"
		}
		fmt.Printf("%-10s %-30s %-30s %-10s %5d  %s\n",
			m.BudgetProcess, truncate(m.BudgetCategory, 30), truncate(concept, 30),
			m.MatchType, m.Confidence, state)
	}

	return nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return strings.TrimSpace(string(r[:n-1])) + "…"
}

func mappingsSetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "set",
		Short: "Manually set or clear a row's EEFF concept",
		Long: `Manually link a budget category to an EEFF concept. Pass an empty
--concept to clear the link. A manual edit always requires re-confirmation.`,
		RunE: runMappingsSet,
	}
	keyFlags(cmd)
	cmd.Flags().String("concept", "", "target EEFF concept name (empty clears the mapping)")
	return cmd
}

func runMappingsSet(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	campaignID, key, err := mappingKeyFromFlags(cmd)
	if err != nil {
		return err
	}
	concept, _ := cmd.Flags().GetString("concept")

	store, err := openStorage(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	if err := newEngine(store).SetMapping(ctx, campaignID, key, concept); err != nil {
		return err
	}

	if concept == "" {
		fmt.Println(cli.FormatSuccess(fmt.Sprintf("Cleared mapping for %s/%s", key.Category, key.Process)))
	} else {
		fmt.Println(cli.FormatSuccess(fmt.Sprintf("Mapped %s/%s to %q (needs confirmation)", key.Category, key.Process, concept)))
	}
	return nil
}

func mappingsConfirmCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "confirm",
		Short: "Confirm a single mapping row",
		RunE:  runMappingsConfirm,
	}
	keyFlags(cmd)
	return cmd
}

func runMappingsConfirm(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	campaignID, key, err := mappingKeyFromFlags(cmd)
	if err != nil {
		return err
	}

	store, err := openStorage(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	if err := newEngine(store).ConfirmMapping(ctx, campaignID, key); err != nil {
		return err
	}

	fmt.Println(cli.FormatSuccess(fmt.Sprintf("Confirmed %s/%s", key.Category, key.Process)))
	return nil
}

func mappingsConfirmAllCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "confirm-all",
		Short: "Confirm every mapped exact/suggested row at once",
		Long: `Confirm every exact or suggested row that links to a concept and is not
yet confirmed. The batch is atomic per campaign: a concurrent recalculate
sees either none or all of the rows confirmed.`,
		RunE: runMappingsConfirmAll,
	}
	cmd.Flags().StringP("campaign", "c", "", "campaign ID (required)")
	_ = cmd.MarkFlagRequired("campaign")
	return cmd
}

func runMappingsConfirmAll(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	campaignID, _ := cmd.Flags().GetString("campaign")

	store, err := openStorage(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	confirmed, err := newEngine(store).ConfirmAllSuggested(ctx, campaignID)
	if err != nil {
		return err
	}

	fmt.Println(cli.FormatSuccess(fmt.Sprintf("Confirmed %d mappings for campaign %s", confirmed, campaignID)))
	return nil
}

func mappingsIgnoreCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ignore",
		Short: "Exclude a row from mapping",
		RunE:  runMappingsIgnore,
	}
	keyFlags(cmd)
	return cmd
}

func runMappingsIgnore(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	campaignID, key, err := mappingKeyFromFlags(cmd)
	if err != nil {
		return err
	}

	store, err := openStorage(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	if err := newEngine(store).IgnoreMapping(ctx, campaignID, key); err != nil {
		return err
	}

	fmt.Println(cli.FormatSuccess(fmt.Sprintf("Ignored %s/%s", key.Category, key.Process)))
	return nil
}

func mappingsRestoreCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "restore",
		Short: "Return an ignored row to the unmapped state",
		RunE:  runMappingsRestore,
	}
	keyFlags(cmd)
	return cmd
}

func runMappingsRestore(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	campaignID, key, err := mappingKeyFromFlags(cmd)
	if err != nil {
		return err
	}

	store, err := openStorage(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	if err := newEngine(store).RestoreMapping(ctx, campaignID, key); err != nil {
		return err
	}

	fmt.Println(cli.FormatSuccess(fmt.Sprintf("Restored %s/%s", key.Category, key.Process)))
	return nil
}
