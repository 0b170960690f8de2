package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/agrovista/cosecha/internal/cli"
)

func alertsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "alerts",
		Short: "List and acknowledge campaign alerts",
	}

	cmd.AddCommand(alertsListCmd())
	cmd.AddCommand(alertsAckCmd())

	return cmd
}

func alertsListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List alerts for a campaign",
		RunE:  runAlertsList,
	}
	cmd.Flags().StringP("campaign", "c", "", "campaign ID (required)")
	cmd.Flags().Bool("all", false, "include acknowledged alerts")
	_ = cmd.MarkFlagRequired("campaign")
	return cmd
}

func runAlertsList(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	campaignID, _ := cmd.Flags().GetString("campaign")
	showAll, _ := cmd.Flags().GetBool("all")

	store, err := openStorage(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	alerts, err := newEngine(store).Alerts(ctx, campaignID)
	if err != nil {
		return err
	}

	shown := 0
	for i := range alerts {
		a := &alerts[i]
		if a.Acknowledged() && !showAll {
			continue
		}
		shown++

		tag := cli.SeverityStyle(a.Severity).Render("[" + string(a.Severity) + "]")
		ack := ""
		if a.Acknowledged() {
			ack = cli.SubtleStyle.Render(" (acknowledged " + a.AcknowledgedAt.Format("2006-01-02") + ")")
		}
		fmt.Printf("%s %s  %s%s\n", tag, a.ID, a.Message, ack)
	}

	if shown == 0 {
		fmt.Println(cli.FormatSuccess("No open alerts"))
	}
	return nil
}

func alertsAckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ack <alert-id>",
		Short: "Acknowledge an alert",
		Args:  cobra.ExactArgs(1),
		RunE:  runAlertsAck,
	}
}

func runAlertsAck(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	store, err := openStorage(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	if err := newEngine(store).AcknowledgeAlert(ctx, args[0]); err != nil {
		return err
	}

	fmt.Println(cli.FormatSuccess("Acknowledged " + args[0]))
	return nil
}
