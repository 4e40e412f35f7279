package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/Red-Mage-Creative/thought-chronicle-sub000/internal/validate"
)

func validateCmd() *cobra.Command {
	var campaignID string
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Audit the store without changing it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(cmd, campaignID)
		},
	}
	cmd.Flags().StringVar(&campaignID, "campaign", "", "Campaign to audit first (defaults to the configured one)")
	return cmd
}

func runValidate(cmd *cobra.Command, campaignID string) error {
	ctx := cmd.Context()
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close(ctx)

	if campaignID == "" {
		campaignID = a.identity.CampaignID
	}
	report, err := validate.Run(ctx, validate.New(a.schema), a.store, campaignID)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	errorIssues := report.Errors()
	warnIssues := report.Warnings()

	if len(errorIssues) == 0 && len(warnIssues) == 0 {
		fmt.Fprintln(out, "No issues found.")
		return nil
	}

	if len(errorIssues) > 0 {
		fmt.Fprintf(out, "Errors (%d):\n", len(errorIssues))
		printIssues(out, errorIssues)
	}
	if len(warnIssues) > 0 {
		if len(errorIssues) > 0 {
			fmt.Fprintln(out, "")
		}
		fmt.Fprintf(out, "Warnings (%d):\n", len(warnIssues))
		printIssues(out, warnIssues)
	}

	if len(errorIssues) > 0 {
		return fmt.Errorf("validation found errors")
	}
	return nil
}

func printIssues(out io.Writer, issues []validate.Issue) {
	for _, issue := range issues {
		location := fmt.Sprintf("%s %s", issue.Kind, issue.Record)
		if issue.Field != "" {
			location = fmt.Sprintf("%s.%s", location, issue.Field)
		}
		fmt.Fprintf(out, "  - %s: %s (%s)\n", location, issue.Message, issue.Code)
	}
}
