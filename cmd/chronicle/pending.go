package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/Red-Mage-Creative/thought-chronicle-sub000/internal/model"
	"github.com/Red-Mage-Creative/thought-chronicle-sub000/internal/service"
)

func pendingCmd() *cobra.Command {
	var verbose bool
	cmd := &cobra.Command{
		Use:   "pending",
		Short: "Compact and show the pending-change log",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close(ctx)

			total, pending, err := service.New(a.store, a.identity, a.logger).PendingCount(ctx)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%d pending change(s).\n", total)
			printChangeSet(out, "Campaigns", pending.Campaigns, verbose)
			printChangeSet(out, "Entities", pending.Entities, verbose)
			printChangeSet(out, "Thoughts", pending.Thoughts, verbose)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "List ids")
	return cmd
}

func printChangeSet(out io.Writer, label string, c model.ChangeSet, verbose bool) {
	if c.Count() == 0 {
		return
	}
	fmt.Fprintf(out, "  %s: %d added, %d modified, %d deleted\n", label, len(c.Added), len(c.Modified), len(c.Deleted))
	if !verbose {
		return
	}
	for _, id := range c.Added {
		fmt.Fprintf(out, "    + %s\n", id)
	}
	for _, id := range c.Modified {
		fmt.Fprintf(out, "    ~ %s\n", id)
	}
	for _, id := range c.Deleted {
		fmt.Fprintf(out, "    - %s\n", id)
	}
}
