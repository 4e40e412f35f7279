package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Red-Mage-Creative/thought-chronicle-sub000/internal/migrate"
)

func logCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "log",
		Short: "Show the migration log",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close(ctx)

			entries, err := migrate.ReadLog(ctx, a.store)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(entries) == 0 {
				fmt.Fprintln(out, "No migrations recorded.")
				return nil
			}
			for _, e := range entries {
				status := "ok"
				if !e.Success {
					status = "FAILED"
				}
				fmt.Fprintf(out, "%s  %-8s %-28s %s\n", e.Timestamp.Format("2006-01-02 15:04:05"), e.Version, e.Migration, status)
				if e.Error != "" {
					fmt.Fprintf(out, "    %s\n", e.Error)
				}
			}
			return nil
		},
	}
}
