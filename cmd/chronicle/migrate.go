package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/Red-Mage-Creative/thought-chronicle-sub000/internal/ledger"
	"github.com/Red-Mage-Creative/thought-chronicle-sub000/internal/migrate"
	"github.com/Red-Mage-Creative/thought-chronicle-sub000/internal/validate"
)

func migrateCmd() *cobra.Command {
	var target string
	var quiet bool
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run pending migrations, then validate and repair the store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrate(cmd, target, quiet)
		},
	}
	cmd.Flags().StringVar(&target, "target", "", "Stop at this version instead of the newest one")
	cmd.Flags().BoolVar(&quiet, "quiet", false, "Do not print progress")
	return cmd
}

// newRunner builds a runner from config. target overrides the configured
// target version when set.
func newRunner(a *app, target string, opts ...migrate.Option) (*migrate.Runner, error) {
	if target == "" {
		target = a.cfg.Engine.TargetVersion
	}
	base := []migrate.Option{
		migrate.WithIdentity(a.identity),
		migrate.WithValidator(validate.New(a.schema)),
	}
	if target != "" {
		v, err := ledger.Parse(target)
		if err != nil {
			return nil, fmt.Errorf("target version: %w", err)
		}
		base = append(base, migrate.WithTarget(v))
	}
	return migrate.NewRunner(a.store, migrate.Default(), a.logger, append(base, opts...)...), nil
}

func runMigrate(cmd *cobra.Command, target string, quiet bool) error {
	ctx := cmd.Context()
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close(ctx)

	out := cmd.OutOrStdout()
	var opts []migrate.Option
	if !quiet {
		opts = append(opts, migrate.WithProgress(printProgress(out)))
	}
	runner, err := newRunner(a, target, opts...)
	if err != nil {
		return err
	}

	result, err := runner.Run(ctx)
	if err != nil {
		return err
	}
	printMigrationResult(out, result)
	return nil
}

func printProgress(out io.Writer) migrate.ProgressFunc {
	return func(p migrate.Progress) {
		if p.Total > 0 {
			fmt.Fprintf(out, "[%s %d/%d] %s\n", p.Phase, p.Step, p.Total, p.Message)
			return
		}
		fmt.Fprintf(out, "[%s] %s\n", p.Phase, p.Message)
	}
}

func printMigrationResult(out io.Writer, result *migrate.Result) {
	switch {
	case result.FreshInstall && len(result.Executed) == 0:
		fmt.Fprintf(out, "Fresh install recorded at version %s.\n", result.ToVersion)
	case len(result.Executed) == 0:
		fmt.Fprintf(out, "Store is at version %s, nothing to migrate.\n", result.ToVersion)
	default:
		fmt.Fprintf(out, "Migrated %s -> %s.\n", displayVersion(result.FromVersion), result.ToVersion)
		for _, name := range result.Executed {
			fmt.Fprintf(out, "  - %s\n", name)
		}
	}

	fmt.Fprintf(out, "  Campaigns checked: %d\n", result.Summary.CampaignsChecked)
	fmt.Fprintf(out, "  Entities checked:  %d\n", result.Summary.EntitiesChecked)
	fmt.Fprintf(out, "  Thoughts checked:  %d\n", result.Summary.ThoughtsChecked)
	fmt.Fprintf(out, "  Issues fixed:      %d\n", result.Summary.IssuesFixed)
	if result.Invalid > 0 {
		fmt.Fprintf(out, "  Invalid records:   %d (kept, run validate for details)\n", result.Invalid)
	}
	if result.Repair != nil && len(result.Repair.Created) > 0 {
		fmt.Fprintf(out, "  Entities created for dangling references: %d\n", len(result.Repair.Created))
		for _, name := range result.Repair.Created {
			fmt.Fprintf(out, "    - %s\n", name)
		}
	}
}

func displayVersion(v string) string {
	if v == "" {
		return "(none)"
	}
	return v
}
