package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Red-Mage-Creative/thought-chronicle-sub000/internal/ingest"
)

func importCmd() *cobra.Command {
	var full, dryRun, skipRepair bool
	var exclude []string
	cmd := &cobra.Command{
		Use:   "import [dir...]",
		Short: "Import markdown notes as thoughts",
		Long:  "Import markdown notes as thoughts. Directories default to import.paths from the config. Related entity names are resolved by a validation pass after the import.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(cmd, args, exclude, full, dryRun, skipRepair)
		},
	}
	cmd.Flags().BoolVar(&full, "full", false, "Re-import notes whose content has not changed")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Report what would be imported without saving")
	cmd.Flags().BoolVar(&skipRepair, "no-repair", false, "Skip the validation pass after importing")
	cmd.Flags().StringSliceVar(&exclude, "exclude", nil, "Directories or files to skip")
	return cmd
}

func runImport(cmd *cobra.Command, roots, exclude []string, full, dryRun, skipRepair bool) error {
	ctx := cmd.Context()
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close(ctx)

	if len(roots) == 0 {
		roots = a.cfg.Import.Paths
	}
	if len(roots) == 0 {
		return fmt.Errorf("no note directories given and import.paths is empty")
	}
	exclude = append(exclude, a.cfg.Import.Exclude...)

	result, err := ingest.New(a.store, a.identity, a.logger).Run(ctx, ingest.Options{
		Roots:   roots,
		Exclude: exclude,
		Full:    full,
		DryRun:  dryRun,
	})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if dryRun {
		fmt.Fprintln(out, "Dry run, nothing saved.")
	} else {
		fmt.Fprintln(out, "Import complete.")
	}
	fmt.Fprintf(out, "  Thoughts created: %d\n", result.Created)
	fmt.Fprintf(out, "  Thoughts updated: %d\n", result.Updated)
	fmt.Fprintf(out, "  Files skipped:    %d\n", result.FilesSkipped)

	if !dryRun && !skipRepair && result.Created+result.Updated > 0 {
		runner, err := newRunner(a, "")
		if err != nil {
			return err
		}
		migration, err := runner.Run(ctx)
		if err != nil {
			return fmt.Errorf("resolving imported references: %w", err)
		}
		if migration.Repair != nil && len(migration.Repair.Created) > 0 {
			fmt.Fprintf(out, "  Entities created:  %d\n", len(migration.Repair.Created))
		}
	}

	if len(result.Errors) > 0 {
		fmt.Fprintf(out, "\nErrors (%d):\n", len(result.Errors))
		for _, item := range result.Errors {
			fmt.Fprintf(out, "  - %v\n", item)
		}
		return fmt.Errorf("import completed with errors")
	}
	return nil
}
