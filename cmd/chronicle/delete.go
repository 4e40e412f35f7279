package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Red-Mage-Creative/thought-chronicle-sub000/internal/cascade"
	"github.com/Red-Mage-Creative/thought-chronicle-sub000/internal/model"
	"github.com/Red-Mage-Creative/thought-chronicle-sub000/internal/service"
)

func deleteEntityCmd() *cobra.Command {
	var mode string
	cmd := &cobra.Command{
		Use:   "delete-entity <id>",
		Short: "Delete an entity and apply a cascade mode to its references",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDeleteEntity(cmd, args[0], mode)
		},
	}
	cmd.Flags().StringVar(&mode, "mode", "", "orphan, block or remove (defaults to engine.cascade_mode)")
	return cmd
}

func runDeleteEntity(cmd *cobra.Command, id, modeFlag string) error {
	ctx := cmd.Context()
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close(ctx)

	if modeFlag == "" {
		modeFlag = a.cfg.Engine.CascadeMode
	}
	mode, err := cascade.ParseMode(modeFlag)
	if err != nil {
		return err
	}

	result, err := service.New(a.store, a.identity, a.logger).DeleteEntity(ctx, id, mode)
	if errors.Is(err, model.ErrNotFound) {
		return fmt.Errorf("no entity with id %s", id)
	}
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if !result.Success {
		fmt.Fprintf(out, "Not deleted: %s.\n", result.Reason)
		return fmt.Errorf("deletion blocked")
	}
	fmt.Fprintf(out, "Deleted %q (%s).\n", result.EntityName, result.EntityID)
	switch result.Mode {
	case cascade.ModeRemove:
		fmt.Fprintf(out, "  References removed from %d thought(s) and %d entit(ies).\n",
			result.AffectedThoughts, result.AffectedEntities)
	case cascade.ModeOrphan:
		fmt.Fprintf(out, "  %d thought(s) and %d entit(ies) still reference it.\n",
			result.AffectedThoughts, result.AffectedEntities)
	}
	if len(result.Drift) > 0 {
		fmt.Fprintf(out, "  %d record(s) had id and name arrays out of step.\n", len(result.Drift))
	}
	return nil
}
