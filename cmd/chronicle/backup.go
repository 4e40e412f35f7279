package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Red-Mage-Creative/thought-chronicle-sub000/internal/backup"
)

func backupCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Manage the single pre-migration backup slot",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "snapshot",
		Short: "Copy the current store into the backup slot",
		Args:  cobra.NoArgs,
		RunE:  runBackupSnapshot,
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "restore",
		Short: "Replace the store with the backup slot",
		Args:  cobra.NoArgs,
		RunE:  runBackupRestore,
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Describe the backup slot",
		Args:  cobra.NoArgs,
		RunE:  runBackupStatus,
	})
	return cmd
}

func runBackupSnapshot(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close(ctx)

	snap, err := backup.New(a.store, a.logger).Snapshot(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Snapshot taken at %s (version %s).\n",
		snap.CreatedAt.Format("2006-01-02 15:04:05"), displayVersion(snap.Version))
	return nil
}

func runBackupRestore(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close(ctx)

	snap, err := backup.New(a.store, a.logger).Restore(ctx)
	if err != nil {
		if errors.Is(err, backup.ErrNoBackup) {
			return fmt.Errorf("nothing to restore: %w", err)
		}
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Restored snapshot from %s (version %s).\n",
		snap.CreatedAt.Format("2006-01-02 15:04:05"), displayVersion(snap.Version))
	return nil
}

func runBackupStatus(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close(ctx)

	out := cmd.OutOrStdout()
	snap, err := backup.New(a.store, a.logger).Load(ctx)
	if errors.Is(err, backup.ErrNoBackup) {
		fmt.Fprintln(out, "No backup available.")
		return nil
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Backup from %s\n", snap.CreatedAt.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(out, "  Version:   %s\n", displayVersion(snap.Version))
	fmt.Fprintf(out, "  Campaigns: %d\n", len(snap.Data.Campaigns))
	fmt.Fprintf(out, "  Entities:  %d\n", len(snap.Data.Entities))
	fmt.Fprintf(out, "  Thoughts:  %d\n", len(snap.Data.Thoughts))
	return nil
}
