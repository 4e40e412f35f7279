package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var configPath string

func main() {
	root := &cobra.Command{
		Use:          "chronicle",
		Short:        "Data integrity and migration engine for thought-chronicle stores",
		SilenceUsage: true,
	}
	root.Version = version
	root.SetVersionTemplate("{{.Version}}\n")
	root.PersistentFlags().StringVar(&configPath, "config", "chronicle.yaml", "Path to the config file")

	root.AddCommand(initCmd())
	root.AddCommand(migrateCmd())
	root.AddCommand(validateCmd())
	root.AddCommand(backupCmd())
	root.AddCommand(deleteEntityCmd())
	root.AddCommand(pendingCmd())
	root.AddCommand(importCmd())
	root.AddCommand(serveCmd())
	root.AddCommand(logCmd())
	root.AddCommand(versionCmd())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := root.ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}
