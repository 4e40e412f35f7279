package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func initCmd() *cobra.Command {
	var dsn, campaignID, userID string
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a config file and initialise the store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(userID) == "" {
				return fmt.Errorf("--user is required")
			}
			if err := writeConfig(configPath, dsn, campaignID, userID); err != nil {
				return err
			}
			return runInit(cmd)
		},
	}
	cmd.Flags().StringVar(&dsn, "dsn", "sqlite://~/.thought-chronicle/chronicle.db", "Store DSN (sqlite://, postgres:// or memory://)")
	cmd.Flags().StringVar(&campaignID, "campaign", "", "Active campaign id")
	cmd.Flags().StringVar(&userID, "user", "local", "Active user id")
	return cmd
}

func writeConfig(path, dsn, campaignID, userID string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%s already exists", path)
	}
	contents := fmt.Sprintf(`store:
  dsn: %q

identity:
  campaign_id: %q
  user_id: %q

engine:
  target_version: ""
  cascade_mode: block

logging:
  level: info
  format: console

metrics:
  textfile: ""

import:
  paths: []
  exclude: []
`, dsn, campaignID, userID)
	if err := os.WriteFile(path, []byte(contents), 0o600); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

func runInit(cmd *cobra.Command) error {
	ctx := cmd.Context()
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close(ctx)

	runner, err := newRunner(a, "")
	if err != nil {
		return err
	}
	result, err := runner.Run(ctx)
	if err != nil {
		return err
	}
	a.logger.Info("store initialised", zap.String("version", result.ToVersion))

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Wrote %s.\n", configPath)
	if result.FreshInstall {
		fmt.Fprintf(out, "Store initialised at version %s.\n", result.ToVersion)
	} else {
		fmt.Fprintf(out, "Existing store found at version %s.\n", result.ToVersion)
	}
	return nil
}
