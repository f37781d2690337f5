// Package main is the complaint desk administration CLI.
package main

import (
	"fmt"
	"os"

	"complaintdesk/backend/cmd/admin/commands"
	"complaintdesk/backend/internal/config"
	"complaintdesk/backend/internal/logging"
	"complaintdesk/backend/internal/storage"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if cfg == nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	logger := logging.New(cfg.Development())
	defer logger.Sync()

	env := &commands.Env{
		Config: cfg,
		Logger: logger,
		Out:    os.Stdout,
		// no migrations for the admin tool
		Open: func() (storage.Storage, error) {
			db, err := storage.OpenPostgres(cfg.DatabaseURL, cfg.DebugSQL)
			if err != nil {
				logger.Error("connect database", zap.Error(err))
				return nil, err
			}
			return storage.NewStorageService(db), nil
		},
	}

	rootCmd := &cobra.Command{
		Use:   "admin",
		Short: "Complaint desk administration tool",
		Long: `Complaint desk administration tool

Classifies institutional accounts, provisions users, inspects complaints
and runs the escalation rules on demand.`,
		SilenceUsage: true,
		Run: func(cmd *cobra.Command, _ []string) {
			if err := cmd.Help(); err != nil {
				fmt.Printf("Error showing help: %v\n", err)
			}
		},
	}
	commands.Register(rootCmd, env)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
