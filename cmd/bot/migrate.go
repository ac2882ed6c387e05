package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply the store schema",
	RunE:  runMigrate,
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.ValidateStore(); err != nil {
		return err
	}
	l := newLogger(cfg)
	defer l.Sync()

	store, err := openStore(cmd.Context(), cfg, l)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.Migrate(cmd.Context()); err != nil {
		return err
	}
	l.Infow("Schema applied", "driver", cfg.DB.Driver)
	return nil
}
