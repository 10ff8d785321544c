package cmd

import (
	"github.com/spf13/cobra"

	"github.com/KaveeshaHeshan/CareSync-Health-Platform-sub003/internal/config"
	"github.com/KaveeshaHeshan/CareSync-Health-Platform-sub003/internal/database"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending database migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		if err := cfg.Validate(); err != nil {
			return err
		}
		return database.MigrateUp(cfg.DatabaseURL())
	},
}
