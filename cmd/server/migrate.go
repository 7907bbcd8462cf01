package main

import (
	"github.com/spf13/cobra"

	"github.com/rl1809/eco-bazaar/internal/adapter/storage"
)

func newMigrateCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the MySQL schema",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := loadConfig(*configPath)
			if err != nil {
				return err
			}

			db, err := openMySQL(cmd.Context(), cfg.MySQL)
			if err != nil {
				return err
			}
			defer db.Close()

			if err := storage.Migrate(cmd.Context(), db); err != nil {
				return err
			}
			log.Info("schema applied")
			return nil
		},
	}
}
