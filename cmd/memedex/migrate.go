package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/joestump/memedex/internal/db"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, database, err := openDB()
			if err != nil {
				return err
			}
			defer func() { _ = database.Close() }()

			version, err := db.Status(database, cfg.DB.Driver)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "migrations complete, schema version %d\n", version)
			return nil
		},
	}
}
