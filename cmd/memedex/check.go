package main

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/joestump/memedex/internal/catalog"
	"github.com/joestump/memedex/internal/store"
)

// errDrift signals a failed audit through the exit status.
var errDrift = errors.New("catalog drift detected")

func newCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Audit stored tag counts and items against a freshly loaded index",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, database, err := openDB()
			if err != nil {
				return err
			}
			defer func() { _ = database.Close() }()

			ctx := cmd.Context()
			cat, err := catalog.Open(ctx, store.NewCatalogStore(database))
			if err != nil {
				return fmt.Errorf("load catalog: %w", err)
			}
			rep, err := cat.Audit(ctx)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if err := enc.Encode(rep); err != nil {
				return err
			}
			if !rep.Clean() {
				return errDrift
			}
			return nil
		},
	}
}
