package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/joestump/memedex/internal/auth"
	"github.com/joestump/memedex/internal/store"
)

func newTokenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Manage API tokens",
	}
	cmd.AddCommand(newTokenCreateCmd())
	return cmd
}

func newTokenCreateCmd() *cobra.Command {
	var (
		name    string
		expires time.Duration
	)
	cmd := &cobra.Command{
		Use:   "create <username>",
		Short: "Issue an API token for a user and print it once",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, database, err := openDB()
			if err != nil {
				return err
			}
			defer func() { _ = database.Close() }()

			ctx := cmd.Context()
			u, err := store.NewUserStore(database).GetByUsername(ctx, args[0])
			if err != nil {
				return fmt.Errorf("look up user %q: %w", args[0], err)
			}
			t := auth.NewToken{UserID: u.ID, Name: name}
			if expires > 0 {
				exp := time.Now().Add(expires)
				t.ExpiresAt = &exp
			}
			plaintext, rec, err := auth.Issue(ctx, auth.NewSQLTokenStore(database), t)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, plaintext)
			if rec.ExpiresAt.Valid {
				fmt.Fprintf(out, "token %s for %s expires %s\n", rec.ID, u.Username, rec.ExpiresAt.Time.Format(time.RFC3339))
			} else {
				fmt.Fprintf(out, "token %s for %s does not expire\n", rec.ID, u.Username)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "cli", "token name")
	cmd.Flags().DurationVar(&expires, "expires", 0, "lifetime, e.g. 720h; 0 never expires")
	return cmd
}
