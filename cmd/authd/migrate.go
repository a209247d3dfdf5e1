package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/goliatone/go-token-auth/repository"
)

func newMigrateCmd(c *cli) *cobra.Command {
	var down bool

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		Example: `  # apply pending migrations
  authd migrate

  # revert the last migration group
  authd migrate --down`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			client, err := c.openDB(ctx)
			if err != nil {
				return err
			}
			db := client.DB()
			defer db.Close()

			if down {
				names, err := repository.Rollback(ctx, db)
				if err != nil {
					return err
				}
				if len(names) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "no migrations to run")
					return nil
				}
				for _, name := range names {
					fmt.Fprintf(cmd.OutOrStdout(), "rolled back %s\n", name)
				}
				return nil
			}

			report, err := repository.Migrate(ctx, client)
			if err != nil {
				return err
			}
			if report != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "report: %s\n", report)
			}

			applied, err := repository.Applied(ctx, db)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d migrations applied\n", len(applied))
			return nil
		},
	}

	cmd.Flags().BoolVar(&down, "down", false, "Rollback the last migration group")

	return cmd
}
