package main

import (
	"context"
	"fmt"
	"time"

	"github.com/goliatone/go-errors"
	"github.com/spf13/cobra"

	auth "github.com/goliatone/go-token-auth"
	"github.com/goliatone/go-token-auth/config"
	"github.com/goliatone/go-token-auth/internal/server"
	"github.com/goliatone/go-token-auth/repository"
)

func newRevocationsCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "revocations",
		Short: "Inspect and maintain revocation records",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "purge",
			Short: "Delete records whose token already expired",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				store, closeStore, err := c.openRevocations(cmd.Context())
				if err != nil {
					return err
				}
				defer closeStore()

				purger, ok := store.(auth.RevocationPurger)
				if !ok {
					fmt.Fprintf(cmd.OutOrStdout(), "%s backend expires records on its own\n", c.cfg.Revocation.Backend)
					return nil
				}

				n, err := purger.PurgeExpired(cmd.Context(), time.Now())
				if err != nil {
					return err
				}

				fmt.Fprintf(cmd.OutOrStdout(), "purged %d expired records\n", n)
				return nil
			},
		},
		&cobra.Command{
			Use:   "check <jti>",
			Short: "Report whether a token identifier is revoked",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				store, closeStore, err := c.openRevocations(cmd.Context())
				if err != nil {
					return err
				}
				defer closeStore()

				revoked, err := store.IsRevoked(cmd.Context(), args[0])
				if err != nil {
					return err
				}

				fmt.Fprintf(cmd.OutOrStdout(), "%s revoked=%t\n", args[0], revoked)
				return nil
			},
		},
	)

	return cmd
}

// openRevocations opens the configured persistent revocation backend.
func (c *cli) openRevocations(ctx context.Context) (auth.RevocationStore, func(), error) {
	switch c.cfg.Revocation.Backend {
	case config.RevocationBackendRedis:
		client := server.NewRedisClient(c.cfg.Redis)
		store := repository.NewRedisRevocations(client, c.cfg.Revocation.RedisPrefix)
		if err := store.Ping(ctx); err != nil {
			_ = client.Close()
			return nil, nil, err
		}
		return store, func() { _ = client.Close() }, nil
	case config.RevocationBackendMemory:
		return nil, nil, errors.New("the memory revocation backend keeps no records outside the server process", errors.CategoryBadInput)
	default:
		client, err := c.openDB(ctx)
		if err != nil {
			return nil, nil, err
		}
		db := client.DB()
		return repository.NewRevocations(db), func() { _ = db.Close() }, nil
	}
}
