package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/goliatone/go-print"
	"github.com/spf13/cobra"

	"github.com/goliatone/go-token-auth/internal/server"
)

func newServeCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			c.logger.Debugf("configuration: %s", print.MaybePrettyJSON(c.cfg.Redacted()))

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			srv, err := server.New(ctx, c.cfg, c.logger)
			if err != nil {
				return err
			}

			errCh := make(chan error, 1)
			go func() {
				errCh <- srv.Listen()
			}()

			select {
			case err := <-errCh:
				_ = srv.Shutdown(context.Background())
				return err
			case <-ctx.Done():
			}

			c.logger.Info("shutting down server...")

			shutdownCtx, cancel := context.WithTimeout(context.Background(), c.cfg.Server.GetShutdownTimeout())
			defer cancel()

			if err := srv.Shutdown(shutdownCtx); err != nil {
				return err
			}

			c.logger.Info("server exited")
			return nil
		},
	}

	cmd.Flags().String("addr", ":8080", "Address to listen on")
	_ = c.v.BindPFlag("server.addr", cmd.Flags().Lookup("addr"))

	return cmd
}
