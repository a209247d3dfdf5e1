package main

import (
	"fmt"
	"time"

	"github.com/goliatone/go-print"
	"github.com/spf13/cobra"

	auth "github.com/goliatone/go-token-auth"
)

type tokenOutput struct {
	AccessToken string    `json:"accessToken,omitempty"`
	TokenID     string    `json:"tokenId"`
	Subject     string    `json:"subject"`
	IssuedAt    time.Time `json:"issuedAt"`
	ExpiresAt   time.Time `json:"expiresAt"`
	Revoked     *bool     `json:"revoked,omitempty"`
}

func newTokenCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue, inspect and revoke bearer tokens",
	}

	cmd.AddCommand(newTokenIssueCmd(c), newTokenInspectCmd(c), newTokenRevokeCmd(c))

	return cmd
}

func newTokenIssueCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "issue <subject>",
		Short: "Sign a token for subject with the configured key",
		Long: `Signs a token without checking the user directory. Meant for operators
debugging a deployment, the subject still has to exist for requests to
authenticate.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tokens, err := auth.NewTokenServiceFromConfig(c.cfg.Auth)
			if err != nil {
				return err
			}

			issued, err := tokens.Mint(auth.NormalizeIdentity(args[0]))
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), print.MaybePrettyJSON(tokenOutput{
				AccessToken: issued.Token,
				TokenID:     issued.TokenID,
				Subject:     issued.Subject,
				IssuedAt:    issued.IssuedAt,
				ExpiresAt:   issued.ExpiresAt,
			}))
			return nil
		},
	}
}

func newTokenInspectCmd(c *cli) *cobra.Command {
	var checkRevocation bool

	cmd := &cobra.Command{
		Use:   "inspect <token>",
		Short: "Verify a token and print its claims",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tokens, err := auth.NewTokenServiceFromConfig(c.cfg.Auth)
			if err != nil {
				return err
			}

			claims, err := tokens.Parse(args[0])
			if err != nil {
				return fmt.Errorf("%s: %w", auth.ErrorTextCode(err), err)
			}

			out := tokenOutput{
				TokenID:   claims.TokenID(),
				Subject:   claims.Subject(),
				IssuedAt:  claims.IssuedAt(),
				ExpiresAt: claims.Expires(),
			}

			if checkRevocation {
				store, closeStore, err := c.openRevocations(cmd.Context())
				if err != nil {
					return err
				}
				defer closeStore()

				revoked, err := store.IsRevoked(cmd.Context(), claims.TokenID())
				if err != nil {
					return err
				}
				out.Revoked = &revoked
			}

			fmt.Fprintln(cmd.OutOrStdout(), print.MaybePrettyJSON(out))
			return nil
		},
	}

	cmd.Flags().BoolVar(&checkRevocation, "check-revocation", false, "Also consult the revocation store")

	return cmd
}

func newTokenRevokeCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "revoke <token>",
		Short: "Revoke a token as if its holder logged out",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tokens, err := auth.NewTokenServiceFromConfig(c.cfg.Auth)
			if err != nil {
				return err
			}

			store, closeStore, err := c.openRevocations(cmd.Context())
			if err != nil {
				return err
			}
			defer closeStore()

			auther := auth.NewAuthenticator(nil, tokens, store, nil).
				WithLogger(auth.NewLogrusLogger(c.logger, "cli"))

			if err := auther.RevokeToken(cmd.Context(), args[0]); err != nil {
				return err
			}

			claims, err := tokens.Parse(args[0])
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "revoked %s until %s\n", claims.TokenID(), claims.Expires().UTC().Format(time.RFC3339))
			return nil
		},
	}
}
