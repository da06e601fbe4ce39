package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"todoflow/auth"
)

func tokenCmd() *cobra.Command {
	var ttl time.Duration

	cmd := &cobra.Command{
		Use:   "token [owner]",
		Short: "Issue a bearer token for an owner (development)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := setup()
			if err != nil {
				return err
			}
			if ttl <= 0 {
				ttl = cfg.Auth.TokenTTL
			}

			tokens := auth.NewTokenService(cfg.Auth.JWTSecret, cfg.Auth.Issuer, ttl)
			token, expires, err := tokens.Issue(args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, token)
			fmt.Fprintf(out, "# expires %s\n", expires.Format(time.RFC3339))
			return nil
		},
	}

	cmd.Flags().DurationVar(&ttl, "ttl", 0, "token lifetime (default auth.token_ttl)")
	return cmd
}
