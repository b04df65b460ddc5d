package main

import (
	"errors"
	"time"

	"github.com/spf13/cobra"

	"eventroster/internal/adapters/auth"
)

var tokenExpiry time.Duration

func newTokenCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "token [staff email]",
		Short: "Mint a bearer token for the staff API",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if cfg.JWTSecret == "" {
				return errors.New("JWT_SECRET is not set")
			}
			token, err := auth.NewJWT(cfg.JWTSecret).Issue(args[0], args[0], []string{"staff"}, tokenExpiry)
			if err != nil {
				return err
			}
			cmd.Println(token)
			return nil
		},
	}
}

func init() {
	cmd := newTokenCmd()
	cmd.Flags().DurationVar(
		&tokenExpiry,
		"expiry",
		12*time.Hour,
		"How long the token stays valid",
	)
	rootCmd.AddCommand(cmd)
}
