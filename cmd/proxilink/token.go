package main

import (
	"context"
	"fmt"
	"time"

	"github.com/headStarter-Travel-app/travelAppBackend/config"
	"github.com/spf13/cobra"
)

var showToken bool

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Obtain an Apple Maps access token and print its expiry",
	RunE:  runToken,
}

func init() {
	tokenCmd.Flags().BoolVar(&showToken, "show", false, "Also print the token value")
}

func runToken(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if !cfg.AppleConfigured() {
		return errNoAppleCredentials
	}
	issuer, err := newIssuer(cfg)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), cfg.CallTimeout)
	defer cancel()
	tok, err := issuer.Issue(ctx)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "expires: %s (in %s)\n", tok.ExpiresAt.Format(time.RFC3339), time.Until(tok.ExpiresAt).Round(time.Second))
	if showToken {
		fmt.Fprintln(out, tok.Value)
	}
	return nil
}
