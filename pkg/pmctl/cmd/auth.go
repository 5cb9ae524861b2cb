package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/playmetrics-tools/pmctl/pkg/pmctl/auth"
)

func NewAuthCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Manage the stored PlayMetrics session",
	}
	cmd.AddCommand(
		newAuthLoginCommand(),
		newAuthStatusCommand(),
		newAuthLogoutCommand(),
	)
	return cmd
}

func newAuthLoginCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "login",
		Short: "Run the full credential chain and persist the session",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := getRuntime(cmd)
			if err != nil {
				return err
			}
			envCfg, _, manager, err := buildComponents(rt)
			if err != nil {
				return err
			}
			if state, ok := rt.store().Load(); !ok || state.RefreshToken == "" {
				if err := envCfg.ValidateCredentials(); err != nil {
					return err
				}
			}
			session, err := manager.EnsureSession(cmd.Context())
			if err != nil {
				return fmt.Errorf("authentication failed: %w", err)
			}
			if expiry, ok := auth.TokenExpiry(session.IdentityToken); ok {
				_, _ = fmt.Fprintf(rt.Writer(), "Authenticated. Identity token expires at %s\n", expiry.UTC().Format(time.RFC3339))
			} else {
				_, _ = fmt.Fprintln(rt.Writer(), "Authenticated.")
			}
			return nil
		},
	}
}

func newAuthStatusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show stored session status",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := getRuntime(cmd)
			if err != nil {
				return err
			}
			state, ok := rt.store().Load()
			if !ok {
				_, _ = fmt.Fprintln(rt.Writer(), "No stored session")
				return nil
			}
			if !state.CapturedAt.IsZero() {
				_, _ = fmt.Fprintf(rt.Writer(), "Last full sign-in: %s\n", state.CapturedAt.UTC().Format(time.RFC3339))
			}
			if state.RefreshToken == "" {
				_, _ = fmt.Fprintln(rt.Writer(), "No refresh token; next run will do a full sign-in")
			}
			if expiry, ok := auth.TokenExpiry(state.IdentityToken); ok {
				status := "valid"
				if time.Now().After(expiry) {
					status = "expired"
				}
				_, _ = fmt.Fprintf(rt.Writer(), "Identity token: %s (expires %s)\n", status, expiry.UTC().Format(time.RFC3339))
			}
			if state.AccessKey == "" {
				_, _ = fmt.Fprintln(rt.Writer(), "No capability key; next run will exchange")
				return nil
			}
			_, apiClient, _, err := buildComponents(rt)
			if err != nil {
				return err
			}
			if err := apiClient.Probe(cmd.Context(), state.IdentityToken, state.AccessKey); err != nil {
				_, _ = fmt.Fprintf(rt.Writer(), "Capability key: invalid (%v)\n", err)
				return nil
			}
			_, _ = fmt.Fprintln(rt.Writer(), "Capability key: valid")
			return nil
		},
	}
}

func newAuthLogoutCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Delete the stored session",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := getRuntime(cmd)
			if err != nil {
				return err
			}
			if err := rt.store().Delete(); err != nil {
				return err
			}
			_, _ = fmt.Fprintln(rt.Writer(), "Logged out")
			return nil
		},
	}
}
