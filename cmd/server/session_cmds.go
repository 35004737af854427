package main

import (
	"context"
	"fmt"
	"time"

	"github.com/jrsteele09/go-crud-session/internal/config"
	"github.com/jrsteele09/go-crud-session/server"
	"github.com/jrsteele09/go-crud-session/sessions"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the stored session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			components, err := server.Bootstrap(ctx, config.New())
			if err != nil {
				return err
			}
			defer components.Close()

			state := components.Controller.Restore(ctx)
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "State:   %s\n", state)
			if !components.Controller.Snapshot().Authenticated() {
				return errNotAuthenticated
			}
			components.Controller.Wait()

			session := components.Controller.Snapshot()
			if identity := session.Identity.Current(); identity != nil {
				fmt.Fprintf(out, "User:    %s <%s>\n", identity.DisplayName, identity.Email)
				fmt.Fprintf(out, "Roles:   %v\n", identity.Roles)
			}
			expiresAt := components.Store.ExpiresAt(ctx)
			fmt.Fprintf(out, "Expires: %s (in %s)\n", expiresAt.Format(time.RFC3339), time.Until(expiresAt).Round(time.Second))
			return nil
		},
	}
}

func newLoginCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "login",
		Short: "Open the running web app's login page in a browser",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			loginURL := config.New().GetBaseURL() + server.RouteLogin
			log.Info().Str("url", loginURL).Msg("Opening browser")
			return sessions.BrowserNavigator{}.Navigate(cmd.Context(), loginURL)
		},
	}
}

func newLogoutCmd() *cobra.Command {
	var provider bool
	cmd := &cobra.Command{
		Use:   "logout",
		Short: "Revoke the stored token and clear the session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			components, err := server.Bootstrap(ctx, config.New())
			if err != nil {
				return err
			}
			defer components.Close()

			components.Controller.Restore(ctx)
			if provider {
				err = components.Controller.LogoutFromProviderSession(ctx, browserSideChannel{})
			} else {
				err = components.Controller.Logout(ctx, sessions.NoopNavigator)
			}
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Logged out")
			return nil
		},
	}
	cmd.Flags().BoolVar(&provider, "provider", false, "also end the identity provider's browser session")
	return cmd
}

// browserSideChannel hands the provider logout to the system browser, which holds the
// provider's cookies, and stays on the terminal for the local redirect.
type browserSideChannel struct {
	sessions.BrowserNavigator
}

func (browserSideChannel) Navigate(context.Context, string) error { return nil }
