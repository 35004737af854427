package main

import (
	"errors"
	"os"

	"github.com/jrsteele09/go-crud-session/internal/config"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// Exit codes for CLI commands.
const (
	ExitCodeSuccess      = 0
	ExitCodeError        = 1
	ExitCodeAuthRequired = 2
)

// errNotAuthenticated is returned by status when no session could be restored.
var errNotAuthenticated = errors.New("not authenticated")

var rootCmd = &cobra.Command{
	Use:   "crud-session",
	Short: "Browser OAuth2 session client for a CRUD backend",
	Long: `crud-session logs a user in to an OAuth2 provider with the authorization code
flow and PKCE, keeps the session's tokens in durable storage, and serves a small
web app that calls the backend's resource API with the access token.`,
	SilenceUsage: true,
	PersistentPreRun: func(*cobra.Command, []string) {
		setupLogging(config.New().GetEnv())
	},
}

func main() {
	rootCmd.AddCommand(newServeCmd(), newStatusCmd(), newLoginCmd(), newLogoutCmd())

	if err := rootCmd.Execute(); err != nil {
		if errors.Is(err, errNotAuthenticated) {
			os.Exit(ExitCodeAuthRequired)
		}
		os.Exit(ExitCodeError)
	}
}

func setupLogging(env string) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if env == "DEV" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
}
