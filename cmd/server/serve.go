package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/jrsteele09/go-crud-session/internal/config"
	"github.com/jrsteele09/go-crud-session/server"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var errPanicRecovered = errors.New("panic recovered")

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Restore the session and serve the web app",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			for {
				err := run(cmd.Context())
				if !errors.Is(err, errPanicRecovered) {
					if err == nil {
						log.Info().Msg("Server stopped")
					}
					return err
				}
				log.Error().Msg("Restarting server after panic")
				time.Sleep(1 * time.Second)
			}
		},
	}
}

func run(ctx context.Context) (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Bytes("stack", debug.Stack()).Msg("Recovered from panic")
			returnError = errPanicRecovered
		}
	}()

	c := config.New()
	displayAppname(c.GetAppName())

	components, err := server.Bootstrap(ctx, c)
	if err != nil {
		return err
	}
	defer func() {
		if err := components.Close(); err != nil {
			log.Err(err).Msg("Failed to release session resources")
		}
	}()

	state := components.Controller.Restore(ctx)
	log.Info().Str("state", state.String()).Msg("Session restored")

	handler, err := server.New(c, components.Controller, server.WithGatherer(components.Registry))
	if err != nil {
		return err
	}

	httpServer := &http.Server{Addr: c.GetListenAddr(), Handler: handler, ReadHeaderTimeout: 10 * time.Second}
	serveErr := make(chan error, 1)
	go func() {
		serveErr <- listenAndServe(httpServer)
	}()

	select {
	case err := <-serveErr:
		return err
	case <-waitForStopSignal():
	}
	return shutdown(httpServer)
}

func listenAndServe(server *http.Server) error {
	log.Info().Msgf("Server listening on %s", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server.ListenAndServe %w", err)
	}
	return nil
}

func waitForStopSignal() <-chan os.Signal {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	return stop
}

func shutdown(server *http.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server.Shutdown: %w", err)
	}
	return nil
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
