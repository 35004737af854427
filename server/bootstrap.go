package server

import (
	"context"
	"io"

	"github.com/jrsteele09/go-crud-session/internal/config"
	"github.com/jrsteele09/go-crud-session/internal/errors"
	"github.com/jrsteele09/go-crud-session/internal/metrics"
	"github.com/jrsteele09/go-crud-session/oauthclient"
	"github.com/jrsteele09/go-crud-session/sessions"
	"github.com/jrsteele09/go-crud-session/storage"
	"github.com/jrsteele09/go-crud-session/token"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog/log"
)

// Components are the wired session dependencies shared by the server and the CLI.
type Components struct {
	Store      *token.Store
	Client     *oauthclient.Client
	Controller *sessions.Controller
	Registry   *prometheus.Registry

	closers []io.Closer
}

// Bootstrap builds the token store, provider client and session controller from cfg.
// It does not restore the session; callers decide when to call Restore.
func Bootstrap(ctx context.Context, cfg config.Config, options ...sessions.Option) (*Components, error) {
	c := &Components{Registry: prometheus.NewRegistry()}
	c.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	durable, err := c.durableKV(ctx, cfg)
	if err != nil {
		_ = c.Close()
		return nil, err
	}

	c.Store, err = token.New(durable, storage.NewMemoryKV(),
		token.WithGraceWindow(cfg.GetTokenGraceWindow()),
		token.WithLogger(log.Logger),
	)
	if err != nil {
		_ = c.Close()
		return nil, err
	}

	c.Client, err = oauthclient.New(oauthclient.Config{
		ServerURL:     cfg.GetServerURL(),
		ClientID:      cfg.GetClientID(),
		ClientSecret:  cfg.GetClientSecret(),
		RedirectURI:   cfg.GetRedirectURI(),
		Scopes:        cfg.GetScopes(),
		LogoutTimeout: cfg.GetLogoutTimeout(),
	})
	if err != nil {
		_ = c.Close()
		return nil, err
	}

	controllerOptions := []sessions.Option{
		sessions.WithLogger(log.Logger),
		sessions.WithMetrics(metrics.New(c.Registry)),
	}
	if cfg.GetStrictCallback() {
		controllerOptions = append(controllerOptions, sessions.WithStrictCallback())
	}
	controllerOptions = append(controllerOptions, options...)

	c.Controller, err = sessions.NewController(c.Client, c.Store, controllerOptions...)
	if err != nil {
		_ = c.Close()
		return nil, err
	}
	return c, nil
}

func (c *Components) durableKV(ctx context.Context, cfg config.Config) (storage.KV, error) {
	var durable storage.KV
	switch cfg.GetTokenStore() {
	case config.TokenStoreFile:
		durable = storage.NewFileKV(cfg.GetTokenStorePath(), storage.WithFileLogger(log.Logger))
		log.Info().Str("path", cfg.GetTokenStorePath()).Msg("Using file token store")

	case config.TokenStoreRedis:
		redisKV, err := storage.DialRedisKV(ctx, cfg.GetRedisURL(), storage.WithRedisPrefix(cfg.GetRedisPrefix()))
		if err != nil {
			return nil, errors.Wrapf(err, "[Bootstrap] redis token store")
		}
		c.closers = append(c.closers, redisKV)
		durable = redisKV
		log.Info().Str("prefix", cfg.GetRedisPrefix()).Msg("Using redis token store")

	default:
		return nil, errors.Wrapf(errors.ErrInvalidConfig, "[Bootstrap] unknown token store %q", cfg.GetTokenStore())
	}

	if key := cfg.GetTokenStoreKey(); key != "" {
		sealed, err := storage.NewSealedKV(durable, []byte(key))
		if err != nil {
			return nil, errors.Wrapf(err, "[Bootstrap] sealed token store")
		}
		return sealed, nil
	}
	log.Warn().Msg("TOKEN_STORE_KEY not set, tokens are stored unsealed")
	return durable, nil
}

// Close waits for background identity fetches and releases storage connections.
func (c *Components) Close() error {
	if c.Controller != nil {
		c.Controller.Wait()
	}
	var errs []error
	for _, closer := range c.closers {
		if err := closer.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	c.closers = nil
	return errors.Join(errs...)
}
