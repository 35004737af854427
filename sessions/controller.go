// Package sessions holds the session controller: the state machine that restores a session
// at startup, drives the login round trip, refreshes tokens and logs out.
package sessions

import (
	"context"
	"crypto/subtle"
	"sync"
	"time"

	"github.com/jrsteele09/go-crud-session/internal/errors"
	"github.com/jrsteele09/go-crud-session/internal/metrics"
	"github.com/jrsteele09/go-crud-session/oauthclient"
	"github.com/jrsteele09/go-crud-session/oauthmodel"
	"github.com/jrsteele09/go-crud-session/token"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"
)

const (
	// DefaultEntryPoint is where Logout sends the user agent.
	DefaultEntryPoint = "/"

	identityFetchTimeout = 30 * time.Second
	refreshTimeout       = 30 * time.Second
	refreshKey           = "refresh"
)

// Provider is the subset of the OAuth protocol client the controller drives.
// *oauthclient.Client satisfies it.
type Provider interface {
	BuildAuthorizationURL(scopes ...string) (oauthmodel.AuthorizationRequest, error)
	ExchangeCode(ctx context.Context, code, codeVerifier string) (*oauthmodel.TokenResponse, error)
	Refresh(ctx context.Context, refreshToken string) (*oauthmodel.TokenResponse, error)
	Revoke(ctx context.Context, token string) error
	FetchIdentity(ctx context.Context, accessToken string) (*oauthmodel.Identity, error)
	ProviderLogout() oauthmodel.SideChannelRequest
}

// Option configures a Controller.
type Option func(*Controller)

// WithLogger sets the controller's logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Controller) {
		c.logger = logger
	}
}

// WithMetrics records lifecycle counters.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Controller) {
		c.metrics = m
	}
}

// WithScopes overrides the provider client's configured scopes for every login.
func WithScopes(scopes ...string) Option {
	return func(c *Controller) {
		c.scopes = scopes
	}
}

// WithEntryPoint sets where Logout navigates to.
func WithEntryPoint(path string) Option {
	return func(c *Controller) {
		c.entryPoint = path
	}
}

// WithNavigator sets the navigator used when a caller passes nil.
func WithNavigator(nav Navigator) Option {
	return func(c *Controller) {
		c.navigator = nav
	}
}

// WithStrictCallback makes a callback that arrives with no login attempt in progress, while
// not authenticated, fail with ErrStaleCallback instead of being ignored.
func WithStrictCallback() Option {
	return func(c *Controller) {
		c.strictCallback = true
	}
}

// Controller owns the in-memory session and is the only writer of the token store.
type Controller struct {
	provider       Provider
	store          *token.Store
	logger         zerolog.Logger
	metrics        *metrics.Metrics
	navigator      Navigator
	scopes         []string
	entryPoint     string
	strictCallback bool

	mu          sync.Mutex
	state       State
	accessToken string
	identity    IdentityState
	gen         uint64 // bumped on every new session and on logout

	callbackMu sync.Mutex
	refreshes  singleflight.Group
	background sync.WaitGroup
}

// NewController returns a Controller in the Uninitialized state. Call Restore before use.
func NewController(provider Provider, store *token.Store, options ...Option) (*Controller, error) {
	if provider == nil {
		return nil, errors.Wrapf(errors.ErrInvalidConfig, "[NewController] provider is required")
	}
	if store == nil {
		return nil, errors.Wrapf(errors.ErrInvalidConfig, "[NewController] token store is required")
	}
	c := &Controller{
		provider:   provider,
		store:      store,
		logger:     log.Logger,
		navigator:  NoopNavigator,
		entryPoint: DefaultEntryPoint,
		state:      Uninitialized,
	}
	for _, opt := range options {
		opt(c)
	}
	return c, nil
}

// Restore decides the startup state from durable storage. A valid stored token authenticates
// immediately with the cached identity while the live identity is fetched in the background.
// An expired token with a refresh token gets exactly one refresh. Anything else ends Anonymous
// with storage purged.
func (c *Controller) Restore(ctx context.Context) State {
	c.setState(Restoring)

	tokens := c.store.Tokens(ctx)
	switch {
	case tokens.AccessToken != "" && !c.store.IsExpired(ctx):
		c.authenticate(ctx, tokens.AccessToken, c.store.Identity(ctx))
		c.logger.Info().Msg("Session restored from storage")

	case tokens.RefreshToken != "":
		c.logger.Info().Msg("Stored access token expired, refreshing")
		if err := c.refresh(ctx, NoopNavigator); err != nil {
			c.logger.Warn().Err(err).Msg("Session could not be restored")
		}

	default:
		c.store.ClearAll(ctx)
		c.reset()
	}
	return c.State()
}

// Login starts a fresh login attempt and navigates to the provider. A nil nav uses the
// controller's navigator.
func (c *Controller) Login(ctx context.Context, nav Navigator) error {
	if err := c.store.CheckDurable(ctx); err != nil {
		c.metrics.IncrementStorageUnavailable()
		return errors.Join(ErrStorageUnavailable, err)
	}

	req, err := c.provider.BuildAuthorizationURL(c.scopes...)
	if err != nil {
		return errors.Wrapf(err, "[Login] could not build authorization url")
	}
	c.store.StashAttempt(ctx, req.CodeVerifier, req.State)
	c.metrics.IncrementLoginStarted()

	c.logger.Info().Msg("Redirecting to identity provider")
	return c.nav(nav).Navigate(ctx, req.URL)
}

// HandleCallback completes a login attempt. It is safe to call more than once for the
// same redirect: a call that finds the session already authenticated, or the attempt
// already taken, does nothing.
func (c *Controller) HandleCallback(ctx context.Context, code, state string) error {
	c.callbackMu.Lock()
	defer c.callbackMu.Unlock()

	authenticated := c.Snapshot().Authenticated()
	if authenticated && !c.store.IsExpired(ctx) {
		c.metrics.IncrementCallback(metrics.OutcomeNoop)
		c.logger.Debug().Msg("Callback ignored, session already authenticated")
		return nil
	}

	attempt, found := c.store.TakeAttempt(ctx)
	if !found {
		c.metrics.IncrementCallback(metrics.OutcomeNoop)
		if c.strictCallback && !authenticated {
			return ErrStaleCallback
		}
		c.logger.Debug().Msg("Callback ignored, no login attempt in progress")
		return nil
	}

	if state != "" && subtle.ConstantTimeCompare([]byte(state), []byte(attempt.State)) != 1 {
		c.metrics.IncrementCallback(metrics.OutcomeCSRF)
		c.logger.Warn().Msg("Callback state does not match the login attempt")
		return ErrCSRFMismatch
	}
	if attempt.CodeVerifier == "" {
		c.metrics.IncrementCallback(metrics.OutcomeFailure)
		return ErrMissingVerifier
	}

	resp, err := c.provider.ExchangeCode(ctx, code, attempt.CodeVerifier)
	if err != nil {
		c.metrics.IncrementCallback(metrics.OutcomeFailure)
		c.logger.Err(err).Msg("Authorization code exchange failed")
		return err
	}

	// Durable first: nobody may observe Authenticated without a stored token.
	c.store.SaveTokens(ctx, resp)
	if c.store.AccessToken(ctx) != resp.AccessToken {
		c.metrics.IncrementCallback(metrics.OutcomeFailure)
		return ErrStorageUnavailable
	}

	c.authenticate(ctx, resp.AccessToken, c.identityFromIDToken(resp.GetIDToken()))
	c.metrics.IncrementCallback(metrics.OutcomeSuccess)
	c.logger.Info().Msg("Login completed")
	return nil
}

// RefreshToken exchanges the stored refresh token for a new token set. Concurrent callers
// share one provider call, which is detached from any one caller's cancellation and bounded
// by refreshTimeout. On failure the session is logged out and the error returned.
func (c *Controller) RefreshToken(ctx context.Context) error {
	_, err, _ := c.refreshes.Do(refreshKey, func() (interface{}, error) {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), refreshTimeout)
		defer cancel()
		return nil, c.refresh(ctx, nil)
	})
	return err
}

// Logout revokes the stored access token when there is one, purges durable storage,
// resets the session and navigates to the entry point. Revocation failures are logged only.
func (c *Controller) Logout(ctx context.Context, nav Navigator) error {
	return c.logout(ctx, nav, metrics.LogoutLocal)
}

// LogoutFromProviderSession first ends the provider's own browser session, then logs out.
// The provider logout URL is loaded through nav's side channel, bounded by the provider's
// logout timeout. A navigator without a side channel, or a failed or stalled load, is
// logged and the local logout still happens.
func (c *Controller) LogoutFromProviderSession(ctx context.Context, nav Navigator) error {
	nav = c.nav(nav)
	if side, ok := nav.(SideChannel); ok {
		if err := loadSideChannel(ctx, side, c.provider.ProviderLogout()); err != nil {
			c.logger.Warn().Err(err).Msg("Provider session logout failed")
		}
	} else {
		c.logger.Warn().Msg("Navigator has no side channel, provider session left signed in")
	}
	return c.logout(ctx, nav, metrics.LogoutProvider)
}

// Snapshot returns a copy of the session.
func (c *Controller) Snapshot() Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Session{
		State:       c.state,
		AccessToken: c.accessToken,
		Identity:    c.identity.clone(),
	}
}

// State returns the current lifecycle state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Store returns the token store for read access.
func (c *Controller) Store() *token.Store {
	return c.store
}

// Wait blocks until background identity fetches have finished.
func (c *Controller) Wait() {
	c.background.Wait()
}

func (c *Controller) refresh(ctx context.Context, nav Navigator) error {
	refreshToken := c.store.RefreshToken(ctx)
	if refreshToken == "" {
		c.metrics.IncrementRefresh(metrics.OutcomeFailure)
		return ErrNoRefreshToken
	}

	c.mu.Lock()
	gen := c.gen
	prev := c.state
	if prev == Authenticated {
		c.state = RefreshPending
	}
	c.mu.Unlock()

	resp, err := c.provider.Refresh(ctx, refreshToken)
	if err != nil {
		c.metrics.IncrementRefresh(metrics.OutcomeFailure)
		c.logger.Err(err).Msg("Token refresh failed, logging out")
		_ = c.logout(ctx, nav, metrics.LogoutForced)
		return err
	}

	c.mu.Lock()
	if c.gen != gen {
		// Logged out while the refresh was in flight.
		c.mu.Unlock()
		return errors.Wrapf(ErrNoRefreshToken, "session ended during refresh")
	}
	c.store.SaveTokens(ctx, resp)
	if c.store.AccessToken(ctx) != resp.AccessToken {
		c.mu.Unlock()
		c.metrics.IncrementRefresh(metrics.OutcomeFailure)
		_ = c.logout(ctx, nav, metrics.LogoutForced)
		return ErrStorageUnavailable
	}
	if prev == Authenticated || prev == RefreshPending {
		c.state = Authenticated
		c.accessToken = resp.AccessToken
		c.mu.Unlock()
	} else {
		c.mu.Unlock()
		c.authenticate(ctx, resp.AccessToken, c.store.Identity(ctx))
	}

	c.metrics.IncrementRefresh(metrics.OutcomeSuccess)
	c.logger.Info().Msg("Access token refreshed")
	return nil
}

func (c *Controller) logout(ctx context.Context, nav Navigator, kind string) error {
	c.mu.Lock()
	c.gen++
	c.mu.Unlock()

	if accessToken := c.store.AccessToken(ctx); accessToken != "" {
		if err := c.provider.Revoke(ctx, accessToken); err != nil {
			c.logger.Warn().Err(err).Msg("Token revocation failed")
		}
	}
	c.store.ClearAll(ctx)
	c.reset()

	c.metrics.IncrementLogout(kind)
	c.logger.Info().Str("kind", kind).Msg("Logged out")
	return c.nav(nav).Navigate(ctx, c.entryPoint)
}

// authenticate starts a new session for accessToken. The caller must already have
// persisted the token.
func (c *Controller) authenticate(ctx context.Context, accessToken string, cached *oauthmodel.Identity) {
	c.mu.Lock()
	c.gen++
	gen := c.gen
	c.state = Authenticated
	c.accessToken = accessToken
	c.identity = IdentityState{Cached: cached.Clone()}
	c.mu.Unlock()

	c.background.Add(1)
	go c.fetchIdentity(context.WithoutCancel(ctx), gen, accessToken)
}

func (c *Controller) fetchIdentity(ctx context.Context, gen uint64, accessToken string) {
	defer c.background.Done()

	ctx, cancel := context.WithTimeout(ctx, identityFetchTimeout)
	defer cancel()

	identity, err := c.provider.FetchIdentity(ctx, accessToken)
	if err != nil {
		c.metrics.IncrementIdentityFetchFailure()
		c.logger.Warn().Err(err).Msg("Identity fetch failed, keeping cached identity")
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gen != gen {
		return
	}
	c.identity.Fresh = identity.Clone()
	c.store.SaveIdentity(ctx, identity)
}

func (c *Controller) identityFromIDToken(raw string) *oauthmodel.Identity {
	if raw == "" {
		return nil
	}
	claims, err := oauthclient.DecodeIDToken(raw)
	if err != nil {
		c.logger.Warn().Err(err).Msg("ID token payload unreadable")
		return nil
	}
	return claims.Identity()
}

// loadSideChannel waits at most req.Timeout for the load, even if side ignores ctx.
func loadSideChannel(ctx context.Context, side SideChannel, req oauthmodel.SideChannelRequest) error {
	timeout := req.Timeout
	if timeout <= 0 {
		timeout = oauthclient.DefaultLogoutTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- side.Load(ctx, req.URL)
	}()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return errors.Wrapf(ctx.Err(), "provider logout %s", req.URL)
	}
}

func (c *Controller) setState(s State) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = s
}

func (c *Controller) reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = Anonymous
	c.accessToken = ""
	c.identity = IdentityState{}
}

func (c *Controller) nav(nav Navigator) Navigator {
	if nav != nil {
		return nav
	}
	return c.navigator
}
