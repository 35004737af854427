package token

import (
	"context"
	"encoding/json"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jrsteele09/go-crud-session/internal/errors"
	"github.com/jrsteele09/go-crud-session/oauthmodel"
	"github.com/jrsteele09/go-crud-session/storage"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Durable keys. They survive a restart and are shared by every process using the same backend.
const (
	KeyAccessToken  = "access_token"
	KeyRefreshToken = "refresh_token"
	KeyIDToken      = "id_token"
	KeyExpiresAt    = "expires_at"
	KeyIdentity     = "identity"

	keyHealthCheck = "healthcheck"
)

// Ephemeral keys. They live only as long as the process.
const (
	KeyCodeVerifier = "code_verifier"
	KeyState        = "state"
)

var durableKeys = []string{KeyAccessToken, KeyRefreshToken, KeyIDToken, KeyExpiresAt, KeyIdentity}

// DefaultGraceWindow is how long before the declared expiry a token is already treated as expired,
// so refresh starts before the resource server rejects it.
const DefaultGraceWindow = 60 * time.Second

// Set is the persisted token set.
type Set struct {
	AccessToken  string
	RefreshToken string
	IDToken      string
	ExpiresAt    time.Time
}

// Attempt is the in-flight PKCE material stashed between login and callback.
type Attempt struct {
	CodeVerifier string
	State        string
}

// Option configures a Store.
type Option func(*Store)

// WithNowFunc overrides the clock.
func WithNowFunc(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// WithGraceWindow overrides DefaultGraceWindow.
func WithGraceWindow(d time.Duration) Option {
	return func(s *Store) {
		s.grace = d
	}
}

// WithLogger sets the logger used for the storage warning.
func WithLogger(logger zerolog.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

// Store is the token store. The session controller is its only writer; anything that needs
// the current access token may read from it.
//
// Backend failures never reach callers: reads return empty values, writes are dropped, and
// the first failure is logged once. Use CheckDurable when a caller must know.
type Store struct {
	durable   storage.KV
	ephemeral storage.KV
	now       func() time.Time
	grace     time.Duration
	logger    zerolog.Logger

	attemptMu sync.Mutex
	warnOnce  sync.Once
	degraded  atomic.Bool
}

// New returns a Store. durable and ephemeral must be distinct backends.
func New(durable, ephemeral storage.KV, options ...Option) (*Store, error) {
	if durable == nil || ephemeral == nil {
		return nil, errors.Wrapf(errors.ErrInvalidConfig, "[token New] durable and ephemeral stores are required")
	}
	if durable == ephemeral {
		return nil, errors.Wrapf(errors.ErrInvalidConfig, "[token New] durable and ephemeral stores must not share a keyspace")
	}
	s := &Store{
		durable:   durable,
		ephemeral: ephemeral,
		now:       time.Now,
		grace:     DefaultGraceWindow,
		logger:    log.Logger,
	}
	for _, opt := range options {
		opt(s)
	}
	return s, nil
}

// SaveTokens persists a token response. The expiry is fixed here as an absolute time,
// now + expires_in, and never recomputed later.
func (s *Store) SaveTokens(ctx context.Context, resp *oauthmodel.TokenResponse) Set {
	set := Set{
		AccessToken:  resp.AccessToken,
		RefreshToken: resp.GetRefreshToken(),
		IDToken:      resp.GetIDToken(),
		ExpiresAt:    s.now().Add(time.Duration(resp.ExpiresIn) * time.Second),
	}
	s.write(ctx, s.durable, KeyAccessToken, set.AccessToken)
	s.writeOrDelete(ctx, KeyRefreshToken, set.RefreshToken)
	s.writeOrDelete(ctx, KeyIDToken, set.IDToken)
	s.write(ctx, s.durable, KeyExpiresAt, strconv.FormatInt(set.ExpiresAt.UnixMilli(), 10))
	return set
}

// Tokens returns the stored token set; empty fields are absent values.
func (s *Store) Tokens(ctx context.Context) Set {
	return Set{
		AccessToken:  s.AccessToken(ctx),
		RefreshToken: s.RefreshToken(ctx),
		IDToken:      s.IDToken(ctx),
		ExpiresAt:    s.ExpiresAt(ctx),
	}
}

func (s *Store) AccessToken(ctx context.Context) string {
	return s.read(ctx, s.durable, KeyAccessToken)
}

func (s *Store) RefreshToken(ctx context.Context) string {
	return s.read(ctx, s.durable, KeyRefreshToken)
}

func (s *Store) IDToken(ctx context.Context) string {
	return s.read(ctx, s.durable, KeyIDToken)
}

// ExpiresAt returns the stored absolute expiry, or the zero time when none is stored.
func (s *Store) ExpiresAt(ctx context.Context) time.Time {
	raw := s.read(ctx, s.durable, KeyExpiresAt)
	if raw == "" {
		return time.Time{}
	}
	ms, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		s.logger.Warn().Err(err).Msg("Stored token expiry is not a timestamp")
		return time.Time{}
	}
	return time.UnixMilli(ms)
}

// IsExpired reports now >= expiresAt - grace window. A missing expiry counts as expired.
func (s *Store) IsExpired(ctx context.Context) bool {
	expiresAt := s.ExpiresAt(ctx)
	if expiresAt.IsZero() {
		return true
	}
	return !s.now().Before(expiresAt.Add(-s.grace))
}

// SaveIdentity caches the identity so the next start can show it before the network answers.
func (s *Store) SaveIdentity(ctx context.Context, identity *oauthmodel.Identity) {
	if identity == nil {
		s.remove(ctx, s.durable, KeyIdentity)
		return
	}
	data, err := json.Marshal(identity)
	if err != nil {
		s.logger.Warn().Err(err).Msg("Failed to encode identity")
		return
	}
	s.write(ctx, s.durable, KeyIdentity, string(data))
}

// Identity returns the cached identity or nil.
func (s *Store) Identity(ctx context.Context) *oauthmodel.Identity {
	raw := s.read(ctx, s.durable, KeyIdentity)
	if raw == "" {
		return nil
	}
	var identity oauthmodel.Identity
	if err := json.Unmarshal([]byte(raw), &identity); err != nil {
		s.logger.Warn().Err(err).Msg("Cached identity unreadable")
		return nil
	}
	return &identity
}

// ClearAll removes every durable key. Safe to call repeatedly.
func (s *Store) ClearAll(ctx context.Context) {
	for _, key := range durableKeys {
		s.remove(ctx, s.durable, key)
	}
}

// StashAttempt records the PKCE material of a new login attempt, replacing any previous one.
func (s *Store) StashAttempt(ctx context.Context, codeVerifier, state string) {
	s.attemptMu.Lock()
	defer s.attemptMu.Unlock()
	s.write(ctx, s.ephemeral, KeyCodeVerifier, codeVerifier)
	s.write(ctx, s.ephemeral, KeyState, state)
}

// TakeAttempt returns and deletes the stashed attempt in one step. found is false when
// neither part of an attempt was present, e.g. because an earlier call already took it.
func (s *Store) TakeAttempt(ctx context.Context) (attempt Attempt, found bool) {
	s.attemptMu.Lock()
	defer s.attemptMu.Unlock()

	attempt = Attempt{
		CodeVerifier: s.read(ctx, s.ephemeral, KeyCodeVerifier),
		State:        s.read(ctx, s.ephemeral, KeyState),
	}
	s.remove(ctx, s.ephemeral, KeyCodeVerifier)
	s.remove(ctx, s.ephemeral, KeyState)
	return attempt, attempt.CodeVerifier != "" || attempt.State != ""
}

// CheckDurable writes and removes a health-check key, returning an error wrapping
// errors.ErrUnavailable when the durable backend cannot be used.
func (s *Store) CheckDurable(ctx context.Context) error {
	if err := s.durable.Set(ctx, keyHealthCheck, "1"); err != nil {
		s.report(err)
		return errors.Wrapf(errors.Join(errors.ErrUnavailable, err), "durable token store")
	}
	if err := s.durable.Delete(ctx, keyHealthCheck); err != nil {
		s.report(err)
		return errors.Wrapf(errors.Join(errors.ErrUnavailable, err), "durable token store")
	}
	return nil
}

// Degraded reports whether any backend operation has failed since the store was created.
func (s *Store) Degraded() bool {
	return s.degraded.Load()
}

func (s *Store) read(ctx context.Context, kv storage.KV, key string) string {
	v, err := kv.Get(ctx, key)
	if err != nil {
		if !storage.IsNotFound(err) {
			s.report(err)
		}
		return ""
	}
	return v
}

func (s *Store) write(ctx context.Context, kv storage.KV, key, value string) {
	if err := kv.Set(ctx, key, value); err != nil {
		s.report(err)
	}
}

func (s *Store) writeOrDelete(ctx context.Context, key, value string) {
	if value == "" {
		s.remove(ctx, s.durable, key)
		return
	}
	s.write(ctx, s.durable, key, value)
}

func (s *Store) remove(ctx context.Context, kv storage.KV, key string) {
	if err := kv.Delete(ctx, key); err != nil {
		s.report(err)
	}
}

// report logs the first storage failure only; later ones are expected consequences.
func (s *Store) report(err error) {
	s.degraded.Store(true)
	s.warnOnce.Do(func() {
		s.logger.Warn().Err(err).Str("warning", "StorageUnavailableWarning").
			Msg("Token storage unavailable, session will behave as signed out")
	})
}
