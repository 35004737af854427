// Package oauthclient talks to the identity provider: it composes the authorization URL
// and performs the code exchange, refresh, revocation, userinfo and logout calls.
// It keeps no session state of its own.
package oauthclient

import (
	"context"
	"crypto/rand"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/jrsteele09/go-crud-session/internal/errors"
	"github.com/jrsteele09/go-crud-session/internal/utils"
	"github.com/jrsteele09/go-crud-session/oauthmodel"
	"github.com/jrsteele09/go-crud-session/pkce"
	"golang.org/x/oauth2"
)

const (
	// DefaultHTTPTimeout bounds every provider call that has no tighter bound.
	DefaultHTTPTimeout = 30 * time.Second

	// DefaultLogoutTimeout bounds the provider session logout side channel.
	DefaultLogoutTimeout = 5 * time.Second
)

// Config describes the registered client and where the provider lives.
type Config struct {
	ServerURL    string
	ClientID     string
	ClientSecret string // empty for public clients
	RedirectURI  string
	Scopes       []string
	Endpoints    Endpoints

	HTTPClient    *http.Client
	LogoutTimeout time.Duration
}

// Client performs the provider calls for one registered client.
type Client struct {
	cfg        Config
	oauth      oauth2.Config
	provider   *oidc.Provider
	httpClient *http.Client
	pkce       *pkce.Generator
}

// Option configures a Client.
type Option func(*Client)

// WithPKCEGenerator replaces the proof key source.
func WithPKCEGenerator(g *pkce.Generator) Option {
	return func(c *Client) {
		c.pkce = g
	}
}

// New validates cfg and returns a Client.
func New(cfg Config, options ...Option) (*Client, error) {
	if cfg.ClientID == "" {
		return nil, errors.Wrapf(errors.ErrInvalidConfig, "[oauthclient New] client id is required")
	}
	if u, err := url.Parse(cfg.ServerURL); err != nil || u.Scheme == "" || u.Host == "" {
		return nil, errors.Wrapf(errors.ErrInvalidConfig, "[oauthclient New] server url %q is not absolute", cfg.ServerURL)
	}
	if u, err := url.Parse(cfg.RedirectURI); err != nil || u.Scheme == "" {
		return nil, errors.Wrapf(errors.ErrInvalidConfig, "[oauthclient New] redirect uri %q is not absolute", cfg.RedirectURI)
	}
	if len(cfg.Scopes) == 0 {
		cfg.Scopes = oauthmodel.DefaultScopes()
	}
	if cfg.LogoutTimeout <= 0 {
		cfg.LogoutTimeout = DefaultLogoutTimeout
	}
	cfg.Endpoints = cfg.Endpoints.withDefaults()

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: DefaultHTTPTimeout}
	}

	endpoint := oauth2.Endpoint{
		AuthURL:   joinURL(cfg.ServerURL, cfg.Endpoints.AuthorizePath),
		TokenURL:  joinURL(cfg.ServerURL, cfg.Endpoints.TokenPath),
		AuthStyle: oauth2.AuthStyleInParams,
	}

	providerConfig := &oidc.ProviderConfig{
		IssuerURL:   cfg.ServerURL,
		AuthURL:     endpoint.AuthURL,
		TokenURL:    endpoint.TokenURL,
		UserInfoURL: joinURL(cfg.ServerURL, cfg.Endpoints.UserInfoPath),
	}

	c := &Client{
		cfg: cfg,
		oauth: oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Endpoint:     endpoint,
			RedirectURL:  cfg.RedirectURI,
			Scopes:       cfg.Scopes,
		},
		provider:   providerConfig.NewProvider(oidc.ClientContext(context.Background(), httpClient)),
		httpClient: httpClient,
		pkce:       pkce.NewGenerator(rand.Reader),
	}
	for _, opt := range options {
		opt(c)
	}
	return c, nil
}

// BuildAuthorizationURL composes the authorize URL for a fresh attempt. It performs no
// network call; the returned verifier and state must be stashed by the caller.
func (c *Client) BuildAuthorizationURL(scopes ...string) (oauthmodel.AuthorizationRequest, error) {
	attempt, err := c.pkce.Generate()
	if err != nil {
		return oauthmodel.AuthorizationRequest{}, err
	}

	cfg := c.oauth
	if len(scopes) > 0 {
		cfg.Scopes = scopes
	}
	authURL := cfg.AuthCodeURL(attempt.State,
		oauth2.SetAuthURLParam("code_challenge", attempt.CodeChallenge),
		oauth2.SetAuthURLParam("code_challenge_method", string(attempt.CodeChallengeMethod)),
	)
	return oauthmodel.AuthorizationRequest{
		URL:          authURL,
		CodeVerifier: attempt.CodeVerifier,
		State:        attempt.State,
	}, nil
}

// ExchangeCode trades an authorization code for tokens. It is attempted once and never retried.
func (c *Client) ExchangeCode(ctx context.Context, code, codeVerifier string) (*oauthmodel.TokenResponse, error) {
	tok, err := c.oauth.Exchange(c.httpContext(ctx), code, oauth2.VerifierOption(codeVerifier))
	if err != nil {
		return nil, newTokenExchangeError(err)
	}
	return tokenResponseFrom(tok), nil
}

// Refresh trades a refresh token for a new token set. When the provider does not rotate
// the refresh token, the one presented is carried over.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (*oauthmodel.TokenResponse, error) {
	if refreshToken == "" {
		return nil, newTokenRefreshError(fmt.Errorf("refresh token is empty"))
	}
	tok, err := c.oauth.TokenSource(c.httpContext(ctx), &oauth2.Token{RefreshToken: refreshToken}).Token()
	if err != nil {
		return nil, newTokenRefreshError(err)
	}
	return tokenResponseFrom(tok), nil
}

// Revoke asks the provider to revoke an access token. Confidential clients authenticate
// with HTTP Basic. A non-2xx answer is returned as a *RevocationWarning.
func (c *Client) Revoke(ctx context.Context, token string) error {
	form := url.Values{}
	form.Set("token", token)
	form.Set("token_type_hint", string(oauthmodel.AccessTokenHint))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, joinURL(c.cfg.ServerURL, c.cfg.Endpoints.RevokePath), strings.NewReader(form.Encode()))
	if err != nil {
		return &RevocationWarning{Err: err}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if c.cfg.ClientSecret != "" {
		req.SetBasicAuth(c.cfg.ClientID, c.cfg.ClientSecret)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &RevocationWarning{Err: err}
	}
	defer drain(resp)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &RevocationWarning{StatusCode: resp.StatusCode}
	}
	return nil
}

// FetchIdentity calls the userinfo endpoint with the access token as a Bearer credential.
func (c *Client) FetchIdentity(ctx context.Context, accessToken string) (*oauthmodel.Identity, error) {
	info, err := c.provider.UserInfo(c.httpContext(ctx), oauth2.StaticTokenSource(&oauth2.Token{
		AccessToken: accessToken,
		TokenType:   "Bearer",
	}))
	if err != nil {
		return nil, &IdentityFetchError{Err: err}
	}
	var identity oauthmodel.Identity
	if err := info.Claims(&identity); err != nil {
		return nil, &IdentityFetchError{Err: err}
	}
	if identity.Subject == "" {
		return nil, &IdentityFetchError{Err: fmt.Errorf("userinfo response has no subject")}
	}
	return &identity, nil
}

// ProviderLogout returns the provider's session logout URL for the user agent to load out
// of band. A request from this process would carry no provider cookie and end nothing.
func (c *Client) ProviderLogout() oauthmodel.SideChannelRequest {
	return oauthmodel.SideChannelRequest{
		URL:     joinURL(c.cfg.ServerURL, c.cfg.Endpoints.LogoutPath),
		Timeout: c.cfg.LogoutTimeout,
	}
}

func (c *Client) httpContext(ctx context.Context) context.Context {
	return oidc.ClientContext(ctx, c.httpClient)
}

func tokenResponseFrom(tok *oauth2.Token) *oauthmodel.TokenResponse {
	resp := &oauthmodel.TokenResponse{
		AccessToken: tok.AccessToken,
		TokenType:   tok.TokenType,
		ExpiresIn:   tok.ExpiresIn,
	}
	if resp.ExpiresIn == 0 && !tok.Expiry.IsZero() {
		resp.ExpiresIn = int64(time.Until(tok.Expiry).Round(time.Second) / time.Second)
	}
	resp.RefreshToken = utils.PtrIfSet(tok.RefreshToken)
	if idToken, ok := tok.Extra("id_token").(string); ok {
		resp.IDToken = utils.PtrIfSet(idToken)
	}
	if scope, ok := tok.Extra("scope").(string); ok {
		resp.Scope = scope
	}
	return resp
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
	resp.Body.Close()
}
