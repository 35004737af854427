package providerfake

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/jrsteele09/go-crud-session/internal/utils"
	"github.com/jrsteele09/go-crud-session/oauthclient"
	"github.com/jrsteele09/go-crud-session/oauthmodel"
	"github.com/jrsteele09/go-crud-session/pkce"
)

// FakeProvider is an in-process stand-in for oauthclient.Client.
type FakeProvider struct {
	mu sync.Mutex

	// Responses
	TokenResponse   *oauthmodel.TokenResponse
	RefreshResponse *oauthmodel.TokenResponse
	Identity        *oauthmodel.Identity

	// Failures
	ExchangeErr error
	RefreshErr  error
	RevokeErr   error
	IdentityErr error

	// IdentityGate, when set, blocks FetchIdentity until it is closed.
	IdentityGate chan struct{}

	// RefreshGate, when set, blocks Refresh until it is closed or ctx ends.
	RefreshGate chan struct{}

	// LogoutURL and LogoutTimeout are returned by ProviderLogout.
	LogoutURL     string
	LogoutTimeout time.Duration

	// Recorded calls
	Authorizations []oauthmodel.AuthorizationRequest
	Scopes         [][]string
	ExchangedCodes []string
	Verifiers      []string
	Refreshed      []string
	Revoked        []string
	IdentityCalls  []string
}

// NewFakeProvider returns a provider that answers every call successfully.
func NewFakeProvider() *FakeProvider {
	return &FakeProvider{
		TokenResponse: &oauthmodel.TokenResponse{
			AccessToken:  "access-1",
			TokenType:    "Bearer",
			ExpiresIn:    3600,
			RefreshToken: utils.Ptr("refresh-1"),
		},
		RefreshResponse: &oauthmodel.TokenResponse{
			AccessToken:  "access-2",
			TokenType:    "Bearer",
			ExpiresIn:    3600,
			RefreshToken: utils.Ptr("refresh-2"),
		},
		Identity: &oauthmodel.Identity{
			Subject:     "user-1",
			DisplayName: "Jane Doe",
			Email:       "jane@example.com",
			Roles:       []string{"System Manager"},
		},
		LogoutURL:     "http://provider/api/method/logout",
		LogoutTimeout: 5 * time.Second,
	}
}

func (f *FakeProvider) BuildAuthorizationURL(scopes ...string) (oauthmodel.AuthorizationRequest, error) {
	attempt, err := pkce.Generate()
	if err != nil {
		return oauthmodel.AuthorizationRequest{}, err
	}
	q := url.Values{}
	q.Set("state", attempt.State)
	q.Set("code_challenge", attempt.CodeChallenge)
	req := oauthmodel.AuthorizationRequest{
		URL:          "http://provider/authorize?" + q.Encode(),
		CodeVerifier: attempt.CodeVerifier,
		State:        attempt.State,
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.Authorizations = append(f.Authorizations, req)
	f.Scopes = append(f.Scopes, scopes)
	return req, nil
}

func (f *FakeProvider) ExchangeCode(_ context.Context, code, codeVerifier string) (*oauthmodel.TokenResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ExchangedCodes = append(f.ExchangedCodes, code)
	f.Verifiers = append(f.Verifiers, codeVerifier)
	if f.ExchangeErr != nil {
		return nil, f.ExchangeErr
	}
	resp := *f.TokenResponse
	return &resp, nil
}

func (f *FakeProvider) Refresh(ctx context.Context, refreshToken string) (*oauthmodel.TokenResponse, error) {
	f.mu.Lock()
	f.Refreshed = append(f.Refreshed, refreshToken)
	gate := f.RefreshGate
	f.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, &oauthclient.TokenRefreshError{Err: err}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.RefreshErr != nil {
		return nil, f.RefreshErr
	}
	resp := *f.RefreshResponse
	return &resp, nil
}

func (f *FakeProvider) Revoke(_ context.Context, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Revoked = append(f.Revoked, token)
	return f.RevokeErr
}

func (f *FakeProvider) FetchIdentity(ctx context.Context, accessToken string) (*oauthmodel.Identity, error) {
	f.mu.Lock()
	f.IdentityCalls = append(f.IdentityCalls, accessToken)
	gate := f.IdentityGate
	f.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, &oauthclient.IdentityFetchError{Err: ctx.Err()}
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.IdentityErr != nil {
		return nil, f.IdentityErr
	}
	if f.Identity == nil {
		return nil, &oauthclient.IdentityFetchError{Err: fmt.Errorf("no identity configured")}
	}
	return f.Identity.Clone(), nil
}

func (f *FakeProvider) ProviderLogout() oauthmodel.SideChannelRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return oauthmodel.SideChannelRequest{URL: f.LogoutURL, Timeout: f.LogoutTimeout}
}

// Counts returns how many exchange, refresh, revoke and identity calls were made.
func (f *FakeProvider) Counts() (exchanges, refreshes, revokes, identities int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.ExchangedCodes), len(f.Refreshed), len(f.Revoked), len(f.IdentityCalls)
}

// Set runs fn with the fake locked so tests can change responses between calls.
func (f *FakeProvider) Set(fn func(f *FakeProvider)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fn(f)
}

// LastAuthorization returns the most recent authorization request.
func (f *FakeProvider) LastAuthorization() oauthmodel.AuthorizationRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.Authorizations) == 0 {
		return oauthmodel.AuthorizationRequest{}
	}
	return f.Authorizations[len(f.Authorizations)-1]
}
