package server_test

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jrsteele09/go-crud-session/internal/config"
	"github.com/jrsteele09/go-crud-session/internal/metrics"
	"github.com/jrsteele09/go-crud-session/oauthclient"
	"github.com/jrsteele09/go-crud-session/oauthclient/providerfake"
	"github.com/jrsteele09/go-crud-session/server"
	"github.com/jrsteele09/go-crud-session/sessions"
	"github.com/jrsteele09/go-crud-session/storage"
	"github.com/jrsteele09/go-crud-session/token"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// resourceServer records the Authorization header of every request it serves.
type resourceServer struct {
	mu      sync.Mutex
	auth    []string
	paths   []string
	status  int
	payload string
}

func (r *resourceServer) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.auth = append(r.auth, req.Header.Get("Authorization"))
	r.paths = append(r.paths, req.URL.Path)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(r.status)
	_, _ = io.WriteString(w, r.payload)
}

func (r *resourceServer) lastAuth() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.auth) == 0 {
		return ""
	}
	return r.auth[len(r.auth)-1]
}

func (r *resourceServer) requestedPaths() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.paths...)
}

type serverFixture struct {
	provider   *providerfake.FakeProvider
	clock      *testClock
	controller *sessions.Controller
	resource   *resourceServer
	registry   *prometheus.Registry
	server     *server.Server
}

func setupServer(t *testing.T, options ...sessions.Option) *serverFixture {
	t.Helper()

	f := &serverFixture{
		provider: providerfake.NewFakeProvider(),
		clock:    &testClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)},
		resource: &resourceServer{status: http.StatusOK, payload: `{"data":[{"name":"TODO-0001"}]}`},
		registry: prometheus.NewRegistry(),
	}
	resource := httptest.NewServer(f.resource)
	t.Cleanup(resource.Close)

	t.Setenv("ENV", "TEST")
	t.Setenv("RESOURCE_URL", resource.URL)

	store, err := token.New(storage.NewMemoryKV(), storage.NewMemoryKV(),
		token.WithNowFunc(f.clock.Now),
		token.WithLogger(zerolog.Nop()),
	)
	require.NoError(t, err)

	options = append([]sessions.Option{
		sessions.WithLogger(zerolog.Nop()),
		sessions.WithMetrics(metrics.New(f.registry)),
	}, options...)
	f.controller, err = sessions.NewController(f.provider, store, options...)
	require.NoError(t, err)
	f.controller.Restore(t.Context())

	f.server, err = server.New(config.New(), f.controller, server.WithGatherer(f.registry))
	require.NoError(t, err)
	t.Cleanup(f.controller.Wait)
	return f
}

func (f *serverFixture) do(t *testing.T, method, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, nil)
	rec := httptest.NewRecorder()
	f.server.ServeHTTP(rec, req)
	return rec
}

// login drives the browser round trip and waits for the identity fetch.
func (f *serverFixture) login(t *testing.T) {
	t.Helper()
	rec := f.do(t, http.MethodGet, "/login")
	require.Equal(t, http.StatusSeeOther, rec.Code)

	state := f.provider.LastAuthorization().State
	rec = f.do(t, http.MethodGet, "/callback?code=code-1&state="+url.QueryEscape(state))
	require.Equal(t, http.StatusSeeOther, rec.Code)
	require.Equal(t, "/", rec.Header().Get("Location"))
	f.controller.Wait()
}

func TestNew_RequiresController(t *testing.T) {
	_, err := server.New(config.New(), nil)
	require.Error(t, err)
}

func TestIndex_Anonymous(t *testing.T) {
	f := setupServer(t)

	rec := f.do(t, http.MethodGet, "/")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "You are not signed in")
	require.Contains(t, rec.Body.String(), `href="/login"`)
	require.Equal(t, "SAMEORIGIN", rec.Header().Get("X-Frame-Options"))
	require.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestLogin_RedirectsToProvider(t *testing.T) {
	f := setupServer(t)

	rec := f.do(t, http.MethodGet, "/login")
	require.Equal(t, http.StatusSeeOther, rec.Code)
	require.Equal(t, "no-store", rec.Header().Get("Cache-Control"))

	attempt := f.provider.LastAuthorization()
	require.Equal(t, attempt.URL, rec.Header().Get("Location"))
	require.True(t, strings.HasPrefix(attempt.URL, "http://provider/authorize?"))
}

func TestLogin_HTMXRedirect(t *testing.T) {
	f := setupServer(t)

	req := httptest.NewRequest(http.MethodGet, "/login", nil)
	req.Header.Set("HX-Request", "true")
	rec := httptest.NewRecorder()
	f.server.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Equal(t, f.provider.LastAuthorization().URL, rec.Header().Get("HX-Redirect"))
}

func TestCallback_CompletesLogin(t *testing.T) {
	f := setupServer(t)
	f.login(t)

	require.Equal(t, sessions.Authenticated, f.controller.State())
	require.Equal(t, []string{"code-1"}, f.provider.ExchangedCodes)

	rec := f.do(t, http.MethodGet, "/")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "Jane Doe")
	require.Contains(t, rec.Body.String(), "System Manager")
	require.Contains(t, rec.Body.String(), `<form method="post" action="/logout"`)
	require.NotContains(t, rec.Body.String(), "Refreshing profile")
}

func TestCallback_FormPost(t *testing.T) {
	f := setupServer(t)
	f.do(t, http.MethodGet, "/login")

	form := url.Values{"code": {"code-1"}, "state": {f.provider.LastAuthorization().State}}
	req := httptest.NewRequest(http.MethodPost, "/callback", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	f.server.ServeHTTP(rec, req)

	require.Equal(t, http.StatusSeeOther, rec.Code)
	require.Equal(t, sessions.Authenticated, f.controller.State())
}

func TestCallback_DuplicateRedirectIsHarmless(t *testing.T) {
	f := setupServer(t)
	f.login(t)

	state := f.provider.Authorizations[0].State
	rec := f.do(t, http.MethodGet, "/callback?code=code-1&state="+url.QueryEscape(state))
	require.Equal(t, http.StatusSeeOther, rec.Code)

	exchanges, _, _, _ := f.provider.Counts()
	require.Equal(t, 1, exchanges)
}

func TestCallback_Failures(t *testing.T) {
	tests := []struct {
		name     string
		setup    func(f *serverFixture) string
		options  []sessions.Option
		noLogin  bool
		status   int
		contains string
	}{
		{
			name: "tampered state",
			setup: func(f *serverFixture) string {
				return "/callback?code=code-1&state=forged"
			},
			status:   http.StatusBadRequest,
			contains: "could not be verified",
		},
		{
			name: "provider error",
			setup: func(f *serverFixture) string {
				return "/callback?error=access_denied&error_description=User+cancelled"
			},
			status:   http.StatusBadRequest,
			contains: "access_denied: User cancelled",
		},
		{
			name: "missing code",
			setup: func(f *serverFixture) string {
				return "/callback?state=abc"
			},
			status:   http.StatusBadRequest,
			contains: "missing its authorization code",
		},
		{
			name: "stale callback in strict mode",
			setup: func(f *serverFixture) string {
				return "/callback?code=code-1&state=abc"
			},
			options:  []sessions.Option{sessions.WithStrictCallback()},
			noLogin:  true,
			status:   http.StatusBadRequest,
			contains: "No login is in progress",
		},
		{
			name: "code rejected",
			setup: func(f *serverFixture) string {
				f.provider.Set(func(p *providerfake.FakeProvider) {
					p.ExchangeErr = &oauthclient.TokenExchangeError{StatusCode: 400, Code: "invalid_grant", Description: "code expired"}
				})
				return "/callback?code=code-1&state=" + url.QueryEscape(f.provider.LastAuthorization().State)
			},
			status:   http.StatusUnauthorized,
			contains: "code expired",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := setupServer(t, tt.options...)
			if !tt.noLogin {
				f.do(t, http.MethodGet, "/login")
			}

			rec := f.do(t, http.MethodGet, tt.setup(f))
			require.Equal(t, tt.status, rec.Code)
			require.Contains(t, rec.Body.String(), tt.contains)
			require.Contains(t, rec.Body.String(), "Try logging in again")
			require.NotEqual(t, sessions.Authenticated, f.controller.State())
		})
	}
}

func TestAPIMe(t *testing.T) {
	f := setupServer(t)

	rec := f.do(t, http.MethodGet, "/api/me")
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.JSONEq(t, `{"error":"unauthorized","error_description":"Log in to continue"}`, rec.Body.String())

	f.login(t)
	rec = f.do(t, http.MethodGet, "/api/me")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
	require.NotContains(t, rec.Body.String(), "access-1")

	var body struct {
		State         string `json:"state"`
		Authenticated bool   `json:"authenticated"`
		Identity      struct {
			Subject string   `json:"sub"`
			Roles   []string `json:"roles"`
		} `json:"identity"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, "authenticated", body.State)
	require.True(t, body.Authenticated)
	require.Equal(t, "user-1", body.Identity.Subject)
	require.Equal(t, []string{"System Manager"}, body.Identity.Roles)
}

func TestRecords_SendsBearerToken(t *testing.T) {
	f := setupServer(t)
	f.login(t)

	rec := f.do(t, http.MethodGet, "/api/records")
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"data":[{"name":"TODO-0001"}]}`, rec.Body.String())
	require.Equal(t, "Bearer access-1", f.resource.lastAuth())
	require.Equal(t, []string{"/api/resource/ToDo"}, f.resource.requestedPaths())
}

func TestRecords_RequiresLogin(t *testing.T) {
	f := setupServer(t)

	rec := f.do(t, http.MethodGet, "/api/records")
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Empty(t, f.resource.lastAuth())
}

func TestRecords_RequiresRole(t *testing.T) {
	t.Setenv("RECORDS_ROLE", "Accounts Manager")
	f := setupServer(t)
	f.login(t)

	rec := f.do(t, http.MethodGet, "/api/records")
	require.Equal(t, http.StatusForbidden, rec.Code)
	require.Empty(t, f.resource.lastAuth())
}

func TestRecords_ExpiredTokenIsRefreshedFirst(t *testing.T) {
	f := setupServer(t)
	f.login(t)
	f.clock.Advance(2 * time.Hour)

	rec := f.do(t, http.MethodGet, "/api/records")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "Bearer access-2", f.resource.lastAuth())
	require.Equal(t, []string{"refresh-1"}, f.provider.Refreshed)
}

func TestRecords_RefreshFailureAsksForLogin(t *testing.T) {
	f := setupServer(t)
	f.login(t)
	f.clock.Advance(2 * time.Hour)
	f.provider.Set(func(p *providerfake.FakeProvider) {
		p.RefreshErr = &oauthclient.TokenRefreshError{StatusCode: 400, Code: "invalid_grant"}
	})

	rec := f.do(t, http.MethodGet, "/api/records")
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Contains(t, rec.Body.String(), "reauthenticate")
	require.Equal(t, sessions.Anonymous, f.controller.State())
	require.Empty(t, f.resource.lastAuth())
}

func TestRecords_ResourceRejectsToken(t *testing.T) {
	f := setupServer(t)
	f.login(t)
	f.resource.mu.Lock()
	f.resource.status = http.StatusUnauthorized
	f.resource.mu.Unlock()

	rec := f.do(t, http.MethodGet, "/api/records")
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Contains(t, rec.Body.String(), "reauthenticate")
}

func TestLogout(t *testing.T) {
	f := setupServer(t)
	f.login(t)

	rec := f.do(t, http.MethodPost, "/logout")
	require.Equal(t, http.StatusSeeOther, rec.Code)
	require.Equal(t, "/", rec.Header().Get("Location"))
	require.Equal(t, sessions.Anonymous, f.controller.State())
	require.Equal(t, []string{"access-1"}, f.provider.Revoked)
	require.Empty(t, f.controller.Store().AccessToken(t.Context()))
}

func TestLogout_RejectsGetAndCrossSiteRequests(t *testing.T) {
	f := setupServer(t)
	f.login(t)

	for _, path := range []string{"/logout", "/logout/provider"} {
		rec := f.do(t, http.MethodGet, path)
		require.Equal(t, http.StatusMethodNotAllowed, rec.Code, path)

		req := httptest.NewRequest(http.MethodPost, path, nil)
		req.Header.Set("Origin", "http://evil.example")
		rec = httptest.NewRecorder()
		f.server.ServeHTTP(rec, req)
		require.Equal(t, http.StatusForbidden, rec.Code, path)

		req = httptest.NewRequest(http.MethodPost, path, nil)
		req.Header.Set("Sec-Fetch-Site", "cross-site")
		rec = httptest.NewRecorder()
		f.server.ServeHTTP(rec, req)
		require.Equal(t, http.StatusForbidden, rec.Code, path)
	}

	require.Equal(t, sessions.Authenticated, f.controller.State())
	require.Empty(t, f.provider.Revoked)
}

func TestLogout_SameOriginForm(t *testing.T) {
	f := setupServer(t)
	f.login(t)

	req := httptest.NewRequest(http.MethodPost, "/logout", nil)
	req.Header.Set("Origin", "http://localhost:8080")
	req.Header.Set("Sec-Fetch-Site", "same-origin")
	rec := httptest.NewRecorder()
	f.server.ServeHTTP(rec, req)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	require.Equal(t, sessions.Anonymous, f.controller.State())
}

func TestProviderLogout_BrowserLoadsProviderLogout(t *testing.T) {
	f := setupServer(t)
	f.login(t)

	rec := f.do(t, http.MethodPost, "/logout/provider")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	require.Contains(t, body, `<iframe src="http://provider/api/method/logout"`)
	require.Contains(t, body, "window.location.replace(")
	require.Contains(t, body, `<a href="/">Continue</a>`)

	require.Equal(t, sessions.Anonymous, f.controller.State())
	require.Equal(t, []string{"access-1"}, f.provider.Revoked)
	require.Empty(t, f.controller.Store().AccessToken(t.Context()))
}

func TestHealthAndMetrics(t *testing.T) {
	f := setupServer(t)
	f.login(t)

	rec := f.do(t, http.MethodGet, "/healthz")
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"status":"ok","session":"authenticated","storage_degraded":false}`, rec.Body.String())

	rec = f.do(t, http.MethodGet, "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "crud_session_logins_started_total 1")
}

func TestCorsPreflight(t *testing.T) {
	f := setupServer(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/me", nil)
	req.Header.Set("Origin", "http://localhost:8080")
	rec := httptest.NewRecorder()
	f.server.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "http://localhost:8080", rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodOptions, "/api/me", nil)
	req.Header.Set("Origin", "http://evil.example")
	rec = httptest.NewRecorder()
	f.server.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestRecoverMiddleware(t *testing.T) {
	f := setupServer(t)

	handler := server.ChainMiddleware(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}, f.server.LoggingMiddleware, f.server.RecoverMiddleware)

	rec := httptest.NewRecorder()
	handler(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusInternalServerError, rec.Code)
}
