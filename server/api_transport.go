package server

import (
	"io"
	"net/http"

	"github.com/jrsteele09/go-crud-session/internal/errors"
	"github.com/jrsteele09/go-crud-session/sessions"
)

// ErrReauthenticate means the session has no usable access token and the user must log in again.
var ErrReauthenticate = errors.New("re-authentication required")

// APITransport adds the session's access token to outgoing resource API requests. An expired
// token is refreshed first. A 401 from the resource server is reported as ErrReauthenticate.
type APITransport struct {
	controller *sessions.Controller
	base       http.RoundTripper
}

func NewAPITransport(controller *sessions.Controller, base http.RoundTripper) *APITransport {
	if base == nil {
		base = http.DefaultTransport
	}
	return &APITransport{controller: controller, base: base}
}

func (t *APITransport) RoundTrip(req *http.Request) (*http.Response, error) {
	ctx := req.Context()
	store := t.controller.Store()

	if store.AccessToken(ctx) != "" && store.IsExpired(ctx) {
		if err := t.controller.RefreshToken(ctx); err != nil {
			return nil, errors.Join(ErrReauthenticate, err)
		}
	}
	accessToken := store.AccessToken(ctx)
	if accessToken == "" {
		return nil, ErrReauthenticate
	}

	// RoundTrippers must not modify the caller's request
	out := req.Clone(ctx)
	out.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := t.base.RoundTrip(out)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusUnauthorized {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
		return nil, ErrReauthenticate
	}
	return resp, nil
}
