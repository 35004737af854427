package server

import (
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/jrsteele09/go-crud-session/internal/errors"
	"github.com/jrsteele09/go-crud-session/oauthmodel"
	"github.com/rs/zerolog/log"
)

// meResponse never carries tokens.
type meResponse struct {
	State         string               `json:"state"`
	Authenticated bool                 `json:"authenticated"`
	Identity      *oauthmodel.Identity `json:"identity,omitempty"`
}

// MeHandler returns the session state and current identity.
func (s *Server) MeHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, ok := sessionFromContext(r.Context())
		if !ok {
			session = s.controller.Snapshot()
		}
		writeJSON(w, http.StatusOK, meResponse{
			State:         session.State.String(),
			Authenticated: session.Authenticated(),
			Identity:      session.Identity.Current(),
		})
	}
}

// RecordsHandler lists the configured doctype from the resource server using the
// session's access token.
func (s *Server) RecordsHandler() http.HandlerFunc {
	endpoint := strings.TrimSuffix(s.config.GetResourceURL(), "/") + "/api/resource/" + url.PathEscape(s.config.GetRecordsDoctype())

	return func(w http.ResponseWriter, r *http.Request) {
		req, err := http.NewRequestWithContext(r.Context(), http.MethodGet, endpoint, nil)
		if err != nil {
			writeJSONError(w, http.StatusInternalServerError, "server_error", "could not build resource request")
			return
		}
		req.Header.Set("Accept", "application/json")

		resp, err := s.apiClient.Do(req)
		if err != nil {
			if errors.Is(err, ErrReauthenticate) {
				writeJSONError(w, http.StatusUnauthorized, "reauthenticate", "Log in again to continue")
				return
			}
			log.Err(err).Str("endpoint", endpoint).Msg("Resource request failed")
			writeJSONError(w, http.StatusBadGateway, "bad_gateway", "resource server unreachable")
			return
		}
		defer resp.Body.Close()

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(resp.StatusCode)
		if _, err := io.Copy(w, resp.Body); err != nil {
			log.Err(err).Msg("Failed to stream resource response")
		}
	}
}

type healthResponse struct {
	Status          string `json:"status"`
	Session         string `json:"session"`
	StorageDegraded bool   `json:"storage_degraded"`
}

// HealthHandler checks the durable token store. It reports 503 while the store cannot
// be written, since no login could complete.
func (s *Server) HealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		store := s.controller.Store()
		resp := healthResponse{Status: "ok", Session: s.controller.State().String()}
		status := http.StatusOK
		if err := store.CheckDurable(r.Context()); err != nil {
			resp.Status = "storage_unavailable"
			status = http.StatusServiceUnavailable
		}
		resp.StorageDegraded = store.Degraded()
		writeJSON(w, status, resp)
	}
}
