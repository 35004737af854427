package server

import (
	"net/http"

	"github.com/jrsteele09/go-crud-session/internal/errors"
	"github.com/jrsteele09/go-crud-session/sessions"
	"github.com/rs/zerolog/log"
)

// LoginHandler starts a login attempt and redirects to the provider's authorize endpoint.
func (s *Server) LoginHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		err := s.controller.Login(r.Context(), redirectNavigator{w: w, r: r})
		if err == nil {
			return
		}
		log.Err(err).Msg("Login could not start")
		if errors.Is(err, sessions.ErrStorageUnavailable) {
			http.Error(w, "Session storage unavailable", http.StatusServiceUnavailable)
			return
		}
		http.Error(w, "Login could not start", http.StatusInternalServerError)
	}
}

// LogoutHandler revokes the token, clears the session and redirects home.
func (s *Server) LogoutHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := s.controller.Logout(r.Context(), redirectNavigator{w: w, r: r}); err != nil {
			log.Err(err).Msg("Logout redirect failed")
		}
	}
}

// ProviderLogoutHandler also ends the provider's browser session. The browser loads the
// provider logout URL in a hidden frame, so the provider sees its own session cookie.
func (s *Server) ProviderLogoutHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		nav := &sideChannelNavigator{w: w, r: r, appName: s.config.GetAppName()}
		if err := s.controller.LogoutFromProviderSession(r.Context(), nav); err != nil {
			log.Err(err).Msg("Logout redirect failed")
		}
	}
}
