package server

import (
	"net/http"

	"github.com/jrsteele09/go-crud-session/internal/errors"
	"github.com/jrsteele09/go-crud-session/oauthclient"
	"github.com/jrsteele09/go-crud-session/sessions"
	"github.com/rs/zerolog/log"
)

// recoveryPage is the data rendered by recovery.html.
type recoveryPage struct {
	AppName string
	Title   string
	Message string
	Detail  string
}

func (s *Server) OAuthCallbackHandler() http.HandlerFunc {
	render := func(w http.ResponseWriter, status int, page recoveryPage) {
		page.AppName = s.config.GetAppName()
		renderPage(w, status, "recovery.html", page)
	}

	return func(w http.ResponseWriter, r *http.Request) {
		// r.FormValue works for both query params and POST form data (form_post response mode)
		code := r.FormValue("code")
		state := r.FormValue("state")

		// Check for authorization errors
		if errorParam := r.FormValue("error"); errorParam != "" {
			render(w, http.StatusBadRequest, recoveryPage{
				Title:   "Sign-in was not completed",
				Message: "The identity provider did not authorize this login.",
				Detail:  errorParam + ": " + r.FormValue("error_description"),
			})
			return
		}

		if code == "" {
			render(w, http.StatusBadRequest, recoveryPage{
				Title:   "Sign-in was not completed",
				Message: "The redirect from the identity provider is missing its authorization code.",
			})
			return
		}

		err := s.controller.HandleCallback(r.Context(), code, state)
		if err == nil {
			redirectSuccess(w, r, RouteIndex)
			return
		}

		status, page := callbackFailure(err)
		log.Warn().Err(err).Int("status", status).Msg("Callback failed")
		render(w, status, page)
	}
}

func callbackFailure(err error) (int, recoveryPage) {
	var exchangeErr *oauthclient.TokenExchangeError
	switch {
	case errors.Is(err, sessions.ErrCSRFMismatch):
		return http.StatusBadRequest, recoveryPage{
			Title:   "Sign-in could not be verified",
			Message: "This sign-in response does not belong to the login you started. Start a new login.",
		}
	case errors.Is(err, sessions.ErrMissingVerifier), errors.Is(err, sessions.ErrStaleCallback):
		return http.StatusBadRequest, recoveryPage{
			Title:   "Sign-in expired",
			Message: "No login is in progress for this response. Start a new login.",
		}
	case errors.Is(err, sessions.ErrStorageUnavailable):
		return http.StatusServiceUnavailable, recoveryPage{
			Title:   "Session storage unavailable",
			Message: "Your session could not be saved. Try again shortly.",
		}
	case errors.As(err, &exchangeErr):
		return http.StatusUnauthorized, recoveryPage{
			Title:   "Sign-in was rejected",
			Message: "The identity provider refused the authorization code.",
			Detail:  exchangeErr.Description,
		}
	default:
		return http.StatusInternalServerError, recoveryPage{
			Title:   "Sign-in failed",
			Message: "Something went wrong while completing the login.",
		}
	}
}
