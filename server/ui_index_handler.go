package server

import (
	"net/http"
)

// IndexHandler renders the home page
func (s *Server) IndexHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session := s.controller.Snapshot()
		data := map[string]interface{}{
			"AppName":       s.config.GetAppName(),
			"Authenticated": session.Authenticated(),
			"Identity":      session.Identity.Current(),
			"Refreshing":    session.Authenticated() && session.Identity.Fresh == nil,
		}
		renderPage(w, http.StatusOK, "index.html", data)
	}
}
