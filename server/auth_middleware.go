package server

import (
	"context"
	"net/http"

	"github.com/jrsteele09/go-crud-session/sessions"
)

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

// ContextKeySession stores the session snapshot taken by RequireAuth
const ContextKeySession ContextKey = "session"

// RequireAuth rejects API requests unless the session is authenticated, and stores the
// session snapshot in the request context for the handler.
func (s *Server) RequireAuth() func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			session := s.controller.Snapshot()
			if !session.Authenticated() {
				writeJSONError(w, http.StatusUnauthorized, "unauthorized", "Log in to continue")
				return
			}
			ctx := context.WithValue(r.Context(), ContextKeySession, session)
			next(w, r.WithContext(ctx))
		}
	}
}

// RequireRole rejects requests whose identity lacks role. Roles come only from the
// identity provider. An empty role admits every authenticated session.
func (s *Server) RequireRole(role string) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			if role == "" {
				next(w, r)
				return
			}
			session, ok := sessionFromContext(r.Context())
			if !ok {
				session = s.controller.Snapshot()
			}
			if !session.HasRole(role) {
				writeJSONError(w, http.StatusForbidden, "forbidden", "Missing role "+role)
				return
			}
			next(w, r)
		}
	}
}

func sessionFromContext(ctx context.Context) (sessions.Session, bool) {
	session, ok := ctx.Value(ContextKeySession).(sessions.Session)
	return session, ok
}
