package server

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/jrsteele09/go-crud-session/internal/config"
	"github.com/jrsteele09/go-crud-session/internal/errors"
	"github.com/jrsteele09/go-crud-session/sessions"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
)

type Server struct {
	env        string // Environment (e.g., "DEV", "PROD")
	mux        *http.ServeMux
	routes     []string
	config     config.Config
	controller *sessions.Controller
	gatherer   prometheus.Gatherer
	apiClient  *http.Client
}

// Option configures a Server.
type Option func(*Server)

// WithGatherer exposes the given registry on the metrics route.
func WithGatherer(g prometheus.Gatherer) Option {
	return func(s *Server) {
		s.gatherer = g
	}
}

// WithAPIBaseTransport sets the transport resource API calls are sent over. The access
// token is added by an APITransport wrapped around it.
func WithAPIBaseTransport(base http.RoundTripper) Option {
	return func(s *Server) {
		s.apiClient.Transport = NewAPITransport(s.controller, base)
	}
}

func New(config config.Config, controller *sessions.Controller, options ...Option) (*Server, error) {
	if controller == nil {
		return nil, errors.Wrapf(errors.ErrInvalidConfig, "[Server New] session controller is required")
	}

	s := &Server{
		env:        config.GetEnv(),
		mux:        http.NewServeMux(),
		config:     config,
		controller: controller,
		gatherer:   prometheus.DefaultGatherer,
		apiClient:  &http.Client{Transport: NewAPITransport(controller, nil)},
	}
	for _, opt := range options {
		opt(s)
	}

	s.initRoutes()
	s.logRoutes()

	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) RegisterRouteHandler(pattern string, handler http.Handler) {
	s.routes = append(s.routes, pattern)
	s.mux.Handle(pattern, handler)
}

func (s *Server) RegisterRouteFunc(pattern string, handler func(http.ResponseWriter, *http.Request)) {
	s.routes = append(s.routes, pattern)
	s.mux.HandleFunc(pattern, handler)
}

func (s *Server) logRoutes() {
	if s.env != "DEV" {
		return // Skip logging in non-development environments
	}
	for _, route := range s.routes {
		parts := strings.SplitN(route, " ", 2)

		if len(parts) > 1 {
			logRoute(parts[0], parts[1])
		} else {
			logRoute("", parts[0])
		}
	}
}

func logRoute(method, path string) {
	log.Info().Msgf("[%-19s] %s", colouredMethod(method), path)
}

func colouredMethod(method string) string {
	paddedMethod := fmt.Sprintf(" %-7s", method)
	if color, ok := methodColors[method]; ok {
		return color + paddedMethod + ResetColor
	}
	return Gray + paddedMethod + ResetColor
}
