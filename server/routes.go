package server

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func (s *Server) initRoutes() {
	s.RegisterRouteHandler("GET "+RouteIndex+"{$}", ChainMiddleware(s.IndexHandler(), s.HTMLMiddleWare()...))

	// LOGIN
	s.RegisterRouteHandler("GET "+RouteLogin, ChainMiddleware(s.LoginHandler(), s.HTMLMiddleWare(s.NoStoreMiddleware)...))
	s.RegisterRouteHandler("GET "+RouteCallback, ChainMiddleware(s.OAuthCallbackHandler(), s.HTMLMiddleWare(s.NoStoreMiddleware)...))
	s.RegisterRouteHandler("POST "+RouteCallback, ChainMiddleware(s.OAuthCallbackHandler(), s.HTMLMiddleWare(s.NoStoreMiddleware)...)) // For form_post response mode
	s.RegisterRouteHandler("POST "+RouteLogout, ChainMiddleware(s.LogoutHandler(), s.HTMLMiddleWare(s.SameOriginMiddleware, s.NoStoreMiddleware)...))
	s.RegisterRouteHandler("POST "+RouteLogoutProvider, ChainMiddleware(s.ProviderLogoutHandler(), s.HTMLMiddleWare(s.SameOriginMiddleware, s.NoStoreMiddleware)...))

	// API routes
	s.RegisterRouteHandler("GET "+RouteAPIMe, ChainMiddleware(s.MeHandler(), s.APIMiddleware(s.RequireAuth())...))
	s.RegisterRouteHandler("GET "+RouteAPIRecords, ChainMiddleware(s.RecordsHandler(), s.APIMiddleware(s.RequireAuth(), s.RequireRole(s.config.GetRecordsRole()))...))
	s.RegisterRouteHandler("OPTIONS /api/", ChainMiddleware(notFound, s.APIMiddleware()...))

	s.RegisterRouteHandler("GET "+RouteMetrics, promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	s.RegisterRouteFunc("GET "+RouteHealth, s.HealthHandler())
}

func notFound(w http.ResponseWriter, r *http.Request) {
	http.NotFound(w, r)
}
