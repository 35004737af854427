package server

// Route path constants
// All application routes are defined here to ensure consistency and prevent typos
const (
	RouteIndex = "/"

	// Auth Routes - Login & Logout
	RouteLogin          = "/login"
	RouteCallback       = "/callback"
	RouteLogout         = "/logout"
	RouteLogoutProvider = "/logout/provider"

	// API Routes
	RouteAPIMe      = "/api/me"
	RouteAPIRecords = "/api/records"

	// Operational Routes
	RouteMetrics = "/metrics"
	RouteHealth  = "/healthz"
)
