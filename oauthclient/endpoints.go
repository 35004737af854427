package oauthclient

import "strings"

// Endpoints holds the provider paths, relative to the server URL.
type Endpoints struct {
	AuthorizePath string
	TokenPath     string
	RevokePath    string
	UserInfoPath  string
	LogoutPath    string
}

// DefaultEndpoints returns the Frappe OAuth2 provider paths.
func DefaultEndpoints() Endpoints {
	return Endpoints{
		AuthorizePath: "/api/method/frappe.integrations.oauth2.authorize",
		TokenPath:     "/api/method/frappe.integrations.oauth2.get_token",
		RevokePath:    "/api/method/frappe.integrations.oauth2.revoke_token",
		UserInfoPath:  "/api/method/frappe.integrations.oauth2.openid_profile",
		LogoutPath:    "/api/method/logout",
	}
}

// withDefaults fills every empty path from DefaultEndpoints.
func (e Endpoints) withDefaults() Endpoints {
	d := DefaultEndpoints()
	if e.AuthorizePath == "" {
		e.AuthorizePath = d.AuthorizePath
	}
	if e.TokenPath == "" {
		e.TokenPath = d.TokenPath
	}
	if e.RevokePath == "" {
		e.RevokePath = d.RevokePath
	}
	if e.UserInfoPath == "" {
		e.UserInfoPath = d.UserInfoPath
	}
	if e.LogoutPath == "" {
		e.LogoutPath = d.LogoutPath
	}
	return e
}

func joinURL(base, path string) string {
	return strings.TrimSuffix(base, "/") + "/" + strings.TrimPrefix(path, "/")
}
