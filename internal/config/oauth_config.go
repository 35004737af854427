package config

import (
	"time"

	"github.com/jrsteele09/go-crud-session/oauthmodel"
)

type OAuthConfig interface {
	GetServerURL() string
	GetClientID() string
	GetClientSecret() string
	GetRedirectURI() string
	GetScopes() []string
	GetLogoutTimeout() time.Duration
}

type OAuth struct{}

var _ OAuthConfig = OAuth{}

// GetServerURL is the identity provider's base URL.
func (OAuth) GetServerURL() string {
	return GetEnv("OAUTH_SERVER_URL", "http://localhost:8000")
}

func (OAuth) GetClientID() string {
	return GetEnv("OAUTH_CLIENT_ID", "")
}

// GetClientSecret is empty for a public client.
func (OAuth) GetClientSecret() string {
	return GetEnv("OAUTH_CLIENT_SECRET", "")
}

func (OAuth) GetRedirectURI() string {
	return GetEnv("OAUTH_REDIRECT_URI", EnvVars{}.GetBaseURL()+"/callback")
}

func (OAuth) GetScopes() []string {
	return GetEnvList("OAUTH_SCOPES", oauthmodel.DefaultScopes())
}

func (OAuth) GetLogoutTimeout() time.Duration {
	return GetEnvDuration("LOGOUT_TIMEOUT", 5*time.Second)
}
