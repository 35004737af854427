package config

import "time"

type SecurityConfig interface {
	GetStrictCallback() bool
	GetTokenGraceWindow() time.Duration
}

type Security struct{}

var _ SecurityConfig = Security{}

// GetStrictCallback reports whether a callback with no login attempt in progress is an error.
func (Security) GetStrictCallback() bool {
	return GetEnvBool("STRICT_CALLBACK", true)
}

// GetTokenGraceWindow is how long before expiry an access token is refreshed.
func (Security) GetTokenGraceWindow() time.Duration {
	return GetEnvDuration("TOKEN_GRACE_WINDOW", 60*time.Second)
}
