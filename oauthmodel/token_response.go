package oauthmodel

import "github.com/jrsteele09/go-crud-session/internal/utils"

// TokenResponse represents the response from an OAuth2 token request.
// This is the standard OAuth2 token endpoint response format as defined in RFC 6749,
// returned for both the authorization_code and refresh_token grants.
type TokenResponse struct {
	// AccessToken is the bearer credential used to call the resource server.
	// Usage: Include in Authorization header: "Bearer <access_token>"
	AccessToken string `json:"access_token"`

	// TokenType indicates how to use the access token (normally "Bearer").
	TokenType string `json:"token_type,omitempty"`

	// ExpiresIn is the lifetime in seconds of the access token, relative to the moment
	// the response was received. It is converted to an absolute timestamp when stored.
	ExpiresIn int64 `json:"expires_in,omitempty"`

	// RefreshToken is an opaque token used to obtain new access tokens.
	// Absent for public clients whose provider does not issue or rotate refresh tokens.
	RefreshToken *string `json:"refresh_token,omitempty"`

	// IDToken is the OpenID Connect ID token containing user identity claims.
	// Only present when the "openid" scope was granted.
	IDToken *string `json:"id_token,omitempty"`

	// Scope is the space-separated list of granted scopes.
	Scope string `json:"scope,omitempty"`
}

// GetRefreshToken returns the refresh token or "" when none was issued.
func (t *TokenResponse) GetRefreshToken() string {
	return utils.Value(t.RefreshToken)
}

// GetIDToken returns the ID token or "" when none was issued.
func (t *TokenResponse) GetIDToken() string {
	return utils.Value(t.IDToken)
}
