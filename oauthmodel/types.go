package oauthmodel

// ResponseType represents the OAuth 2.0 response type.
// Determines what is returned from the authorization endpoint.
type ResponseType string

const (
	// CodeResponseType indicates the authorization code flow.
	// Returns an authorization code that must be exchanged for tokens at the token endpoint.
	// Example: /authorize?response_type=code&client_id=...
	CodeResponseType ResponseType = "code"
)

// CodeMethodType represents the PKCE (Proof Key for Code Exchange) challenge method.
type CodeMethodType string

const (
	// CodeMethodTypeS256 indicates SHA-256 hashing is used for the code challenge.
	// Client sends: code_challenge = BASE64URL(SHA256(code_verifier))
	// Server validates: SHA256(provided code_verifier) == stored code_challenge
	CodeMethodTypeS256 CodeMethodType = "S256"
)

// GrantType represents the OAuth 2.0 grant type used at the token endpoint.
type GrantType string

const (
	// AuthorizationCodeGrant exchanges an authorization code for tokens.
	// Token request includes: code, client_id, client_secret (confidential only), redirect_uri, code_verifier
	// Returns: access_token, id_token, refresh_token (if issued)
	AuthorizationCodeGrant GrantType = "authorization_code"

	// RefreshTokenGrant exchanges a refresh token for new tokens.
	// Token request includes: refresh_token, client_id, client_secret (confidential only)
	// Returns: new access_token and, when the provider rotates, a new refresh_token
	RefreshTokenGrant GrantType = "refresh_token"
)

// TokenTypeHint tells the revocation endpoint which kind of token is being revoked.
type TokenTypeHint string

const AccessTokenHint TokenTypeHint = "access_token"

// Default scopes requested when the caller does not supply any.
const (
	ScopeAll    = "all"
	ScopeOpenID = "openid"
)

// DefaultScopes is the scope set used for every authorization request unless overridden.
func DefaultScopes() []string {
	return []string{ScopeAll, ScopeOpenID}
}
