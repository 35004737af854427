package oauthmodel

// AuthorizationRequest is the result of composing an authorization URL for one login attempt.
type AuthorizationRequest struct {
	// URL is the fully serialized authorize endpoint URL the user agent is sent to.
	// Query: client_id, redirect_uri, response_type=code, scope, code_challenge,
	// code_challenge_method=S256, state
	URL string

	// CodeVerifier is the PKCE secret. It never leaves this process until the code exchange.
	CodeVerifier string

	// State is the CSRF correlation value echoed back by the provider on the callback.
	// Independent of the verifier.
	State string
}
