package oauthclient

import (
	"errors"
	"fmt"

	"golang.org/x/oauth2"
)

// TokenExchangeError is returned when the token endpoint rejects an authorization code.
// Code and Description carry the provider's "error" and "error_description" fields.
type TokenExchangeError struct {
	StatusCode  int
	Code        string
	Description string
	Err         error
}

func (e *TokenExchangeError) Error() string {
	return providerMessage("token exchange failed", e.StatusCode, e.Code, e.Description, e.Err)
}

func (e *TokenExchangeError) Unwrap() error { return e.Err }

// TokenRefreshError is returned when the token endpoint rejects a refresh token.
type TokenRefreshError struct {
	StatusCode  int
	Code        string
	Description string
	Err         error
}

func (e *TokenRefreshError) Error() string {
	return providerMessage("token refresh failed", e.StatusCode, e.Code, e.Description, e.Err)
}

func (e *TokenRefreshError) Unwrap() error { return e.Err }

// IdentityFetchError is returned when the userinfo endpoint cannot produce an identity.
type IdentityFetchError struct {
	Err error
}

func (e *IdentityFetchError) Error() string {
	return fmt.Sprintf("identity fetch failed: %v", e.Err)
}

func (e *IdentityFetchError) Unwrap() error { return e.Err }

// RevocationWarning reports a revocation the provider did not confirm. It is never fatal.
type RevocationWarning struct {
	StatusCode int
	Err        error
}

func (e *RevocationWarning) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("token revocation not confirmed: %v", e.Err)
	}
	return fmt.Sprintf("token revocation not confirmed: HTTP %d", e.StatusCode)
}

func (e *RevocationWarning) Unwrap() error { return e.Err }

// IsTokenRefreshError reports whether err came from a rejected refresh.
func IsTokenRefreshError(err error) bool {
	var target *TokenRefreshError
	return errors.As(err, &target)
}

// IsTokenExchangeError reports whether err came from a rejected code exchange.
func IsTokenExchangeError(err error) bool {
	var target *TokenExchangeError
	return errors.As(err, &target)
}

func newTokenExchangeError(err error) *TokenExchangeError {
	status, code, desc := retrieveDetails(err)
	return &TokenExchangeError{StatusCode: status, Code: code, Description: desc, Err: err}
}

func newTokenRefreshError(err error) *TokenRefreshError {
	status, code, desc := retrieveDetails(err)
	return &TokenRefreshError{StatusCode: status, Code: code, Description: desc, Err: err}
}

func retrieveDetails(err error) (status int, code, description string) {
	var re *oauth2.RetrieveError
	if !errors.As(err, &re) {
		return 0, "", ""
	}
	if re.Response != nil {
		status = re.Response.StatusCode
	}
	return status, re.ErrorCode, re.ErrorDescription
}

func providerMessage(prefix string, status int, code, description string, err error) string {
	switch {
	case code != "" && description != "":
		return fmt.Sprintf("%s: %s: %s", prefix, code, description)
	case code != "":
		return fmt.Sprintf("%s: %s", prefix, code)
	case status != 0:
		return fmt.Sprintf("%s: HTTP %d", prefix, status)
	default:
		return fmt.Sprintf("%s: %v", prefix, err)
	}
}
