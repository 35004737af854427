package sessions

import "github.com/jrsteele09/go-crud-session/internal/errors"

var (
	// ErrCSRFMismatch is returned when the callback state differs from the stashed state.
	// No exchange is attempted.
	ErrCSRFMismatch = errors.New("state mismatch, possible cross-site request forgery")

	// ErrMissingVerifier is returned when an attempt was stashed without its code verifier.
	ErrMissingVerifier = errors.New("code verifier missing, restart login")

	// ErrNoRefreshToken is returned by RefreshToken when no refresh token is stored.
	ErrNoRefreshToken = errors.New("no refresh token stored")

	// ErrStaleCallback is returned in strict mode when a callback arrives with no login attempt
	// in progress and no authenticated session.
	ErrStaleCallback = errors.New("no login attempt in progress")

	// ErrStorageUnavailable is returned when the durable token store cannot hold a session.
	ErrStorageUnavailable = errors.New("token storage unavailable")
)
