package oauthmodel

import "errors"

var (
	ErrInvalidIDToken     = errors.New("invalid id token")
	ErrMissingAccessToken = errors.New("token response missing access_token")
)
