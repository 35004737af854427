package oauthmodel

import "time"

// SideChannelRequest is a URL the user agent must load out of band, without leaving the
// current page, within Timeout. Provider session logout works this way because only the
// user agent holds the provider's session cookie.
type SideChannelRequest struct {
	URL     string
	Timeout time.Duration
}
