package sessions

import "github.com/jrsteele09/go-crud-session/oauthmodel"

// State is the lifecycle state of the in-memory session.
type State int

const (
	Uninitialized State = iota
	Restoring
	Anonymous
	Authenticated
	RefreshPending
)

func (s State) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case Restoring:
		return "restoring"
	case Anonymous:
		return "anonymous"
	case Authenticated:
		return "authenticated"
	case RefreshPending:
		return "refresh_pending"
	default:
		return "unknown"
	}
}

// IdentityState holds the identity in two phases: the copy restored from storage (or decoded
// from the ID token) and the copy fetched live from the provider.
type IdentityState struct {
	Cached *oauthmodel.Identity
	Fresh  *oauthmodel.Identity
}

// Current returns the fresh identity when known, otherwise the cached one.
func (i IdentityState) Current() *oauthmodel.Identity {
	if i.Fresh != nil {
		return i.Fresh
	}
	return i.Cached
}

func (i IdentityState) clone() IdentityState {
	return IdentityState{Cached: i.Cached.Clone(), Fresh: i.Fresh.Clone()}
}

// Session is a point-in-time copy of the controller's in-memory session.
type Session struct {
	State       State
	AccessToken string
	Identity    IdentityState
}

// Authenticated reports whether the session holds a usable token. A refresh in progress
// still counts; consumers never see a third state.
func (s Session) Authenticated() bool {
	return s.State == Authenticated || s.State == RefreshPending
}

// HasRole reports whether the current identity carries role.
func (s Session) HasRole(role string) bool {
	return s.Authenticated() && s.Identity.Current().HasRole(role)
}
