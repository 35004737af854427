package oauthmodel

import "slices"

// Identity is the user profile returned by the provider's userinfo endpoint.
// Roles originate solely from the identity provider and are never mutated locally;
// they are authoritative for every client-side authorization decision.
type Identity struct {
	Subject     string   `json:"sub"`
	DisplayName string   `json:"name"`
	GivenName   string   `json:"given_name,omitempty"`
	FamilyName  string   `json:"family_name,omitempty"`
	Email       string   `json:"email"`
	PictureURL  string   `json:"picture,omitempty"`
	Roles       []string `json:"roles"`
	Issuer      string   `json:"iss"`
}

// HasRole reports whether the provider granted the given role.
func (i *Identity) HasRole(role string) bool {
	if i == nil {
		return false
	}
	return slices.Contains(i.Roles, role)
}

// Clone returns a deep copy so callers cannot mutate the controller's roles.
func (i *Identity) Clone() *Identity {
	if i == nil {
		return nil
	}
	c := *i
	c.Roles = slices.Clone(i.Roles)
	return &c
}
