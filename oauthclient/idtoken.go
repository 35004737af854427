package oauthclient

import (
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jrsteele09/go-crud-session/oauthmodel"
)

// IDTokenClaims are the display fields carried by the ID token payload.
type IDTokenClaims struct {
	Name       string   `json:"name"`
	GivenName  string   `json:"given_name,omitempty"`
	FamilyName string   `json:"family_name,omitempty"`
	Email      string   `json:"email"`
	Picture    string   `json:"picture,omitempty"`
	Roles      []string `json:"roles"`
	Nonce      string   `json:"nonce,omitempty"`
	jwt.RegisteredClaims
}

// DecodeIDToken decodes the payload segment of an ID token for display.
// The signature is NOT verified; never use the result for an authorization decision
// that the resource server does not also enforce.
func DecodeIDToken(raw string) (*IDTokenClaims, error) {
	if strings.Count(raw, ".") != 2 {
		return nil, fmt.Errorf("%w: expected three segments", oauthmodel.ErrInvalidIDToken)
	}
	var claims IDTokenClaims
	if _, _, err := jwt.NewParser().ParseUnverified(raw, &claims); err != nil {
		return nil, fmt.Errorf("%w: %v", oauthmodel.ErrInvalidIDToken, err)
	}
	return &claims, nil
}

// Identity maps the claims onto the identity shape used by the rest of the client.
func (c *IDTokenClaims) Identity() *oauthmodel.Identity {
	return &oauthmodel.Identity{
		Subject:     c.Subject,
		DisplayName: c.Name,
		GivenName:   c.GivenName,
		FamilyName:  c.FamilyName,
		Email:       c.Email,
		PictureURL:  c.Picture,
		Roles:       append([]string(nil), c.Roles...),
		Issuer:      c.Issuer,
	}
}
