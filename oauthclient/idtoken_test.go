package oauthclient_test

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jrsteele09/go-crud-session/oauthclient"
	"github.com/jrsteele09/go-crud-session/oauthmodel"
	"github.com/stretchr/testify/require"
)

func signedIDToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("not-shared-with-client"))
	require.NoError(t, err)
	return raw
}

func TestDecodeIDToken(t *testing.T) {
	now := time.Now().Truncate(time.Second)
	raw := signedIDToken(t, jwt.MapClaims{
		"sub":         "user-1",
		"name":        "Jane Doe",
		"given_name":  "Jane",
		"family_name": "Doe",
		"email":       "jane@example.com",
		"picture":     "http://provider/files/jane.png",
		"roles":       []string{"System Manager"},
		"iss":         "http://provider",
		"aud":         "crud-app",
		"exp":         now.Add(time.Hour).Unix(),
		"iat":         now.Unix(),
		"nonce":       "n-1",
	})

	claims, err := oauthclient.DecodeIDToken(raw)
	require.NoError(t, err)
	require.Equal(t, "user-1", claims.Subject)
	require.Equal(t, "Jane Doe", claims.Name)
	require.Equal(t, "n-1", claims.Nonce)
	require.Equal(t, jwt.ClaimStrings{"crud-app"}, claims.Audience)
	require.Equal(t, now.Add(time.Hour).Unix(), claims.ExpiresAt.Unix())

	identity := claims.Identity()
	require.Equal(t, "user-1", identity.Subject)
	require.Equal(t, "Jane", identity.GivenName)
	require.Equal(t, "Doe", identity.FamilyName)
	require.Equal(t, "http://provider/files/jane.png", identity.PictureURL)
	require.Equal(t, "http://provider", identity.Issuer)
	require.True(t, identity.HasRole("System Manager"))
}

func TestDecodeIDToken_ExpiredTokenStillDecodes(t *testing.T) {
	raw := signedIDToken(t, jwt.MapClaims{
		"sub": "user-1",
		"exp": time.Now().Add(-time.Hour).Unix(),
	})

	claims, err := oauthclient.DecodeIDToken(raw)
	require.NoError(t, err)
	require.Equal(t, "user-1", claims.Subject)
}

func TestDecodeIDToken_Malformed(t *testing.T) {
	for _, raw := range []string{"", "one.two", "a.b.c.d", "not.base64!.sig"} {
		_, err := oauthclient.DecodeIDToken(raw)
		require.ErrorIs(t, err, oauthmodel.ErrInvalidIDToken, raw)
	}
}
