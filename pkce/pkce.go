// Package pkce generates the per-attempt proof key material for the authorization code flow
// (RFC 7636) together with the independent CSRF state value.
package pkce

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"io"

	"github.com/jrsteele09/go-crud-session/internal/errors"
	"github.com/jrsteele09/go-crud-session/oauthmodel"
)

// entropyBytes is the amount of randomness behind every verifier and state.
// 32 bytes base64url-encoded without padding gives 43 characters, the RFC 7636 minimum.
const entropyBytes = 32

// Attempt holds the proof key material for a single login attempt.
type Attempt struct {
	CodeVerifier        string
	CodeChallenge       string
	CodeChallengeMethod oauthmodel.CodeMethodType
	State               string
}

// Generator produces verifiers and states from a random source.
type Generator struct {
	rand io.Reader
}

// NewGenerator returns a Generator reading from r. Tests use it to simulate an unavailable CSPRNG.
func NewGenerator(r io.Reader) *Generator {
	return &Generator{rand: r}
}

var defaultGenerator = NewGenerator(rand.Reader)

// NewCodeVerifier returns a fresh high-entropy code verifier.
func NewCodeVerifier() (string, error) { return defaultGenerator.NewCodeVerifier() }

// NewState returns a fresh state value, never derived from a verifier.
func NewState() (string, error) { return defaultGenerator.NewState() }

// Generate returns a complete Attempt.
func Generate() (Attempt, error) { return defaultGenerator.Generate() }

// ChallengeFor returns BASE64URL(SHA256(verifier)) without padding.
func ChallengeFor(verifier string) string {
	hash := sha256.Sum256([]byte(verifier))
	return base64.RawURLEncoding.EncodeToString(hash[:])
}

func (g *Generator) NewCodeVerifier() (string, error) {
	v, err := g.randomString()
	if err != nil {
		return "", fmt.Errorf("could not generate PKCE code verifier: %w", err)
	}
	return v, nil
}

func (g *Generator) NewState() (string, error) {
	s, err := g.randomString()
	if err != nil {
		return "", fmt.Errorf("could not generate state: %w", err)
	}
	return s, nil
}

func (g *Generator) Generate() (Attempt, error) {
	verifier, err := g.NewCodeVerifier()
	if err != nil {
		return Attempt{}, err
	}
	state, err := g.NewState()
	if err != nil {
		return Attempt{}, err
	}
	return Attempt{
		CodeVerifier:        verifier,
		CodeChallenge:       ChallengeFor(verifier),
		CodeChallengeMethod: oauthmodel.CodeMethodTypeS256,
		State:               state,
	}, nil
}

func (g *Generator) randomString() (string, error) {
	var buf [entropyBytes]byte
	if _, err := io.ReadFull(g.rand, buf[:]); err != nil {
		return "", errors.Wrapf(errors.Join(errors.ErrRandomUnavailable, err), "read %d random bytes", entropyBytes)
	}
	return base64.RawURLEncoding.EncodeToString(buf[:]), nil
}
