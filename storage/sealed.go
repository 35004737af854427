package storage

import (
	"context"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"io"

	"github.com/jrsteele09/go-crud-session/internal/errors"
	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"
)

const sealedKeyInfo = "crud-session token store v1"

// SealedKV encrypts values before handing them to the wrapped KV. Keys stay in the clear;
// each value is bound to its key as additional data so values cannot be swapped between keys.
type SealedKV struct {
	inner KV
	aead  cipher.AEAD
}

var _ KV = (*SealedKV)(nil)

// NewSealedKV derives an XChaCha20-Poly1305 key from secret and wraps inner.
func NewSealedKV(inner KV, secret []byte) (*SealedKV, error) {
	if len(secret) == 0 {
		return nil, errors.Wrapf(errors.ErrInvalidConfig, "sealed store secret is empty")
	}
	key := make([]byte, chacha20poly1305.KeySize)
	if _, err := io.ReadFull(hkdf.New(sha256.New, secret, nil, []byte(sealedKeyInfo)), key); err != nil {
		return nil, fmt.Errorf("derive sealing key: %w", err)
	}
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("create cipher: %w", err)
	}
	return &SealedKV{inner: inner, aead: aead}, nil
}

func (s *SealedKV) Get(ctx context.Context, key string) (string, error) {
	sealed, err := s.inner.Get(ctx, key)
	if err != nil {
		return "", err
	}
	raw, err := base64.RawStdEncoding.DecodeString(sealed)
	if err != nil || len(raw) < s.aead.NonceSize() {
		return "", errors.Wrapf(errors.ErrCorrupt, "key %q", key)
	}
	nonce, ciphertext := raw[:s.aead.NonceSize()], raw[s.aead.NonceSize():]
	plain, err := s.aead.Open(nil, nonce, ciphertext, []byte(key))
	if err != nil {
		return "", errors.Wrapf(errors.ErrCorrupt, "key %q", key)
	}
	return string(plain), nil
}

func (s *SealedKV) Set(ctx context.Context, key, value string) error {
	nonce := make([]byte, s.aead.NonceSize(), s.aead.NonceSize()+len(value)+s.aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return errors.Wrapf(errors.Join(errors.ErrRandomUnavailable, err), "seal %q", key)
	}
	sealed := s.aead.Seal(nonce, nonce, []byte(value), []byte(key))
	return s.inner.Set(ctx, key, base64.RawStdEncoding.EncodeToString(sealed))
}

func (s *SealedKV) Delete(ctx context.Context, key string) error {
	return s.inner.Delete(ctx, key)
}

func (s *SealedKV) Clear(ctx context.Context) error {
	return s.inner.Clear(ctx)
}
