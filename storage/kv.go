// Package storage provides the key/value backends behind the token store.
//
// Durable backends (FileKV, RedisKV) survive a process restart and are shared by every
// process pointed at the same file or keyspace. MemoryKV lives exactly as long as the
// process and backs attempt-scoped state. All of them expose the same KV shape.
package storage

import (
	"context"

	"github.com/jrsteele09/go-crud-session/internal/errors"
)

// KV is a flat string key/value store.
type KV interface {
	// Get returns the value for key, or an error wrapping errors.ErrNotFound when absent
	Get(ctx context.Context, key string) (string, error)

	// Set creates or replaces the value for key
	Set(ctx context.Context, key, value string) error

	// Delete removes key. Deleting a missing key is not an error
	Delete(ctx context.Context, key string) error

	// Clear removes every key owned by this store
	Clear(ctx context.Context) error
}

// IsNotFound reports whether err means the key was absent rather than the store failing.
func IsNotFound(err error) bool {
	return errors.Is(err, errors.ErrNotFound)
}

func notFound(key string) error {
	return errors.Wrapf(errors.ErrNotFound, "key %q", key)
}

func unavailable(op string, err error) error {
	return errors.Wrapf(errors.Join(errors.ErrUnavailable, err), "%s", op)
}
