//go:build integration

package storage_test

import (
	"context"
	"testing"

	"github.com/jrsteele09/go-crud-session/storage"
	"github.com/stretchr/testify/require"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"
)

func TestRedisKV(t *testing.T) {
	ctx := context.Background()

	container, err := tcredis.Run(ctx, "redis:7-alpine")
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	url, err := container.ConnectionString(ctx)
	require.NoError(t, err)

	kv, err := storage.DialRedisKV(ctx, url, storage.WithRedisPrefix("test:"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = kv.Close() })

	exerciseKV(t, kv)

	other, err := storage.DialRedisKV(ctx, url, storage.WithRedisPrefix("other:"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = other.Close() })

	require.NoError(t, other.Set(ctx, "access_token", "kept"))
	require.NoError(t, kv.Set(ctx, "access_token", "cleared"))
	require.NoError(t, kv.Clear(ctx))

	v, err := other.Get(ctx, "access_token")
	require.NoError(t, err)
	require.Equal(t, "kept", v)
}
