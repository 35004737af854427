package storage_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	interrors "github.com/jrsteele09/go-crud-session/internal/errors"
	"github.com/jrsteele09/go-crud-session/storage"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileKV(t *testing.T) {
	exerciseKV(t, storage.NewFileKV(filepath.Join(t.TempDir(), "nested", "tokens.yaml")))
}

func TestFileKV_SurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "tokens.yaml")

	first := storage.NewFileKV(path)
	require.NoError(t, first.Set(ctx, "access_token", "abc"))

	second := storage.NewFileKV(path)
	v, err := second.Get(ctx, "access_token")
	require.NoError(t, err)
	require.Equal(t, "abc", v)

	require.NoError(t, second.Clear(ctx))
	_, err = first.Get(ctx, "access_token")
	require.True(t, storage.IsNotFound(err))
}

func TestFileKV_FilePermissions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tokens.yaml")
	kv := storage.NewFileKV(path)
	require.NoError(t, kv.Set(context.Background(), "k", "v"))

	info, err := os.Stat(path)
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0600), info.Mode().Perm())
}

func TestFileKV_CorruptFileResets(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "tokens.yaml")
	require.NoError(t, os.WriteFile(path, []byte("{{{ not yaml"), 0600))

	kv := storage.NewFileKV(path, storage.WithFileLogger(zerolog.Nop()))
	_, err := kv.Get(ctx, "access_token")
	require.True(t, storage.IsNotFound(err))

	require.NoError(t, kv.Set(ctx, "access_token", "fresh"))
	v, err := kv.Get(ctx, "access_token")
	require.NoError(t, err)
	require.Equal(t, "fresh", v)
}

func TestFileKV_UnreadableFileIsUnavailable(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "tokens.yaml")
	// A directory in place of the file fails to read on every platform, even as root.
	require.NoError(t, os.Mkdir(path, 0700))

	var logs bytes.Buffer
	kv := storage.NewFileKV(path, storage.WithFileLogger(zerolog.New(&logs)))

	_, err := kv.Get(ctx, "access_token")
	require.True(t, interrors.Is(err, interrors.ErrUnavailable))
	require.False(t, storage.IsNotFound(err))

	err = kv.Set(ctx, "access_token", "fresh")
	require.True(t, interrors.Is(err, interrors.ErrUnavailable))
	require.True(t, interrors.Is(kv.Clear(ctx), interrors.ErrUnavailable))

	require.NotContains(t, logs.String(), "resetting")
	info, err := os.Stat(path)
	require.NoError(t, err)
	require.True(t, info.IsDir())
}

func TestFileKV_ConcurrentWriters(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "tokens.yaml")
	a, b := storage.NewFileKV(path), storage.NewFileKV(path)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		key := string(rune('a' + i))
		go func() {
			defer wg.Done()
			assert.NoError(t, a.Set(ctx, "a-"+key, key))
		}()
		go func() {
			defer wg.Done()
			assert.NoError(t, b.Set(ctx, "b-"+key, key))
		}()
	}
	wg.Wait()

	for i := 0; i < 20; i++ {
		key := string(rune('a' + i))
		v, err := a.Get(ctx, "b-"+key)
		require.NoError(t, err)
		require.Equal(t, key, v)
	}
}
