package kvfake

import (
	"context"
	"sync"

	"github.com/jrsteele09/go-crud-session/internal/errors"
	"github.com/jrsteele09/go-crud-session/storage"
)

// FakeKV is an in-memory KV whose operations can be switched to fail, simulating a
// backend that is full, locked, or disabled.
type FakeKV struct {
	*storage.MemoryKV

	mu      sync.Mutex
	failing bool
	calls   int
}

var _ storage.KV = (*FakeKV)(nil)

func NewFakeKV() *FakeKV {
	return &FakeKV{MemoryKV: storage.NewMemoryKV()}
}

// SetFailing makes every subsequent operation fail with errors.ErrUnavailable.
func (f *FakeKV) SetFailing(failing bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failing = failing
}

// Calls returns the number of operations attempted.
func (f *FakeKV) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *FakeKV) check() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.failing {
		return errors.Wrapf(errors.ErrUnavailable, "fake kv")
	}
	return nil
}

func (f *FakeKV) Get(ctx context.Context, key string) (string, error) {
	if err := f.check(); err != nil {
		return "", err
	}
	return f.MemoryKV.Get(ctx, key)
}

func (f *FakeKV) Set(ctx context.Context, key, value string) error {
	if err := f.check(); err != nil {
		return err
	}
	return f.MemoryKV.Set(ctx, key, value)
}

func (f *FakeKV) Delete(ctx context.Context, key string) error {
	if err := f.check(); err != nil {
		return err
	}
	return f.MemoryKV.Delete(ctx, key)
}

func (f *FakeKV) Clear(ctx context.Context) error {
	if err := f.check(); err != nil {
		return err
	}
	return f.MemoryKV.Clear(ctx)
}
