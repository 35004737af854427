package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

const (
	// fileFormatVersion is written into every store file. Files with another version are reset.
	fileFormatVersion = 1

	defaultFileLockTimeout       = 10 * time.Second
	defaultFileLockRetryInterval = 10 * time.Millisecond
)

// errCorruptFile marks content that was read but cannot be used. Such a file is reset;
// any other read failure leaves the store unavailable.
var errCorruptFile = errors.New("corrupt store file")

// fileContents is the YAML document persisted on disk.
type fileContents struct {
	Version int               `yaml:"version"`
	Values  map[string]string `yaml:"values"`
}

// FileOption configures a FileKV.
type FileOption func(*FileKV)

// WithFileLockTimeout bounds how long an operation waits for another process to release the file.
func WithFileLockTimeout(d time.Duration) FileOption {
	return func(f *FileKV) {
		f.lockTimeout = d
	}
}

// WithFileLogger sets the logger used to report corrupt files.
func WithFileLogger(logger zerolog.Logger) FileOption {
	return func(f *FileKV) {
		f.logger = logger
	}
}

// FileKV persists values in a single YAML file. Every operation holds an exclusive
// lock on "<path>.lock", so processes sharing the file see each other's writes.
type FileKV struct {
	mu          sync.Mutex // flock does not exclude goroutines sharing one handle
	path        string
	lock        *flock.Flock
	lockTimeout time.Duration
	logger      zerolog.Logger
}

var _ KV = (*FileKV)(nil)

// NewFileKV returns a KV backed by the file at path. The file and its directory are
// created on first write.
func NewFileKV(path string, options ...FileOption) *FileKV {
	f := &FileKV{
		path:        path,
		lock:        flock.New(path + ".lock"),
		lockTimeout: defaultFileLockTimeout,
		logger:      log.Logger,
	}
	for _, opt := range options {
		opt(f)
	}
	return f
}

// Path returns the backing file location.
func (f *FileKV) Path() string {
	return f.path
}

func (f *FileKV) Get(ctx context.Context, key string) (string, error) {
	if _, err := os.Stat(f.path); errors.Is(err, os.ErrNotExist) {
		return "", notFound(key)
	}

	var (
		value string
		found bool
	)
	err := f.withFile(ctx, false, func(c *fileContents) {
		value, found = c.Values[key]
	})
	if err != nil {
		return "", err
	}
	if !found {
		return "", notFound(key)
	}
	return value, nil
}

func (f *FileKV) Set(ctx context.Context, key, value string) error {
	return f.withFile(ctx, true, func(c *fileContents) {
		c.Values[key] = value
	})
}

func (f *FileKV) Delete(ctx context.Context, key string) error {
	if _, err := os.Stat(f.path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return f.withFile(ctx, true, func(c *fileContents) {
		delete(c.Values, key)
	})
}

func (f *FileKV) Clear(ctx context.Context) error {
	if _, err := os.Stat(f.path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return f.withFile(ctx, true, func(c *fileContents) {
		c.Values = make(map[string]string)
	})
}

// withFile locks the file, loads it, applies fn, and writes it back when write is set.
func (f *FileKV) withFile(ctx context.Context, write bool, fn func(*fileContents)) error {
	if err := os.MkdirAll(filepath.Dir(f.path), 0700); err != nil {
		return unavailable("create store directory", err)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	lockCtx, cancel := context.WithTimeout(ctx, f.lockTimeout)
	defer cancel()
	locked, err := f.lock.TryLockContext(lockCtx, defaultFileLockRetryInterval)
	if err != nil || !locked {
		if err == nil {
			err = fmt.Errorf("lock %s not acquired", f.lock.Path())
		}
		return unavailable("lock store file", err)
	}
	defer func() {
		if err := f.lock.Unlock(); err != nil {
			f.logger.Warn().Err(err).Str("path", f.path).Msg("Failed to unlock token store file")
		}
	}()

	contents, err := readFileContents(f.path)
	switch {
	case errors.Is(err, errCorruptFile):
		f.logger.Warn().Err(err).Str("path", f.path).Msg("Token store file corrupt, resetting")
		contents = emptyFileContents()
	case err != nil:
		return unavailable("read store file", err)
	}

	fn(contents)

	if !write {
		return nil
	}
	if err := contents.writeTo(f.path); err != nil {
		return unavailable("write store file", err)
	}
	return nil
}

func emptyFileContents() *fileContents {
	return &fileContents{
		Version: fileFormatVersion,
		Values:  make(map[string]string),
	}
}

func readFileContents(path string) (*fileContents, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return emptyFileContents(), nil
		}
		return nil, fmt.Errorf("could not read store file: %w", err)
	}

	var contents fileContents
	if err := yaml.Unmarshal(data, &contents); err != nil {
		return nil, fmt.Errorf("%w: %w", errCorruptFile, err)
	}
	if contents.Version != fileFormatVersion {
		return nil, fmt.Errorf("%w: unsupported version %d", errCorruptFile, contents.Version)
	}
	if contents.Values == nil {
		contents.Values = make(map[string]string)
	}
	return &contents, nil
}

// writeTo replaces the file atomically so a crashed write never leaves half a document.
func (c *fileContents) writeTo(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) //nolint:errcheck // already renamed on success

	if err := tmp.Chmod(0600); err != nil {
		tmp.Close()
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}
