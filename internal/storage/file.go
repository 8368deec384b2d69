package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/facebookgo/atomicfile"
)

// FileBackend stores each key as <dir>/<key>.json. Writes go through a
// temporary file that is renamed over the target, so readers never observe
// a half-written collection.
type FileBackend struct {
	dir    string
	logger *slog.Logger
}

// NewFileBackend creates a file backend rooted at dir
func NewFileBackend(dir string, logger *slog.Logger) (*FileBackend, error) {
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}
	return &FileBackend{dir: dir, logger: logger}, nil
}

func (f *FileBackend) path(key string) string {
	return filepath.Join(f.dir, key+".json")
}

// Read returns the contents of the file for key
func (f *FileBackend) Read(ctx context.Context, key string) ([]byte, error) {
	if err := checkKey(key); err != nil {
		return nil, err
	}
	b, err := os.ReadFile(f.path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound
	}
	return b, err
}

// Write atomically replaces the file for key
func (f *FileBackend) Write(ctx context.Context, key string, value []byte) error {
	if err := checkKey(key); err != nil {
		return err
	}
	af, err := atomicfile.New(f.path(key), 0600)
	if err != nil {
		return fmt.Errorf("opening %s: %w", key, err)
	}
	if _, err := af.Write(value); err != nil {
		_ = af.Abort()
		return fmt.Errorf("writing %s: %w", key, err)
	}
	return af.Close()
}

// Delete removes the file for key
func (f *FileBackend) Delete(ctx context.Context, key string) error {
	if err := checkKey(key); err != nil {
		return err
	}
	err := os.Remove(f.path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

// Close is a no-op
func (f *FileBackend) Close() error { return nil }

// Migrate checks that the data directory is writable
func (f *FileBackend) Migrate(ctx context.Context) error {
	probe, err := os.CreateTemp(f.dir, ".probe-*")
	if err != nil {
		return fmt.Errorf("data directory not writable: %w", err)
	}
	name := probe.Name()
	probe.Close()
	_ = os.Remove(name)

	f.logger.Info("file storage ready", "dir", f.dir)
	return nil
}
