package store

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/mitchellh/go-homedir"
	"go.uber.org/zap"

	"github.com/xkilldash9x/formrl/internal/learning"
)

// FileStore keeps knowledge in a single JSON file.
type FileStore struct {
	path string
	log  *zap.Logger
}

var _ KnowledgeStore = (*FileStore)(nil)

// NewFileStore returns a store at path. A leading ~ is expanded.
func NewFileStore(path string, logger *zap.Logger) (*FileStore, error) {
	expanded, err := homedir.Expand(path)
	if err != nil {
		return nil, fmt.Errorf("failed to expand knowledge path %q: %w", path, err)
	}
	return &FileStore{path: expanded, log: logger.Named("store")}, nil
}

// Path is the resolved file location.
func (f *FileStore) Path() string { return f.path }

// Save writes k atomically: a temp file in the same directory is renamed
// over the target, so a crash never leaves a half-written snapshot.
func (f *FileStore) Save(ctx context.Context, k learning.Knowledge) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := encode(k)
	if err != nil {
		return err
	}

	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create knowledge directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".knowledge-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write knowledge: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync knowledge: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close knowledge file: %w", err)
	}
	if err := os.Rename(tmp.Name(), f.path); err != nil {
		return fmt.Errorf("failed to move knowledge into place: %w", err)
	}

	f.log.Info("Knowledge saved.",
		zap.String("path", f.path),
		zap.Int("states", len(k.Values)),
		zap.Int("episodes", k.Stats.Episodes))
	return nil
}

// Load reads the snapshot. A missing file yields ErrNotFound and an
// undecodable one ErrCorrupt.
func (f *FileStore) Load(ctx context.Context) (learning.Knowledge, error) {
	if err := ctx.Err(); err != nil {
		return learning.Knowledge{}, err
	}
	data, err := os.ReadFile(f.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return learning.Knowledge{}, fmt.Errorf("%w: %s", ErrNotFound, f.path)
		}
		return learning.Knowledge{}, fmt.Errorf("failed to read knowledge: %w", err)
	}
	k, err := decode(data)
	if err != nil {
		return learning.Knowledge{}, fmt.Errorf("%s: %w", f.path, err)
	}
	f.log.Debug("Knowledge loaded.", zap.String("path", f.path), zap.Int("states", len(k.Values)))
	return k, nil
}
