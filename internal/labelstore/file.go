// Package labelstore holds the local-file implementation of
// domain.LabelStore, the default when no shared backend is configured.
package labelstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/alanyoungcy/polyportfolio/internal/domain"
)

// FileStore keeps the slug to sector map as a flat JSON object on disk.
type FileStore struct {
	path string
}

// NewFileStore creates a FileStore writing to path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Load reads the document. A missing file is an empty map; a corrupt one
// wraps domain.ErrCorruptLabels.
func (s *FileStore) Load(ctx context.Context) (map[string]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("labelstore: read %s: %w", s.path, err)
	}

	labels := map[string]string{}
	if len(data) == 0 {
		return labels, nil
	}
	if err := json.Unmarshal(data, &labels); err != nil {
		return nil, fmt.Errorf("labelstore: decode %s: %w: %w", s.path, domain.ErrCorruptLabels, err)
	}
	return labels, nil
}

// Save writes labels to a temporary file in the same directory and renames
// it over the document, so readers never observe a partial write.
func (s *FileStore) Save(ctx context.Context, labels map[string]string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.MarshalIndent(labels, "", "  ")
	if err != nil {
		return fmt.Errorf("labelstore: encode: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("labelstore: mkdir %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".sector_labels-*.json")
	if err != nil {
		return fmt.Errorf("labelstore: create temp: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("labelstore: write temp: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("labelstore: close temp: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("labelstore: rename to %s: %w", s.path, err)
	}
	return nil
}

var _ domain.LabelStore = (*FileStore)(nil)
