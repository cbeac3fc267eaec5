package counter

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// fileDocument is the on-disk layout of a FileStore.
type fileDocument struct {
	LifetimeUpgrades int       `yaml:"lifetime_upgrades"`
	UpdatedAt        time.Time `yaml:"updated_at,omitempty"`
}

// FileStore keeps the total in a small YAML document.
type FileStore struct {
	path string
	now  func() time.Time
}

var _ Store = (*FileStore)(nil)

// NewFileStore returns a store backed by the YAML file at path. The file
// is created on first write.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path, now: time.Now}
}

// DefaultFilePath returns the per-user location of the counter file.
func DefaultFilePath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = "."
	}
	return filepath.Join(dir, "projup", "stats.yaml")
}

// Path returns the backing file.
func (f *FileStore) Path() string { return f.path }

func (f *FileStore) Read(context.Context) (int, error) {
	raw, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read %s: %w", f.path, err)
	}

	var doc fileDocument
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return 0, fmt.Errorf("parse %s: %w", f.path, err)
	}
	return doc.LifetimeUpgrades, nil
}

// Write replaces the file atomically via a temp file and rename.
func (f *FileStore) Write(_ context.Context, total int) error {
	raw, err := yaml.Marshal(fileDocument{LifetimeUpgrades: total, UpdatedAt: f.now().UTC()})
	if err != nil {
		return fmt.Errorf("encode counter: %w", err)
	}

	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, ".stats-*.yaml")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(raw); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write %s: %w", tmp.Name(), err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", tmp.Name(), err)
	}
	if err := os.Rename(tmp.Name(), f.path); err != nil {
		return fmt.Errorf("replace %s: %w", f.path, err)
	}
	return nil
}
