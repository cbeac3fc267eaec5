package counter

import (
	"context"
	"fmt"
	"io"
	"strings"
)

// Backend names accepted by Open.
const (
	BackendMemory    = "memory"
	BackendFile      = "file"
	BackendFirestore = "firestore"
)

// Config selects and configures a Store.
type Config struct {
	Backend   string          `mapstructure:"backend"`
	Path      string          `mapstructure:"path"`
	Firestore FirestoreConfig `mapstructure:"firestore"`
}

// FirestoreConfig names the document holding the total.
type FirestoreConfig struct {
	Project    string `mapstructure:"project"`
	Collection string `mapstructure:"collection"`
	Document   string `mapstructure:"document"`
}

// DefaultConfig keeps the total in the per-user YAML file.
func DefaultConfig() Config {
	return Config{
		Backend: BackendFile,
		Firestore: FirestoreConfig{
			Collection: "projup",
			Document:   "stats",
		},
	}
}

// Open builds the Store described by cfg. The returned closer must be
// closed when the store is no longer needed.
func Open(ctx context.Context, cfg Config) (Store, io.Closer, error) {
	switch strings.ToLower(cfg.Backend) {
	case BackendMemory:
		return NewMemoryStore(0), nopCloser{}, nil
	case BackendFile, "":
		path := cfg.Path
		if path == "" {
			path = DefaultFilePath()
		}
		return NewFileStore(path), nopCloser{}, nil
	case BackendFirestore:
		client, err := NewFirestoreClient(ctx, cfg.Firestore.Project)
		if err != nil {
			return nil, nil, err
		}
		s := NewFirestoreStore(client, cfg.Firestore.Collection, cfg.Firestore.Document)
		return s, s, nil
	default:
		return nil, nil, fmt.Errorf("unknown counter backend %q", cfg.Backend)
	}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
