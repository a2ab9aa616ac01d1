package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Open returns the database for the named backend. Persistent backends live
// under dataDir, which is created when missing.
func Open(backend, dataDir string) (Database, error) {
	switch strings.ToLower(strings.TrimSpace(backend)) {
	case "memory", "mem":
		return NewMemDB(), nil
	case "", "leveldb":
		if err := os.MkdirAll(dataDir, 0o755); err != nil {
			return nil, fmt.Errorf("storage: prepare data dir: %w", err)
		}
		return NewLevelDB(filepath.Join(dataDir, "state"))
	case "bolt", "bbolt":
		if err := os.MkdirAll(dataDir, 0o755); err != nil {
			return nil, fmt.Errorf("storage: prepare data dir: %w", err)
		}
		return NewBoltDB(filepath.Join(dataDir, "state.db"))
	default:
		return nil, fmt.Errorf("storage: unknown backend %q", backend)
	}
}
