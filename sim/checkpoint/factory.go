package checkpoint

import (
	"context"
	"fmt"
	"path/filepath"
)

// Backend names accepted by Open.
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
	BackendBadger = "badger"
)

// IsValidBackend reports whether kind names a known backend. Empty selects file.
func IsValidBackend(kind string) bool {
	switch kind {
	case "", BackendFile, BackendSQLite, BackendBadger:
		return true
	}
	return false
}

// Open returns the store for checkpoint name inside results directory dir.
func Open(ctx context.Context, kind, dir, name string) (Store, error) {
	switch kind {
	case "", BackendFile:
		return NewFileStore(dir, name), nil
	case BackendSQLite:
		return NewSQLiteStore(ctx, filepath.Join(dir, SQLiteFile), name)
	case BackendBadger:
		return NewBadgerStore(filepath.Join(dir, BadgerDir), name)
	default:
		return nil, fmt.Errorf("unsupported checkpoint backend: %s", kind)
	}
}
