package checkpoint

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteFile is the database file used inside the results directory.
const SQLiteFile = "checkpoints.db"

// SQLiteStore keeps every checkpoint of a results directory in one database,
// one row per checkpoint name.
type SQLiteStore struct {
	name string
	db   *sql.DB
}

// NewSQLiteStore opens (creating if needed) the database at path.
func NewSQLiteStore(ctx context.Context, path, name string) (*SQLiteStore, error) {
	if path == "" {
		return nil, errors.New("sqlite path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create results directory: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := createTables(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &SQLiteStore{name: name, db: db}, nil
}

func (s *SQLiteStore) Load(ctx context.Context) (*Checkpoint, bool, error) {
	var array, provenance []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT payload, provenance FROM checkpoints WHERE name = ?`, s.name).Scan(&array, &provenance)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, err
	}
	cp, err := decode(array, provenance)
	if err != nil {
		return nil, false, fmt.Errorf("decode checkpoint %s: %w", s.name, err)
	}
	return cp, true, nil
}

func (s *SQLiteStore) Save(ctx context.Context, cp *Checkpoint) error {
	array, provenance, err := encode(cp)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO checkpoints (name, runs, payload, provenance, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			runs = excluded.runs,
			payload = excluded.payload,
			provenance = excluded.provenance,
			updated_at = excluded.updated_at
	`, s.name, cp.Runs(), array, provenance, time.Now().UTC().Format(time.RFC3339Nano))
	return err
}

func (s *SQLiteStore) Close() error { return s.db.Close() }

func createTables(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS checkpoints (
			name TEXT PRIMARY KEY,
			runs INTEGER NOT NULL,
			payload BLOB NOT NULL,
			provenance BLOB NOT NULL,
			updated_at TEXT NOT NULL
		);
	`)
	return err
}
