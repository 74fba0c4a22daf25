package checkpoint

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// FileStore keeps <dir>/<name>.npy alongside a <dir>/<name>.yaml sidecar.
// Both are replaced by writing a temporary file and renaming it.
type FileStore struct {
	dir  string
	name string
}

// NewFileStore returns a store rooted at dir. The directory is created on first Save.
func NewFileStore(dir, name string) *FileStore {
	return &FileStore{dir: dir, name: name}
}

// ArrayPath returns the .npy path.
func (s *FileStore) ArrayPath() string { return filepath.Join(s.dir, s.name+".npy") }

// ProvenancePath returns the sidecar path.
func (s *FileStore) ProvenancePath() string { return filepath.Join(s.dir, s.name+".yaml") }

func (s *FileStore) Load(ctx context.Context) (*Checkpoint, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	array, err := os.ReadFile(s.ArrayPath())
	if errors.Is(err, fs.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("read checkpoint: %w", err)
	}
	provenance, err := os.ReadFile(s.ProvenancePath())
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, false, fmt.Errorf("read provenance: %w", err)
	}
	cp, err := decode(array, provenance)
	if err != nil {
		return nil, false, fmt.Errorf("%s: %w", s.ArrayPath(), err)
	}
	return cp, true, nil
}

func (s *FileStore) Save(ctx context.Context, cp *Checkpoint) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	array, provenance, err := encode(cp)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create results directory %s: %w", s.dir, err)
	}
	// The array is authoritative for resume, so it is replaced last.
	if err := writeAtomic(s.ProvenancePath(), provenance); err != nil {
		return err
	}
	return writeAtomic(s.ArrayPath(), array)
}

func (s *FileStore) Close() error { return nil }

func writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".tmp*")
	if err != nil {
		return fmt.Errorf("create temp file for %s: %w", path, err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("sync %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replace %s: %w", path, err)
	}
	return nil
}
