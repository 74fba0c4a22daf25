package checkpoint

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/dgraph-io/badger/v4"
	"github.com/sirupsen/logrus"
)

// BadgerDir is the database directory used inside the results directory.
const BadgerDir = "checkpoints.badger"

// BadgerStore keeps a checkpoint as two keys written in one transaction.
type BadgerStore struct {
	name string
	db   *badger.DB
}

// NewBadgerStore opens a persistent database at path, or an in-memory one
// when path is empty.
func NewBadgerStore(path, name string) (*BadgerStore, error) {
	var opts badger.Options
	if path == "" {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(path, 0o755); err != nil {
			return nil, fmt.Errorf("create database directory %s: %w", path, err)
		}
		opts = badger.DefaultOptions(path).WithSyncWrites(true)
	}
	opts = opts.WithNumVersionsToKeep(1)
	if logrus.IsLevelEnabled(logrus.DebugLevel) {
		opts = opts.WithLogger(logrus.WithField("component", "badger"))
	} else {
		opts = opts.WithLogger(nil)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger database: %w", err)
	}
	return &BadgerStore{name: name, db: db}, nil
}

func (s *BadgerStore) arrayKey() []byte      { return []byte("checkpoint/" + s.name + "/npy") }
func (s *BadgerStore) provenanceKey() []byte { return []byte("checkpoint/" + s.name + "/provenance") }

func (s *BadgerStore) Load(ctx context.Context) (*Checkpoint, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	var array, provenance []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(s.arrayKey())
		if err != nil {
			return err
		}
		if array, err = item.ValueCopy(nil); err != nil {
			return err
		}
		item, err = txn.Get(s.provenanceKey())
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		provenance, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("read checkpoint %s: %w", s.name, err)
	}
	cp, err := decode(array, provenance)
	if err != nil {
		return nil, false, fmt.Errorf("decode checkpoint %s: %w", s.name, err)
	}
	return cp, true, nil
}

func (s *BadgerStore) Save(ctx context.Context, cp *Checkpoint) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	array, provenance, err := encode(cp)
	if err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(s.arrayKey(), array); err != nil {
			return err
		}
		return txn.Set(s.provenanceKey(), provenance)
	})
}

func (s *BadgerStore) Close() error { return s.db.Close() }
