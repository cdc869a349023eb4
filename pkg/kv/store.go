package kv

import (
	"context"
	"errors"
	"fmt"

	"github.com/cockroachdb/pebble"
	"github.com/cockroachdb/pebble/vfs"
	"github.com/dgraph-io/badger/v4"
)

var ErrKeyNotFound = errors.New("key not found")

type batchData struct {
	key   []byte
	value []byte
	// delete removes key, value is ignored.
	delete bool
}

// Store is the key value engine under KVDB.
type Store interface {
	// Get returns ErrKeyNotFound for a missing key.
	Get(key []byte) ([]byte, error)
	WriteBatch(ctx context.Context, batch []batchData) error
	Close() error
}

type badgerStore struct {
	db *badger.DB
}

func NewBadgerStore(db *badger.DB) Store {
	return &badgerStore{db: db}
}

// OpenBadger opens a badger store in dir, or in memory if dir is empty.
func OpenBadger(dir string) (Store, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	if dir == "" {
		opts = opts.WithInMemory(true)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger db: %w", err)
	}
	return NewBadgerStore(db), nil
}

func (s *badgerStore) Get(key []byte) ([]byte, error) {
	var val []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			return err
		}

		val, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrKeyNotFound
	}
	return val, err
}

func (s *badgerStore) WriteBatch(ctx context.Context, data []batchData) error {
	batch := s.db.NewWriteBatch()
	defer batch.Cancel()

	for _, d := range data {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		var err error
		if d.delete {
			err = batch.Delete(d.key)
		} else {
			err = batch.Set(d.key, d.value)
		}
		if err != nil {
			return err
		}
	}

	return batch.Flush()
}

func (s *badgerStore) Close() error {
	return s.db.Close()
}

type pebbleStore struct {
	db *pebble.DB
}

// OpenPebble opens a pebble store in dir, or in memory if dir is empty.
func OpenPebble(dir string) (Store, error) {
	opts := &pebble.Options{}
	if dir == "" {
		opts.FS = vfs.NewMem()
	}
	db, err := pebble.Open(dir, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open pebble db: %w", err)
	}
	return &pebbleStore{db: db}, nil
}

func (s *pebbleStore) Get(key []byte) ([]byte, error) {
	val, closer, err := s.db.Get(key)
	if errors.Is(err, pebble.ErrNotFound) {
		return nil, ErrKeyNotFound
	}
	if err != nil {
		return nil, err
	}
	defer closer.Close()

	out := make([]byte, len(val))
	copy(out, val)
	return out, nil
}

func (s *pebbleStore) WriteBatch(ctx context.Context, data []batchData) error {
	batch := s.db.NewBatch()
	defer batch.Close()

	for _, d := range data {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		var err error
		if d.delete {
			err = batch.Delete(d.key, nil)
		} else {
			err = batch.Set(d.key, d.value, nil)
		}
		if err != nil {
			return err
		}
	}

	return batch.Commit(pebble.Sync)
}

func (s *pebbleStore) Close() error {
	return s.db.Close()
}

// OpenStore opens the engine named by engine ("badger" or "pebble").
func OpenStore(engine, dir string) (Store, error) {
	switch engine {
	case "badger", "":
		return OpenBadger(dir)
	case "pebble":
		return OpenPebble(dir)
	default:
		return nil, fmt.Errorf("unknown kv engine %q", engine)
	}
}
