package events

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	badgerdb "github.com/dgraph-io/badger/v4"
)

// Key layout: "ev:" + 8 byte big-endian unix nanos + ":" + event ID.
// Big-endian timestamps keep keys in chronological order, so a reverse
// prefix scan yields newest first.
var prefixEvent = []byte("ev:")

// BadgerStore journals events in an embedded BadgerDB.
type BadgerStore struct {
	db *badgerdb.DB
}

// NewBadgerStore opens (or creates) a BadgerDB at path.
func NewBadgerStore(path string) (*BadgerStore, error) {
	if err := os.MkdirAll(path, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create badger directory: %w", err)
	}

	opts := badgerdb.DefaultOptions(path).WithLogger(nil)
	db, err := badgerdb.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger database: %w", err)
	}
	return &BadgerStore{db: db}, nil
}

func eventKey(e *Event) []byte {
	ns := uint64(e.Time.UnixNano())
	key := make([]byte, 0, len(prefixEvent)+9+len(e.ID))
	key = append(key, prefixEvent...)
	for shift := 56; shift >= 0; shift -= 8 {
		key = append(key, byte(ns>>uint(shift)))
	}
	key = append(key, ':')
	return append(key, e.ID...)
}

func (s *BadgerStore) Record(ctx context.Context, e *Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	e.prepare()

	val, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}
	return s.db.Update(func(txn *badgerdb.Txn) error {
		return txn.Set(eventKey(e), val)
	})
}

func (s *BadgerStore) List(ctx context.Context, f Filter) ([]Event, error) {
	limit := f.limit()
	var out []Event

	err := s.db.View(func(txn *badgerdb.Txn) error {
		opts := badgerdb.DefaultIteratorOptions
		opts.Prefix = prefixEvent
		opts.Reverse = true

		it := txn.NewIterator(opts)
		defer it.Close()

		seek := append(append([]byte{}, prefixEvent...), 0xFF)
		for it.Seek(seek); it.ValidForPrefix(prefixEvent) && len(out) < limit; it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}

			var e Event
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &e)
			}); err != nil {
				return fmt.Errorf("failed to decode event: %w", err)
			}

			if !f.Since.IsZero() && e.Time.Before(f.Since) {
				break
			}
			if f.match(&e) {
				out = append(out, e)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *BadgerStore) Purge(ctx context.Context) (int, error) {
	var keys [][]byte
	err := s.db.View(func(txn *badgerdb.Txn) error {
		opts := badgerdb.DefaultIteratorOptions
		opts.Prefix = prefixEvent
		opts.PrefetchValues = false

		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			keys = append(keys, it.Item().KeyCopy(nil))
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	wb := s.db.NewWriteBatch()
	defer wb.Cancel()
	for _, k := range keys {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		if err := wb.Delete(k); err != nil {
			return 0, fmt.Errorf("failed to delete event: %w", err)
		}
	}
	if err := wb.Flush(); err != nil {
		return 0, fmt.Errorf("failed to flush deletes: %w", err)
	}
	return len(keys), nil
}

func (s *BadgerStore) Healthcheck(ctx context.Context) error {
	if s.db.IsClosed() {
		return ErrClosed
	}
	return s.db.View(func(*badgerdb.Txn) error { return ctx.Err() })
}

func (s *BadgerStore) Close() error {
	return s.db.Close()
}

var _ Store = (*BadgerStore)(nil)
