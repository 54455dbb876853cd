package storage

import (
	"errors"
	"fmt"
	"time"

	badger "github.com/dgraph-io/badger/v3"
	log "github.com/sirupsen/logrus"
)

// BadgerStore is an implementation of Store backed by a Badger database,
// which expires entries natively. Badger tracks deadlines with a resolution
// of one second.
type BadgerStore struct {
	db *badger.DB
}

func NewBadgerStore(db *badger.DB) *BadgerStore {
	return &BadgerStore{db: db}
}

// OpenBadger opens (creating if needed) a Badger database in dir. An empty
// dir opens an in-memory database. Badger's own logging goes through logrus.
func OpenBadger(dir string) (*badger.DB, error) {
	opts := badger.DefaultOptions(dir).
		WithLogger(log.WithField("component", "badger")).
		WithLoggingLevel(badger.WARNING)
	if dir == "" {
		opts = opts.WithInMemory(true)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("could not open badger database at %q: %w", dir, err)
	}
	return db, nil
}

func (s *BadgerStore) Put(key, value []byte, ttl time.Duration) error {
	return s.db.Update(func(txn *badger.Txn) error {
		e := badger.NewEntry(dup(key), dup(value)).WithTTL(ttl)
		if err := txn.SetEntry(e); err != nil {
			return fmt.Errorf("could not put %.40q with %d bytes: %w", key, len(value), err)
		}
		return nil
	})
}

func (s *BadgerStore) Get(key []byte) (value []byte, err error) {
	err = s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("%.40q: %w", key, ErrNotFound)
		}
		if err != nil {
			return err
		}
		value, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		return nil, err
	}
	if value == nil {
		value = []byte{}
	}
	return value, nil
}

// Sweep runs value log garbage collection until Badger finds nothing left to
// rewrite. Expired entries are invisible to Get already; this reclaims their
// space. Badger does not report how many entries went away, so removed is
// always zero.
func (s *BadgerStore) Sweep() (removed int, err error) {
	for {
		err = s.db.RunValueLogGC(0.5)
		switch {
		case err == nil:
			continue
		case errors.Is(err, badger.ErrNoRewrite), errors.Is(err, badger.ErrGCInMemoryMode):
			return 0, nil
		default:
			return 0, err
		}
	}
}
