package storage

import (
	"fmt"
	"time"

	"github.com/boltdb/bolt"
)

// BoltStore is an implementation of Store whose backend is a Bolt database.
// Values are stored as records, so that expiry survives restarts.
type BoltStore struct {
	db   *bolt.DB
	opts options
}

var (
	bucketName = []byte("blobs")
)

func NewBoltStore(db *bolt.DB, opts ...Option) (*BoltStore, error) {
	err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketName)
		if err != nil {
			return fmt.Errorf("could not ensure bucket %q exists: %w", bucketName, err)
		}
		return nil
	})
	return &BoltStore{db: db, opts: newOptions(opts)}, err
}

func (s *BoltStore) Put(key []byte, value []byte, ttl time.Duration) error {
	rec := encodeRecord(s.opts.now().Add(ttl), value)
	return s.db.Update(func(tx *bolt.Tx) error {
		if err := tx.Bucket(bucketName).Put(key, rec); err != nil {
			return fmt.Errorf("could not put %.40q with %d bytes: %w", key, len(value), err)
		}
		return nil
	})
}

func (s *BoltStore) Get(key []byte) (value []byte, err error) {
	now := s.opts.now()
	err = s.db.View(func(tx *bolt.Tx) error {
		rec := tx.Bucket(bucketName).Get(key)
		if rec == nil {
			return fmt.Errorf("%.40q: %w", key, ErrNotFound)
		}
		// The slice returned by bolt is only valid for the transaction;
		// decodeRecord copies the value out.
		deadline, v, err := decodeRecord(rec)
		if err != nil {
			return fmt.Errorf("%.40q: %w", key, err)
		}
		if expired(deadline, now) {
			return fmt.Errorf("%.40q: expired: %w", key, ErrNotFound)
		}
		value = v
		return nil
	})
	return value, err
}

// Sweep deletes all expired pairs in a single transaction.
func (s *BoltStore) Sweep() (removed int, err error) {
	now := s.opts.now()
	err = s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketName)
		var doomed [][]byte
		err := b.ForEach(func(k, rec []byte) error {
			if len(rec) < recordHeaderSize {
				return nil
			}
			deadline, _, err := decodeRecord(rec[:recordHeaderSize])
			if err == nil && expired(deadline, now) {
				doomed = append(doomed, dup(k))
			}
			return nil
		})
		if err != nil {
			return err
		}
		// Bolt does not allow mutating a bucket while iterating over it.
		for _, k := range doomed {
			if err := b.Delete(k); err != nil {
				return fmt.Errorf("could not delete %.40q: %w", k, err)
			}
		}
		removed = len(doomed)
		return nil
	})
	if err != nil {
		removed = 0
	}
	return removed, err
}
