package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/boltdb/bolt"
	"github.com/nicolagi/netbolt/storage"
)

// openStore returns the configured store and a function releasing its
// resources.
func openStore(c *config) (store storage.Store, closer func() error, err error) {
	closer = func() error { return nil }
	b := c.Backend
	switch b.Type {
	case "memory":
		store = storage.NewInMemoryStore()
	case "disk":
		if b.Path == "" {
			return nil, nil, fmt.Errorf("backend %q requires a path", b.Type)
		}
		if err := os.MkdirAll(b.Path, 0700); err != nil {
			return nil, nil, fmt.Errorf("could not ensure directory %q exists: %w", b.Path, err)
		}
		store = storage.NewDiskStore(b.Path)
	case "bolt":
		if b.Path == "" {
			return nil, nil, fmt.Errorf("backend %q requires a path", b.Type)
		}
		if err := os.MkdirAll(filepath.Dir(b.Path), 0700); err != nil {
			return nil, nil, fmt.Errorf("could not ensure directory for %q exists: %w", b.Path, err)
		}
		db, err := bolt.Open(b.Path, 0600, nil)
		if err != nil {
			return nil, nil, fmt.Errorf("could not open database %q: %w", b.Path, err)
		}
		if store, err = storage.NewBoltStore(db); err != nil {
			_ = db.Close()
			return nil, nil, fmt.Errorf("could not instantiate boltdb store at %q: %w", b.Path, err)
		}
		closer = db.Close
	case "badger":
		db, err := storage.OpenBadger(b.Path)
		if err != nil {
			return nil, nil, err
		}
		store = storage.NewBadgerStore(db)
		closer = db.Close
	case "redis":
		rs, err := storage.NewRedisStore(storage.RedisConfig{
			Address:  b.Address,
			Password: b.Password,
			DB:       b.DB,
			Prefix:   b.Prefix,
		})
		if err != nil {
			return nil, nil, err
		}
		store = rs
		closer = rs.Close
	case "s3":
		store = storage.NewS3(b.Profile, b.Region, b.Bucket)
	case "dynamodb":
		if store, err = storage.NewDynamoDBStore(b.Profile, b.Region, b.Table); err != nil {
			return nil, nil, fmt.Errorf("could not instantiate dynamodb store for table %q: %w", b.Table, err)
		}
	default:
		return nil, nil, fmt.Errorf("unknown backend type %q", b.Type)
	}
	if b.GetsPerSecond > 0 || b.PutsPerSecond > 0 {
		store = storage.NewThrottled(store, b.GetsPerSecond, b.PutsPerSecond)
	}
	return store, closer, nil
}
