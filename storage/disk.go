package storage

import (
	"crypto/sha512"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"
)

// DiskStore implements Store and Sweeper. Each pair is a file holding a
// record, that is, the deadline followed by the value.
type DiskStore struct {
	dir  string
	opts options
}

func NewDiskStore(dir string, opts ...Option) *DiskStore {
	return &DiskStore{dir: dir, opts: newOptions(opts)}
}

func (s *DiskStore) Put(key, value []byte, ttl time.Duration) (err error) {
	valpath := s.pathFor(key)
	rec := encodeRecord(s.opts.now().Add(ttl), value)
	err = os.WriteFile(valpath, rec, 0600)
	if err == nil {
		return nil
	}
	if !os.IsNotExist(err) {
		return fmt.Errorf("could not write %q: %w", valpath, err)
	}
	if err = os.MkdirAll(filepath.Dir(valpath), 0700); err != nil {
		return fmt.Errorf("could not make dir for %q: %w", valpath, err)
	}
	return os.WriteFile(valpath, rec, 0600)
}

func (s *DiskStore) Get(key []byte) (value []byte, err error) {
	valpath := s.pathFor(key)
	rec, err := os.ReadFile(valpath)
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("%x: %w", key, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	deadline, value, err := decodeRecord(rec)
	if err != nil {
		return nil, fmt.Errorf("%q: %w", valpath, err)
	}
	if expired(deadline, s.opts.now()) {
		return nil, fmt.Errorf("%x: expired: %w", key, ErrNotFound)
	}
	return value, nil
}

// Sweep walks the data directory removing files whose deadline has passed.
// Files that cannot be decoded are left alone.
func (s *DiskStore) Sweep() (removed int, err error) {
	now := s.opts.now()
	err = filepath.WalkDir(s.dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return err
		}
		if d.IsDir() {
			return nil
		}
		deadline, err := readDeadline(path)
		if err != nil || !expired(deadline, now) {
			return nil
		}
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return err
		}
		removed++
		return nil
	})
	return removed, err
}

// readDeadline reads only the record header, as values can be large.
func readDeadline(path string) (time.Time, error) {
	f, err := os.Open(path)
	if err != nil {
		return time.Time{}, err
	}
	defer func() {
		_ = f.Close()
	}()
	header := make([]byte, recordHeaderSize)
	if _, err := io.ReadFull(f, header); err != nil {
		return time.Time{}, err
	}
	deadline, _, err := decodeRecord(header)
	return deadline, err
}

func (s *DiskStore) pathFor(key []byte) string {
	// Prevent ENAMETOOLONG, while retaining low probability of clashes. The
	// empty key is hashed too, so that it still gets a fan-out directory.
	if len(key) == 0 || len(key) > sha512.Size {
		hash := sha512.Sum512(key)
		key = hash[:]
	}
	hex := fmt.Sprintf("%02x", key)
	return filepath.Join(s.dir, hex[:2], hex)
}
