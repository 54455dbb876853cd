package storage

import (
	"encoding/binary"
	"errors"
	"fmt"
	"time"
)

// Store represents a key-value store whose pairs expire.
type Store interface {
	// Put stores the value at the given key. The pair must not be returned by
	// Get once ttl has elapsed. There is no way to renew or delete a pair.
	Put(key, value []byte, ttl time.Duration) (err error)

	// Get should return ErrNotFound if the key is not in the store, including
	// when it was put but has since expired.
	Get(key []byte) (value []byte, err error)
}

// Sweeper is implemented by stores that do not purge expired pairs on their
// own. Sweep removes them and reports how many were removed.
type Sweeper interface {
	Sweep() (removed int, err error)
}

var (
	// ErrNotFound indicates a key is not in the store.
	ErrNotFound = errors.New("not found")

	errShortRecord = errors.New("record shorter than its deadline header")
)

type Option func(*options)

type options struct {
	now func() time.Time
}

// WithClock makes a store use the given function to tell the time, in place
// of time.Now. Only stores that evaluate expiry themselves honor it.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		o.now = now
	}
}

func newOptions(opts []Option) options {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// A record is how stores without native expiry persist a value: an 8-byte
// big-endian deadline in Unix nanoseconds, followed by the value.
const recordHeaderSize = 8

func encodeRecord(deadline time.Time, value []byte) []byte {
	rec := make([]byte, recordHeaderSize+len(value))
	binary.BigEndian.PutUint64(rec, uint64(deadline.UnixNano()))
	copy(rec[recordHeaderSize:], value)
	return rec
}

func decodeRecord(rec []byte) (deadline time.Time, value []byte, err error) {
	if len(rec) < recordHeaderSize {
		return time.Time{}, nil, fmt.Errorf("%d bytes: %w", len(rec), errShortRecord)
	}
	deadline = time.Unix(0, int64(binary.BigEndian.Uint64(rec)))
	value = dup(rec[recordHeaderSize:])
	return deadline, value, nil
}

func expired(deadline, now time.Time) bool {
	return !now.Before(deadline)
}

// dup returns a copy of b that is never nil.
func dup(b []byte) []byte {
	c := make([]byte, len(b))
	copy(c, b)
	return c
}
