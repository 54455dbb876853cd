package storage_test

import (
	"bytes"
	"crypto/rand"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/boltdb/bolt"
	"github.com/nicolagi/netbolt/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock is a settable time source for stores that evaluate expiry
// themselves.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2020, 4, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type storeSetup func(t *testing.T, clock *fakeClock) (s storage.Store, teardown func())

func TestStoreImplementations(t *testing.T) {
	testCases := []struct {
		name  string
		setup storeSetup
	}{
		{
			name: "Store implementation backed by a BoltDB",
			setup: func(t *testing.T, clock *fakeClock) (s storage.Store, teardown func()) {
				path := filepath.Join(t.TempDir(), "blobs.db")
				db, err := bolt.Open(path, 0600, nil)
				require.Nil(t, err)
				store, err := storage.NewBoltStore(db, storage.WithClock(clock.Now))
				require.Nil(t, err)
				return store, func() {
					_ = db.Close()
				}
			},
		},
		{
			name: "Store implementation backed by a map",
			setup: func(t *testing.T, clock *fakeClock) (s storage.Store, teardown func()) {
				return storage.NewInMemoryStore(storage.WithClock(clock.Now)), func() {
					// Nothing to do.
				}
			},
		},
		{
			name: "Store implementation backed by a host filesystem directory",
			setup: func(t *testing.T, clock *fakeClock) (s storage.Store, teardown func()) {
				return storage.NewDiskStore(t.TempDir(), storage.WithClock(clock.Now)), func() {}
			},
		},
		{
			name: "Throttled store backed by a map",
			setup: func(t *testing.T, clock *fakeClock) (s storage.Store, teardown func()) {
				inner := storage.NewInMemoryStore(storage.WithClock(clock.Now))
				return storage.NewThrottled(inner, 0, 0), func() {}
			},
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			clock := newFakeClock()
			store, teardown := tc.setup(t, clock)
			defer teardown()
			testStore(t, store)
			testExpiry(t, store, clock)
		})
	}
}

func TestBadgerStore(t *testing.T) {
	db, err := storage.OpenBadger("")
	require.Nil(t, err)
	defer func() {
		_ = db.Close()
	}()
	store := storage.NewBadgerStore(db)
	testStore(t, store)
	t.Run("pairs expire after their ttl", func(t *testing.T) {
		if testing.Short() {
			t.Skip("badger expiry has one second resolution")
		}
		key := randomKey()
		require.Nil(t, store.Put(key, []byte("short lived"), time.Second))
		time.Sleep(2100 * time.Millisecond)
		_, err := store.Get(key)
		assert.True(t, errors.Is(err, storage.ErrNotFound))
	})
	t.Run("sweep in memory mode is a no-op", func(t *testing.T) {
		removed, err := store.Sweep()
		assert.Nil(t, err)
		assert.Zero(t, removed)
	})
}

func TestRedisStore(t *testing.T) {
	addr := os.Getenv("NETBOLT_TEST_REDIS")
	if addr == "" {
		t.Skip("NETBOLT_TEST_REDIS not set")
	}
	store, err := storage.NewRedisStore(storage.RedisConfig{
		Address: addr,
		Prefix:  "netbolt-test:",
	})
	require.Nil(t, err)
	defer func() {
		_ = store.Close()
	}()
	testStore(t, store)
}

func TestSweepers(t *testing.T) {
	testCases := []struct {
		name  string
		setup storeSetup
	}{
		{
			name: "bolt",
			setup: func(t *testing.T, clock *fakeClock) (storage.Store, func()) {
				db, err := bolt.Open(filepath.Join(t.TempDir(), "blobs.db"), 0600, nil)
				require.Nil(t, err)
				store, err := storage.NewBoltStore(db, storage.WithClock(clock.Now))
				require.Nil(t, err)
				return store, func() { _ = db.Close() }
			},
		},
		{
			name: "map",
			setup: func(t *testing.T, clock *fakeClock) (storage.Store, func()) {
				return storage.NewInMemoryStore(storage.WithClock(clock.Now)), func() {}
			},
		},
		{
			name: "disk",
			setup: func(t *testing.T, clock *fakeClock) (storage.Store, func()) {
				return storage.NewDiskStore(t.TempDir(), storage.WithClock(clock.Now)), func() {}
			},
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			clock := newFakeClock()
			store, teardown := tc.setup(t, clock)
			defer teardown()
			sweeper, ok := store.(storage.Sweeper)
			require.True(t, ok)

			shortKey, longKey := randomKey(), randomKey()
			require.Nil(t, store.Put(shortKey, []byte("short"), time.Minute))
			require.Nil(t, store.Put(longKey, []byte("long"), time.Hour))

			removed, err := sweeper.Sweep()
			require.Nil(t, err)
			assert.Equal(t, 0, removed)

			clock.Advance(2 * time.Minute)
			removed, err = sweeper.Sweep()
			require.Nil(t, err)
			assert.Equal(t, 1, removed)

			value, err := store.Get(longKey)
			require.Nil(t, err)
			assert.Equal(t, []byte("long"), value)
		})
	}
}

func testStore(t *testing.T, store storage.Store) {
	const ttl = time.Hour
	t.Run("what you put is what you get", func(t *testing.T) {
		key := randomKey()
		err := store.Put(key, []byte("hello"), ttl)
		require.Nil(t, err)
		storedValue, err := store.Get(key)
		require.Nil(t, err)
		assert.Equal(t, []byte("hello"), storedValue)
	})
	t.Run("error on not existing key", func(t *testing.T) {
		key := randomKey()
		value, err := store.Get(key)
		assert.True(t, errors.Is(err, storage.ErrNotFound))
		assert.Nil(t, value)
	})
	t.Run("can put a nil value, get non-nil empty slice", func(t *testing.T) {
		key := randomKey()
		err := store.Put(key, nil, ttl)
		require.Nil(t, err)
		value, err := store.Get(key)
		assert.Nil(t, err)
		assert.Equal(t, []byte{}, value)
	})
	t.Run("can put an empty value", func(t *testing.T) {
		key := randomKey()
		err := store.Put(key, []byte{}, ttl)
		require.Nil(t, err)
		value, err := store.Get(key)
		assert.Nil(t, err)
		assert.Equal(t, []byte{}, value)
	})
	t.Run("large values survive intact", func(t *testing.T) {
		key := randomKey()
		before := make([]byte, 256<<10)
		_, _ = rand.Read(before)
		require.Nil(t, store.Put(key, before, ttl))
		after, err := store.Get(key)
		require.Nil(t, err)
		assert.True(t, bytes.Equal(before, after))
	})
	t.Run("mutating value should not affect stored pairs", func(t *testing.T) {
		key := randomKey()
		before := []byte("old value")
		if err := store.Put(key, before, ttl); err != nil {
			t.Fatalf("got %v, want nil", err)
		}
		copy(before, "new")
		after, err := store.Get(key)
		if err != nil {
			t.Fatalf("got %v, want nil", err)
		}
		if want := []byte("old value"); !bytes.Equal(want, after) {
			t.Errorf("got %q, want %q", after, want)
		}
	})
	t.Run("mutating returned value should not affect stored pairs", func(t *testing.T) {
		key := randomKey()
		require.Nil(t, store.Put(key, []byte("value"), ttl))
		first, err := store.Get(key)
		require.Nil(t, err)
		copy(first, "XXXXX")
		second, err := store.Get(key)
		require.Nil(t, err)
		assert.Equal(t, []byte("value"), second)
	})
}

func testExpiry(t *testing.T, store storage.Store, clock *fakeClock) {
	t.Run("pairs are readable until their ttl elapses", func(t *testing.T) {
		key := randomKey()
		require.Nil(t, store.Put(key, []byte("ephemeral"), 24*time.Hour))
		clock.Advance(24*time.Hour - time.Second)
		value, err := store.Get(key)
		require.Nil(t, err)
		assert.Equal(t, []byte("ephemeral"), value)
		clock.Advance(time.Second)
		value, err = store.Get(key)
		assert.True(t, errors.Is(err, storage.ErrNotFound))
		assert.Nil(t, value)
	})
	t.Run("zero ttl is never readable", func(t *testing.T) {
		key := randomKey()
		require.Nil(t, store.Put(key, []byte("gone"), 0))
		_, err := store.Get(key)
		assert.True(t, errors.Is(err, storage.ErrNotFound))
	})
}

func randomKey() []byte {
	key := make([]byte, 16)
	_, _ = rand.Read(key)
	return key
}
