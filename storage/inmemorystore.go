package storage

import (
	"fmt"
	"sync"
	"time"
)

type entry struct {
	value    []byte
	deadline time.Time
}

// InMemoryStore is a Store implementation powered by a map, to be used for
// testing or single-process deployments. Expired pairs are dropped when they
// are looked up, or by Sweep.
type InMemoryStore struct {
	opts options

	sync.Mutex
	m map[string]entry
}

func NewInMemoryStore(opts ...Option) *InMemoryStore {
	return &InMemoryStore{
		opts: newOptions(opts),
		m:    make(map[string]entry),
	}
}

func (s *InMemoryStore) Put(key, value []byte, ttl time.Duration) (err error) {
	e := entry{
		value:    dup(value),
		deadline: s.opts.now().Add(ttl),
	}
	s.Lock()
	s.m[string(key)] = e
	s.Unlock()
	return nil
}

func (s *InMemoryStore) Get(key []byte) (value []byte, err error) {
	now := s.opts.now()
	s.Lock()
	e, ok := s.m[string(key)]
	if ok && expired(e.deadline, now) {
		delete(s.m, string(key))
		ok = false
	}
	s.Unlock()
	if !ok {
		return nil, fmt.Errorf("%.40q: %w", key, ErrNotFound)
	}
	return dup(e.value), nil
}

func (s *InMemoryStore) Sweep() (removed int, err error) {
	now := s.opts.now()
	s.Lock()
	defer s.Unlock()
	for k, e := range s.m {
		if expired(e.deadline, now) {
			delete(s.m, k)
			removed++
		}
	}
	return removed, nil
}

// Len returns the number of pairs held, expired or not.
func (s *InMemoryStore) Len() int {
	s.Lock()
	defer s.Unlock()
	return len(s.m)
}
