package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore is an implementation of Store backed by Redis, which expires
// keys natively.
type RedisStore struct {
	client  *redis.Client
	prefix  string
	timeout time.Duration
}

type RedisConfig struct {
	Address  string
	Password string
	DB       int
	// Prefix is prepended to every key, so that a Redis database can be
	// shared with other applications.
	Prefix string
	// Timeout bounds each round trip. Zero means five seconds.
	Timeout time.Duration
}

// NewRedisStore connects to Redis and checks the connection with a PING.
func NewRedisStore(c RedisConfig) (*RedisStore, error) {
	if c.Address == "" {
		return nil, errors.New("redis address cannot be empty")
	}
	if c.Timeout == 0 {
		c.Timeout = 5 * time.Second
	}
	client := redis.NewClient(&redis.Options{
		Addr:         c.Address,
		Password:     c.Password,
		DB:           c.DB,
		ReadTimeout:  c.Timeout,
		WriteTimeout: c.Timeout,
	})
	s := &RedisStore{client: client, prefix: c.Prefix, timeout: c.Timeout}
	ctx, cancel := s.context()
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("could not connect to redis at %q: %w", c.Address, err)
	}
	return s, nil
}

func (s *RedisStore) Put(key, value []byte, ttl time.Duration) error {
	// Redis reads a zero expiration as "never expire".
	if ttl <= 0 {
		return nil
	}
	ctx, cancel := s.context()
	defer cancel()
	if err := s.client.Set(ctx, s.keyFor(key), value, ttl).Err(); err != nil {
		return fmt.Errorf("could not put %.40q with %d bytes: %w", key, len(value), err)
	}
	return nil
}

func (s *RedisStore) Get(key []byte) (value []byte, err error) {
	ctx, cancel := s.context()
	defer cancel()
	value, err = s.client.Get(ctx, s.keyFor(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("%.40q: %w", key, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	if value == nil {
		value = []byte{}
	}
	return value, nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}

func (s *RedisStore) keyFor(key []byte) string {
	return s.prefix + string(key)
}

func (s *RedisStore) context() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), s.timeout)
}
