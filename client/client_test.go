package client_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/nicolagi/netbolt/client"
	"github.com/nicolagi/netbolt/server"
	"github.com/nicolagi/netbolt/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type brokenStore struct{}

func (brokenStore) Put([]byte, []byte, time.Duration) error { return errors.New("disk on fire") }
func (brokenStore) Get([]byte) ([]byte, error)              { return nil, errors.New("disk on fire") }

func newDisposableServer(t *testing.T, opts ...server.Option) *client.Client {
	t.Helper()
	opts = append([]server.Option{server.WithStore(storage.NewInMemoryStore())}, opts...)
	srv := httptest.NewServer(server.New(opts...))
	t.Cleanup(srv.Close)
	return client.New(srv.URL+"/", client.WithHTTPClient(srv.Client()))
}

func TestClient(t *testing.T) {
	ctx := context.Background()
	t.Run("write, read, size", func(t *testing.T) {
		c := newDisposableServer(t)
		id, err := c.Write(ctx, "token", []byte("hello"))
		require.Nil(t, err)
		data, err := c.Read(ctx, id)
		require.Nil(t, err)
		assert.Equal(t, []byte("hello"), data)
		size, err := c.Size(ctx, id)
		require.Nil(t, err)
		assert.EqualValues(t, 5, size)
	})
	t.Run("not found", func(t *testing.T) {
		c := newDisposableServer(t)
		_, err := c.Read(ctx, "nonexistent-id")
		assert.True(t, errors.Is(err, storage.ErrNotFound))
		_, err = c.Size(ctx, "nonexistent-id")
		assert.True(t, errors.Is(err, storage.ErrNotFound))
	})
	t.Run("unauthorized", func(t *testing.T) {
		c := newDisposableServer(t)
		id, err := c.Write(ctx, "", []byte("hello"))
		assert.Equal(t, client.ErrUnauthorized, err)
		assert.Empty(t, id)
	})
	t.Run("too large", func(t *testing.T) {
		c := newDisposableServer(t, server.WithMaxBlobSize(4))
		_, err := c.Write(ctx, "token", []byte("hello"))
		assert.Equal(t, client.ErrTooLarge, err)
	})
	t.Run("server error", func(t *testing.T) {
		c := newDisposableServer(t, server.WithStore(brokenStore{}))
		_, err := c.Write(ctx, "token", []byte("hello"))
		var se *client.StatusError
		require.True(t, errors.As(err, &se))
		assert.Equal(t, http.StatusInternalServerError, se.Code)
		assert.Equal(t, "Error: disk on fire", se.Body)
	})
	t.Run("missing id", func(t *testing.T) {
		c := newDisposableServer(t)
		_, err := c.Read(ctx, "")
		var se *client.StatusError
		require.True(t, errors.As(err, &se))
		assert.Equal(t, http.StatusBadRequest, se.Code)
	})
	t.Run("register", func(t *testing.T) {
		c := newDisposableServer(t)
		reg, err := c.Register(ctx)
		require.Nil(t, err)
		assert.NotEmpty(t, reg.Server)
		assert.NotEmpty(t, reg.Client)
		assert.NotEqual(t, reg.Server, reg.Client)
	})
	t.Run("revision", func(t *testing.T) {
		c := newDisposableServer(t)
		rev, err := c.Revision(ctx)
		require.Nil(t, err)
		assert.Equal(t, 1, rev)
	})
	t.Run("cancelled context", func(t *testing.T) {
		c := newDisposableServer(t)
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		_, err := c.Revision(cctx)
		assert.True(t, errors.Is(err, context.Canceled))
	})
}
