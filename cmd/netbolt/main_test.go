package main

import (
	"bytes"
	"context"
	"errors"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nicolagi/netbolt/client"
	"github.com/nicolagi/netbolt/server"
	"github.com/nicolagi/netbolt/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRun(t *testing.T) {
	srv := httptest.NewServer(server.New(server.WithStore(storage.NewInMemoryStore())))
	defer srv.Close()
	c := client.New(srv.URL)
	ctx := context.Background()

	exec := func(stdin string, args ...string) (string, error) {
		var stdout bytes.Buffer
		err := run(ctx, c, "token", args, strings.NewReader(stdin), &stdout)
		return stdout.String(), err
	}

	t.Run("write from stdin, then size and read", func(t *testing.T) {
		out, err := exec("hello", "write")
		require.Nil(t, err)
		id := strings.TrimSpace(out)
		require.NotEmpty(t, id)

		out, err = exec("", "size", id)
		require.Nil(t, err)
		assert.Equal(t, "5\n", out)

		out, err = exec("", "read", id)
		require.Nil(t, err)
		assert.Equal(t, "hello", out)
	})
	t.Run("write from file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "payload")
		require.Nil(t, os.WriteFile(path, []byte("from a file"), 0600))
		out, err := exec("", "write", path)
		require.Nil(t, err)
		out, err = exec("", "read", strings.TrimSpace(out))
		require.Nil(t, err)
		assert.Equal(t, "from a file", out)
	})
	t.Run("read missing", func(t *testing.T) {
		_, err := exec("", "read", "nonexistent-id")
		assert.True(t, errors.Is(err, storage.ErrNotFound))
	})
	t.Run("revision", func(t *testing.T) {
		out, err := exec("", "revision")
		require.Nil(t, err)
		assert.Equal(t, "1\n", out)
	})
	t.Run("register", func(t *testing.T) {
		out, err := exec("", "register")
		require.Nil(t, err)
		assert.Contains(t, out, `"server":`)
		assert.Contains(t, out, `"client":`)
	})
	t.Run("usage errors", func(t *testing.T) {
		for _, args := range [][]string{nil, {"teleport"}, {"read"}, {"size", "a", "b"}, {"write", "a", "b"}} {
			_, err := exec("", args...)
			assert.Equal(t, errUsage, err, "%q", args)
		}
	})
}
