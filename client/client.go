// Package client talks to a netbolt server over HTTP.
package client // import "github.com/nicolagi/netbolt/client"

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/nicolagi/netbolt/api"
	"github.com/nicolagi/netbolt/storage"
)

var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrTooLarge     = errors.New("data too large")
)

// StatusError is returned for responses with an unexpected status code.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%d %s: %s", e.Code, http.StatusText(e.Code), e.Body)
}

type options struct {
	httpClient *http.Client
}

type Option func(*options)

func WithHTTPClient(value *http.Client) Option {
	return func(o *options) {
		o.httpClient = value
	}
}

// Client is safe for concurrent use.
type Client struct {
	baseURL string
	opts    options
}

// New returns a client for the server at baseURL, e.g.,
// "http://localhost:8787".
func New(baseURL string, opts ...Option) *Client {
	c := &Client{baseURL: strings.TrimSuffix(baseURL, "/")}
	c.opts.httpClient = http.DefaultClient
	for _, o := range opts {
		o(&c.opts)
	}
	return c
}

func (c *Client) Register(ctx context.Context) (reg api.Registration, err error) {
	err = c.doJSON(ctx, http.MethodGet, api.Path(api.ActionRegister), nil, nil, &reg)
	return reg, err
}

// Write stores data and returns its id. The token only needs to be
// non-empty.
func (c *Client) Write(ctx context.Context, token string, data []byte) (id string, err error) {
	header := make(http.Header)
	header.Set("Content-Type", "application/octet-stream")
	if token != "" {
		header.Set(api.AuthTokenHeader, token)
	}
	var res api.WriteResponse
	if err := c.doJSON(ctx, http.MethodPost, api.Path(api.ActionWrite), header, data, &res); err != nil {
		return "", err
	}
	return res.ID, nil
}

// Read returns storage.ErrNotFound if id was never written or has expired.
func (c *Client) Read(ctx context.Context, id string) ([]byte, error) {
	return c.do(ctx, http.MethodGet, api.Path(api.ActionRead, id), nil, nil)
}

func (c *Client) Size(ctx context.Context, id string) (int64, error) {
	var res api.SizeResponse
	err := c.doJSON(ctx, http.MethodGet, api.Path(api.ActionSize, id), nil, nil, &res)
	return res.Size, err
}

func (c *Client) Revision(ctx context.Context) (int, error) {
	var res api.RevisionResponse
	err := c.doJSON(ctx, http.MethodGet, api.Path(api.ActionRevision), nil, nil, &res)
	return res.Revision, err
}

func (c *Client) doJSON(ctx context.Context, method, path string, header http.Header, body []byte, v interface{}) error {
	data, err := c.do(ctx, method, path, header, body)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("could not decode response to %s %s: %w", method, path, err)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, header http.Header, body []byte) ([]byte, error) {
	var r io.Reader
	if body != nil {
		r = bytes.NewReader(body)
	}
	request, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, r)
	if err != nil {
		return nil, err
	}
	for k, vs := range header {
		request.Header[k] = vs
	}
	response, err := c.opts.httpClient.Do(request)
	if response != nil && response.Body != nil {
		defer func() {
			_ = response.Body.Close()
		}()
	}
	if err != nil {
		return nil, err
	}
	data, err := io.ReadAll(response.Body)
	if err != nil {
		return nil, err
	}
	switch response.StatusCode {
	case http.StatusOK:
		return data, nil
	case http.StatusNotFound:
		return nil, fmt.Errorf("%s: %w", path, storage.ErrNotFound)
	case http.StatusUnauthorized:
		return nil, ErrUnauthorized
	case http.StatusRequestEntityTooLarge:
		return nil, ErrTooLarge
	default:
		return nil, &StatusError{Code: response.StatusCode, Body: string(data)}
	}
}
