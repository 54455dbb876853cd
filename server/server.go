// Package server implements the netbolt HTTP API over a storage.Store.
//
// Requests are routed on the first two path segments: the API version, which
// must be "v1", and the action. Any other version is a 400 "Invalid API
// version", any other action a 400 "Invalid action". OPTIONS requests to a
// valid version get an empty 200, whatever the action.
//
// Every response carries the same permissive CORS headers, so that browser
// and game engine clients accept it. Store failures and panics are reported
// as 500 with "Error: " followed by the error text in the body.
package server

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nicolagi/netbolt/api"
	"github.com/nicolagi/netbolt/storage"
	log "github.com/sirupsen/logrus"
)

var corsHeaders = map[string]string{
	"Access-Control-Allow-Origin":  "*",
	"Access-Control-Allow-Methods": "GET, POST, OPTIONS",
	"Access-Control-Allow-Headers": strings.Join([]string{
		"Content-Type",
		"Content-Length",
		"Accept",
		api.AuthTokenHeader,
		api.DataHashHeader,
	}, ", "),
}

type Option func(*options)

type options struct {
	store       storage.Store
	ttl         time.Duration
	maxBlobSize int64
	revision    int
	metrics     *Metrics
	newID       func() string
}

// WithStore sets the store blobs are written to and read from. It is
// required.
func WithStore(value storage.Store) Option {
	return func(o *options) {
		o.store = value
	}
}

func WithTTL(value time.Duration) Option {
	return func(o *options) {
		o.ttl = value
	}
}

func WithMaxBlobSize(value int64) Option {
	return func(o *options) {
		o.maxBlobSize = value
	}
}

func WithRevision(value int) Option {
	return func(o *options) {
		o.revision = value
	}
}

func WithMetrics(value *Metrics) Option {
	return func(o *options) {
		o.metrics = value
	}
}

// WithIDGenerator replaces the generator of blob identifiers and
// registration tokens, by default random UUIDs.
func WithIDGenerator(value func() string) Option {
	return func(o *options) {
		o.newID = value
	}
}

// Server is an http.Handler serving the versioned API.
type Server struct {
	opts options
}

func New(opts ...Option) *Server {
	s := &Server{}
	s.opts.ttl = api.BlobTTL
	s.opts.maxBlobSize = api.MaxBlobSize
	s.opts.revision = api.Revision
	s.opts.newID = uuid.NewString
	for _, o := range opts {
		o(&s.opts)
	}
	if s.opts.store == nil {
		panic("server: no store configured")
	}
	return s
}

type response struct {
	status      int
	contentType string
	body        []byte
}

func textResponse(status int, text string) response {
	return response{status: status, contentType: "text/plain; charset=utf-8", body: []byte(text)}
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	h := w.Header()
	for k, v := range corsHeaders {
		h.Set(k, v)
	}

	segments := strings.Split(strings.TrimPrefix(r.URL.Path, "/"), "/")
	action := "invalid"
	if len(segments) > 1 && segments[0] == api.Version {
		action = segments[1]
	}
	logger := log.WithFields(log.Fields{
		"op":     action,
		"method": r.Method,
	})

	res := func() (res response) {
		defer func() {
			if rec := recover(); rec != nil {
				logger.WithField("panic", rec).Error("Recovered")
				res = errorResponse(fmt.Errorf("%v", rec))
			}
		}()
		res, err := s.route(r, segments, logger)
		if err != nil {
			res = errorResponse(err)
		}
		return res
	}()

	switch {
	case res.status >= http.StatusInternalServerError:
		logger.WithField("status", res.status).Error(string(res.body))
	case res.status >= http.StatusBadRequest:
		logger.WithField("status", res.status).Debug(string(res.body))
	default:
		logger.WithField("status", res.status).Debug("Success")
	}

	if res.contentType != "" {
		h.Set("Content-Type", res.contentType)
	}
	w.WriteHeader(res.status)
	if res.body != nil {
		if _, err := w.Write(res.body); err != nil {
			logger.WithField("err", err).Error("Failed writing response")
		}
	}
	if s.opts.metrics != nil {
		s.opts.metrics.observeRequest(knownAction(action), res.status, time.Since(start))
	}
}

func (s *Server) route(r *http.Request, segments []string, logger *log.Entry) (response, error) {
	if segments[0] != api.Version {
		return response{}, errInvalidVersion
	}
	if r.Method == http.MethodOptions {
		return response{status: http.StatusOK}, nil
	}
	var action, id string
	if len(segments) > 1 {
		action = segments[1]
	}
	if len(segments) > 2 {
		id = segments[2]
	}
	switch action {
	case api.ActionRegister:
		return s.register()
	case api.ActionWrite:
		return s.write(r, logger)
	case api.ActionRead:
		return s.read(id, logger)
	case api.ActionSize:
		return s.size(id, logger)
	case api.ActionRevision:
		return jsonResponse(api.RevisionResponse{Revision: s.opts.revision})
	default:
		return response{}, errInvalidAction
	}
}

// knownAction bounds the cardinality of the action metric label.
func knownAction(action string) string {
	switch action {
	case api.ActionRegister, api.ActionWrite, api.ActionRead, api.ActionSize, api.ActionRevision:
		return action
	default:
		return "invalid"
	}
}
