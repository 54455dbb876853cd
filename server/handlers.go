package server

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/nicolagi/netbolt/api"
	log "github.com/sirupsen/logrus"
)

func jsonResponse(v interface{}) (response, error) {
	body, err := json.Marshal(v)
	if err != nil {
		return response{}, err
	}
	return response{status: http.StatusOK, contentType: "application/json", body: body}, nil
}

func (s *Server) register() (response, error) {
	return jsonResponse(api.Registration{
		Server: s.opts.newID(),
		Client: s.opts.newID(),
	})
}

func (s *Server) write(r *http.Request, logger *log.Entry) (response, error) {
	if r.Header.Get(api.AuthTokenHeader) == "" {
		return response{}, errUnauthorized
	}
	if r.ContentLength > s.opts.maxBlobSize {
		return response{}, errTooLarge
	}
	// Read one byte past the limit to tell a payload of exactly the maximum
	// size from a larger one with no declared length.
	data, err := io.ReadAll(io.LimitReader(r.Body, s.opts.maxBlobSize+1))
	if err != nil {
		return response{}, fmt.Errorf("could not read body: %w", err)
	}
	if int64(len(data)) > s.opts.maxBlobSize {
		return response{}, errTooLarge
	}
	id := s.opts.newID()
	if err := s.opts.store.Put([]byte(id), data, s.opts.ttl); err != nil {
		return response{}, err
	}
	logger.WithFields(log.Fields{
		"id":   id,
		"size": len(data),
	}).Info("Stored")
	if s.opts.metrics != nil {
		s.opts.metrics.observeWrite(len(data))
	}
	return jsonResponse(api.WriteResponse{ID: id})
}

func (s *Server) read(id string, logger *log.Entry) (response, error) {
	data, err := s.lookup(id, logger)
	if err != nil {
		return response{}, err
	}
	return response{status: http.StatusOK, contentType: "application/octet-stream", body: data}, nil
}

// size fetches the whole payload to measure it; stores keep no separate
// metadata.
func (s *Server) size(id string, logger *log.Entry) (response, error) {
	data, err := s.lookup(id, logger)
	if err != nil {
		return response{}, err
	}
	return jsonResponse(api.SizeResponse{Size: int64(len(data))})
}

func (s *Server) lookup(id string, logger *log.Entry) ([]byte, error) {
	if id == "" {
		return nil, errMissingID
	}
	data, err := s.opts.store.Get([]byte(id))
	if err != nil {
		logger.WithFields(log.Fields{
			"id":  id,
			"err": err,
		}).Debug("Lookup failed")
		return nil, err
	}
	return data, nil
}
