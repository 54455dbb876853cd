package server

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/nicolagi/netbolt/storage"
)

// statusError is an error the client is told about with a specific status
// code and plain text body.
type statusError struct {
	code int
	text string
}

func (e *statusError) Error() string {
	return e.text
}

var (
	errInvalidVersion = &statusError{http.StatusBadRequest, "Invalid API version"}
	errInvalidAction  = &statusError{http.StatusBadRequest, "Invalid action"}
	errMissingID      = &statusError{http.StatusBadRequest, "Missing ID"}
	errUnauthorized   = &statusError{http.StatusUnauthorized, "Unauthorized"}
	errTooLarge       = &statusError{http.StatusRequestEntityTooLarge, "Data too large"}
	errNotFound       = &statusError{http.StatusNotFound, "Not found"}
)

// errorResponse maps err to the response sent to the client. Anything that
// is neither a statusError nor a store miss is a server error, reported with
// its text.
func errorResponse(err error) response {
	if errors.Is(err, storage.ErrNotFound) {
		err = errNotFound
	}
	var se *statusError
	if errors.As(err, &se) {
		return textResponse(se.code, se.text)
	}
	return textResponse(http.StatusInternalServerError, fmt.Sprintf("Error: %v", err))
}
