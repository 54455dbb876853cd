// Package api holds what the netbolt server and its clients must agree on:
// the path layout, header names, limits, and JSON response bodies.
//
// All paths have the form /v1/<action>[/<id>]. Actions are register, write,
// read, size and revision.
package api // import "github.com/nicolagi/netbolt/api"

import "time"

const (
	Version = "v1"

	ActionRegister = "register"
	ActionWrite    = "write"
	ActionRead     = "read"
	ActionSize     = "size"
	ActionRevision = "revision"
)

const (
	// AuthTokenHeader must be present, with any non-empty value, on writes.
	// The value is never checked.
	AuthTokenHeader = "X-Auth-Token"

	// DataHashHeader is allowed by CORS but not otherwise looked at.
	DataHashHeader = "X-Data-Hash"
)

const (
	// MaxBlobSize is the largest payload a write accepts.
	MaxBlobSize = 25 * 1024 * 1024

	// BlobTTL is how long a written payload stays readable.
	BlobTTL = 24 * time.Hour

	// Revision is reported by the revision action.
	Revision = 1
)

// Registration is the response to register: two unrelated random tokens for
// the caller's own bookkeeping. Neither is stored by the server.
type Registration struct {
	Server string `json:"server"`
	Client string `json:"client"`
}

type WriteResponse struct {
	ID string `json:"id"`
}

type SizeResponse struct {
	Size int64 `json:"size"`
}

type RevisionResponse struct {
	Revision int `json:"revision"`
}

// Path returns the request path for an action, with the optional id as the
// last segment.
func Path(action string, id ...string) string {
	p := "/" + Version + "/" + action
	for _, s := range id {
		p += "/" + s
	}
	return p
}
