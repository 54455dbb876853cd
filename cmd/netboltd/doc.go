// Command netboltd serves the netbolt blob API over HTTP.
//
// Clients POST a payload of at most 25 MiB to /v1/write, with any non-empty
// X-Auth-Token header, and get back {"id": "..."}. The payload can then be
// fetched from /v1/read/<id>, or measured at /v1/size/<id>, for 24 hours,
// after which it is gone. /v1/register hands out a pair of random tokens and
// /v1/revision reports the API revision. See package server for the details
// of routing and error responses.
//
// Configuration is read from the file named by -config, in rjson format,
// e.g.:
//
//	{
//		listen: ":8787"
//		metrics: "localhost:9787"
//		backend: {
//			type: "bolt"
//			path: "$HOME/lib/netbolt/blobs.db"
//		}
//	}
//
// Backend types are memory (the default), disk, bolt, badger, redis, s3 and
// dynamodb. Backends that cannot expire pairs on their own are swept every
// sweep_interval (10m by default).
package main // import "github.com/nicolagi/netbolt/cmd/netboltd"
