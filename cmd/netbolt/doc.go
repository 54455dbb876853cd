// Command netbolt is a command-line client for netboltd.
//
// Examples:
//
//	id=$(netbolt write < save.dat)
//	netbolt size $id
//	netbolt read $id > save.dat
//
// The server address and auth token default to $NETBOLT_ADDR and
// $NETBOLT_TOKEN.
package main // import "github.com/nicolagi/netbolt/cmd/netbolt"
