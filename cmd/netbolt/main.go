package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/nicolagi/netbolt/client"
	log "github.com/sirupsen/logrus"
)

func main() {
	addr := flag.String("addr", envOr("NETBOLT_ADDR", "http://localhost:8787"), "base URL of the netbolt server")
	token := flag.String("token", envOr("NETBOLT_TOKEN", "netbolt"), "value of the auth token header sent on writes")
	timeout := flag.Duration("timeout", time.Minute, "time limit for the request")
	debug := flag.Bool("debug", false, "enable debug logging")
	flag.Usage = usage
	flag.Parse()

	if *debug {
		log.SetLevel(log.DebugLevel)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	c := client.New(*addr)
	if err := run(ctx, c, *token, flag.Args(), os.Stdin, os.Stdout); err != nil {
		if errors.Is(err, errUsage) {
			usage()
			os.Exit(2)
		}
		log.WithFields(log.Fields{
			"addr": *addr,
			"err":  err,
		}).Fatal("Request failed")
	}
}

var errUsage = errors.New("usage")

func usage() {
	_, _ = fmt.Fprintf(flag.CommandLine.Output(), `usage: netbolt [flags] command [args]

commands:
	register          print a fresh server/client token pair
	write [file]      store file (or standard input), print its id
	read id           copy the payload to standard output
	size id           print the payload size in bytes
	revision          print the API revision

flags:
`)
	flag.PrintDefaults()
}

func run(ctx context.Context, c *client.Client, token string, args []string, stdin io.Reader, stdout io.Writer) error {
	if len(args) == 0 {
		return errUsage
	}
	cmd, args := args[0], args[1:]
	switch cmd {
	case "register":
		reg, err := c.Register(ctx)
		if err != nil {
			return err
		}
		return json.NewEncoder(stdout).Encode(reg)
	case "write":
		if len(args) > 1 {
			return errUsage
		}
		var data []byte
		var err error
		if len(args) == 1 {
			data, err = os.ReadFile(args[0])
		} else {
			data, err = io.ReadAll(stdin)
		}
		if err != nil {
			return err
		}
		id, err := c.Write(ctx, token, data)
		if err != nil {
			return err
		}
		log.WithFields(log.Fields{
			"id":   id,
			"size": len(data),
		}).Debug("Written")
		_, err = fmt.Fprintln(stdout, id)
		return err
	case "read":
		if len(args) != 1 {
			return errUsage
		}
		data, err := c.Read(ctx, args[0])
		if err != nil {
			return err
		}
		_, err = stdout.Write(data)
		return err
	case "size":
		if len(args) != 1 {
			return errUsage
		}
		size, err := c.Size(ctx, args[0])
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(stdout, size)
		return err
	case "revision":
		rev, err := c.Revision(ctx)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(stdout, rev)
		return err
	default:
		return errUsage
	}
}

func envOr(name, fallback string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return fallback
}
