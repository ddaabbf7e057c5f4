// Command netclient relays standard input to a line-oriented TCP peer and
// prints every line the peer answers with to standard error.
//
// Exit status is 0 at the end of standard input, 1 when the connection cannot
// be established or fails, and 2 when the peer closes the connection.
package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/docopt/docopt-go"

	"github.com/cyberinferno/go-netclient/logger"
	"github.com/cyberinferno/go-netclient/netclient"
	"github.com/cyberinferno/go-netclient/socket"
)

const version = "netclient 1.0.0"

var usage = `netclient relays standard input to a line-oriented TCP peer.
Usage:
	netclient [options]

Options:
	-h --help                       Show help information in screen.
	--version                       Show version.
	-c --config-file=<config-file>  Read settings from the [netclient] section of an INI file.
	--host=<host>                   Peer host. (default 127.0.0.1)
	--port=<port>                   Peer port. (default 3333)
	--pending-wait=<duration>       How long to wait for more reply lines. (default 50ms)
	--log-level=<log-level>         One of debug, info, warning, error. (default info)
`

// chunkSize bounds how much standard input is relayed per exchange.
const chunkSize = 2048

const (
	exitOK           = 0
	exitFailure      = 1
	exitPeerClosed   = 2
	exitUsage        = 64
	serviceName      = "netclient"
	diagnosticPrefix = "got: "
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stderr))
}

func run(argv []string, stdin io.Reader, stderr io.Writer) int {
	parser := &docopt.Parser{HelpHandler: docopt.PrintHelpOnly}
	args, err := parser.ParseArgs(usage, argv, version)
	if err != nil {
		return exitUsage
	}

	if args == nil {
		return exitOK
	}

	if help, _ := args["--help"].(bool); help {
		return exitOK
	}

	if v, _ := args["--version"].(bool); v {
		return exitOK
	}

	opts, err := loadOptions(args)
	if err != nil {
		fmt.Fprintf(stderr, "Error during loading configuration: %s\n", err)
		return exitUsage
	}

	level, err := logger.ParseLevel(opts.LogLevel)
	if err != nil {
		fmt.Fprintf(stderr, "Error during loading configuration: %s\n", err)
		return exitUsage
	}

	log := logger.NewZerologLogger(consoleWriter(stderr), serviceName, level)
	defer log.Close()

	cfg := netclient.DefaultNetClientConfig(opts.Host, opts.Port)
	cfg.NoDelay = true
	cfg.PendingDataWait = opts.PendingDataWait

	client := netclient.NewNetClient(cfg, log)
	defer client.Close()

	if err := client.Connect(); err != nil {
		fmt.Fprintf(stderr, "Error connecting: %s\n", client.ErrorReason())
		return exitFailure
	}

	log.Info("connected", logger.Field{Key: "host", Value: opts.Host}, logger.Field{Key: "port", Value: opts.Port})

	if err := relay(client, stdin, stderr); err != nil {
		if socket.IsConnectionClosed(err) {
			fmt.Fprintf(stderr, "Connection closed. (%s)\n", err)
			return exitPeerClosed
		}

		fmt.Fprintf(stderr, "Transport error. (%s)\n", err)
		return exitFailure
	}

	return exitOK
}

// relay sends standard input to the peer a chunk at a time and prints the
// lines that come back after each chunk.
func relay(client *netclient.NetClient, stdin io.Reader, stderr io.Writer) error {
	buf := make([]byte, chunkSize)
	for {
		n, readErr := stdin.Read(buf[:chunkSize-1])
		if n > 0 {
			sent, err := client.SendString(string(buf[:n]))
			if err != nil {
				return err
			}
			fmt.Fprintf(stderr, "Sent %d\n", sent)

			lines, err := client.ReceiveLines()
			for _, line := range lines {
				fmt.Fprintf(stderr, "%s%s\n", diagnosticPrefix, line)
			}

			if err != nil {
				return err
			}
		}

		if errors.Is(readErr, io.EOF) {
			return nil
		}

		if readErr != nil {
			return fmt.Errorf("read standard input: %w", readErr)
		}
	}
}
