// Command lineserver runs a line-oriented TCP peer for netclient: every line
// it receives is sent back, optionally several times.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/docopt/docopt-go"

	"github.com/cyberinferno/go-netclient/lineserver"
	"github.com/cyberinferno/go-netclient/logger"
)

const version = "lineserver 1.0.0"

var usage = `lineserver answers every received line with copies of it.
Usage:
	lineserver [options]

Options:
	-h --help                Show help information in screen.
	--version                Show version.
	--listen=<addr>          Listen address. [default: 127.0.0.1:3333]
	--repeat=<n>             Copies sent back per line. [default: 1]
	--log-level=<log-level>  One of debug, info, warning, error. [default: info]
`

func main() {
	args, err := docopt.ParseArgs(usage, os.Args[1:], version)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error during parsing arguments: %s\n", err)
		os.Exit(64)
	}

	addr, _ := args.String("--listen")
	repeatArg, _ := args.String("--repeat")
	levelArg, _ := args.String("--log-level")

	repeat, err := strconv.Atoi(repeatArg)
	if err != nil || repeat < 1 {
		fmt.Fprintf(os.Stderr, "Invalid --repeat value %q\n", repeatArg)
		os.Exit(64)
	}

	level, err := logger.ParseLevel(levelArg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", err)
		os.Exit(64)
	}

	log := logger.NewConsoleLogger("lineserver", level)
	defer log.Close()

	srv := lineserver.NewLineServer("line", addr, lineserver.Repeat(repeat), log)
	if err := srv.Start(); err != nil {
		os.Exit(1)
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	sig := <-stop
	log.Info("shutting down", logger.Field{Key: "signal", Value: sig.String()})

	srv.Stop()
}
