package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/docopt/docopt-go"
	"github.com/vaughan0/go-ini"
)

const configSection = "netclient"

// options is the resolved driver configuration: command line over config
// file over built-in defaults.
type options struct {
	Host            string
	Port            uint16
	PendingDataWait time.Duration
	LogLevel        string
}

func defaultOptions() options {
	return options{
		Host:            "127.0.0.1",
		Port:            3333,
		PendingDataWait: 50 * time.Millisecond,
		LogLevel:        "info",
	}
}

// loadOptions resolves the driver options from parsed arguments and the
// optional INI file named by --config-file.
func loadOptions(args docopt.Opts) (options, error) {
	opts := defaultOptions()

	values := map[string]string{}
	if path, ok := argString(args, "--config-file"); ok {
		conf, err := ini.LoadFile(path)
		if err != nil {
			return opts, fmt.Errorf("load config %s: %w", path, err)
		}

		for arg, key := range map[string]string{
			"--host":         "Host",
			"--port":         "Port",
			"--pending-wait": "PendingDataWait",
			"--log-level":    "LogLevel",
		} {
			if v, ok := conf.Get(configSection, key); ok {
				values[arg] = v
			}
		}
	}

	for _, arg := range []string{"--host", "--port", "--pending-wait", "--log-level"} {
		if v, ok := argString(args, arg); ok {
			values[arg] = v
		}
	}

	if v, ok := values["--host"]; ok {
		opts.Host = v
	}

	if v, ok := values["--port"]; ok {
		port, err := strconv.ParseUint(v, 10, 16)
		if err != nil || port == 0 {
			return opts, fmt.Errorf("invalid port %q", v)
		}
		opts.Port = uint16(port)
	}

	if v, ok := values["--pending-wait"]; ok {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			return opts, fmt.Errorf("invalid pending wait %q", v)
		}
		opts.PendingDataWait = d
	}

	if v, ok := values["--log-level"]; ok {
		opts.LogLevel = v
	}

	return opts, nil
}

// argString returns the string value of a docopt option that was given.
func argString(args docopt.Opts, key string) (string, bool) {
	v, ok := args[key].(string)
	if !ok || v == "" {
		return "", false
	}

	return v, true
}
