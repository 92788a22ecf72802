package main

import (
	"flag"
	"io"
	"strings"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/shapestone/rawhttp/pkg/server"
)

const envPrefix = "RAWHTTP_"

// options is everything the binary needs to start.
type options struct {
	server    server.Config
	logFormat string
	logLevel  zerolog.Level
}

// hostList is a comma-separated flag value.
type hostList []string

func (h *hostList) String() string { return strings.Join(*h, ",") }

func (h *hostList) Set(v string) error {
	*h = (*h)[:0]
	for _, host := range strings.Split(v, ",") {
		if host = strings.TrimSpace(host); host != "" {
			*h = append(*h, host)
		}
	}
	return nil
}

// loadConfig reads command-line flags, then lets RAWHTTP_* environment
// variables override them. The variable for a flag is its name upper-cased
// with dashes turned into underscores: -max-body-size is
// RAWHTTP_MAX_BODY_SIZE.
func loadConfig(args []string, getenv func(string) string, output io.Writer) (options, error) {
	cfg := server.DefaultConfig()
	var (
		hosts     hostList
		logFormat string
		logLevel  string
	)

	fs := flag.NewFlagSet("rawhttp", flag.ContinueOnError)
	fs.SetOutput(output)
	fs.StringVar(&cfg.Addr, "addr", cfg.Addr, "listen address")
	fs.IntVar(&cfg.Limits.MaxHeaderBytes, "max-header-bytes", cfg.Limits.MaxHeaderBytes, "maximum bytes in the request line and headers")
	fs.Int64Var(&cfg.Limits.MaxChunkSize, "max-chunk-size", cfg.Limits.MaxChunkSize, "maximum size of one chunk")
	fs.Int64Var(&cfg.Limits.MaxBodySize, "max-body-size", cfg.Limits.MaxBodySize, "maximum request body size")
	fs.DurationVar(&cfg.Limits.IdleTimeout, "idle-timeout", cfg.Limits.IdleTimeout, "close a connection idle for this long (0 disables)")
	fs.DurationVar(&cfg.WriteTimeout, "write-timeout", cfg.WriteTimeout, "deadline for writing a response (0 disables)")
	fs.Var(&hosts, "allowed-hosts", "comma-separated Host allow-list (empty accepts any host)")
	fs.IntVar(&cfg.MaxConns, "max-conns", cfg.MaxConns, "maximum concurrent connections (0 = unlimited)")
	fs.BoolVar(&cfg.ReusePort, "reuse-port", cfg.ReusePort, "set SO_REUSEPORT on the listener")
	fs.StringVar(&logFormat, "log-format", "console", "log format: console or json")
	fs.StringVar(&logLevel, "log-level", "info", "log level: debug, info, warn, error")

	if err := fs.Parse(args); err != nil {
		return options{}, err
	}
	if fs.NArg() > 0 {
		return options{}, errors.Errorf("unexpected argument %q", fs.Arg(0))
	}

	var envErr error
	fs.VisitAll(func(f *flag.Flag) {
		if envErr != nil {
			return
		}
		name := envPrefix + strings.ToUpper(strings.ReplaceAll(f.Name, "-", "_"))
		if v := getenv(name); v != "" {
			if err := fs.Set(f.Name, v); err != nil {
				envErr = errors.Wrapf(err, "invalid %s", name)
			}
		}
	})
	if envErr != nil {
		return options{}, envErr
	}

	if len(hosts) > 0 {
		cfg.AllowedHosts = hosts
	}
	if err := cfg.Validate(); err != nil {
		return options{}, err
	}
	if cfg.Limits.MaxHeaderBytes <= 0 || cfg.Limits.MaxChunkSize <= 0 || cfg.Limits.MaxBodySize <= 0 {
		return options{}, errors.New("size limits must be positive")
	}

	level, err := zerolog.ParseLevel(logLevel)
	if err != nil {
		return options{}, errors.Wrap(err, "invalid log level")
	}
	if logFormat != "console" && logFormat != "json" {
		return options{}, errors.Errorf("invalid log format %q", logFormat)
	}

	return options{server: cfg, logFormat: logFormat, logLevel: level}, nil
}
