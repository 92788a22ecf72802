// Command rawhttp serves the demo website over the strict HTTP/1.1 parser.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/shapestone/rawhttp/internal/website"
	"github.com/shapestone/rawhttp/pkg/server"
)

const minShutdownTimeout = 5 * time.Second

// shutdownTimeout covers one idle read plus one response write, so a
// connection accepted just before the signal can still be answered.
func shutdownTimeout(cfg server.Config) time.Duration {
	d := cfg.Limits.IdleTimeout + cfg.WriteTimeout
	if d < minShutdownTimeout {
		d = minShutdownTimeout
	}
	return d
}

func main() {
	if err := run(os.Args[1:], os.Getenv, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, "rawhttp:", err)
		os.Exit(1)
	}
}

func run(args []string, getenv func(string) string, stderr io.Writer) error {
	opts, err := loadConfig(args, getenv, stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}
		return err
	}

	log := newLogger(opts, stderr)
	srv := server.New(opts.server, website.New(log), server.WithLogger(log))
	ln, err := srv.Listen()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errc := make(chan error, 1)
	go func() { errc <- srv.Serve(ln) }()

	select {
	case err := <-errc:
		return errors.Wrap(err, "serve")
	case <-ctx.Done():
	}

	log.Info().Msg("signal received")
	sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout(opts.server))
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		return err
	}
	if err := <-errc; err != server.ErrServerClosed {
		return errors.Wrap(err, "serve")
	}
	return nil
}

func newLogger(opts options, w io.Writer) zerolog.Logger {
	if opts.logFormat == "console" {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}
	return zerolog.New(w).Level(opts.logLevel).With().Timestamp().Logger()
}
