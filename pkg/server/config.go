package server

import (
	"time"

	"github.com/pkg/errors"

	"github.com/shapestone/rawhttp/pkg/http"
)

// Config holds the dispatcher settings.
type Config struct {
	Addr         string        // listen address, "127.0.0.1:8080"
	Limits       http.Limits   // per-request parse limits and idle timeout
	AllowedHosts []string      // Host allow-list; empty accepts any single valid Host
	MaxConns     int           // concurrent connection cap; 0 = unlimited
	ReusePort    bool          // set SO_REUSEPORT on the listening socket
	WriteTimeout time.Duration // deadline for writing one response; 0 disables
}

// DefaultConfig returns the configuration used by the rawhttp binary when no
// flags are given.
func DefaultConfig() Config {
	return Config{
		Addr:         "127.0.0.1:8080",
		Limits:       http.DefaultLimits(),
		WriteTimeout: 10 * time.Second,
	}
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	if c.Addr == "" {
		return errors.New("server: empty listen address")
	}
	if c.MaxConns < 0 {
		return errors.Errorf("server: negative MaxConns %d", c.MaxConns)
	}
	if c.WriteTimeout < 0 {
		return errors.Errorf("server: negative WriteTimeout %v", c.WriteTimeout)
	}
	if c.Limits.IdleTimeout < 0 {
		return errors.Errorf("server: negative IdleTimeout %v", c.Limits.IdleTimeout)
	}
	for _, h := range c.AllowedHosts {
		if h == "" {
			return errors.New("server: empty entry in AllowedHosts")
		}
	}
	return nil
}
