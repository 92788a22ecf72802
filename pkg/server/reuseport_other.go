//go:build !(linux || darwin || freebsd || netbsd || openbsd || dragonfly)

package server

import (
	"syscall"

	"github.com/pkg/errors"
)

func reusePortControl(network, address string, c syscall.RawConn) error {
	return errors.New("server: SO_REUSEPORT is not supported on this platform")
}
