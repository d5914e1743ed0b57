//go:build !linux

package transport

import "github.com/nczempin/asyncsock/errors"

func newIOURingDriver() (Driver, error) {
	return nil, errors.NewNetworkError(errors.NetworkErrorRingInit, "iouring", "io_uring requires linux", nil)
}

func newRingDriver() (Driver, error) {
	return nil, errors.NewNetworkError(errors.NetworkErrorRingInit, "ring", "io_uring requires linux", nil)
}
