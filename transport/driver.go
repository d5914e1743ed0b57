package transport

import (
	"fmt"
	"strings"

	"github.com/nczempin/asyncsock/errors"
	"golang.org/x/sys/unix"
)

// Driver performs the data transfer on a connected socket descriptor once
// the socket has been found ready. Readiness waiting is always done with
// poll(2) by the Socket itself.
type Driver interface {
	// Send writes from buf and returns the number of bytes written
	Send(fd int, buf []byte) (int, error)

	// Recv reads into buf and returns the number of bytes read; 0 means
	// the peer has closed the stream
	Recv(fd int, buf []byte) (int, error)

	// Close releases resources owned by the driver
	Close() error
}

// DriverKind selects a Driver implementation.
type DriverKind int

const (
	DriverSyscall DriverKind = iota
	DriverIOURing
	DriverRing
)

func (k DriverKind) String() string {
	switch k {
	case DriverSyscall:
		return "syscall"
	case DriverIOURing:
		return "iouring"
	case DriverRing:
		return "ring"
	default:
		return fmt.Sprintf("DriverKind(%d)", int(k))
	}
}

// ParseDriverKind accepts "syscall", "iouring" and "ring".
func ParseDriverKind(s string) (DriverKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "syscall", "":
		return DriverSyscall, nil
	case "iouring", "io_uring":
		return DriverIOURing, nil
	case "ring", "go-uring", "uring":
		return DriverRing, nil
	default:
		return DriverSyscall, fmt.Errorf("transport: unknown driver %q", s)
	}
}

// OpenDriver creates a Driver of the given kind.
func OpenDriver(kind DriverKind) (Driver, error) {
	switch kind {
	case DriverSyscall:
		return syscallDriver{}, nil
	case DriverIOURing:
		return newIOURingDriver()
	case DriverRing:
		return newRingDriver()
	default:
		return nil, errors.NewInvalidArgumentError(fmt.Sprintf("unknown driver kind %d", int(kind)))
	}
}

// syscallDriver issues plain blocking read/write system calls.
type syscallDriver struct{}

func (syscallDriver) Send(fd int, buf []byte) (int, error) {
	for {
		n, err := unix.Write(fd, buf)
		if err == unix.EINTR {
			continue
		}
		return n, err
	}
}

func (syscallDriver) Recv(fd int, buf []byte) (int, error) {
	for {
		n, err := unix.Read(fd, buf)
		if err == unix.EINTR {
			continue
		}
		return n, err
	}
}

func (syscallDriver) Close() error { return nil }
