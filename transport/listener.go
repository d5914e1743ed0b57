package transport

import (
	"fmt"
	"sync"
	"sync/atomic"
	"syscall"

	"github.com/nczempin/asyncsock/errors"
	"golang.org/x/sys/unix"
)

const (
	backlog = 16 // backlog for listening
)

// Listener owns a bound, listening TCP descriptor. Accept blocks until a
// client connects or the listener is closed from another goroutine.
type Listener struct {
	mu     sync.RWMutex // shared by Accept, exclusive while descriptors change
	fd     int
	wake   [2]int // self-pipe that interrupts a blocked Accept
	open   atomic.Bool
	port   uint16
	family Family

	// Driver is the driver kind handed to accepted sockets
	Driver DriverKind
}

// NewListener creates an unbound listener
func NewListener() *Listener {
	return &Listener{fd: -1, wake: [2]int{-1, -1}}
}

// Listen creates a listener bound to port on the wildcard address of family
func Listen(port uint16, family Family) (*Listener, error) {
	l := NewListener()
	if err := l.Bind(port, family); err != nil {
		return nil, err
	}
	return l, nil
}

// Bind closes any descriptor the listener holds, then binds a fresh one to
// port on all interfaces and starts listening. Port 0 picks an ephemeral
// port; Port reports the one chosen.
func (l *Listener) Bind(port uint16, family Family) error {
	if err := l.Close(); err != nil {
		return err
	}

	syscall.ForkLock.RLock()
	fd, err := unix.Socket(family.domain(), unix.SOCK_STREAM, unix.IPPROTO_TCP)
	if err == nil {
		unix.CloseOnExec(fd)
	}
	syscall.ForkLock.RUnlock()
	if err != nil {
		return errors.FromErrno("socket", err)
	}

	fail := func(op string, err error) error {
		unix.Close(fd)
		e := errors.FromErrno(op, err)
		e.Message = fmt.Sprintf("port %d (%s): %s", port, family, e.NetworkErr)
		return e
	}

	// Restarting on the same port must not trip over TIME_WAIT connections.
	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
		return fail("setsockopt", err)
	}

	var sa unix.Sockaddr
	if family == IPv6 {
		sa = &unix.SockaddrInet6{Port: int(port)}
	} else {
		sa = &unix.SockaddrInet4{Port: int(port)}
	}
	if err := unix.Bind(fd, sa); err != nil {
		return fail("bind", err)
	}
	if err := unix.Listen(fd, backlog); err != nil {
		return fail("listen", err)
	}
	// Accept only runs after poll reports a pending connection; a
	// non-blocking descriptor keeps a connection aborted in between from
	// blocking it.
	if err := unix.SetNonblock(fd, true); err != nil {
		return fail("listen", err)
	}

	bound := port
	if name, err := unix.Getsockname(fd); err == nil {
		switch a := name.(type) {
		case *unix.SockaddrInet4:
			bound = uint16(a.Port)
		case *unix.SockaddrInet6:
			bound = uint16(a.Port)
		}
	}

	var wake [2]int
	syscall.ForkLock.RLock()
	err = unix.Pipe(wake[:])
	if err == nil {
		unix.CloseOnExec(wake[0])
		unix.CloseOnExec(wake[1])
	}
	syscall.ForkLock.RUnlock()
	if err != nil {
		return fail("pipe", err)
	}

	l.mu.Lock()
	l.fd = fd
	l.wake = wake
	l.port = bound
	l.family = family
	l.open.Store(true)
	l.mu.Unlock()
	return nil
}

// Accept waits for an incoming connection and returns it as a blocking
// Socket. It fails once the listener is closed.
func (l *Listener) Accept() (*Socket, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	for {
		if !l.open.Load() {
			return nil, closedSocketError("accept")
		}

		fds := []unix.PollFd{
			{Fd: int32(l.fd), Events: unix.POLLIN},
			{Fd: int32(l.wake[0]), Events: unix.POLLIN},
		}
		if _, err := unix.Poll(fds, -1); err != nil {
			if err == unix.EINTR {
				continue
			}
			return nil, errors.FromErrno("accept", err)
		}

		if fds[1].Revents != 0 || !l.open.Load() {
			return nil, closedSocketError("accept")
		}
		if fds[0].Revents&unix.POLLNVAL != 0 {
			return nil, errors.NewNetworkError(errors.NetworkErrorInvalidDescriptor, "accept", "socket is not a valid descriptor", nil)
		}
		if fds[0].Revents == 0 {
			continue
		}

		syscall.ForkLock.RLock()
		nfd, _, err := unix.Accept(l.fd)
		if err == nil {
			unix.CloseOnExec(nfd)
		}
		syscall.ForkLock.RUnlock()
		if err != nil {
			switch err {
			case unix.EAGAIN, unix.EINTR, unix.ECONNABORTED:
				continue
			}
			return nil, errors.FromErrno("accept", err)
		}

		// BSD-derived stacks hand out accepted sockets that inherit O_NONBLOCK.
		if err := unix.SetNonblock(nfd, false); err != nil {
			unix.Close(nfd)
			return nil, errors.FromErrno("accept", err)
		}
		return newConnectedSocket(nfd, l.Driver)
	}
}

// Close stops listening. A goroutine blocked in Accept returns with an
// error; Close waits for it before releasing the descriptors. Closing a
// closed listener is a no-op.
func (l *Listener) Close() error {
	if !l.open.CompareAndSwap(true, false) {
		return nil
	}

	unix.Write(l.wake[1], []byte{0})

	l.mu.Lock()
	defer l.mu.Unlock()

	err := unix.Close(l.fd)
	unix.Close(l.wake[0])
	unix.Close(l.wake[1])
	l.fd = -1
	l.wake = [2]int{-1, -1}

	if err != nil && err != unix.ENOTSOCK && err != unix.EBADF {
		return errors.FromErrno("close", err)
	}
	return nil
}

// IsClosed reports whether the listener has no open descriptor
func (l *Listener) IsClosed() bool {
	return !l.open.Load()
}

// Port returns the port the listener is bound to
func (l *Listener) Port() uint16 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.port
}

// Family returns the address family the listener is bound to
func (l *Listener) Family() Family {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.family
}
