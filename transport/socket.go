package transport

import (
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	sockaddrnet "github.com/libp2p/go-sockaddr/net"
	"github.com/nczempin/asyncsock/errors"
	"golang.org/x/sys/unix"
)

// Socket owns one connected TCP descriptor. The zero value is a closed
// socket; Connect opens it. A closed descriptor is never reused: Connect
// always creates a fresh one.
//
// Send, Recv, HasData and Close may be called from different goroutines.
// Close wakes a goroutine blocked in Recv or HasData and waits for it to
// leave the descriptor before releasing it.
type Socket struct {
	mu     sync.RWMutex // shared by I/O, exclusive while fd is replaced or released
	wmu    sync.Mutex   // keeps concurrent Sends from interleaving
	fd     int
	open   atomic.Bool
	kind   DriverKind
	driver Driver
}

// NewSocket creates a closed socket using the syscall driver
func NewSocket() *Socket {
	return NewSocketWithDriver(DriverSyscall)
}

// NewSocketWithDriver creates a closed socket whose data transfer goes
// through a driver of the given kind once connected
func NewSocketWithDriver(kind DriverKind) *Socket {
	return &Socket{fd: -1, kind: kind}
}

// newConnectedSocket takes ownership of an already connected descriptor.
func newConnectedSocket(fd int, kind DriverKind) (*Socket, error) {
	driver, err := OpenDriver(kind)
	if err != nil {
		unix.Close(fd)
		return nil, err
	}
	s := &Socket{fd: fd, kind: kind, driver: driver}
	s.open.Store(true)
	return s, nil
}

// Connect establishes a TCP connection to address:port. An empty address or
// "localhost" means the loopback address of the family. Every resolved
// candidate is tried in order; the error of the last attempt is returned
// when none succeeds. Any connection the socket held before is closed.
func (s *Socket) Connect(address string, port uint16, family Family) error {
	if err := s.Close(); err != nil {
		return err
	}

	candidates, err := resolve(address, port, family)
	if err != nil {
		return err
	}

	var lastErr error
	for _, addr := range candidates {
		fd, err := dial(addr, family)
		if err != nil {
			lastErr = err
			continue
		}

		driver, err := OpenDriver(s.kind)
		if err != nil {
			unix.Close(fd)
			return err
		}

		s.mu.Lock()
		s.fd = fd
		s.driver = driver
		s.open.Store(true)
		s.mu.Unlock()
		return nil
	}

	e := errors.FromErrno("connect", lastErr)
	e.Message = fmt.Sprintf("failed to connect to %s: %s", net.JoinHostPort(address, fmt.Sprint(port)), e.NetworkErr)
	return e
}

// dial creates a socket and connects it to addr with a blocking connect.
func dial(addr *net.TCPAddr, family Family) (int, error) {
	syscall.ForkLock.RLock()
	fd, err := unix.Socket(family.domain(), unix.SOCK_STREAM, unix.IPPROTO_TCP)
	if err == nil {
		unix.CloseOnExec(fd)
	}
	syscall.ForkLock.RUnlock()
	if err != nil {
		return -1, err
	}

	sa := sockaddrnet.TCPAddrToSockaddr(addr)
	if sa == nil {
		unix.Close(fd)
		return -1, syscall.EAFNOSUPPORT
	}

	err = unix.Connect(fd, sa)
	if err == unix.EINTR {
		// The connect continues in the background; wait for its outcome.
		err = waitConnected(fd)
	}
	if err != nil {
		unix.Close(fd)
		return -1, err
	}

	if err := unix.SetsockoptInt(fd, unix.IPPROTO_TCP, unix.TCP_NODELAY, 1); err != nil {
		unix.Close(fd)
		return -1, err
	}

	return fd, nil
}

func waitConnected(fd int) error {
	for {
		fds := []unix.PollFd{{Fd: int32(fd), Events: unix.POLLOUT}}
		if _, err := unix.Poll(fds, -1); err != nil {
			if err == unix.EINTR {
				continue
			}
			return err
		}
		soErr, err := unix.GetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_ERROR)
		if err != nil {
			return err
		}
		if soErr != 0 {
			return syscall.Errno(soErr)
		}
		return nil
	}
}

// Send writes the entire buffer to the socket
func (s *Socket) Send(buf []byte) error {
	s.wmu.Lock()
	defer s.wmu.Unlock()
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.open.Load() {
		return closedSocketError("send")
	}

	written := 0
	for written < len(buf) {
		n, err := s.driver.Send(s.fd, buf[written:])
		if err != nil {
			return errors.FromErrno("send", err)
		}
		if n <= 0 {
			return errors.NewNetworkError(errors.NetworkErrorBrokenPipe, "send", "socket accepted no data", nil)
		}
		written += n
	}

	return nil
}

// SendString writes str to the socket
func (s *Socket) SendString(str string) error {
	return s.Send([]byte(str))
}

// HasData waits up to timeout for the socket to become readable. A socket
// whose peer has closed the connection counts as readable; the following
// Recv reports the close.
func (s *Socket) HasData(timeout Timeout) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.open.Load() {
		return false, closedSocketError("poll")
	}
	return pollReadable(s.fd, timeout)
}

// Recv waits up to timeout for data and performs a single read into buf.
// It returns 0 and no error when the timeout expires without data.
func (s *Socket) Recv(buf []byte, timeout Timeout) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.open.Load() {
		return 0, closedSocketError("recv")
	}
	if len(buf) == 0 {
		return 0, errors.NewInvalidArgumentError("recv buffer must not be empty")
	}

	ready, err := pollReadable(s.fd, timeout)
	if err != nil || !ready {
		return 0, err
	}

	n, err := s.driver.Recv(s.fd, buf)
	if err != nil {
		return 0, errors.FromErrno("recv", err)
	}
	if n == 0 {
		if !s.open.Load() {
			return 0, errors.NewConnectionClosedError("recv", "connection closed locally")
		}
		return 0, errors.NewConnectionClosedError("recv", "connection closed by peer")
	}

	return n, nil
}

// pollReadable waits for POLLIN on fd. EINTR resumes the wait with the
// time that is left.
func pollReadable(fd int, timeout Timeout) (bool, error) {
	var deadline time.Time
	if timeout > 0 {
		deadline = time.Now().Add(timeout.Duration())
	}

	wait := int(timeout)
	for {
		fds := []unix.PollFd{{Fd: int32(fd), Events: unix.POLLIN}}
		n, err := unix.Poll(fds, wait)
		if err == unix.EINTR {
			if timeout > 0 {
				left := time.Until(deadline)
				if left <= 0 {
					return false, nil
				}
				wait = int(TimeoutFromDuration(left))
			}
			continue
		}
		if err != nil {
			return false, errors.FromErrno("poll", err)
		}
		if n == 0 {
			return false, nil
		}
		if fds[0].Revents&unix.POLLNVAL != 0 {
			return false, errors.NewNetworkError(errors.NetworkErrorInvalidDescriptor, "poll", "socket is not a valid descriptor", nil)
		}
		return true, nil
	}
}

// Close shuts the connection down and releases the descriptor. Closing a
// closed socket is a no-op. A descriptor the OS no longer considers a
// socket counts as already closed.
func (s *Socket) Close() error {
	if !s.open.CompareAndSwap(true, false) {
		return nil
	}

	// Wake any goroutine blocked in poll or a transfer on this descriptor.
	unix.Shutdown(s.fd, unix.SHUT_RDWR)

	s.mu.Lock()
	defer s.mu.Unlock()

	err := unix.Close(s.fd)
	s.fd = -1
	if s.driver != nil {
		s.driver.Close()
		s.driver = nil
	}

	if err != nil && err != unix.ENOTSOCK && err != unix.EBADF {
		return errors.FromErrno("close", err)
	}
	return nil
}

// IsClosed reports whether the socket has no open descriptor
func (s *Socket) IsClosed() bool {
	return !s.open.Load()
}

// Fd returns the descriptor, or -1 when the socket is closed
func (s *Socket) Fd() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.open.Load() {
		return -1
	}
	return s.fd
}

// RemoteAddr returns the peer address, or nil when unknown
func (s *Socket) RemoteAddr() *net.TCPAddr {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.open.Load() {
		return nil
	}
	sa, err := unix.Getpeername(s.fd)
	if err != nil {
		return nil
	}
	return sockaddrnet.SockaddrToTCPAddr(sa)
}

// LocalAddr returns the local address, or nil when unknown
func (s *Socket) LocalAddr() *net.TCPAddr {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.open.Load() {
		return nil
	}
	sa, err := unix.Getsockname(s.fd)
	if err != nil {
		return nil
	}
	return sockaddrnet.SockaddrToTCPAddr(sa)
}

func closedSocketError(op string) *errors.Error {
	return errors.NewNetworkError(errors.NetworkErrorInvalidDescriptor, op, "socket is closed", nil)
}
