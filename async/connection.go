package async

import (
	"fmt"
	"net"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/nczempin/asyncsock/errors"
	"github.com/nczempin/asyncsock/internal/obs"
	"github.com/nczempin/asyncsock/transport"
)

// DefaultMaxMessageSize is the read limit of a connection's receive loop.
const DefaultMaxMessageSize = 4096

// State is the lifecycle stage of a Connection.
type State int32

const (
	StateActive State = iota
	StateTerminating
	StateTerminated
)

func (s State) String() string {
	switch s {
	case StateActive:
		return "active"
	case StateTerminating:
		return "terminating"
	case StateTerminated:
		return "terminated"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// MessageFunc receives one payload read from the connection.
type MessageFunc func(payload []byte, c *Connection)

// TerminateFunc is called once when the connection's read loop has ended.
type TerminateFunc func(c *Connection)

var lastConnectionID atomic.Uint64

// ConnConfig configures a Connection's read loop.
type ConnConfig struct {
	ReadTimeout    transport.Timeout
	MaxMessageSize int
	Logger         obs.Logger
	Meter          obs.Meter
}

// Connection owns one connected socket and runs its read loop on a
// goroutine of its own. Payloads are handed to the message callback in
// receipt order, one at a time; when the loop ends the terminate callback
// runs exactly once and the socket is closed afterwards.
type Connection struct {
	id       uint64
	session  uuid.UUID
	sock     *transport.Socket
	receiver *transport.Receiver
	cfg      ConnConfig
	log      obs.Logger
	meter    obs.Meter

	mu          sync.Mutex
	onMessage   MessageFunc
	onTerminate TerminateFunc

	state     atomic.Int32
	startOnce sync.Once
	start     chan struct{}
	done      chan struct{}
}

// NewConnection takes ownership of sock. The read loop goroutine is
// created immediately but receives nothing until Start is called, so the
// callbacks can be installed first.
func NewConnection(sock *transport.Socket, cfg ConnConfig) *Connection {
	if cfg.MaxMessageSize <= 0 {
		cfg.MaxMessageSize = DefaultMaxMessageSize
	}
	if cfg.ReadTimeout == 0 {
		// An instant timeout would turn the loop into a busy spin.
		cfg.ReadTimeout = transport.Never
	}

	c := &Connection{
		id:          lastConnectionID.Add(1),
		session:     uuid.New(),
		sock:        sock,
		receiver:    transport.NewReceiver(sock),
		cfg:         cfg,
		log:         obs.OrNop(cfg.Logger),
		meter:       obs.MeterOrNop(cfg.Meter),
		onMessage:   func([]byte, *Connection) {},
		onTerminate: func(*Connection) {},
		start:       make(chan struct{}),
		done:        make(chan struct{}),
	}
	c.state.Store(int32(StateActive))

	go c.run()
	return c
}

// Start releases the read loop. Calling it again has no effect.
func (c *Connection) Start() {
	c.startOnce.Do(func() { close(c.start) })
}

// OnMessage sets the callback for received payloads
func (c *Connection) OnMessage(f MessageFunc) {
	if f == nil {
		f = func([]byte, *Connection) {}
	}
	c.mu.Lock()
	c.onMessage = f
	c.mu.Unlock()
}

// OnTerminate sets the callback invoked when the read loop ends
func (c *Connection) OnTerminate(f TerminateFunc) {
	if f == nil {
		f = func(*Connection) {}
	}
	c.mu.Lock()
	c.onTerminate = f
	c.mu.Unlock()
}

func (c *Connection) callbacks() (MessageFunc, TerminateFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.onMessage, c.onTerminate
}

func (c *Connection) run() {
	defer close(c.done)
	<-c.start

	reason := c.readLoop()

	c.state.Store(int32(StateTerminating))
	c.log.Logf(obs.Debug, "connection #%d (%s) terminating: %v", c.id, c.session, reason)

	_, onTerminate := c.callbacks()
	c.safeCall("terminate", func() { onTerminate(c) })

	c.state.Store(int32(StateTerminated))
	if err := c.sock.Close(); err != nil {
		c.log.Logf(obs.Warn, "connection #%d: close: %v", c.id, err)
	}
	c.meter.Counter(obs.MetricConnectionsTerminated, 1)
}

// readLoop receives until the socket is closed, the peer goes away or an
// I/O error occurs, and returns the cause.
func (c *Connection) readLoop() error {
	for {
		if c.sock.IsClosed() {
			return errors.NewConnectionClosedError("recv", "connection closed locally")
		}

		payload, err := c.receiver.Recv(c.cfg.MaxMessageSize, c.cfg.ReadTimeout)
		if err != nil {
			if !errors.IsConnectionClosed(err) && !c.sock.IsClosed() {
				c.log.Logf(obs.Warn, "connection #%d: %v", c.id, err)
			}
			return err
		}
		if len(payload) == 0 {
			continue
		}

		c.meter.Counter(obs.MetricBytesReceived, float64(len(payload)))
		c.meter.Histogram(obs.MetricMessageSize, float64(len(payload)))

		onMessage, _ := c.callbacks()
		if err := c.safeCall("message", func() { onMessage(payload, c) }); err != nil {
			return err
		}
	}
}

// safeCall runs a user callback; a panic ends this connection only.
func (c *Connection) safeCall(name string, f func()) (err error) {
	defer func() {
		if p := recover(); p != nil {
			c.log.Logf(obs.Error, "connection #%d: %s callback panicked: %v", c.id, name, p)
			err = fmt.Errorf("%s callback panicked: %v", name, p)
		}
	}()
	f()
	return nil
}

// ID returns the process-unique id of the connection
func (c *Connection) ID() uint64 {
	return c.id
}

// Session returns a random identifier of the connection that, unlike ID,
// does not repeat across processes
func (c *Connection) Session() uuid.UUID {
	return c.session
}

// Socket returns the underlying socket
func (c *Connection) Socket() *transport.Socket {
	return c.sock
}

// State returns the current lifecycle stage
func (c *Connection) State() State {
	return State(c.state.Load())
}

// Send writes buf to the connection
func (c *Connection) Send(buf []byte) error {
	return c.sock.Send(buf)
}

// SendString writes str to the connection
func (c *Connection) SendString(str string) error {
	return c.sock.SendString(str)
}

// Close closes the socket, which ends the read loop. The terminate
// callback still runs, on the connection's own goroutine.
func (c *Connection) Close() error {
	c.Start()
	return c.sock.Close()
}

// IsClosed reports whether the socket has been closed
func (c *Connection) IsClosed() bool {
	return c.sock.IsClosed()
}

// RemoteAddr returns the peer address, or nil once closed
func (c *Connection) RemoteAddr() *net.TCPAddr {
	return c.sock.RemoteAddr()
}

// Done is closed after the terminate callback has returned and the socket
// has been released
func (c *Connection) Done() <-chan struct{} {
	return c.done
}

// Wait blocks until Done is closed
func (c *Connection) Wait() {
	<-c.done
}
