package async

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/nczempin/asyncsock/internal/obs"
	"github.com/nczempin/asyncsock/transport"
)

// Server runs an accept loop on a goroutine of its own and hands every
// accepted socket to the connection callback as a Connection.
//
// The exported fields configure the next Start and must not be changed
// while the server is running.
type Server struct {
	Logger         obs.Logger
	Meter          obs.Meter
	ReadTimeout    transport.Timeout
	MaxMessageSize int
	Driver         transport.DriverKind

	family transport.Family

	lifecycle sync.Mutex // serializes Start and Stop
	listener  *transport.Listener
	port      uint16
	exited    chan struct{} // closed when the accept call has returned
	done      chan struct{} // closed when the callbacks have returned

	cbMu         sync.Mutex
	onConnection func(*Connection)
	onError      func(error)
	onTerminate  func()

	running     atomic.Bool
	shouldClose atomic.Bool
}

// NewServer creates a stopped server for port and family. Port 0 binds
// an ephemeral port on the first Start; later starts reuse it.
func NewServer(port uint16, family transport.Family) *Server {
	return &Server{
		ReadTimeout:    transport.Never,
		MaxMessageSize: DefaultMaxMessageSize,
		family:         family,
		port:           port,
		onConnection:   func(*Connection) {},
		onError:        func(error) {},
		onTerminate:    func() {},
	}
}

// OnConnection sets the callback for accepted connections. It runs on the
// accept goroutine; the connection starts reading once it returns.
func (s *Server) OnConnection(f func(*Connection)) {
	if f == nil {
		f = func(*Connection) {}
	}
	s.cbMu.Lock()
	s.onConnection = f
	s.cbMu.Unlock()
}

// OnError sets the callback for accept faults that stop the server
func (s *Server) OnError(f func(error)) {
	if f == nil {
		f = func(error) {}
	}
	s.cbMu.Lock()
	s.onError = f
	s.cbMu.Unlock()
}

// OnTerminate sets the callback invoked when the accept loop exits
func (s *Server) OnTerminate(f func()) {
	if f == nil {
		f = func() {}
	}
	s.cbMu.Lock()
	s.onTerminate = f
	s.cbMu.Unlock()
}

// Start binds a fresh listening socket and launches the accept loop. It
// is a no-op while the server is running. Bind failures are returned here.
// If a Stop is still winding down, Start waits for the old loop to leave
// its accept call. Start may be called from OnError and OnTerminate.
func (s *Server) Start() error {
	s.lifecycle.Lock()
	for s.running.Load() {
		if !s.shouldClose.Load() {
			s.lifecycle.Unlock()
			return nil
		}
		exited := s.exited
		s.lifecycle.Unlock()
		<-exited
		s.lifecycle.Lock()
	}
	defer s.lifecycle.Unlock()

	l := transport.NewListener()
	l.Driver = s.Driver
	if err := l.Bind(s.port, s.family); err != nil {
		return err
	}
	s.listener = l
	s.port = l.Port()

	s.shouldClose.Store(false)
	s.running.Store(true)
	s.exited = make(chan struct{})
	s.done = make(chan struct{})

	log := obs.OrNop(s.Logger)
	log.Logf(obs.Info, "listening on port %d (%s)", s.port, s.family)

	go s.serve(l, s.exited, s.done)
	return nil
}

// serve runs one accept loop. The server counts as stopped before the
// error and terminate callbacks run, so they may start it again; done is
// closed after they return.
func (s *Server) serve(l *transport.Listener, exited, done chan struct{}) {
	log := obs.OrNop(s.Logger)

	err := s.acceptLoop(l)

	s.running.Store(false)
	close(exited)

	if err != nil {
		s.cbMu.Lock()
		onError := s.onError
		s.cbMu.Unlock()
		s.safeCall(log, "error", func() { onError(err) })
	}

	s.cbMu.Lock()
	onTerminate := s.onTerminate
	s.cbMu.Unlock()
	s.safeCall(log, "terminate", onTerminate)

	close(done)
}

// acceptLoop accepts until the listener is closed. It returns nil after a
// Stop and the accept error otherwise.
func (s *Server) acceptLoop(l *transport.Listener) error {
	log := obs.OrNop(s.Logger)
	meter := obs.MeterOrNop(s.Meter)
	port := l.Port()
	cfg := ConnConfig{
		ReadTimeout:    s.ReadTimeout,
		MaxMessageSize: s.MaxMessageSize,
		Logger:         s.Logger,
		Meter:          s.Meter,
	}

	for {
		sock, err := l.Accept()
		if err != nil {
			if s.shouldClose.Load() {
				log.Logf(obs.Debug, "accept loop on port %d stopped", port)
				return nil
			}

			log.Logf(obs.Error, "accept on port %d: %v", port, err)
			meter.Counter(obs.MetricListenerErrors, 1)
			s.shouldClose.Store(true)
			l.Close()
			return err
		}

		c := NewConnection(sock, cfg)
		meter.Counter(obs.MetricConnectionsAccepted, 1)
		log.Logf(obs.Debug, "connection #%d (%s) accepted from %v", c.ID(), c.Session(), c.RemoteAddr())

		s.cbMu.Lock()
		onConnection := s.onConnection
		s.cbMu.Unlock()
		s.safeCall(log, "connection", func() { onConnection(c) })
		c.Start()
	}
}

func (s *Server) safeCall(log obs.Logger, name string, f func()) {
	defer func() {
		if p := recover(); p != nil {
			log.Logf(obs.Error, "%s callback panicked: %v", name, p)
		}
	}()
	f()
}

// Stop closes the listening socket, which ends the accept loop without an
// error callback. It returns before the loop has exited; use Wait for that.
// Established connections are not closed.
func (s *Server) Stop() {
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()

	s.shouldClose.Store(true)
	if s.listener != nil {
		s.listener.Close()
	}
}

// Wait blocks until the current accept loop has exited and its callbacks
// have returned. It must not be called from OnError or OnTerminate.
func (s *Server) Wait() {
	s.lifecycle.Lock()
	done := s.done
	s.lifecycle.Unlock()

	if done != nil {
		<-done
	}
}

// Shutdown stops the server and waits for the accept loop to exit or for
// ctx to be done.
func (s *Server) Shutdown(ctx context.Context) error {
	s.Stop()

	s.lifecycle.Lock()
	done := s.done
	s.lifecycle.Unlock()
	if done == nil {
		return nil
	}

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops the server and waits for the accept loop to exit
func (s *Server) Close() error {
	s.Stop()
	s.Wait()
	return nil
}

// IsRunning reports whether the accept loop is running
func (s *Server) IsRunning() bool {
	return s.running.Load()
}

// Port returns the bound port, or the configured one before the first Start
func (s *Server) Port() uint16 {
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()
	return s.port
}

// Family returns the address family the server listens on
func (s *Server) Family() transport.Family {
	return s.family
}
