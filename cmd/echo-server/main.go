// Echo-server sends every message it receives back to the client that
// sent it.

package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nczempin/asyncsock/async"
	"github.com/nczempin/asyncsock/internal/obs"
	"github.com/nczempin/asyncsock/transport"
)

// echo-server -p 1234 -f ipv4 -d syscall -l debug

func main() {
	var (
		port     uint
		family   string
		driver   string
		level    string
		timeout  int
		maxBytes int
	)
	flag.UintVar(&port, "p", 1234, "listen port")
	flag.StringVar(&family, "f", "ipv4", "address family (ipv4|ipv6)")
	flag.StringVar(&driver, "d", "syscall", "i/o driver (syscall|iouring|ring)")
	flag.StringVar(&level, "l", "info", "log level (debug|info|warn|error)")
	flag.IntVar(&timeout, "t", -1, "read timeout in ms (-1 = never)")
	flag.IntVar(&maxBytes, "m", async.DefaultMaxMessageSize, "max bytes per message")
	flag.Parse()

	if err := run(uint16(port), family, driver, level, transport.Milliseconds(timeout), maxBytes); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(port uint16, family, driver, level string, timeout transport.Timeout, maxBytes int) error {
	fam, err := transport.ParseFamily(family)
	if err != nil {
		return err
	}
	kind, err := transport.ParseDriverKind(driver)
	if err != nil {
		return err
	}
	minLevel, err := obs.ParseLevel(level)
	if err != nil {
		return err
	}
	log := obs.NewStdLogger(minLevel, "echo ")

	if err := transport.Init(); err != nil {
		return err
	}
	defer transport.Shutdown()

	meter := obs.NewMemMeter()
	defer meter.Report(log)

	s := async.NewServer(port, fam)
	s.Logger = log
	s.Meter = meter
	s.Driver = kind
	s.ReadTimeout = timeout
	s.MaxMessageSize = maxBytes

	s.OnConnection(func(c *async.Connection) {
		log.Logf(obs.Info, "client #%d connected from %v", c.ID(), c.RemoteAddr())
		c.OnMessage(func(p []byte, c *async.Connection) {
			if err := c.Send(p); err != nil {
				log.Logf(obs.Warn, "client #%d: %v", c.ID(), err)
			}
		})
		c.OnTerminate(func(c *async.Connection) {
			log.Logf(obs.Info, "client #%d disconnected", c.ID())
		})
	})
	s.OnError(func(err error) {
		log.Logf(obs.Error, "listener failed: %v", err)
	})

	if err := s.Start(); err != nil {
		return err
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sig:
		log.Logf(obs.Info, "shutting down")
	case <-waitStopped(s):
		return fmt.Errorf("listener on port %d stopped unexpectedly", s.Port())
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.Shutdown(ctx)
}

func waitStopped(s *async.Server) <-chan struct{} {
	ch := make(chan struct{})
	go func() {
		s.Wait()
		close(ch)
	}()
	return ch
}
