// Suc-client connects to a server, prints whatever it receives and sends
// every line read from stdin.

package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"

	"github.com/nczempin/asyncsock/async"
	"github.com/nczempin/asyncsock/internal/obs"
	"github.com/nczempin/asyncsock/transport"
)

// suc-client -a localhost -p 1234

func main() {
	var (
		address string
		port    uint
		family  string
		driver  string
		level   string
	)
	flag.StringVar(&address, "a", "localhost", "server address")
	flag.UintVar(&port, "p", 1234, "server port")
	flag.StringVar(&family, "f", "ipv4", "address family (ipv4|ipv6)")
	flag.StringVar(&driver, "d", "syscall", "i/o driver (syscall|iouring|ring)")
	flag.StringVar(&level, "l", "warn", "log level (debug|info|warn|error)")
	flag.Parse()

	if err := run(address, uint16(port), family, driver, level); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(address string, port uint16, family, driver, level string) error {
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

	if err := transport.Init(); err != nil {
		return err
	}
	defer transport.Shutdown()

	sock := transport.NewSocketWithDriver(kind)
	if err := sock.Connect(address, port, fam); err != nil {
		return err
	}

	c := async.NewConnection(sock, async.ConnConfig{
		Logger: obs.NewStdLogger(minLevel, "client "),
	})
	c.OnMessage(func(p []byte, _ *async.Connection) {
		fmt.Printf("Received message from server: %s\n", p)
	})
	c.OnTerminate(func(*async.Connection) {
		fmt.Println("Connection closed.")
	})
	c.Start()

	lines := make(chan string)
	go func() {
		defer close(lines)
		in := bufio.NewScanner(os.Stdin)
		for in.Scan() {
			lines <- in.Text()
		}
	}()

	for {
		select {
		case line, ok := <-lines:
			if !ok {
				c.Close()
				c.Wait()
				return nil
			}
			if err := c.SendString(line + "\n"); err != nil {
				c.Close()
				c.Wait()
				return err
			}
		case <-c.Done():
			return nil
		}
	}
}
