// Http-server answers every request with a "Hello World!" page.

package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/nczempin/asyncsock/internal/obs"
	"github.com/nczempin/asyncsock/protocol"
	"github.com/nczempin/asyncsock/transport"
)

// http-server -p 8080

func main() {
	var (
		port   uint
		family string
		driver string
		level  string
	)
	flag.UintVar(&port, "p", 8080, "listen port")
	flag.StringVar(&family, "f", "ipv4", "address family (ipv4|ipv6)")
	flag.StringVar(&driver, "d", "syscall", "i/o driver (syscall|iouring|ring)")
	flag.StringVar(&level, "l", "info", "log level (debug|info|warn|error)")
	flag.Parse()

	if err := run(uint16(port), family, driver, level); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(port uint16, family, driver, level string) error {
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

	srv := protocol.NewHttpServer(port, fam, protocol.HelloWorld)
	srv.Server().Logger = obs.NewStdLogger(minLevel, "http ")
	srv.Server().Driver = kind
	if err := srv.Start(); err != nil {
		return err
	}
	defer srv.Close()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	return nil
}
