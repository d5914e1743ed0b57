package protocol

import (
	"fmt"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/nczempin/asyncsock/errors"
	"github.com/nczempin/asyncsock/transport"
)

// setupTestServer serves one connection with handler.
func setupTestServer(t *testing.T, handler func(net.Conn)) (string, uint16, func()) {
	t.Helper()

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Failed to create listener: %v", err)
	}

	addr := listener.Addr().(*net.TCPAddr)

	go func() {
		conn, err := listener.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		handler(conn)
	}()

	return addr.IP.String(), uint16(addr.Port), func() { listener.Close() }
}

func newTestProtocol(t *testing.T, host string, port uint16) *Http1Protocol {
	t.Helper()
	p := NewHttp1Protocol(transport.NewSocket())
	p.ReadTimeout = transport.Milliseconds(2000)
	if err := p.Connect(host, port); err != nil {
		t.Fatalf("Failed to connect: %v", err)
	}
	t.Cleanup(func() { p.Disconnect() })
	return p
}

func TestHttp1Protocol_ContentLength(t *testing.T) {
	requests := make(chan string, 1)
	host, port, cleanup := setupTestServer(t, func(conn net.Conn) {
		buf := make([]byte, 1024)
		n, _ := conn.Read(buf)
		requests <- string(buf[:n])

		// Headers and body arrive in separate segments.
		conn.Write([]byte("HTTP/1.1 200 OK\r\nContent-Type: text/plain\r\ncontent-length: 11\r\n\r\nhello"))
		time.Sleep(20 * time.Millisecond)
		conn.Write([]byte(" world"))
	})
	defer cleanup()

	p := newTestProtocol(t, host, port)
	resp, err := p.PerformRequestSafe(&ClientRequest{
		Method:  MethodGet,
		Path:    "/greeting",
		Headers: []HttpHeader{{Key: "Host", Value: "localhost"}},
	})
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}

	if got := <-requests; got != "GET /greeting HTTP/1.1\r\nHost: localhost\r\n\r\n" {
		t.Errorf("Unexpected request on the wire: %q", got)
	}
	if resp.StatusCode != StatusOK || resp.StatusMessage != "OK" {
		t.Errorf("Unexpected status %d %q", resp.StatusCode, resp.StatusMessage)
	}
	if string(resp.Body) != "hello world" || resp.ContentLength != 11 {
		t.Errorf("Unexpected body %q (length %d)", resp.Body, resp.ContentLength)
	}
	if v, ok := resp.Header("Content-Type"); !ok || v != "text/plain" {
		t.Errorf("Expected Content-Type header, got %q", v)
	}
}

func TestHttp1Protocol_BodyUntilClose(t *testing.T) {
	host, port, cleanup := setupTestServer(t, func(conn net.Conn) {
		conn.Read(make([]byte, 1024))
		conn.Write([]byte("HTTP/1.1 200 OK\r\n\r\nstreamed until close"))
	})
	defer cleanup()

	p := newTestProtocol(t, host, port)
	resp, err := p.PerformRequestUnsafe(&ClientRequest{Method: MethodGet, Path: "/"})
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	if string(resp.Body) != "streamed until close" || resp.ContentLength != -1 {
		t.Errorf("Unexpected body %q (length %d)", resp.Body, resp.ContentLength)
	}
}

func TestHttp1Protocol_IncompleteBody(t *testing.T) {
	host, port, cleanup := setupTestServer(t, func(conn net.Conn) {
		conn.Read(make([]byte, 1024))
		conn.Write([]byte("HTTP/1.1 200 OK\r\nContent-Length: 100\r\n\r\nshort"))
	})
	defer cleanup()

	p := newTestProtocol(t, host, port)
	_, err := p.PerformRequestSafe(&ClientRequest{Method: MethodGet, Path: "/"})
	if !errors.IsConnectionClosed(err) {
		t.Errorf("Expected ConnectionClosed for a truncated body, got %v", err)
	}
}

func TestHttp1Protocol_InvalidStatusLine(t *testing.T) {
	host, port, cleanup := setupTestServer(t, func(conn net.Conn) {
		conn.Read(make([]byte, 1024))
		conn.Write([]byte("NOT-HTTP\r\nContent-Length: 0\r\n\r\n"))
	})
	defer cleanup()

	p := newTestProtocol(t, host, port)
	_, err := p.PerformRequestSafe(&ClientRequest{Method: MethodGet, Path: "/"})
	e, ok := err.(*errors.Error)
	if !ok || e.Type != errors.ErrorInvalidRequest {
		t.Errorf("Expected InvalidRequest, got %v", err)
	}
}

func TestHttp1Protocol_Timeout(t *testing.T) {
	release := make(chan struct{})
	host, port, cleanup := setupTestServer(t, func(conn net.Conn) {
		<-release
	})
	defer cleanup()
	defer close(release)

	p := newTestProtocol(t, host, port)
	p.ReadTimeout = transport.Milliseconds(50)

	_, err := p.PerformRequestSafe(&ClientRequest{Method: MethodGet, Path: "/"})
	if errors.KindOf(err) != errors.NetworkErrorTimedOut {
		t.Errorf("Expected a timeout, got %v", err)
	}
}

func TestHttpServer_HelloWorld(t *testing.T) {
	srv := NewHttpServer(0, transport.IPv4, HelloWorld)
	if err := srv.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer srv.Close()

	p := newTestProtocol(t, "127.0.0.1", srv.Port())
	for i := 0; i < 3; i++ {
		resp, err := p.PerformRequestSafe(&ClientRequest{
			Method:  MethodGet,
			Path:    fmt.Sprintf("/page?n=%d", i),
			Headers: []HttpHeader{{Key: "Host", Value: "localhost"}},
		})
		if err != nil {
			t.Fatalf("Request %d failed: %v", i, err)
		}
		if resp.StatusCode != StatusOK {
			t.Errorf("Expected 200, got %d", resp.StatusCode)
		}
		if !strings.Contains(string(resp.Body), "Hello World!") {
			t.Errorf("Unexpected body %q", resp.Body)
		}
		if v, _ := resp.Header("Content-Type"); v != "text/html" {
			t.Errorf("Expected text/html, got %q", v)
		}
	}
}

func TestHttpServer_BadRequestAndNilResponse(t *testing.T) {
	srv := NewHttpServer(0, transport.IPv4, func(req *HttpRequest) *HttpResponse {
		if req.Path() == "/missing" {
			return nil
		}
		resp := NewHttpResponse(StatusOK, nil)
		resp.SetContent([]byte(req.MethodName()))
		return resp
	})
	if err := srv.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer srv.Close()

	p := newTestProtocol(t, "127.0.0.1", srv.Port())

	cases := []struct {
		req    *ClientRequest
		status HttpStatusCode
	}{
		{&ClientRequest{Method: MethodDelete, Path: "/x"}, StatusOK},
		{&ClientRequest{Method: MethodGet, Path: "/missing"}, StatusInternalServerError},
		{&ClientRequest{Method: MethodGet, Path: "/has space"}, StatusBadRequest},
	}
	for _, tc := range cases {
		resp, err := p.PerformRequestSafe(tc.req)
		if err != nil {
			t.Fatalf("%s %s failed: %v", tc.req.Method, tc.req.Path, err)
		}
		if resp.StatusCode != tc.status {
			t.Errorf("%s %s: expected %d, got %d", tc.req.Method, tc.req.Path, tc.status, resp.StatusCode)
		}
	}
}
