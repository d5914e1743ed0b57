package client

import (
	"fmt"
	"net"
	"strings"
	"testing"

	"github.com/nczempin/asyncsock/errors"
	"github.com/nczempin/asyncsock/protocol"
	"github.com/nczempin/asyncsock/transport"
)

// setupTestServer creates a simple HTTP test server
func setupTestServer(t *testing.T, handler func(net.Conn)) (string, uint16, func()) {
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

	cleanup := func() {
		listener.Close()
	}

	return addr.IP.String(), uint16(addr.Port), cleanup
}

func newClient(kind transport.DriverKind) *HttpClient {
	proto := protocol.NewHttp1Protocol(transport.NewSocketWithDriver(kind))
	proto.ReadTimeout = transport.Milliseconds(2000)
	return NewHttpClient(proto)
}

func TestHttpClient_GetSafe(t *testing.T) {
	responseBody := "Hello, World!"
	response := fmt.Sprintf("HTTP/1.1 200 OK\r\nContent-Length: %d\r\n\r\n%s", len(responseBody), responseBody)

	host, port, cleanup := setupTestServer(t, func(conn net.Conn) {
		buf := make([]byte, 1024)
		conn.Read(buf)
		conn.Write([]byte(response))
	})
	defer cleanup()

	client := newClient(transport.DriverSyscall)
	if err := client.Connect(host, port); err != nil {
		t.Fatalf("Failed to connect: %v", err)
	}
	defer client.Disconnect()

	req := &protocol.ClientRequest{
		Path: "/test",
		Headers: []protocol.HttpHeader{
			{Key: "Host", Value: "localhost"},
		},
	}

	resp, err := client.GetSafe(req)
	if err != nil {
		t.Fatalf("GET request failed: %v", err)
	}

	if resp.StatusCode != 200 {
		t.Errorf("Expected status code 200, got %d", resp.StatusCode)
	}
	if string(resp.Body) != responseBody {
		t.Errorf("Expected body %q, got %q", responseBody, string(resp.Body))
	}
}

func TestHttpClient_GetUnsafe_Drivers(t *testing.T) {
	for _, kind := range []transport.DriverKind{transport.DriverSyscall, transport.DriverIOURing, transport.DriverRing} {
		t.Run(kind.String(), func(t *testing.T) {
			drv, err := transport.OpenDriver(kind)
			if err != nil {
				t.Skipf("%s driver unavailable: %v", kind, err)
			}
			drv.Close()

			responseBody := "Hello from " + kind.String()
			response := fmt.Sprintf("HTTP/1.1 200 OK\r\nContent-Length: %d\r\n\r\n%s", len(responseBody), responseBody)

			host, port, cleanup := setupTestServer(t, func(conn net.Conn) {
				conn.Read(make([]byte, 1024))
				conn.Write([]byte(response))
			})
			defer cleanup()

			client := newClient(kind)
			if err := client.Connect(host, port); err != nil {
				t.Fatalf("Failed to connect: %v", err)
			}
			defer client.Disconnect()

			resp, err := client.GetUnsafe(&protocol.ClientRequest{Path: "/"})
			if err != nil {
				t.Fatalf("GET request failed: %v", err)
			}
			if string(resp.Body) != responseBody {
				t.Errorf("Expected body %q, got %q", responseBody, string(resp.Body))
			}
		})
	}
}

func TestHttpClient_PostSafe(t *testing.T) {
	responseBody := "Created"
	response := fmt.Sprintf("HTTP/1.1 201 Created\r\nContent-Length: %d\r\n\r\n%s", len(responseBody), responseBody)
	received := make(chan string, 1)

	host, port, cleanup := setupTestServer(t, func(conn net.Conn) {
		buf := make([]byte, 1024)
		n, _ := conn.Read(buf)
		received <- string(buf[:n])
		conn.Write([]byte(response))
	})
	defer cleanup()

	client := newClient(transport.DriverSyscall)
	if err := client.Connect(host, port); err != nil {
		t.Fatalf("Failed to connect: %v", err)
	}
	defer client.Disconnect()

	postBody := []byte("test data")
	req := &protocol.ClientRequest{
		Path: "/create",
		Headers: []protocol.HttpHeader{
			{Key: "Host", Value: "localhost"},
			{Key: "Content-Length", Value: fmt.Sprintf("%d", len(postBody))},
		},
		Body: postBody,
	}

	resp, err := client.PostSafe(req)
	if err != nil {
		t.Fatalf("POST request failed: %v", err)
	}

	if resp.StatusCode != 201 {
		t.Errorf("Expected status code 201, got %d", resp.StatusCode)
	}
	if string(resp.Body) != responseBody {
		t.Errorf("Expected body %q, got %q", responseBody, string(resp.Body))
	}

	wire := <-received
	if !strings.HasPrefix(wire, "POST /create HTTP/1.1\r\n") || !strings.HasSuffix(wire, "\r\n\r\ntest data") {
		t.Errorf("Unexpected request on the wire: %q", wire)
	}
}

func TestHttpClient_AgainstHttpServer(t *testing.T) {
	srv := protocol.NewHttpServer(0, transport.IPv4, func(req *protocol.HttpRequest) *protocol.HttpResponse {
		name, ok := req.GetOption("name")
		if !ok {
			name = "stranger"
		}
		resp := protocol.NewHttpResponse(protocol.StatusOK, map[string]string{"Content-Type": "text/plain"})
		resp.SetContent([]byte("hello " + name))
		return resp
	})
	if err := srv.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer srv.Close()

	client := newClient(transport.DriverSyscall)
	if err := client.Connect("localhost", srv.Port()); err != nil {
		t.Fatalf("Failed to connect: %v", err)
	}
	defer client.Disconnect()

	resp, err := client.GetSafe(&protocol.ClientRequest{Path: "/greet?name=gopher"})
	if err != nil {
		t.Fatalf("GET request failed: %v", err)
	}
	if string(resp.Body) != "hello gopher" {
		t.Errorf("Unexpected body %q", resp.Body)
	}

	resp, err = client.PostSafe(&protocol.ClientRequest{
		Path:    "/greet",
		Headers: []protocol.HttpHeader{{Key: "Content-Length", Value: "2"}},
		Body:    []byte("{}"),
	})
	if err != nil {
		t.Fatalf("POST request failed: %v", err)
	}
	if string(resp.Body) != "hello stranger" {
		t.Errorf("Unexpected body %q", resp.Body)
	}
}

func TestHttpClient_GetWithBody_ReturnsError(t *testing.T) {
	client := newClient(transport.DriverSyscall)

	req := &protocol.ClientRequest{
		Path: "/test",
		Body: []byte("should not have body"),
	}

	_, err := client.GetSafe(req)
	e, ok := err.(*errors.Error)
	if !ok || e.Type != errors.ErrorInvalidArgument {
		t.Errorf("Expected InvalidArgument for GET request with body, got %v", err)
	}
}

func TestHttpClient_PostWithoutContentLength_ReturnsError(t *testing.T) {
	client := newClient(transport.DriverSyscall)

	req := &protocol.ClientRequest{
		Path: "/test",
		Body: []byte("test body"),
		Headers: []protocol.HttpHeader{
			{Key: "Host", Value: "localhost"},
		},
	}

	_, err := client.PostSafe(req)
	if err == nil {
		t.Error("Expected error for POST request without Content-Length, got nil")
	}

	_, err = client.PostUnsafe(&protocol.ClientRequest{Path: "/test"})
	if err == nil {
		t.Error("Expected error for POST request without body, got nil")
	}
}

func TestHttpClient_DoEachMethod(t *testing.T) {
	srv := protocol.NewHttpServer(0, transport.IPv4, func(req *protocol.HttpRequest) *protocol.HttpResponse {
		resp := protocol.NewHttpResponse(protocol.StatusOK, nil)
		if req.Method() == protocol.MethodHead {
			resp.SetHeader("Content-Length", "4")
			return resp
		}
		resp.SetContent([]byte(req.MethodName()))
		return resp
	})
	if err := srv.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer srv.Close()

	client := newClient(transport.DriverSyscall)
	if err := client.Connect("localhost", srv.Port()); err != nil {
		t.Fatalf("Failed to connect: %v", err)
	}
	defer client.Disconnect()

	withBody := func() *protocol.ClientRequest {
		return &protocol.ClientRequest{
			Path:    "/m",
			Headers: []protocol.HttpHeader{{Key: "Content-Length", Value: "1"}},
			Body:    []byte("x"),
		}
	}
	cases := []struct {
		method protocol.Method
		req    *protocol.ClientRequest
	}{
		{protocol.MethodOptions, &protocol.ClientRequest{Path: "*"}},
		{protocol.MethodGet, &protocol.ClientRequest{Path: "/m"}},
		{protocol.MethodPost, withBody()},
		{protocol.MethodPut, withBody()},
		{protocol.MethodDelete, &protocol.ClientRequest{Path: "/m"}},
		{protocol.MethodTrace, &protocol.ClientRequest{Path: "/m"}},
	}
	for _, tc := range cases {
		resp, err := client.Do(tc.method, tc.req)
		if err != nil {
			t.Fatalf("%v request failed: %v", tc.method, err)
		}
		if string(resp.Body) != tc.method.String() {
			t.Errorf("Expected body %q, got %q", tc.method.String(), resp.Body)
		}
	}

	resp, err := client.Head(&protocol.ClientRequest{Path: "/m"})
	if err != nil {
		t.Fatalf("HEAD request failed: %v", err)
	}
	if len(resp.Body) != 0 || resp.ContentLength != 4 {
		t.Errorf("Expected headers only with Content-Length 4, got %d bytes and %d", len(resp.Body), resp.ContentLength)
	}

	// The connection is still usable after a bodyless response.
	resp, err = client.GetSafe(&protocol.ClientRequest{Path: "/m"})
	if err != nil {
		t.Fatalf("GET after HEAD failed: %v", err)
	}
	if string(resp.Body) != "GET" {
		t.Errorf("Expected body %q, got %q", "GET", resp.Body)
	}
}

func TestHttpClient_Do_Validation(t *testing.T) {
	client := newClient(transport.DriverSyscall)

	cases := []struct {
		name   string
		method protocol.Method
		req    *protocol.ClientRequest
	}{
		{"nil request", protocol.MethodGet, nil},
		{"extension method", protocol.MethodExtension, &protocol.ClientRequest{Path: "/"}},
		{"empty path", protocol.MethodGet, &protocol.ClientRequest{}},
		{"path with space", protocol.MethodGet, &protocol.ClientRequest{Path: "/a b"}},
		{"put without body", protocol.MethodPut, &protocol.ClientRequest{Path: "/"}},
		{"trace with body", protocol.MethodTrace, &protocol.ClientRequest{
			Path:    "/",
			Headers: []protocol.HttpHeader{{Key: "Content-Length", Value: "1"}},
			Body:    []byte("x"),
		}},
		{"delete body without length", protocol.MethodDelete, &protocol.ClientRequest{Path: "/", Body: []byte("x")}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := client.Do(tc.method, tc.req)
			e, ok := err.(*errors.Error)
			if !ok || e.Type != errors.ErrorInvalidArgument {
				t.Errorf("Expected InvalidArgument, got %v", err)
			}
		})
	}
}

func TestHttpClient_Do_LeavesRequestUnchanged(t *testing.T) {
	host, port, cleanup := setupTestServer(t, func(conn net.Conn) {
		conn.Read(make([]byte, 1024))
		conn.Write([]byte("HTTP/1.1 204 No Content\r\nContent-Length: 0\r\n\r\n"))
	})
	defer cleanup()

	client := newClient(transport.DriverSyscall)
	if err := client.Connect(host, port); err != nil {
		t.Fatalf("Failed to connect: %v", err)
	}
	defer client.Disconnect()

	req := &protocol.ClientRequest{Method: protocol.MethodPost, Path: "/"}
	if _, err := client.Do(protocol.MethodDelete, req); err != nil {
		t.Fatalf("DELETE request failed: %v", err)
	}
	if req.Method != protocol.MethodPost {
		t.Errorf("Request method was changed to %v", req.Method)
	}
}
