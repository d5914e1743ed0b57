package protocol

import (
	"github.com/nczempin/asyncsock/async"
	"github.com/nczempin/asyncsock/internal/obs"
	"github.com/nczempin/asyncsock/transport"
)

// Handler produces the response to one request. Returning nil answers
// with 500 Internal Server Error.
type Handler func(req *HttpRequest) *HttpResponse

// HttpServer answers every message received on a connection as one HTTP
// request. Requests are not reassembled across reads and bodies are not
// interpreted.
type HttpServer struct {
	server  *async.Server
	handler Handler
}

// NewHttpServer creates a stopped server on port and family. The async
// server's fields (Logger, ReadTimeout, ...) can be set through Server
// before Start.
func NewHttpServer(port uint16, family transport.Family, handler Handler) *HttpServer {
	h := &HttpServer{
		server:  async.NewServer(port, family),
		handler: handler,
	}
	h.server.OnConnection(h.handleConnection)
	return h
}

// Server returns the underlying async server
func (h *HttpServer) Server() *async.Server {
	return h.server
}

func (h *HttpServer) Start() error {
	return h.server.Start()
}

func (h *HttpServer) Stop() {
	h.server.Stop()
}

func (h *HttpServer) Close() error {
	return h.server.Close()
}

func (h *HttpServer) Port() uint16 {
	return h.server.Port()
}

func (h *HttpServer) logger() obs.Logger {
	return obs.OrNop(h.server.Logger)
}

func (h *HttpServer) handleConnection(c *async.Connection) {
	h.logger().Logf(obs.Info, "--- New connection: client #%d", c.ID())
	c.OnMessage(h.handleMessage)
	c.OnTerminate(func(c *async.Connection) {
		h.logger().Logf(obs.Info, "--- Disconnect: client #%d", c.ID())
	})
}

func (h *HttpServer) handleMessage(msg []byte, c *async.Connection) {
	req, err := ParseRequest(msg, c)
	if err != nil {
		h.logger().Logf(obs.Warn, "client #%d: %v", c.ID(), err)
		resp := NewHttpResponse(StatusBadRequest, map[string]string{"Content-Type": "text/plain"})
		resp.SetContent([]byte(StatusBadRequest.Reason()))
		if err := resp.SendTo(c); err != nil {
			h.logger().Logf(obs.Warn, "client #%d: %v", c.ID(), err)
		}
		return
	}

	h.logger().Logf(obs.Debug, "client #%d: %s %s", c.ID(), req.MethodName(), req.Path())

	var resp *HttpResponse
	if h.handler != nil {
		resp = h.handler(req)
	}
	if resp == nil {
		resp = NewHttpResponse(StatusInternalServerError, map[string]string{"Content-Type": "text/plain"})
		resp.SetContent([]byte(StatusInternalServerError.Reason()))
	}
	if err := req.Respond(resp); err != nil {
		h.logger().Logf(obs.Warn, "client #%d: %v", c.ID(), err)
	}
}

// HelloWorld is a Handler answering every request with a small HTML page.
func HelloWorld(*HttpRequest) *HttpResponse {
	resp := NewHttpResponse(StatusOK, map[string]string{"Content-Type": "text/html"})
	resp.SetContent([]byte("<html><head><title>Yo</title></head><body>Hello World!</body></html>"))
	return resp
}
