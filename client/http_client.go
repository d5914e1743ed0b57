package client

import (
	"fmt"
	"strings"

	"github.com/nczempin/asyncsock/errors"
	"github.com/nczempin/asyncsock/protocol"
)

// bodyRule says whether a method may, must or must not carry a body.
type bodyRule int

const (
	bodyOptional bodyRule = iota
	bodyForbidden
	bodyRequired
)

var bodyRules = map[protocol.Method]bodyRule{
	protocol.MethodOptions: bodyOptional,
	protocol.MethodGet:     bodyForbidden,
	protocol.MethodHead:    bodyForbidden,
	protocol.MethodPost:    bodyRequired,
	protocol.MethodPut:     bodyRequired,
	protocol.MethodDelete:  bodyOptional,
	protocol.MethodTrace:   bodyForbidden,
	protocol.MethodConnect: bodyForbidden,
}

// HttpClient sends requests over one Http1Protocol connection. Requests
// are checked before anything is written to the socket.
type HttpClient struct {
	protocol *protocol.Http1Protocol
}

// NewHttpClient creates a new HTTP client with the given protocol
func NewHttpClient(proto *protocol.Http1Protocol) *HttpClient {
	return &HttpClient{
		protocol: proto,
	}
}

// Connect establishes a connection to host and port
func (c *HttpClient) Connect(host string, port uint16) error {
	return c.protocol.Connect(host, port)
}

// Disconnect closes the connection
func (c *HttpClient) Disconnect() error {
	return c.protocol.Disconnect()
}

// Do sends req with method m and returns a copied response. req is not
// modified.
func (c *HttpClient) Do(m protocol.Method, req *protocol.ClientRequest) (*protocol.ClientResponse, error) {
	out, err := prepare(m, req)
	if err != nil {
		return nil, err
	}
	return c.protocol.PerformRequestSafe(out)
}

// DoUnsafe is Do with a zero-copy response that is only valid until the
// next request.
func (c *HttpClient) DoUnsafe(m protocol.Method, req *protocol.ClientRequest) (*protocol.UnsafeClientResponse, error) {
	out, err := prepare(m, req)
	if err != nil {
		return nil, err
	}
	return c.protocol.PerformRequestUnsafe(out)
}

// GetSafe performs a GET request and returns a copied response
func (c *HttpClient) GetSafe(req *protocol.ClientRequest) (*protocol.ClientResponse, error) {
	return c.Do(protocol.MethodGet, req)
}

// GetUnsafe performs a GET request and returns a zero-copy response
func (c *HttpClient) GetUnsafe(req *protocol.ClientRequest) (*protocol.UnsafeClientResponse, error) {
	return c.DoUnsafe(protocol.MethodGet, req)
}

// PostSafe performs a POST request and returns a copied response
func (c *HttpClient) PostSafe(req *protocol.ClientRequest) (*protocol.ClientResponse, error) {
	return c.Do(protocol.MethodPost, req)
}

// PostUnsafe performs a POST request and returns a zero-copy response
func (c *HttpClient) PostUnsafe(req *protocol.ClientRequest) (*protocol.UnsafeClientResponse, error) {
	return c.DoUnsafe(protocol.MethodPost, req)
}

// Head performs a HEAD request. The response carries headers only.
func (c *HttpClient) Head(req *protocol.ClientRequest) (*protocol.ClientResponse, error) {
	return c.Do(protocol.MethodHead, req)
}

// Put performs a PUT request
func (c *HttpClient) Put(req *protocol.ClientRequest) (*protocol.ClientResponse, error) {
	return c.Do(protocol.MethodPut, req)
}

// Delete performs a DELETE request
func (c *HttpClient) Delete(req *protocol.ClientRequest) (*protocol.ClientResponse, error) {
	return c.Do(protocol.MethodDelete, req)
}

// prepare validates req for method m and returns a copy with the method
// set.
func prepare(m protocol.Method, req *protocol.ClientRequest) (*protocol.ClientRequest, error) {
	if req == nil {
		return nil, errors.NewInvalidArgumentError("request is nil")
	}
	rule, ok := bodyRules[m]
	if !ok {
		return nil, errors.NewInvalidArgumentError(fmt.Sprintf("cannot send method %v", m))
	}
	if req.Path == "" || strings.ContainsAny(req.Path, " \r\n") {
		return nil, errors.NewInvalidArgumentError(fmt.Sprintf("invalid request path %q", req.Path))
	}

	switch {
	case rule == bodyForbidden && len(req.Body) > 0:
		return nil, errors.NewInvalidArgumentError(fmt.Sprintf("%v request cannot have a body", m))
	case rule == bodyRequired && len(req.Body) == 0:
		return nil, errors.NewInvalidArgumentError(fmt.Sprintf("%v request must have a body", m))
	}

	if len(req.Body) > 0 && !hasHeader(req.Headers, "Content-Length") {
		return nil, errors.NewInvalidArgumentError(fmt.Sprintf("%v request with a body must have a Content-Length header", m))
	}

	out := *req
	out.Method = m
	return &out, nil
}

func hasHeader(headers []protocol.HttpHeader, key string) bool {
	for _, h := range headers {
		if strings.EqualFold(h.Key, key) {
			return true
		}
	}
	return false
}
