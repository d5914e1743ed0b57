package protocol

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/nczempin/asyncsock/errors"
	"github.com/nczempin/asyncsock/transport"
)

var (
	headerSeparator  = []byte("\r\n\r\n")
	contentLengthKey = []byte("content-length:")
)

const (
	// DefaultReadTimeout bounds each wait for response bytes
	DefaultReadTimeout = transport.Timeout(30000)

	readChunkSize = 64 << 10
)

// Http1Protocol implements the client side of HTTP/1.1 over a Socket.
// A response is complete once Content-Length bytes of body have arrived,
// or when the server closes a response without Content-Length.
type Http1Protocol struct {
	sock          *transport.Socket
	receiver      *transport.Receiver
	buffer        []byte
	headerSize    int
	contentLength int
	noBody        bool // the response to a HEAD request ends with its headers

	// ReadTimeout bounds each wait for response bytes
	ReadTimeout transport.Timeout
	// Family selects the address family Connect resolves to
	Family transport.Family
}

// NewHttp1Protocol creates a new HTTP/1.1 protocol handler
func NewHttp1Protocol(sock *transport.Socket) *Http1Protocol {
	return &Http1Protocol{
		sock:          sock,
		receiver:      transport.NewReceiver(sock),
		buffer:        make([]byte, 0, 1024),
		contentLength: -1,
		ReadTimeout:   DefaultReadTimeout,
		Family:        transport.IPv4,
	}
}

// Connect establishes a connection to the specified host and port
func (p *Http1Protocol) Connect(host string, port uint16) error {
	return p.sock.Connect(host, port, p.Family)
}

// Disconnect closes the connection
func (p *Http1Protocol) Disconnect() error {
	return p.sock.Close()
}

// buildRequest formats an HTTP request into the internal buffer
func (p *Http1Protocol) buildRequest(req *ClientRequest) {
	p.buffer = p.buffer[:0]

	p.buffer = append(p.buffer, fmt.Sprintf("%s %s %s\r\n", req.Method, req.Path, HttpVersion)...)
	for _, header := range req.Headers {
		p.buffer = append(p.buffer, fmt.Sprintf("%s: %s\r\n", header.Key, header.Value)...)
	}
	p.buffer = append(p.buffer, "\r\n"...)

	if len(req.Body) > 0 {
		p.buffer = append(p.buffer, req.Body...)
	}
}

// readFullResponse reads the complete HTTP response into the buffer
func (p *Http1Protocol) readFullResponse() error {
	p.buffer = p.buffer[:0]
	p.headerSize = 0
	p.contentLength = -1

	for {
		chunk, err := p.receiver.RecvUnsafe(readChunkSize, p.ReadTimeout)
		if err != nil {
			if errors.IsConnectionClosed(err) {
				if p.contentLength >= 0 && len(p.buffer) < p.headerSize+p.contentLength {
					return errors.NewConnectionClosedError("recv", "connection closed before complete response received")
				}
				break
			}
			return err
		}
		if len(chunk) == 0 {
			return errors.NewNetworkError(errors.NetworkErrorTimedOut, "recv",
				fmt.Sprintf("no response data within %v", p.ReadTimeout), nil)
		}

		p.buffer = append(p.buffer, chunk...)

		if p.headerSize == 0 {
			if pos := bytes.Index(p.buffer, headerSeparator); pos >= 0 {
				p.headerSize = pos + len(headerSeparator)
				p.contentLength = parseContentLength(p.buffer[:p.headerSize])
			}
		}

		if p.headerSize > 0 && p.noBody {
			break
		}

		if p.headerSize > 0 && p.contentLength >= 0 && len(p.buffer) >= p.headerSize+p.contentLength {
			break
		}
	}

	if p.headerSize == 0 {
		return errors.NewInvalidRequestError("failed to parse HTTP response headers")
	}
	return nil
}

// parseContentLength extracts Content-Length from a header block, or -1
func parseContentLength(headersView []byte) int {
	lines := bytes.Split(headersView, []byte("\n"))
	for _, line := range lines[1:] {
		line = bytes.TrimSuffix(line, []byte("\r"))
		if len(line) == 0 {
			break
		}

		if len(line) >= len(contentLengthKey) && bytes.EqualFold(line[:len(contentLengthKey)], contentLengthKey) {
			value := strings.TrimSpace(string(line[len(contentLengthKey):]))
			if length, err := strconv.Atoi(value); err == nil && length >= 0 {
				return length
			}
		}
	}
	return -1
}

// parseResponse parses the response buffer into an UnsafeClientResponse
func (p *Http1Protocol) parseResponse() (*UnsafeClientResponse, error) {
	headersBlock := p.buffer[:p.headerSize-len(headerSeparator)]

	parts := bytes.SplitN(headersBlock, []byte("\n"), 2)
	statusLine := bytes.TrimSuffix(parts[0], []byte("\r"))

	// "HTTP/1.1 200 OK"
	statusParts := bytes.SplitN(statusLine, []byte(" "), 3)
	if len(statusParts) < 2 || !bytes.HasPrefix(statusParts[0], []byte("HTTP/")) {
		return nil, errors.NewInvalidRequestError(fmt.Sprintf("invalid status line %q", statusLine))
	}

	statusCode, err := strconv.Atoi(string(statusParts[1]))
	if err != nil {
		return nil, errors.NewInvalidRequestError(fmt.Sprintf("invalid status code: %s", statusParts[1]))
	}

	statusMessage := ""
	if len(statusParts) >= 3 {
		statusMessage = string(statusParts[2])
	}

	var headers []HttpHeaderView
	if len(parts) > 1 {
		for _, line := range bytes.Split(parts[1], []byte("\n")) {
			line = bytes.TrimSuffix(line, []byte("\r"))
			if len(line) == 0 {
				break
			}

			headerParts := bytes.SplitN(line, []byte(":"), 2)
			if len(headerParts) == 2 {
				headers = append(headers, HttpHeaderView{
					Key:   string(headerParts[0]),
					Value: strings.TrimSpace(string(headerParts[1])),
				})
			}
		}
	}

	var body []byte
	if p.noBody {
		body = p.buffer[p.headerSize:p.headerSize]
	} else if p.contentLength >= 0 {
		body = p.buffer[p.headerSize : p.headerSize+p.contentLength]
	} else {
		body = p.buffer[p.headerSize:]
	}

	return &UnsafeClientResponse{
		StatusCode:    HttpStatusCode(statusCode),
		StatusMessage: statusMessage,
		Headers:       headers,
		Body:          body,
		ContentLength: p.contentLength,
	}, nil
}

// PerformRequestUnsafe performs an HTTP request and returns a response
// whose body aliases the protocol's buffer until the next request
func (p *Http1Protocol) PerformRequestUnsafe(req *ClientRequest) (*UnsafeClientResponse, error) {
	p.buildRequest(req)
	p.noBody = req.Method == MethodHead

	if err := p.sock.Send(p.buffer); err != nil {
		return nil, err
	}

	if err := p.readFullResponse(); err != nil {
		return nil, err
	}

	return p.parseResponse()
}

// PerformRequestSafe performs an HTTP request and returns a copied response
func (p *Http1Protocol) PerformRequestSafe(req *ClientRequest) (*ClientResponse, error) {
	unsafeResp, err := p.PerformRequestUnsafe(req)
	if err != nil {
		return nil, err
	}

	headers := make([]HttpHeader, len(unsafeResp.Headers))
	for i, h := range unsafeResp.Headers {
		headers[i] = HttpHeader{Key: h.Key, Value: h.Value}
	}

	body := make([]byte, len(unsafeResp.Body))
	copy(body, unsafeResp.Body)

	return &ClientResponse{
		StatusCode:    unsafeResp.StatusCode,
		StatusMessage: unsafeResp.StatusMessage,
		Headers:       headers,
		Body:          body,
		ContentLength: unsafeResp.ContentLength,
	}, nil
}
