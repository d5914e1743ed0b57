package protocol

import (
	"fmt"
	"net/textproto"
	"strings"

	"github.com/nczempin/asyncsock/errors"
)

// Sender is where a response is written. Both *async.Connection and
// *transport.Socket satisfy it.
type Sender interface {
	Send(p []byte) error
}

// HttpRequest is a parsed request head. It keeps a reference to the
// connection it arrived on so that Respond can answer it; the request does
// not own that connection.
type HttpRequest struct {
	method     Method
	methodName string
	path       string
	version    string
	options    map[string]string
	headers    map[string]string
	sender     Sender
}

// ParseRequest parses the request line and header block of msg. Leading
// blank lines are skipped. Lines may end in CRLF or a bare LF. Anything
// after the blank line ending the headers is ignored.
func ParseRequest(msg []byte, sender Sender) (*HttpRequest, error) {
	lines := strings.Split(string(msg), "\n")
	// The break that ends the last line does not start a new one.
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	for i := range lines {
		lines[i] = strings.TrimSuffix(lines[i], "\r")
	}

	i := 0
	for i < len(lines) && lines[i] == "" {
		i++
	}
	if i == len(lines) {
		return nil, errors.NewInvalidRequestError("empty request")
	}

	req := &HttpRequest{
		headers: make(map[string]string),
		sender:  sender,
	}
	if err := req.parseRequestLine(lines[i]); err != nil {
		return nil, err
	}

	for _, line := range lines[i+1:] {
		if line == "" {
			return req, nil
		}
		name, value, ok := strings.Cut(line, ":")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, errors.NewInvalidRequestError(fmt.Sprintf("invalid header line %q", line))
		}
		key := textproto.CanonicalMIMEHeaderKey(name)
		if _, seen := req.headers[key]; !seen {
			req.headers[key] = strings.TrimSpace(value)
		}
	}

	return nil, errors.NewInvalidRequestError("header block is not terminated by a blank line")
}

// parseRequestLine parses "Method SP Request-URI SP HTTP-Version".
func (r *HttpRequest) parseRequestLine(line string) error {
	fields := strings.Split(line, " ")
	if len(fields) != 3 || fields[0] == "" || fields[1] == "" || fields[2] == "" {
		return errors.NewInvalidRequestError(fmt.Sprintf("request line %q must contain exactly 3 fields", line))
	}

	r.methodName = fields[0]
	r.method = ParseMethod(fields[0])
	r.version = fields[2]
	r.options = make(map[string]string)

	uri := strings.Split(fields[1], "?")
	if len(uri) > 2 {
		return errors.NewInvalidRequestError(fmt.Sprintf("malformed request URI %q", fields[1]))
	}
	r.path = uri[0]
	if len(uri) == 1 || uri[1] == "" {
		return nil
	}

	for _, opt := range strings.Split(uri[1], "&") {
		kv := strings.Split(opt, "=")
		if len(kv) != 2 {
			return errors.NewInvalidRequestError(fmt.Sprintf("option %q must be a key=value pair", opt))
		}
		if _, seen := r.options[kv[0]]; !seen {
			r.options[kv[0]] = kv[1]
		}
	}
	return nil
}

// Method returns the parsed method
func (r *HttpRequest) Method() Method {
	return r.method
}

// MethodName returns the method token as sent, which matters for
// MethodExtension requests.
func (r *HttpRequest) MethodName() string {
	return r.methodName
}

// Path returns the request path without the query
func (r *HttpRequest) Path() string {
	return r.path
}

// Version returns the HTTP version field of the request line
func (r *HttpRequest) Version() string {
	return r.version
}

// Options returns a copy of the query options
func (r *HttpRequest) Options() map[string]string {
	out := make(map[string]string, len(r.options))
	for k, v := range r.options {
		out[k] = v
	}
	return out
}

// Headers returns a copy of the headers, keyed by canonical name
func (r *HttpRequest) Headers() map[string]string {
	out := make(map[string]string, len(r.headers))
	for k, v := range r.headers {
		out[k] = v
	}
	return out
}

func (r *HttpRequest) HasOption(key string) bool {
	_, ok := r.options[key]
	return ok
}

func (r *HttpRequest) GetOption(key string) (string, bool) {
	v, ok := r.options[key]
	return v, ok
}

// HasHeader looks up a header by name, case-insensitively
func (r *HttpRequest) HasHeader(name string) bool {
	_, ok := r.headers[textproto.CanonicalMIMEHeaderKey(name)]
	return ok
}

// GetHeader looks up a header by name, case-insensitively
func (r *HttpRequest) GetHeader(name string) (string, bool) {
	v, ok := r.headers[textproto.CanonicalMIMEHeaderKey(name)]
	return v, ok
}

// Respond writes resp to the connection the request arrived on
func (r *HttpRequest) Respond(resp *HttpResponse) error {
	if r.sender == nil {
		return errors.NewInvalidArgumentError("request has no sender to respond to")
	}
	return resp.SendTo(r.sender)
}
