package protocol

import (
	"bytes"
	"net/textproto"
	"sort"
	"strconv"

	"github.com/nczempin/asyncsock/errors"
)

const (
	headerContentLength    = "Content-Length"
	headerTransferEncoding = "Transfer-Encoding"
)

// HttpResponse is a response built by a server handler. Content-Length and
// Transfer-Encoding are kept mutually exclusive: Content-Length is ignored
// while Transfer-Encoding is set, and setting Transfer-Encoding drops it.
type HttpResponse struct {
	status  HttpStatusCode
	headers map[string]string
	content []byte
}

// NewHttpResponse creates a response with the given status and headers
func NewHttpResponse(status HttpStatusCode, headers map[string]string) *HttpResponse {
	r := &HttpResponse{
		status:  status,
		headers: make(map[string]string, len(headers)),
	}
	for name, value := range headers {
		r.SetHeader(name, value)
	}
	return r
}

func (r *HttpResponse) SetStatusCode(status HttpStatusCode) {
	r.status = status
}

func (r *HttpResponse) StatusCode() HttpStatusCode {
	return r.status
}

// SetHeader sets a header, replacing any previous value
func (r *HttpResponse) SetHeader(name, value string) {
	key := textproto.CanonicalMIMEHeaderKey(name)
	switch key {
	case headerContentLength:
		if _, chunked := r.headers[headerTransferEncoding]; chunked {
			return
		}
	case headerTransferEncoding:
		delete(r.headers, headerContentLength)
	}
	r.headers[key] = value
}

// Header returns a header's value by name, case-insensitively
func (r *HttpResponse) Header(name string) (string, bool) {
	v, ok := r.headers[textproto.CanonicalMIMEHeaderKey(name)]
	return v, ok
}

// SetContent sets the body and its Content-Length
func (r *HttpResponse) SetContent(body []byte) {
	r.content = body
	r.SetHeader(headerContentLength, strconv.Itoa(len(body)))
}

// Content returns the body
func (r *HttpResponse) Content() []byte {
	return r.content
}

// Raw serializes the response: status line, headers sorted by name, blank
// line, body.
func (r *HttpResponse) Raw() []byte {
	names := make([]string, 0, len(r.headers))
	for name := range r.headers {
		names = append(names, name)
	}
	sort.Strings(names)

	var b bytes.Buffer
	b.WriteString(HttpVersion)
	b.WriteByte(' ')
	b.WriteString(strconv.Itoa(int(r.status)))
	b.WriteByte(' ')
	b.WriteString(r.status.Reason())
	b.WriteString("\r\n")
	for _, name := range names {
		b.WriteString(name)
		b.WriteString(": ")
		b.WriteString(r.headers[name])
		b.WriteString("\r\n")
	}
	b.WriteString("\r\n")
	b.Write(r.content)
	return b.Bytes()
}

// SendTo writes the serialized response to s
func (r *HttpResponse) SendTo(s Sender) error {
	if s == nil {
		return errors.NewInvalidArgumentError("no sender to write the response to")
	}
	return s.Send(r.Raw())
}
