package protocol

import "strings"

// HttpHeader represents an HTTP header key-value pair
type HttpHeader struct {
	Key   string
	Value string
}

// ClientRequest is a request sent by Http1Protocol
type ClientRequest struct {
	Method  Method
	Path    string
	Headers []HttpHeader
	Body    []byte
}

// ClientResponse represents an HTTP response (safe mode - copies data)
type ClientResponse struct {
	StatusCode    HttpStatusCode
	StatusMessage string
	Headers       []HttpHeader
	Body          []byte
	ContentLength int
}

// UnsafeClientResponse represents an HTTP response (unsafe mode - references buffer)
// The body is only valid while the protocol's internal buffer is not reused
type UnsafeClientResponse struct {
	StatusCode    HttpStatusCode
	StatusMessage string
	Headers       []HttpHeaderView
	Body          []byte
	ContentLength int
}

// HttpHeaderView is a header parsed out of the response buffer
type HttpHeaderView struct {
	Key   string
	Value string
}

// Header returns the first header named key, compared case-insensitively
func (r *ClientResponse) Header(key string) (string, bool) {
	for _, h := range r.Headers {
		if strings.EqualFold(h.Key, key) {
			return h.Value, true
		}
	}
	return "", false
}
