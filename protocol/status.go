package protocol

import "strconv"

// HttpVersion is the protocol version written in status and request lines
const HttpVersion = "HTTP/1.1"

// HttpStatusCode is a response status code
type HttpStatusCode int

const (
	StatusContinue                     HttpStatusCode = 100
	StatusSwitchingProtocols           HttpStatusCode = 101
	StatusOK                           HttpStatusCode = 200
	StatusCreated                      HttpStatusCode = 201
	StatusAccepted                     HttpStatusCode = 202
	StatusNonAuthoritativeInformation  HttpStatusCode = 203
	StatusNoContent                    HttpStatusCode = 204
	StatusResetContent                 HttpStatusCode = 205
	StatusPartialContent               HttpStatusCode = 206
	StatusMultipleChoices              HttpStatusCode = 300
	StatusMovedPermanently             HttpStatusCode = 301
	StatusFound                        HttpStatusCode = 302
	StatusSeeOther                     HttpStatusCode = 303
	StatusNotModified                  HttpStatusCode = 304
	StatusUseProxy                     HttpStatusCode = 305
	StatusTemporaryRedirect            HttpStatusCode = 307
	StatusBadRequest                   HttpStatusCode = 400
	StatusUnauthorized                 HttpStatusCode = 401
	StatusPaymentRequired              HttpStatusCode = 402
	StatusForbidden                    HttpStatusCode = 403
	StatusNotFound                     HttpStatusCode = 404
	StatusMethodNotAllowed             HttpStatusCode = 405
	StatusNotAcceptable                HttpStatusCode = 406
	StatusProxyAuthenticationRequired  HttpStatusCode = 407
	StatusRequestTimeout               HttpStatusCode = 408
	StatusConflict                     HttpStatusCode = 409
	StatusGone                         HttpStatusCode = 410
	StatusLengthRequired               HttpStatusCode = 411
	StatusPreconditionFailed           HttpStatusCode = 412
	StatusRequestEntityTooLarge        HttpStatusCode = 413
	StatusRequestURITooLarge           HttpStatusCode = 414
	StatusUnsupportedMediaType         HttpStatusCode = 415
	StatusRequestedRangeNotSatisfiable HttpStatusCode = 416
	StatusExpectationFailed            HttpStatusCode = 417
	StatusImATeapot                    HttpStatusCode = 418
	StatusInternalServerError          HttpStatusCode = 500
	StatusNotImplemented               HttpStatusCode = 501
	StatusBadGateway                   HttpStatusCode = 502
	StatusServiceUnavailable           HttpStatusCode = 503
	StatusGatewayTimeout               HttpStatusCode = 504
	StatusHTTPVersionNotSupported      HttpStatusCode = 505
)

// Reason phrases from RFC 2616 section 6.1.1
var reasonPhrases = map[HttpStatusCode]string{
	StatusContinue:                     "Continue",
	StatusSwitchingProtocols:           "Switching Protocols",
	StatusOK:                           "OK",
	StatusCreated:                      "Created",
	StatusAccepted:                     "Accepted",
	StatusNonAuthoritativeInformation:  "Non-Authoritative Information",
	StatusNoContent:                    "No Content",
	StatusResetContent:                 "Reset Content",
	StatusPartialContent:               "Partial Content",
	StatusMultipleChoices:              "Multiple Choices",
	StatusMovedPermanently:             "Moved Permanently",
	StatusFound:                        "Found",
	StatusSeeOther:                     "See Other",
	StatusNotModified:                  "Not Modified",
	StatusUseProxy:                     "Use Proxy",
	StatusTemporaryRedirect:            "Temporary Redirect",
	StatusBadRequest:                   "Bad Request",
	StatusUnauthorized:                 "Unauthorized",
	StatusPaymentRequired:              "Payment Required",
	StatusForbidden:                    "Forbidden",
	StatusNotFound:                     "Not Found",
	StatusMethodNotAllowed:             "Method Not Allowed",
	StatusNotAcceptable:                "Not Acceptable",
	StatusProxyAuthenticationRequired:  "Proxy Authentication Required",
	StatusRequestTimeout:               "Request Time-out",
	StatusConflict:                     "Conflict",
	StatusGone:                         "Gone",
	StatusLengthRequired:               "Length Required",
	StatusPreconditionFailed:           "Precondition Failed",
	StatusRequestEntityTooLarge:        "Request Entity Too Large",
	StatusRequestURITooLarge:           "Request-URI Too Large",
	StatusUnsupportedMediaType:         "Unsupported Media Type",
	StatusRequestedRangeNotSatisfiable: "Requested range not satisfiable",
	StatusExpectationFailed:            "Expectation Failed",
	StatusImATeapot:                    "I'm a teapot",
	StatusInternalServerError:          "Internal Server Error",
	StatusNotImplemented:               "Not Implemented",
	StatusBadGateway:                   "Bad Gateway",
	StatusServiceUnavailable:           "Service Unavailable",
	StatusGatewayTimeout:               "Gateway Time-out",
	StatusHTTPVersionNotSupported:      "HTTP Version not supported",
}

// Reason returns the reason phrase for the code, or "" if it has none
func (c HttpStatusCode) Reason() string {
	return reasonPhrases[c]
}

func (c HttpStatusCode) String() string {
	if r := c.Reason(); r != "" {
		return strconv.Itoa(int(c)) + " " + r
	}
	return strconv.Itoa(int(c))
}
