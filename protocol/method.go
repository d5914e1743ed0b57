package protocol

// Method is a request method. Tokens outside RFC 2616's list parse to
// MethodExtension.
type Method int

const (
	MethodOptions Method = iota
	MethodGet
	MethodHead
	MethodPost
	MethodPut
	MethodDelete
	MethodTrace
	MethodConnect
	MethodExtension
)

var methodNames = [...]string{
	MethodOptions: "OPTIONS",
	MethodGet:     "GET",
	MethodHead:    "HEAD",
	MethodPost:    "POST",
	MethodPut:     "PUT",
	MethodDelete:  "DELETE",
	MethodTrace:   "TRACE",
	MethodConnect: "CONNECT",
}

// ParseMethod maps a method token to its Method. Matching is case-sensitive.
func ParseMethod(token string) Method {
	for m, name := range methodNames {
		if name == token {
			return Method(m)
		}
	}
	return MethodExtension
}

func (m Method) String() string {
	if m >= 0 && int(m) < len(methodNames) {
		return methodNames[m]
	}
	return "extension"
}
