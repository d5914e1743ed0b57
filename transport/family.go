package transport

import (
	"fmt"
	"net"
	"strings"

	"golang.org/x/sys/unix"
)

// Family selects the IP version of a socket.
type Family int

const (
	IPv4 Family = iota
	IPv6
)

func (f Family) String() string {
	switch f {
	case IPv4:
		return "IPv4"
	case IPv6:
		return "IPv6"
	default:
		return fmt.Sprintf("Family(%d)", int(f))
	}
}

// ParseFamily accepts "ipv4"/"4" and "ipv6"/"6".
func ParseFamily(s string) (Family, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "ipv4", "4", "inet", "":
		return IPv4, nil
	case "ipv6", "6", "inet6":
		return IPv6, nil
	default:
		return IPv4, fmt.Errorf("transport: unknown address family %q", s)
	}
}

func (f Family) domain() int {
	if f == IPv6 {
		return unix.AF_INET6
	}
	return unix.AF_INET
}

func (f Family) loopback() net.IP {
	if f == IPv6 {
		return net.IPv6loopback
	}
	return net.IPv4(127, 0, 0, 1).To4()
}

// matches reports whether ip belongs to the family.
func (f Family) matches(ip net.IP) bool {
	is4 := ip.To4() != nil
	if f == IPv6 {
		return !is4
	}
	return is4
}
