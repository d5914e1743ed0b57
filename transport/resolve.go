package transport

import (
	"context"
	stderrors "errors"
	"fmt"
	"net"
	"strings"

	"github.com/nczempin/asyncsock/errors"
)

// maxResolveAttempts bounds retries of temporary resolver failures.
const maxResolveAttempts = 10

// resolve turns address into the candidate endpoints of the given family,
// in resolver order.
func resolve(address string, port uint16, family Family) ([]*net.TCPAddr, error) {
	host := strings.TrimSpace(address)
	if host == "" || strings.EqualFold(host, "localhost") {
		return []*net.TCPAddr{{IP: family.loopback(), Port: int(port)}}, nil
	}

	// Literal addresses, optionally bracketed or carrying an IPv6 zone.
	literal := strings.TrimSuffix(strings.TrimPrefix(host, "["), "]")
	zone := ""
	if i := strings.LastIndexByte(literal, '%'); i >= 0 {
		literal, zone = literal[:i], literal[i+1:]
	}
	if ip := net.ParseIP(literal); ip != nil {
		if !family.matches(ip) {
			return nil, errors.NewNetworkError(
				errors.NetworkErrorResolve,
				"resolve",
				fmt.Sprintf("%s is not an %s address", host, family),
				nil,
			)
		}
		return []*net.TCPAddr{{IP: ip, Port: int(port), Zone: zone}}, nil
	}

	var (
		addrs []net.IPAddr
		err   error
	)
	for attempt := 0; attempt < maxResolveAttempts; attempt++ {
		addrs, err = net.DefaultResolver.LookupIPAddr(context.Background(), host)
		var dnsErr *net.DNSError
		if err == nil || !stderrors.As(err, &dnsErr) || !dnsErr.IsTemporary {
			break
		}
	}
	if err != nil {
		return nil, errors.NewNetworkError(
			errors.NetworkErrorResolve,
			"resolve",
			fmt.Sprintf("failed to resolve %s", host),
			err,
		)
	}

	var candidates []*net.TCPAddr
	for _, a := range addrs {
		if family.matches(a.IP) {
			candidates = append(candidates, &net.TCPAddr{IP: a.IP, Port: int(port), Zone: a.Zone})
		}
	}
	if len(candidates) == 0 {
		return nil, errors.NewNetworkError(
			errors.NetworkErrorResolve,
			"resolve",
			fmt.Sprintf("%s has no %s address", host, family),
			nil,
		)
	}
	return candidates, nil
}
