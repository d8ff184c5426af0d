package dcc

import (
	"fmt"
	"net"
	"strconv"

	"github.com/pires/go-proxyproto"
)

// PortRange is the configurable base/span a DCC listener picks its port
// from ( "opens a listener on the next available port from a
// configurable base"), e.g. for punching a fixed hole in a home router's
// firewall.
type PortRange struct {
	Base int
	Span int // number of ports tried starting at Base; 0 means just Base
}

// Listen opens a TCP listener on the first available port in r, optionally
// wrapping it with PROXY protocol support for engines deployed behind a
// relay ( pires/go-proxyproto, used the same way
// other_examples/soju wraps its own listeners).
func Listen(r PortRange, proxyProtocol bool) (net.Listener, int, error) {
	span := r.Span
	if span < 0 {
		span = 0
	}
	var lastErr error
	for p := r.Base; p <= r.Base+span; p++ {
		l, err := net.Listen("tcp", net.JoinHostPort("", strconv.Itoa(p)))
		if err != nil {
			lastErr = err
			continue
		}
		if proxyProtocol {
			l = &proxyproto.Listener{Listener: l}
		}
		return l, p, nil
	}
	return nil, 0, fmt.Errorf("dcc: no available port in range %d-%d: %w", r.Base, r.Base+span, lastErr)
}
