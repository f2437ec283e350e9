package oob

import (
	"fmt"
	"net/netip"
	"strconv"

	"github.com/oobkit/oobkit/pkg/defaults"
)

// AddressKind tells how a callback address was classified.
type AddressKind int

const (
	// KindHostname is any address that does not parse as an IP literal.
	KindHostname AddressKind = iota
	// KindIP is an IPv4 or IPv6 literal.
	KindIP
)

func (k AddressKind) String() string {
	if k == KindIP {
		return "ip"
	}
	return "hostname"
}

// ClassifyAddress reports whether s is an IP literal or a hostname.
func ClassifyAddress(s string) AddressKind {
	if _, err := netip.ParseAddr(s); err == nil {
		return KindIP
	}
	return KindHostname
}

// Endpoint is the externally reachable address of the callback server.
// The address text is kept exactly as configured.
type Endpoint struct {
	kind    AddressKind
	address string
	ip      netip.Addr
	port    int
	hasPort bool
}

// NewEndpoint classifies address and attaches port unless it is the
// default HTTP port.
func NewEndpoint(address string, port int) (Endpoint, error) {
	if port < 0 || port > defaults.PortMax {
		return Endpoint{}, fmt.Errorf("%w: %d", ErrInvalidPort, port)
	}

	e := Endpoint{
		kind:    KindHostname,
		address: address,
		port:    port,
		hasPort: port != defaults.PortHTTP,
	}
	if ip, err := netip.ParseAddr(address); err == nil {
		e.kind = KindIP
		e.ip = ip
	}
	return e, nil
}

// Kind returns the address classification.
func (e Endpoint) Kind() AddressKind { return e.kind }

// Address returns the address as configured.
func (e Endpoint) Address() string { return e.address }

// Port returns the configured port.
func (e Endpoint) Port() int { return e.port }

// Authority returns host[:port], with IPv6 literals in brackets and the
// port left out when it is 80.
func (e Endpoint) Authority() string {
	host := e.address
	if e.kind == KindIP && e.ip.Is6() {
		host = "[" + host + "]"
	}
	if !e.hasPort {
		return host
	}
	return host + ":" + strconv.Itoa(e.port)
}

func (e Endpoint) String() string { return e.Authority() }
