package httpclient

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/proxy"
)

// Proxy schemes accepted for reaching the callback server. socks5h
// resolves the callback server's hostname on the proxy.
var proxySchemes = map[string]bool{
	"http":    true,
	"https":   true,
	"socks5":  true,
	"socks5h": true,
}

const defaultSOCKSPort = "1080"

// parseProxy validates raw. A bare host:port means an HTTP proxy.
// It returns nil, nil for an empty string.
func parseProxy(raw string) (*url.URL, error) {
	if raw == "" {
		return nil, nil
	}
	if !strings.Contains(raw, "://") {
		raw = "http://" + raw
	}

	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidProxy, err)
	}
	u.Scheme = strings.ToLower(u.Scheme)
	if !proxySchemes[u.Scheme] {
		return nil, fmt.Errorf("%w: unsupported scheme %q", ErrInvalidProxy, u.Scheme)
	}
	if u.Hostname() == "" {
		return nil, fmt.Errorf("%w: missing host", ErrInvalidProxy)
	}
	if isSOCKS(u) && u.Port() == "" {
		u.Host = net.JoinHostPort(u.Hostname(), defaultSOCKSPort)
	}
	return u, nil
}

func isSOCKS(u *url.URL) bool {
	return u.Scheme == "socks5" || u.Scheme == "socks5h"
}

// ValidateProxyURL reports whether raw can be used as Config.Proxy.
func ValidateProxyURL(raw string) error {
	_, err := parseProxy(raw)
	return err
}

// applyProxy routes transport through raw. HTTP proxies use CONNECT via
// transport.Proxy; SOCKS proxies replace the dialer.
func applyProxy(transport *http.Transport, raw string, dialTimeout time.Duration) error {
	u, err := parseProxy(raw)
	if err != nil || u == nil {
		return err
	}
	if !isSOCKS(u) {
		transport.Proxy = http.ProxyURL(u)
		return nil
	}

	d, err := proxy.FromURL(u, &net.Dialer{Timeout: dialTimeout})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidProxy, err)
	}
	cd, ok := d.(proxy.ContextDialer)
	if !ok {
		return fmt.Errorf("%w: %s dialer does not support contexts", ErrInvalidProxy, u.Scheme)
	}
	transport.DialContext = (&socksDialer{dialer: cd}).DialContext
	return nil
}

// socksDialer tags dial failures with ErrProxyConnect so a poll that
// fails at the proxy can be told apart from one the callback server refused.
type socksDialer struct {
	dialer proxy.ContextDialer
}

func (s *socksDialer) DialContext(ctx context.Context, network, address string) (net.Conn, error) {
	conn, err := s.dialer.DialContext(ctx, network, address)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrProxyConnect, err)
	}
	return conn, nil
}
