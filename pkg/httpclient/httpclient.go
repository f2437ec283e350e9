// Package httpclient provides the shared HTTP client factory used to reach
// the callback server. It enables connection pooling and reuse across
// every poll in the process.
package httpclient

import (
	"crypto/tls"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/oobkit/oobkit/pkg/defaults"
	"github.com/oobkit/oobkit/pkg/duration"
)

// Doer is the HTTP collaborator the callback client depends on.
// *http.Client satisfies it; tests substitute fakes.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Config holds HTTP client configuration options.
type Config struct {
	// Timeout is the total request timeout (default: duration.HTTPPolling).
	// It is the only bound on a poll round trip.
	Timeout time.Duration

	// InsecureSkipVerify skips TLS certificate verification. Callback
	// servers are commonly deployed with self-signed certificates.
	InsecureSkipVerify bool

	// Proxy is the HTTP/HTTPS/SOCKS proxy URL (optional)
	Proxy string

	// MaxIdleConns is the maximum number of idle connections across all hosts (default: 10)
	MaxIdleConns int

	// IdleConnTimeout is how long idle connections stay in pool (default: 90s)
	IdleConnTimeout time.Duration

	// DialTimeout is the timeout for establishing connections (default: 10s)
	DialTimeout time.Duration

	// TLSHandshakeTimeout is the timeout for TLS handshake (default: 10s)
	TLSHandshakeTimeout time.Duration

	// UserAgent is set on every request when non-empty
	UserAgent string

	// Headers are added to every request (e.g. an auth token for a
	// private callback server).
	Headers http.Header
}

// DefaultConfig returns defaults suitable for polling a callback server.
func DefaultConfig() Config {
	return Config{
		Timeout:             duration.HTTPPolling,
		InsecureSkipVerify:  true,
		MaxIdleConns:        10,
		IdleConnTimeout:     duration.IdleConnTimeout,
		DialTimeout:         duration.DialTimeout,
		TLSHandshakeTimeout: duration.TLSHandshake,
		UserAgent:           defaults.UAMinimal,
	}
}

var (
	defaultClient *http.Client
	defaultOnce   sync.Once
)

// Default returns a shared, pre-configured HTTP client.
// This client is safe for concurrent use and employs connection pooling.
func Default() *http.Client {
	defaultOnce.Do(func() {
		defaultClient, _ = New(DefaultConfig())
	})
	return defaultClient
}

// New creates a new HTTP client with the given configuration.
// It fails only when cfg.Proxy is set and cannot be used.
func New(cfg Config) (*http.Client, error) {
	// Apply sensible defaults for zero values
	if cfg.Timeout == 0 {
		cfg.Timeout = duration.HTTPPolling
	}
	if cfg.MaxIdleConns == 0 {
		cfg.MaxIdleConns = 10
	}
	if cfg.IdleConnTimeout == 0 {
		cfg.IdleConnTimeout = duration.IdleConnTimeout
	}
	if cfg.DialTimeout == 0 {
		cfg.DialTimeout = duration.DialTimeout
	}
	if cfg.TLSHandshakeTimeout == 0 {
		cfg.TLSHandshakeTimeout = duration.TLSHandshake
	}

	dialer := &net.Dialer{
		Timeout:   cfg.DialTimeout,
		KeepAlive: duration.KeepAlive,
	}

	transport := &http.Transport{
		MaxIdleConns:        cfg.MaxIdleConns,
		MaxIdleConnsPerHost: cfg.MaxIdleConns,
		IdleConnTimeout:     cfg.IdleConnTimeout,
		ForceAttemptHTTP2:   true,
		TLSHandshakeTimeout: cfg.TLSHandshakeTimeout,
		DialContext:         dialer.DialContext,
		TLSClientConfig: &tls.Config{
			InsecureSkipVerify: cfg.InsecureSkipVerify,
		},
	}

	if err := applyProxy(transport, cfg.Proxy, cfg.DialTimeout); err != nil {
		return nil, err
	}

	var rt http.RoundTripper = transport
	if needsMiddleware(cfg) {
		rt = &middlewareTransport{
			base:      transport,
			userAgent: cfg.UserAgent,
			headers:   cfg.Headers.Clone(),
		}
	}

	return &http.Client{
		Transport: rt,
		Timeout:   cfg.Timeout,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			// The polling API answers directly; a redirect is a misconfiguration
			// and must surface as a non-2xx status rather than be followed.
			return http.ErrUseLastResponse
		},
	}, nil
}
