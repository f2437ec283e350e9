// Package config loads the oobkit configuration file and overlays
// command-line flags on it.
package config

import (
	"bytes"
	"errors"
	"flag"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/netip"
	"net/url"
	"os"
	"time"

	"golang.org/x/net/idna"
	"gopkg.in/yaml.v3"

	"github.com/oobkit/oobkit/pkg/defaults"
	"github.com/oobkit/oobkit/pkg/duration"
	"github.com/oobkit/oobkit/pkg/httpclient"
	"github.com/oobkit/oobkit/pkg/telemetry"
)

// Config holds all oobkit configuration.
type Config struct {
	CallbackServer CallbackServer `yaml:"callback_server"`

	// Catalog is a payload catalog file or directory. Empty uses the
	// embedded catalog.
	Catalog string `yaml:"catalog"`

	HTTP      HTTP      `yaml:"http"`
	Telemetry Telemetry `yaml:"telemetry"`
	Metrics   Metrics   `yaml:"metrics"`
}

// CallbackServer locates the callback server. Leaving all three fields
// empty disables callback payloads.
type CallbackServer struct {
	Address    string `yaml:"callback_address"` // reachable by targets: IP literal or hostname
	Port       int    `yaml:"callback_port"`
	PollingURI string `yaml:"polling_uri"` // reachable by oobkit
}

// HTTP configures the client used to poll the callback server.
type HTTP struct {
	Timeout            time.Duration     `yaml:"timeout"`
	Proxy              string            `yaml:"proxy"`
	InsecureSkipVerify bool              `yaml:"insecure_skip_verify"`
	UserAgent          string            `yaml:"user_agent"`
	Headers            map[string]string `yaml:"headers"`
}

// Telemetry configures OpenTelemetry tracing.
type Telemetry struct {
	OTLPEndpoint string            `yaml:"otlp_endpoint"` // empty disables tracing
	Insecure     bool              `yaml:"insecure"`
	ServiceName  string            `yaml:"service_name"`
	Headers      map[string]string `yaml:"headers"`
}

// Metrics configures the Prometheus endpoint.
type Metrics struct {
	Listen string `yaml:"listen"` // e.g. ":9464"; empty disables
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		HTTP: HTTP{
			Timeout:            duration.HTTPPolling,
			InsecureSkipVerify: true,
			UserAgent:          defaults.UAMinimal,
		},
		Telemetry: Telemetry{
			Insecure:    true,
			ServiceName: defaults.ToolName,
		},
	}
}

// Load reads a YAML configuration file on top of Default().
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes a YAML document on top of Default(). Unknown keys are errors.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return cfg, nil
}

// RegisterFlags binds the configuration to fs, using the current values as
// flag defaults. Parsing fs afterwards overrides whatever was loaded.
func (c *Config) RegisterFlags(fs *flag.FlagSet) {
	// === CALLBACK SERVER ===
	fs.StringVar(&c.CallbackServer.Address, "callback-address", c.CallbackServer.Address, "Callback server address reachable by targets (IP or hostname)")
	fs.IntVar(&c.CallbackServer.Port, "callback-port", c.CallbackServer.Port, "Callback server port")
	fs.StringVar(&c.CallbackServer.PollingURI, "polling-uri", c.CallbackServer.PollingURI, "Callback server polling URL")

	// === PAYLOADS ===
	fs.StringVar(&c.Catalog, "catalog", c.Catalog, "Payload catalog file or directory (default: embedded)")

	// === NETWORK ===
	fs.DurationVar(&c.HTTP.Timeout, "timeout", c.HTTP.Timeout, "Poll request timeout")
	fs.StringVar(&c.HTTP.Proxy, "proxy", c.HTTP.Proxy, "HTTP/SOCKS5 proxy URL")
	fs.StringVar(&c.HTTP.Proxy, "x", c.HTTP.Proxy, "Proxy (alias)")
	fs.BoolVar(&c.HTTP.InsecureSkipVerify, "skip-verify", c.HTTP.InsecureSkipVerify, "Skip TLS verification of the polling endpoint")
	fs.BoolVar(&c.HTTP.InsecureSkipVerify, "k", c.HTTP.InsecureSkipVerify, "Skip TLS (alias)")

	// === OBSERVABILITY ===
	fs.StringVar(&c.Telemetry.OTLPEndpoint, "otlp-endpoint", c.Telemetry.OTLPEndpoint, "OTLP/gRPC collector for traces")
	fs.StringVar(&c.Metrics.Listen, "metrics-listen", c.Metrics.Listen, "Serve Prometheus metrics on this address")
}

// CallbackEnabled reports whether any callback server setting is present.
func (c *Config) CallbackEnabled() bool {
	cs := c.CallbackServer
	return cs.Address != "" || cs.Port != 0 || cs.PollingURI != ""
}

// Validate checks the configuration and returns the first problem found.
func (c *Config) Validate() error {
	if c.CallbackEnabled() {
		if err := c.CallbackServer.validate(); err != nil {
			return err
		}
	}
	if c.HTTP.Timeout < 0 {
		return fmt.Errorf("%w: http.timeout must not be negative", ErrInvalidConfig)
	}
	if c.HTTP.Proxy != "" {
		if err := httpclient.ValidateProxyURL(c.HTTP.Proxy); err != nil {
			return fmt.Errorf("%w: http.proxy: %v", ErrInvalidConfig, err)
		}
	}
	if c.Metrics.Listen != "" {
		if _, _, err := net.SplitHostPort(c.Metrics.Listen); err != nil {
			return fmt.Errorf("%w: metrics.listen: %v", ErrInvalidConfig, err)
		}
	}
	return nil
}

func (cs CallbackServer) validate() error {
	switch {
	case cs.Address == "":
		return fmt.Errorf("%w: callback_server.callback_address", ErrMissingRequired)
	case cs.Port == 0:
		return fmt.Errorf("%w: callback_server.callback_port", ErrMissingRequired)
	case cs.PollingURI == "":
		return fmt.Errorf("%w: callback_server.polling_uri", ErrMissingRequired)
	}

	if err := ValidateCallbackAddress(cs.Address); err != nil {
		return err
	}
	if cs.Port < 1 || cs.Port > defaults.PortMax {
		return fmt.Errorf("%w: callback_server.callback_port %d out of range 1-%d", ErrInvalidConfig, cs.Port, defaults.PortMax)
	}

	u, err := url.Parse(cs.PollingURI)
	if err != nil {
		return fmt.Errorf("%w: callback_server.polling_uri: %v", ErrInvalidConfig, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%w: callback_server.polling_uri scheme must be http or https, got %q", ErrInvalidConfig, u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("%w: callback_server.polling_uri has no host", ErrInvalidConfig)
	}
	return nil
}

// ValidateCallbackAddress accepts an IP literal or a domain name that is
// valid for DNS lookup (internationalised names included).
func ValidateCallbackAddress(addr string) error {
	if _, err := netip.ParseAddr(addr); err == nil {
		return nil
	}
	if _, err := idna.Lookup.ToASCII(addr); err != nil {
		return fmt.Errorf("%w: callback_server.callback_address %q: %v", ErrInvalidConfig, addr, err)
	}
	return nil
}

// HTTPClientConfig returns the httpclient configuration for polling.
func (c *Config) HTTPClientConfig() httpclient.Config {
	cfg := httpclient.DefaultConfig()
	if c.HTTP.Timeout > 0 {
		cfg.Timeout = c.HTTP.Timeout
	}
	cfg.Proxy = c.HTTP.Proxy
	cfg.InsecureSkipVerify = c.HTTP.InsecureSkipVerify
	if c.HTTP.UserAgent != "" {
		cfg.UserAgent = c.HTTP.UserAgent
	}
	if len(c.HTTP.Headers) > 0 {
		cfg.Headers = make(http.Header, len(c.HTTP.Headers))
		for k, v := range c.HTTP.Headers {
			cfg.Headers.Set(k, v)
		}
	}
	return cfg
}

// TelemetryOptions returns the tracer provider options.
func (c *Config) TelemetryOptions() telemetry.Options {
	return telemetry.Options{
		Endpoint:        c.Telemetry.OTLPEndpoint,
		ServiceName:     c.Telemetry.ServiceName,
		Insecure:        c.Telemetry.Insecure,
		Headers:         c.Telemetry.Headers,
		ShutdownTimeout: duration.TelemetryShutdown,
	}
}
