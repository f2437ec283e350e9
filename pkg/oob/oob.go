// Package oob is the client side of the out-of-band callback server: it
// builds the callback URI a payload makes the target reach, and polls the
// server to learn whether that happened.
package oob

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/oobkit/oobkit/pkg/defaults"
	"github.com/oobkit/oobkit/pkg/httpclient"
	"github.com/oobkit/oobkit/pkg/iohelper"
	"github.com/oobkit/oobkit/pkg/jsonutil"
	"github.com/oobkit/oobkit/pkg/metrics"
	"github.com/oobkit/oobkit/pkg/telemetry"
)

// PollingResult is the callback server's answer for one cbid.
type PollingResult struct {
	HasDNSInteraction  bool `json:"has_dns_interaction"`
	HasHTTPInteraction bool `json:"has_http_interaction"`
}

// Interacted reports whether the target reached the callback server over
// any channel.
func (r PollingResult) Interacted() bool {
	return r.HasDNSInteraction || r.HasHTTPInteraction
}

// Client talks to one callback server. It holds no mutable state and is
// safe for concurrent use.
type Client struct {
	endpoint       Endpoint
	pollingBaseURL string
	doer           httpclient.Doer

	logger  *slog.Logger
	metrics *metrics.Collector
	tracer  trace.Tracer
}

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the structured logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithMetrics records poll outcomes and latency on m.
func WithMetrics(m *metrics.Collector) Option {
	return func(c *Client) { c.metrics = m }
}

// WithTracer sets the tracer used for poll spans.
func WithTracer(t trace.Tracer) Option {
	return func(c *Client) {
		if t != nil {
			c.tracer = t
		}
	}
}

// NewClient creates a client for the callback server reachable by targets
// at address:port and polled at pollingBaseURL. A nil doer uses
// httpclient.Default().
func NewClient(address string, port int, pollingBaseURL string, doer httpclient.Doer, opts ...Option) (*Client, error) {
	endpoint, err := NewEndpoint(address, port)
	if err != nil {
		return nil, err
	}
	if doer == nil {
		doer = httpclient.Default()
	}

	c := &Client{
		endpoint:       endpoint,
		pollingBaseURL: strings.TrimRight(pollingBaseURL, "/"),
		doer:           doer,
		logger:         slog.Default(),
		tracer:         telemetry.Tracer(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// NewDisabledClient returns a client with no callback server. Generators
// built on it only ever select payloads validated locally.
func NewDisabledClient(doer httpclient.Doer, opts ...Option) *Client {
	c, _ := NewClient("", 0, "", doer, opts...)
	return c
}

// IsCallbackServerEnabled reports whether both the callback address and
// the polling URL are configured.
func (c *Client) IsCallbackServerEnabled() bool {
	return c.endpoint.Address() != "" && c.pollingBaseURL != ""
}

// Endpoint returns the callback endpoint.
func (c *Client) Endpoint() Endpoint { return c.endpoint }

// PollingBaseURL returns the polling URL without trailing slashes.
func (c *Client) PollingBaseURL() string { return c.pollingBaseURL }

// CallbackURI returns the address a payload should make the target reach
// for secret. Hostname endpoints get the cbid as a subdomain so a DNS
// lookup alone is enough; IP endpoints get it as the HTTP path.
func (c *Client) CallbackURI(secret string) string {
	cbid := CBID(secret)
	if c.endpoint.Kind() == KindHostname {
		return cbid + "." + c.endpoint.Authority()
	}
	return "http://" + c.endpoint.Authority() + "/" + cbid
}

// PollURL returns the polling request URL for secret.
func (c *Client) PollURL(secret string) string {
	return c.pollingBaseURL + "/?secret=" + CBID(secret)
}

// Poll asks the callback server whether the target interacted with the
// callback URI of secret. Unlike HasOOBLog it reports why a poll failed.
func (c *Client) Poll(ctx context.Context, secret string) (PollingResult, error) {
	if !c.IsCallbackServerEnabled() {
		return PollingResult{}, ErrDisabled
	}

	cbid := CBID(secret)
	ctx, span := c.tracer.Start(ctx, "oob.poll", trace.WithAttributes(
		attribute.String("oob.cbid", cbid),
		attribute.String("oob.endpoint", c.endpoint.Authority()),
	))
	defer span.End()

	start := time.Now()
	result, err := c.poll(ctx, cbid)
	elapsed := time.Since(start)

	outcome := metrics.OutcomePending
	switch {
	case err != nil:
		outcome = metrics.OutcomeFailed
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	case result.Interacted():
		outcome = metrics.OutcomeConfirmed
	}
	span.SetAttributes(
		attribute.String("oob.outcome", outcome),
		attribute.Bool("oob.dns", result.HasDNSInteraction),
		attribute.Bool("oob.http", result.HasHTTPInteraction),
	)
	c.metrics.RecordPoll(outcome, elapsed)

	return result, err
}

func (c *Client) poll(ctx context.Context, cbid string) (PollingResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.pollingBaseURL+"/?secret="+cbid, nil)
	if err != nil {
		return PollingResult{}, fmt.Errorf("%w: %v", ErrPollTransport, err)
	}
	req.Header.Set("Cache-Control", defaults.CacheControlNoCache)
	req.Header.Set("Accept", defaults.AcceptJSON)

	resp, err := c.doer.Do(req)
	if err != nil {
		return PollingResult{}, fmt.Errorf("%w: %w", ErrPollTransport, err)
	}
	defer iohelper.DrainAndClose(resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return PollingResult{}, fmt.Errorf("%w: %d", ErrPollStatus, resp.StatusCode)
	}

	body, err := iohelper.ReadBodyStrict(resp.Body, defaults.MaxPollResponseSize)
	if err != nil {
		return PollingResult{}, fmt.Errorf("%w: %w", ErrPollDecode, err)
	}

	var result PollingResult
	if err := jsonutil.Unmarshal(body, &result); err != nil {
		return PollingResult{}, fmt.Errorf("%w: %w", ErrPollDecode, err)
	}
	return result, nil
}

// HasOOBLog reports whether the callback server has recorded a DNS or
// HTTP interaction for secret. Poll failures are logged and reported as
// false: they are expected before the target has had time to call back,
// and the caller may simply poll again.
func (c *Client) HasOOBLog(ctx context.Context, secret string) bool {
	result, err := c.Poll(ctx, secret)
	if err != nil {
		c.logger.Warn("callback server poll failed",
			slog.String("cbid", CBID(secret)),
			slog.String("polling_url", c.pollingBaseURL),
			slog.String("error", err.Error()),
		)
		return false
	}

	c.logger.Debug("callback server polled",
		slog.String("cbid", CBID(secret)),
		slog.Bool("dns", result.HasDNSInteraction),
		slog.Bool("http", result.HasHTTPInteraction),
	)
	return result.Interacted()
}
