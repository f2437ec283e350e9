// Package duration provides canonical time constants for the entire codebase.
// This is the SINGLE SOURCE OF TRUTH for all time-based configuration.
//
// Usage:
//
//	ctx, cancel := context.WithTimeout(ctx, duration.WaitDefault)
//	cfg.Timeout = duration.HTTPPolling
//
// DO NOT use hardcoded time.Duration values like `30 * time.Second` anywhere.
// Instead, reference the appropriate constant from this package.
package duration

import "time"

// ============================================================================
// HTTP CLIENT TIMEOUTS
// ============================================================================
//
// Defaults for pkg/httpclient.Config; config.HTTP.Timeout overrides
// HTTPPolling per run.
// ============================================================================

const (
	// HTTPPolling bounds one callback server poll round trip (10s)
	HTTPPolling = 10 * time.Second
)

// ============================================================================
// CALLBACK WAIT
// ============================================================================
//
// Used by the CLI when it waits for an out-of-band interaction.
// ============================================================================

const (
	// WaitDefault is the default time box for `generate -wait` (30s)
	WaitDefault = 30 * time.Second

	// WaitMax caps any user supplied wait (10min)
	WaitMax = 10 * time.Minute
)

// ============================================================================
// TELEMETRY
// ============================================================================

const (
	// TelemetryShutdown bounds flushing spans on exit (5s)
	TelemetryShutdown = 5 * time.Second

	// MetricsReadHeader is the read header timeout of the metrics listener (5s)
	MetricsReadHeader = 5 * time.Second
)

// ============================================================================
// NETWORK/TRANSPORT
// ============================================================================
//
// Use these for low-level network configuration.
// ============================================================================

const (
	// DialTimeout is for establishing TCP connections (10s)
	DialTimeout = 10 * time.Second

	// KeepAlive is for TCP keep-alive interval (30s)
	KeepAlive = 30 * time.Second

	// IdleConnTimeout is for idle connection pool timeout (90s)
	IdleConnTimeout = 90 * time.Second

	// TLSHandshake is for TLS handshake timeout (10s)
	TLSHandshake = 10 * time.Second
)
