// Package defaults provides canonical default values for the entire codebase.
// This is the SINGLE SOURCE OF TRUTH for all runtime configuration defaults.
//
// Usage:
//
//	secret, err := gen.Generate(defaults.SecretLength)
//	body, err := iohelper.ReadBodyStrict(resp.Body, defaults.MaxPollResponseSize)
//	req.Header.Set("User-Agent", defaults.UAMinimal)
//
// DO NOT use hardcoded values like `Generate(8)` anywhere.
// Instead, reference the appropriate constant from this package.
package defaults

// Version is the current oobkit version
const Version = "0.3.0"

// ToolName is used in user agents, metric namespaces and tracer names.
const ToolName = "oobkit"

// ============================================================================
// PAYLOAD GENERATION
// ============================================================================

const (
	// SecretLength is the number of random bytes in a payload secret (8).
	// The hex encoding doubles it to 16 characters.
	SecretLength = 8
)

// ============================================================================
// BUFFER SIZES
// ============================================================================
//
// Use these for byte buffers, slices, and I/O operations.
// ============================================================================

const (
	// BufferTiny is for small reads (1KB)
	BufferTiny = 1 * 1024

	// BufferSmall is for typical reads (4KB)
	BufferSmall = 4 * 1024
)

const (
	// MaxPollResponseSize bounds the callback server polling response.
	// A PollingResult is two booleans, anything past this is not ours.
	MaxPollResponseSize = BufferTiny
)

// ============================================================================
// HTTP HEADERS
// ============================================================================

const (
	// AcceptJSON accepts JSON
	AcceptJSON = "application/json"

	// CacheControlNoCache is sent on every poll so intermediaries never
	// serve a stale interaction state.
	CacheControlNoCache = "no-cache"
)

// ============================================================================
// USER AGENTS
// ============================================================================

const (
	// UAMinimal is a minimal user agent
	UAMinimal = ToolName + "/" + Version
)

// ============================================================================
// PORTS
// ============================================================================
//
// Callback endpoint port numbers.
// ============================================================================

const (
	// PortHTTP is left out of callback URIs.
	PortHTTP = 80
	PortMax  = 65535
)

// ============================================================================
// LOG FILES
// ============================================================================

const (
	// LogFileMaxSizeMB rotates -log-file once it reaches this size (10MB)
	LogFileMaxSizeMB = 10

	// LogFileMaxBackups is how many rotated log files are kept
	LogFileMaxBackups = 3
)

// ============================================================================
// RATE LIMITING
// ============================================================================

const (
	// PollRatePerSecond paces the CLI wait loop (1 poll/s)
	PollRatePerSecond = 1

	// PollBurst is the token bucket burst of the CLI wait loop
	PollBurst = 1
)
