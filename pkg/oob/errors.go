package oob

import "errors"

// Sentinel errors for callback server client failure modes.
// Callers should use errors.Is() to check for these.
var (
	// ErrInvalidPort indicates a callback port outside 0..65535.
	ErrInvalidPort = errors.New("oob: invalid callback port")

	// ErrDisabled indicates a poll on a client without a callback server.
	ErrDisabled = errors.New("oob: callback server not configured")

	// ErrPollTransport indicates the poll request could not be sent.
	ErrPollTransport = errors.New("oob: poll request failed")

	// ErrPollStatus indicates the polling endpoint answered with a non-2xx status.
	ErrPollStatus = errors.New("oob: unexpected poll status")

	// ErrPollDecode indicates the polling response body is not a valid
	// polling result.
	ErrPollDecode = errors.New("oob: malformed poll response")
)
