package defaults

// Exit codes for the CLI.
const (
	ExitSuccess       = 0 // Clean exit, payload confirmed or command succeeded
	ExitNotExecuted   = 1 // Payload not confirmed within the wait window
	ExitUserError     = 2 // Invalid arguments or configuration
	ExitNetworkError  = 3 // Network/connection failure
	ExitInternalError = 4 // Unexpected internal error
)
