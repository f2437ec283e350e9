package payloads

import "errors"

// Sentinel errors for catalog loading failure modes.
// Callers should use errors.Is() to check for these.
var (
	// ErrInvalidDefinition indicates a catalog entry violates one of the
	// structural invariants. Every *DefinitionError matches it.
	ErrInvalidDefinition = errors.New("payloads: invalid payload definition")

	// ErrUnknownEnum indicates a symbolic enum name that is not recognised.
	ErrUnknownEnum = errors.New("payloads: unknown enum value")

	// ErrEmptyCatalog indicates a catalog document without any payloads.
	ErrEmptyCatalog = errors.New("payloads: catalog has no payloads")
)

// Per-invariant sentinels. The text is what operators and downstream
// tooling key off, so it must not change.
var (
	ErrMissingName                      = errors.New("Parse payload does not have a name.")
	ErrMissingInterpretationEnvironment = errors.New("Parse payload does not have an interpretation environment.")
	ErrMissingExecutionEnvironment      = errors.New("Parse payload does not have an execution environment.")
	ErrMissingVulnerabilityType         = errors.New("Parse payload does not have a vulnerability type.")
	ErrMissingPayloadString             = errors.New("Parse payload does not have a payload string.")
	ErrMissingCallbackToken             = errors.New("Parse payload uses callback server but $TSUNAMI_PAYLOAD_TOKEN_URL not found in payload string.")
	ErrMissingValidationType            = errors.New("Parse payload does not have a validation type and does not use the callback server.")
	ErrMissingValidationRegex           = errors.New("Parse payload has no validation regex but uses PayloadValidationType.REGEX.")
)

// DefinitionError reports the first invariant a catalog entry violates.
// Error() returns the invariant message verbatim.
type DefinitionError struct {
	Index int    // position of the entry in the catalog
	Name  string // entry name, empty when that is the violation
	Err   error  // one of the per-invariant sentinels
}

func (e *DefinitionError) Error() string {
	return e.Err.Error()
}

func (e *DefinitionError) Unwrap() []error {
	return []error{e.Err, ErrInvalidDefinition}
}
