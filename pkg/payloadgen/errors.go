package payloadgen

import (
	"errors"
	"fmt"

	"github.com/oobkit/oobkit/pkg/payloads"
)

// Sentinel errors for generation and validation failure modes.
// Callers should use errors.Is() to check for these.
var (
	// ErrNilCatalog indicates New was called without a catalog.
	ErrNilCatalog = errors.New("payloadgen: catalog is required")

	// ErrNoPayload indicates no catalog entry satisfies a request in either
	// callback mode. Every *SelectionError matches it.
	ErrNoPayload = errors.New("payloadgen: no payload for request")

	// ErrUnsupportedValidation indicates a matched non-callback definition
	// uses a validation type the generator cannot bind.
	ErrUnsupportedValidation = errors.New("payloadgen: unsupported validation type")

	// ErrInvalidRegex indicates a validation regex that does not compile
	// once the secret is substituted.
	ErrInvalidRegex = errors.New("payloadgen: invalid validation regex")

	// ErrNoCapturedData is returned by regex validation when the caller has
	// no captured output to inspect. The text is matched by callers as is.
	ErrNoCapturedData = errors.New("No valid payload input is entered.")
)

// SelectionError reports a request no catalog entry can serve. Detectors
// treat it as "no payload available" rather than a failure.
type SelectionError struct {
	Request payloads.Request
}

func (e *SelectionError) Error() string {
	return fmt.Sprintf("No payload implemented for %s vulnerability type, %s interpretation environment, and %s execution environment.",
		e.Request.VulnerabilityType, e.Request.InterpretationEnvironment, e.Request.ExecutionEnvironment)
}

func (e *SelectionError) Unwrap() error { return ErrNoPayload }

// UnsupportedValidationError names the vulnerability type whose matched
// definition could not be bound to a validator.
type UnsupportedValidationError struct {
	VulnerabilityType payloads.VulnerabilityType
	ValidationType    payloads.ValidationType
}

func (e *UnsupportedValidationError) Error() string {
	return fmt.Sprintf("Validation type %s not supported.", e.VulnerabilityType)
}

func (e *UnsupportedValidationError) Unwrap() error { return ErrUnsupportedValidation }
