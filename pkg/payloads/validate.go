package payloads

import "strings"

// Validate checks every definition against the catalog invariants and
// returns the input unchanged when all of them hold. The first violation
// stops validation and is returned as a *DefinitionError.
func Validate(defs []Definition) ([]Definition, error) {
	for i := range defs {
		if err := validateDefinition(&defs[i]); err != nil {
			return nil, &DefinitionError{Index: i, Name: defs[i].Name, Err: err}
		}
	}
	return defs, nil
}

// The order of the checks is part of the contract: an entry violating
// several invariants always reports the earliest one.
func validateDefinition(d *Definition) error {
	if d.Name == "" {
		return ErrMissingName
	}
	if d.InterpretationEnvironment == InterpretationEnvironmentUnspecified {
		return ErrMissingInterpretationEnvironment
	}
	if d.ExecutionEnvironment == ExecutionEnvironmentUnspecified {
		return ErrMissingExecutionEnvironment
	}
	if len(d.VulnerabilityTypes) == 0 || d.Addresses(VulnerabilityTypeUnspecified) {
		return ErrMissingVulnerabilityType
	}
	if d.PayloadString == "" {
		return ErrMissingPayloadString
	}
	if d.UsesCallbackServer {
		if !strings.Contains(d.PayloadString, TokenCallbackURL) {
			return ErrMissingCallbackToken
		}
		return nil
	}
	if d.ValidationType == ValidationTypeUnspecified {
		return ErrMissingValidationType
	}
	if d.ValidationType == ValidationRegex && d.ValidationRegex == "" {
		return ErrMissingValidationRegex
	}
	return nil
}
