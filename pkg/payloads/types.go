package payloads

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// Template tokens recognised inside payload strings and validation regexes.
const (
	// TokenCallbackURL is replaced with the callback server URI of the attempt.
	TokenCallbackURL = "$TSUNAMI_PAYLOAD_TOKEN_URL"

	// TokenRandom is replaced with the one-time secret of the attempt.
	TokenRandom = "$TSUNAMI_PAYLOAD_TOKEN_RANDOM"
)

// VulnerabilityType is the class of vulnerability a payload exercises.
type VulnerabilityType int32

const (
	VulnerabilityTypeUnspecified VulnerabilityType = iota
	ReflectiveRCE
	BlindRCE
	SSRF
	ArbitraryFileRead
	ArbitraryFileWrite
)

var vulnerabilityTypeNames = []string{
	"VULNERABILITY_TYPE_UNSPECIFIED",
	"REFLECTIVE_RCE",
	"BLIND_RCE",
	"SSRF",
	"ARBITRARY_FILE_READ",
	"ARBITRARY_FILE_WRITE",
}

// InterpretationEnvironment is the runtime that interprets the payload
// (a shell, a language runtime).
type InterpretationEnvironment int32

const (
	InterpretationEnvironmentUnspecified InterpretationEnvironment = iota
	LinuxShell
	WindowsShell
	Java
	Python3
	JSP
	InterpretationAny
)

var interpretationEnvironmentNames = []string{
	"INTERPRETATION_ENVIRONMENT_UNSPECIFIED",
	"LINUX_SHELL",
	"WINDOWS_SHELL",
	"JAVA",
	"PYTHON3",
	"JSP",
	"INTERPRETATION_ANY",
}

// ExecutionEnvironment describes how the payload reaches the interpreter.
type ExecutionEnvironment int32

const (
	ExecutionEnvironmentUnspecified ExecutionEnvironment = iota
	ExecInterpretationEnvironment
	ExecTemplateInjection
	ExecAny
)

var executionEnvironmentNames = []string{
	"EXECUTION_ENVIRONMENT_UNSPECIFIED",
	"EXEC_INTERPRETATION_ENVIRONMENT",
	"EXEC_TEMPLATE_INJECTION",
	"EXEC_ANY",
}

// ValidationType selects how a non-callback payload is confirmed.
type ValidationType int32

const (
	ValidationTypeUnspecified ValidationType = iota
	ValidationRegex
)

var validationTypeNames = []string{
	"VALIDATION_TYPE_UNSPECIFIED",
	"VALIDATION_REGEX",
}

func (v VulnerabilityType) String() string { return enumName(vulnerabilityTypeNames, int32(v)) }

func (e InterpretationEnvironment) String() string {
	return enumName(interpretationEnvironmentNames, int32(e))
}

func (e ExecutionEnvironment) String() string {
	return enumName(executionEnvironmentNames, int32(e))
}

func (v ValidationType) String() string { return enumName(validationTypeNames, int32(v)) }

// ParseVulnerabilityType parses a symbolic name such as "REFLECTIVE_RCE".
func ParseVulnerabilityType(s string) (VulnerabilityType, error) {
	n, err := parseEnum(vulnerabilityTypeNames, "vulnerability type", s)
	return VulnerabilityType(n), err
}

// ParseInterpretationEnvironment parses a symbolic name such as "LINUX_SHELL".
func ParseInterpretationEnvironment(s string) (InterpretationEnvironment, error) {
	n, err := parseEnum(interpretationEnvironmentNames, "interpretation environment", s)
	return InterpretationEnvironment(n), err
}

// ParseExecutionEnvironment parses a symbolic name such as "EXEC_ANY".
func ParseExecutionEnvironment(s string) (ExecutionEnvironment, error) {
	n, err := parseEnum(executionEnvironmentNames, "execution environment", s)
	return ExecutionEnvironment(n), err
}

// ParseValidationType parses a symbolic name such as "VALIDATION_REGEX".
func ParseValidationType(s string) (ValidationType, error) {
	n, err := parseEnum(validationTypeNames, "validation type", s)
	return ValidationType(n), err
}

// VulnerabilityTypes lists every known vulnerability type name.
func VulnerabilityTypes() []string { return append([]string(nil), vulnerabilityTypeNames...) }

// InterpretationEnvironments lists every known interpretation environment name.
func InterpretationEnvironments() []string {
	return append([]string(nil), interpretationEnvironmentNames...)
}

// ExecutionEnvironments lists every known execution environment name.
func ExecutionEnvironments() []string {
	return append([]string(nil), executionEnvironmentNames...)
}

func enumName(names []string, n int32) string {
	if n >= 0 && int(n) < len(names) {
		return names[n]
	}
	return fmt.Sprintf("%d", n)
}

func parseEnum(names []string, kind, s string) (int32, error) {
	s = strings.TrimSpace(s)
	for i, name := range names {
		if strings.EqualFold(name, s) {
			return int32(i), nil
		}
	}
	return 0, fmt.Errorf("%w: unknown %s %q", ErrUnknownEnum, kind, s)
}

func (v VulnerabilityType) MarshalText() ([]byte, error)         { return []byte(v.String()), nil }
func (e InterpretationEnvironment) MarshalText() ([]byte, error) { return []byte(e.String()), nil }
func (e ExecutionEnvironment) MarshalText() ([]byte, error)      { return []byte(e.String()), nil }
func (v ValidationType) MarshalText() ([]byte, error)            { return []byte(v.String()), nil }

func (v VulnerabilityType) MarshalYAML() (any, error)         { return v.String(), nil }
func (e InterpretationEnvironment) MarshalYAML() (any, error) { return e.String(), nil }
func (e ExecutionEnvironment) MarshalYAML() (any, error)      { return e.String(), nil }
func (v ValidationType) MarshalYAML() (any, error)            { return v.String(), nil }

func (v *VulnerabilityType) UnmarshalYAML(node *yaml.Node) error {
	parsed, err := ParseVulnerabilityType(node.Value)
	if err != nil {
		return fmt.Errorf("line %d: %w", node.Line, err)
	}
	*v = parsed
	return nil
}

func (e *InterpretationEnvironment) UnmarshalYAML(node *yaml.Node) error {
	parsed, err := ParseInterpretationEnvironment(node.Value)
	if err != nil {
		return fmt.Errorf("line %d: %w", node.Line, err)
	}
	*e = parsed
	return nil
}

func (e *ExecutionEnvironment) UnmarshalYAML(node *yaml.Node) error {
	parsed, err := ParseExecutionEnvironment(node.Value)
	if err != nil {
		return fmt.Errorf("line %d: %w", node.Line, err)
	}
	*e = parsed
	return nil
}

func (v *ValidationType) UnmarshalYAML(node *yaml.Node) error {
	parsed, err := ParseValidationType(node.Value)
	if err != nil {
		return fmt.Errorf("line %d: %w", node.Line, err)
	}
	*v = parsed
	return nil
}

// Definition is a single entry of the payload catalog.
// Definitions are loaded once at startup and never modified afterwards.
type Definition struct {
	Name                      string                    `yaml:"name"`
	InterpretationEnvironment InterpretationEnvironment `yaml:"interpretation_environment"`
	ExecutionEnvironment      ExecutionEnvironment      `yaml:"execution_environment"`
	VulnerabilityTypes        []VulnerabilityType       `yaml:"vulnerability_type"`
	UsesCallbackServer        bool                      `yaml:"uses_callback_server"`
	PayloadString             string                    `yaml:"payload_string"`
	ValidationType            ValidationType            `yaml:"validation_type,omitempty"`
	ValidationRegex           string                    `yaml:"validation_regex,omitempty"`
}

// Addresses reports whether the definition lists vt among its vulnerability types.
func (d *Definition) Addresses(vt VulnerabilityType) bool {
	for _, t := range d.VulnerabilityTypes {
		if t == vt {
			return true
		}
	}
	return false
}

// Matches reports whether the definition satisfies the request triple in the
// given callback mode.
func (d *Definition) Matches(req Request, useCallback bool) bool {
	return d.Addresses(req.VulnerabilityType) &&
		d.InterpretationEnvironment == req.InterpretationEnvironment &&
		d.ExecutionEnvironment == req.ExecutionEnvironment &&
		d.UsesCallbackServer == useCallback
}

// Request is the triple a detector asks the generator for.
type Request struct {
	VulnerabilityType         VulnerabilityType         `json:"vulnerability_type" yaml:"vulnerability_type"`
	InterpretationEnvironment InterpretationEnvironment `json:"interpretation_environment" yaml:"interpretation_environment"`
	ExecutionEnvironment      ExecutionEnvironment      `json:"execution_environment" yaml:"execution_environment"`
}

func (r Request) String() string {
	return fmt.Sprintf("{vulnerability_type: %s, interpretation_environment: %s, execution_environment: %s}",
		r.VulnerabilityType, r.InterpretationEnvironment, r.ExecutionEnvironment)
}

// ParseRequest builds a Request from symbolic names.
func ParseRequest(vulnerabilityType, interpretation, execution string) (Request, error) {
	vt, err := ParseVulnerabilityType(vulnerabilityType)
	if err != nil {
		return Request{}, err
	}
	ie, err := ParseInterpretationEnvironment(interpretation)
	if err != nil {
		return Request{}, err
	}
	ee, err := ParseExecutionEnvironment(execution)
	if err != nil {
		return Request{}, err
	}
	return Request{VulnerabilityType: vt, InterpretationEnvironment: ie, ExecutionEnvironment: ee}, nil
}
