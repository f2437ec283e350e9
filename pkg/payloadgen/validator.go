package payloadgen

import (
	"context"
	"regexp"
)

// Validator decides whether a payload executed on the target.
type Validator interface {
	// IsExecuted inspects data captured from the target. A nil slice means
	// the caller captured nothing.
	IsExecuted(ctx context.Context, data []byte) (bool, error)
}

// Poller is the part of the callback server client a CallbackValidator needs.
type Poller interface {
	HasOOBLog(ctx context.Context, secret string) bool
}

// RegexValidator confirms execution by finding a secret-bearing pattern in
// the captured response.
type RegexValidator struct {
	pattern *regexp.Regexp
}

// NewRegexValidator binds a compiled pattern.
func NewRegexValidator(pattern *regexp.Regexp) *RegexValidator {
	return &RegexValidator{pattern: pattern}
}

// Pattern returns the resolved expression.
func (v *RegexValidator) Pattern() string { return v.pattern.String() }

// IsExecuted reports whether the pattern occurs anywhere in data.
func (v *RegexValidator) IsExecuted(_ context.Context, data []byte) (bool, error) {
	if data == nil {
		return false, ErrNoCapturedData
	}
	return v.pattern.Match(data), nil
}

// CallbackValidator confirms execution by asking the callback server
// whether the target reached the payload's callback URI. Each call polls
// again, so the answer can change from false to true over time.
type CallbackValidator struct {
	secret string
	poller Poller
}

// NewCallbackValidator binds secret to poller.
func NewCallbackValidator(secret string, poller Poller) *CallbackValidator {
	return &CallbackValidator{secret: secret, poller: poller}
}

// IsExecuted ignores data and polls the callback server.
func (v *CallbackValidator) IsExecuted(ctx context.Context, _ []byte) (bool, error) {
	return v.poller.HasOOBLog(ctx, v.secret), nil
}

func validatorKind(v Validator) string {
	switch v.(type) {
	case *RegexValidator:
		return "regex"
	case *CallbackValidator:
		return "callback"
	default:
		return "custom"
	}
}
