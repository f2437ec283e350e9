package payloadgen

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/oobkit/oobkit/pkg/metrics"
	"github.com/oobkit/oobkit/pkg/payloads"
)

// Attributes describe how a payload is verified.
type Attributes struct {
	UsesCallbackServer bool `json:"uses_callback_server"`
}

// Payload is one instantiated payload, bound to the validator that can
// later confirm it. It is immutable and belongs to a single detection
// attempt.
type Payload struct {
	id         string
	payload    string
	secret     string
	definition string
	attributes Attributes
	validator  Validator
	request    payloads.Request

	logger  *slog.Logger
	metrics *metrics.Collector
	tracer  trace.Tracer
}

// ID identifies the detection attempt in logs.
func (p *Payload) ID() string { return p.id }

// PayloadString returns the payload to send to the target.
func (p *Payload) PayloadString() string {
	p.logger.Info("payload requested",
		slog.String("payload_id", p.id),
		slog.String("definition", p.definition),
		slog.String("payload", p.payload),
	)
	return p.payload
}

// Secret returns the one-time secret embedded in the payload. Callback
// payloads can be polled later with it.
func (p *Payload) Secret() string { return p.secret }

// DefinitionName returns the name of the catalog entry the payload came from.
func (p *Payload) DefinitionName() string { return p.definition }

// Attributes returns the verification attributes.
func (p *Payload) Attributes() Attributes { return p.attributes }

// Request returns the request the payload was generated for.
func (p *Payload) Request() payloads.Request { return p.request }

// Validator returns the bound validator.
func (p *Payload) Validator() Validator { return p.validator }

// CheckIfExecuted reports whether the payload executed. data is the output
// captured from the target, nil when there is none. Callback payloads
// ignore it.
func (p *Payload) CheckIfExecuted(ctx context.Context, data []byte) (bool, error) {
	kind := validatorKind(p.validator)
	ctx, span := p.tracer.Start(ctx, "payload.check", trace.WithAttributes(
		attribute.String("payload.id", p.id),
		attribute.String("payload.validator", kind),
	))
	defer span.End()

	executed, err := p.validator.IsExecuted(ctx, data)
	p.metrics.RecordValidation(kind, executed, err)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return false, err
	}
	span.SetAttributes(attribute.Bool("payload.executed", executed))
	return executed, nil
}

// CheckIfExecutedString is CheckIfExecuted for textual captured output.
func (p *Payload) CheckIfExecutedString(ctx context.Context, data string) (bool, error) {
	return p.CheckIfExecuted(ctx, []byte(data))
}
