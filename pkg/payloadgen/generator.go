// Package payloadgen instantiates catalog payloads for a detection attempt:
// it picks the definition matching a request, embeds a fresh secret, and
// binds the validator that later confirms execution, either by matching
// captured output or by polling the callback server.
package payloadgen

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/oobkit/oobkit/pkg/defaults"
	"github.com/oobkit/oobkit/pkg/metrics"
	"github.com/oobkit/oobkit/pkg/oob"
	"github.com/oobkit/oobkit/pkg/payloads"
	"github.com/oobkit/oobkit/pkg/secret"
	"github.com/oobkit/oobkit/pkg/telemetry"
)

// CallbackClient is the callback server client the generator depends on.
// *oob.Client satisfies it.
type CallbackClient interface {
	Poller
	IsCallbackServerEnabled() bool
	CallbackURI(secret string) string
}

// Generator selects and instantiates payloads. It shares the read-only
// catalog and the callback client across calls and is safe for
// concurrent use.
type Generator struct {
	catalog *payloads.Catalog
	client  CallbackClient
	secrets secret.Generator

	logger  *slog.Logger
	metrics *metrics.Collector
	tracer  trace.Tracer
}

// Option configures a Generator.
type Option func(*Generator)

// WithSecretGenerator replaces the crypto/rand secret source.
func WithSecretGenerator(s secret.Generator) Option {
	return func(g *Generator) {
		if s != nil {
			g.secrets = s
		}
	}
}

// WithLogger sets the structured logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(g *Generator) {
		if l != nil {
			g.logger = l
		}
	}
}

// WithMetrics records generations and validations on m.
func WithMetrics(m *metrics.Collector) Option {
	return func(g *Generator) { g.metrics = m }
}

// WithTracer sets the tracer for generation and validation spans.
func WithTracer(t trace.Tracer) Option {
	return func(g *Generator) {
		if t != nil {
			g.tracer = t
		}
	}
}

// New creates a Generator over catalog. A nil client disables callback
// payloads.
func New(catalog *payloads.Catalog, client CallbackClient, opts ...Option) (*Generator, error) {
	if catalog == nil {
		return nil, ErrNilCatalog
	}
	if client == nil {
		client = oob.NewDisabledClient(nil)
	}

	g := &Generator{
		catalog: catalog,
		client:  client,
		secrets: secret.NewRandom(),
		logger:  slog.Default(),
		tracer:  telemetry.Tracer(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

// IsCallbackServerEnabled reports whether callback payloads can be selected.
func (g *Generator) IsCallbackServerEnabled() bool {
	return g.client.IsCallbackServerEnabled()
}

// Generate returns a payload for req, preferring one confirmed through the
// callback server when a callback server is configured.
func (g *Generator) Generate(ctx context.Context, req payloads.Request) (*Payload, error) {
	return g.generate(ctx, req, true)
}

// GenerateNoCallback returns a payload for req that is confirmed from
// captured output only.
func (g *Generator) GenerateNoCallback(ctx context.Context, req payloads.Request) (*Payload, error) {
	return g.generate(ctx, req, false)
}

func (g *Generator) generate(ctx context.Context, req payloads.Request, preferCallback bool) (*Payload, error) {
	_, span := g.tracer.Start(ctx, "payload.generate", trace.WithAttributes(
		attribute.String("payload.vulnerability_type", req.VulnerabilityType.String()),
		attribute.String("payload.interpretation_environment", req.InterpretationEnvironment.String()),
		attribute.String("payload.execution_environment", req.ExecutionEnvironment.String()),
		attribute.Bool("payload.prefer_callback", preferCallback),
	))
	defer span.End()

	def, ok := g.selectDefinition(req, preferCallback)
	if !ok {
		err := &SelectionError{Request: req}
		g.metrics.RecordSelectionFailure(req.VulnerabilityType.String())
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	p, err := g.instantiate(def, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetAttributes(
		attribute.String("payload.id", p.id),
		attribute.String("payload.definition", def.Name),
		attribute.Bool("payload.uses_callback_server", def.UsesCallbackServer),
	)
	g.metrics.RecordGenerated(req.VulnerabilityType.String(), def.UsesCallbackServer)
	g.logger.Info("generated payload",
		slog.String("payload_id", p.id),
		slog.String("definition", def.Name),
		slog.String("vulnerability_type", req.VulnerabilityType.String()),
		slog.Bool("uses_callback_server", def.UsesCallbackServer),
		slog.String("payload", p.payload),
	)
	return p, nil
}

func (g *Generator) selectDefinition(req payloads.Request, preferCallback bool) (payloads.Definition, bool) {
	if preferCallback && g.client.IsCallbackServerEnabled() {
		if def, ok := g.catalog.Find(req, true); ok {
			return def, true
		}
	}
	return g.catalog.Find(req, false)
}

func (g *Generator) instantiate(def payloads.Definition, req payloads.Request) (*Payload, error) {
	s, err := g.secrets.Generate(defaults.SecretLength)
	if err != nil {
		return nil, fmt.Errorf("payloadgen: minting secret: %w", err)
	}

	p := &Payload{
		id:         uuid.NewString(),
		secret:     s,
		definition: def.Name,
		request:    req,
		logger:     g.logger,
		metrics:    g.metrics,
		tracer:     g.tracer,
	}

	if def.UsesCallbackServer {
		p.payload = strings.ReplaceAll(def.PayloadString, payloads.TokenCallbackURL, g.client.CallbackURI(s))
		p.validator = NewCallbackValidator(s, g.client)
		p.attributes = Attributes{UsesCallbackServer: true}
		return p, nil
	}

	p.payload = strings.ReplaceAll(def.PayloadString, payloads.TokenRandom, s)
	expr := strings.ReplaceAll(def.ValidationRegex, payloads.TokenRandom, s)
	if def.ValidationType != payloads.ValidationRegex {
		return nil, &UnsupportedValidationError{
			VulnerabilityType: req.VulnerabilityType,
			ValidationType:    def.ValidationType,
		}
	}
	// Compiled per attempt: the secret is part of the expression.
	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrInvalidRegex, def.Name, err)
	}
	p.validator = NewRegexValidator(re)
	p.attributes = Attributes{UsesCallbackServer: false}
	return p, nil
}
