package payloadgen

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/oobkit/oobkit/pkg/metrics"
	"github.com/oobkit/oobkit/pkg/oob"
	"github.com/oobkit/oobkit/pkg/payloads"
	"github.com/oobkit/oobkit/pkg/secret"
	"github.com/oobkit/oobkit/pkg/telemetry"
)

const testSecret = "a3d9ed89deadbeef"

var (
	linuxRCE = payloads.Request{
		VulnerabilityType:         payloads.ReflectiveRCE,
		InterpretationEnvironment: payloads.LinuxShell,
		ExecutionEnvironment:      payloads.ExecInterpretationEnvironment,
	}
	anySSRF = payloads.Request{
		VulnerabilityType:         payloads.SSRF,
		InterpretationEnvironment: payloads.InterpretationAny,
		ExecutionEnvironment:      payloads.ExecAny,
	}
)

func curlCallback() payloads.Definition {
	return payloads.Definition{
		Name:                      "linux_curl_trace_read",
		InterpretationEnvironment: payloads.LinuxShell,
		ExecutionEnvironment:      payloads.ExecInterpretationEnvironment,
		VulnerabilityTypes:        []payloads.VulnerabilityType{payloads.ReflectiveRCE, payloads.BlindRCE},
		UsesCallbackServer:        true,
		PayloadString:             "curl " + payloads.TokenCallbackURL,
	}
}

func printfRegex() payloads.Definition {
	return payloads.Definition{
		Name:                      "linux_printf",
		InterpretationEnvironment: payloads.LinuxShell,
		ExecutionEnvironment:      payloads.ExecInterpretationEnvironment,
		VulnerabilityTypes:        []payloads.VulnerabilityType{payloads.ReflectiveRCE},
		PayloadString:             "printf %s%s%s TSUNAMI_PAYLOAD_START " + payloads.TokenRandom + " TSUNAMI_PAYLOAD_END",
		ValidationType:            payloads.ValidationRegex,
		ValidationRegex:           "TSUNAMI_PAYLOAD_START" + payloads.TokenRandom + "TSUNAMI_PAYLOAD_END",
	}
}

func firingRange() payloads.Definition {
	return payloads.Definition{
		Name:                      "ssrf_firing_range",
		InterpretationEnvironment: payloads.InterpretationAny,
		ExecutionEnvironment:      payloads.ExecAny,
		VulnerabilityTypes:        []payloads.VulnerabilityType{payloads.SSRF},
		PayloadString:             "http://public-firing-range.appspot.com/",
		ValidationType:            payloads.ValidationRegex,
		ValidationRegex:           `<h1>What is the Firing Range\?</h1>`,
	}
}

func newCatalog(t *testing.T, defs ...payloads.Definition) *payloads.Catalog {
	t.Helper()
	c, err := payloads.NewCatalog(defs)
	require.NoError(t, err)
	return c
}

func quietLogger() *slog.Logger { return slog.New(slog.DiscardHandler) }

// fakeClient stands in for the callback server client.
type fakeClient struct {
	enabled bool
	hit     bool
	polls   atomic.Int32
	secrets sync.Map
}

func (f *fakeClient) IsCallbackServerEnabled() bool { return f.enabled }

func (f *fakeClient) CallbackURI(s string) string { return "cb-" + s + ".example.com" }

func (f *fakeClient) HasOOBLog(_ context.Context, s string) bool {
	f.polls.Add(1)
	f.secrets.Store(s, true)
	return f.hit
}

func TestNew(t *testing.T) {
	_, err := New(nil, &fakeClient{})
	assert.ErrorIs(t, err, ErrNilCatalog)

	g, err := New(newCatalog(t, printfRegex()), nil)
	require.NoError(t, err)
	assert.False(t, g.IsCallbackServerEnabled())

	g, err = New(newCatalog(t, printfRegex()), &fakeClient{enabled: true})
	require.NoError(t, err)
	assert.True(t, g.IsCallbackServerEnabled())
}

// A callback-enabled RCE payload is confirmed once the callback server
// reports an HTTP interaction for its cbid.
func TestGenerateCallbackEndToEnd(t *testing.T) {
	var gotSecret atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotSecret.Store(r.URL.Query().Get("secret"))
		_, _ = io.WriteString(w, `{"has_dns_interaction": false, "has_http_interaction": true}`)
	}))
	defer srv.Close()

	client, err := oob.NewClient("127.0.0.1", 8000, srv.URL, srv.Client(), oob.WithLogger(quietLogger()))
	require.NoError(t, err)

	g, err := New(newCatalog(t, curlCallback(), firingRange()), client,
		WithSecretGenerator(secret.Static(testSecret)),
		WithLogger(quietLogger()),
	)
	require.NoError(t, err)

	p, err := g.Generate(context.Background(), linuxRCE)
	require.NoError(t, err)

	uri := client.CallbackURI(testSecret)
	assert.Equal(t, "http://127.0.0.1:8000/"+oob.CBID(testSecret), uri)
	assert.Contains(t, p.PayloadString(), uri)
	assert.Equal(t, "curl "+uri, p.PayloadString())
	assert.True(t, p.Attributes().UsesCallbackServer)
	assert.Equal(t, linuxRCE, p.Request())
	assert.Equal(t, testSecret, p.Secret())
	assert.Equal(t, "linux_curl_trace_read", p.DefinitionName())

	executed, err := p.CheckIfExecuted(context.Background(), nil)
	require.NoError(t, err)
	assert.True(t, executed)
	assert.Equal(t, oob.CBID(testSecret), gotSecret.Load())
}

func TestGenerateSelection(t *testing.T) {
	tests := []struct {
		name         string
		defs         []payloads.Definition
		enabled      bool
		noCallback   bool
		req          payloads.Request
		wantDef      string
		wantCallback bool
	}{
		{
			name:         "callback preferred when enabled",
			defs:         []payloads.Definition{printfRegex(), curlCallback()},
			enabled:      true,
			req:          linuxRCE,
			wantDef:      "linux_curl_trace_read",
			wantCallback: true,
		},
		{
			name:    "fallback when client disabled",
			defs:    []payloads.Definition{curlCallback(), printfRegex()},
			enabled: false,
			req:     linuxRCE,
			wantDef: "linux_printf",
		},
		{
			name:    "fallback when no callback definition matches",
			defs:    []payloads.Definition{curlCallback(), firingRange()},
			enabled: true,
			req:     anySSRF,
			wantDef: "ssrf_firing_range",
		},
		{
			name:       "no callback requested",
			defs:       []payloads.Definition{curlCallback(), printfRegex()},
			enabled:    true,
			noCallback: true,
			req:        linuxRCE,
			wantDef:    "linux_printf",
		},
		{
			name:    "blind rce via tag membership",
			defs:    []payloads.Definition{curlCallback()},
			enabled: true,
			req: payloads.Request{
				VulnerabilityType:         payloads.BlindRCE,
				InterpretationEnvironment: payloads.LinuxShell,
				ExecutionEnvironment:      payloads.ExecInterpretationEnvironment,
			},
			wantDef:      "linux_curl_trace_read",
			wantCallback: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, err := New(newCatalog(t, tt.defs...), &fakeClient{enabled: tt.enabled}, WithLogger(quietLogger()))
			require.NoError(t, err)

			var p *Payload
			if tt.noCallback {
				p, err = g.GenerateNoCallback(context.Background(), tt.req)
			} else {
				p, err = g.Generate(context.Background(), tt.req)
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantDef, p.DefinitionName())
			assert.Equal(t, tt.wantCallback, p.Attributes().UsesCallbackServer)
		})
	}
}

func TestGenerateFirstMatchWins(t *testing.T) {
	second := printfRegex()
	second.Name = "linux_printf_second"

	g, err := New(newCatalog(t, printfRegex(), second), &fakeClient{}, WithLogger(quietLogger()))
	require.NoError(t, err)

	p, err := g.Generate(context.Background(), linuxRCE)
	require.NoError(t, err)
	assert.Equal(t, "linux_printf", p.DefinitionName())
}

func TestGenerateNoCallbackOnlyCallbackDefinitions(t *testing.T) {
	g, err := New(newCatalog(t, curlCallback()), &fakeClient{enabled: true}, WithLogger(quietLogger()))
	require.NoError(t, err)

	_, err = g.GenerateNoCallback(context.Background(), linuxRCE)
	assert.ErrorIs(t, err, ErrNoPayload)
}

func TestGenerateSelectionError(t *testing.T) {
	g, err := New(newCatalog(t, curlCallback(), firingRange()), &fakeClient{enabled: true}, WithLogger(quietLogger()))
	require.NoError(t, err)

	req := payloads.Request{
		VulnerabilityType:         payloads.ArbitraryFileWrite,
		InterpretationEnvironment: payloads.Java,
		ExecutionEnvironment:      payloads.ExecAny,
	}
	p, err := g.Generate(context.Background(), req)
	assert.Nil(t, p)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNoPayload)
	assert.EqualError(t, err, "No payload implemented for ARBITRARY_FILE_WRITE vulnerability type, JAVA interpretation environment, and EXEC_ANY execution environment.")

	var selErr *SelectionError
	require.True(t, errors.As(err, &selErr))
	assert.Equal(t, req, selErr.Request)
}

func TestInstantiateUnsupportedValidation(t *testing.T) {
	g, err := New(newCatalog(t, printfRegex()), &fakeClient{}, WithLogger(quietLogger()))
	require.NoError(t, err)

	def := printfRegex()
	def.ValidationType = payloads.ValidationTypeUnspecified

	_, err = g.instantiate(def, linuxRCE)
	assert.ErrorIs(t, err, ErrUnsupportedValidation)
	assert.EqualError(t, err, "Validation type REFLECTIVE_RCE not supported.")
}

func TestInstantiateInvalidRegex(t *testing.T) {
	g, err := New(newCatalog(t, printfRegex()), &fakeClient{}, WithLogger(quietLogger()))
	require.NoError(t, err)

	def := printfRegex()
	def.ValidationRegex = "(" + payloads.TokenRandom

	_, err = g.instantiate(def, linuxRCE)
	assert.ErrorIs(t, err, ErrInvalidRegex)
	assert.Contains(t, err.Error(), "linux_printf")
}

type failingSecrets struct{}

func (failingSecrets) Generate(int) (string, error) { return "", secret.ErrInvalidLength }

func TestGenerateSecretFailure(t *testing.T) {
	g, err := New(newCatalog(t, printfRegex()), &fakeClient{},
		WithSecretGenerator(failingSecrets{}), WithLogger(quietLogger()))
	require.NoError(t, err)

	_, err = g.Generate(context.Background(), linuxRCE)
	assert.ErrorIs(t, err, secret.ErrInvalidLength)
}

func TestGenerateRegexSubstitution(t *testing.T) {
	g, err := New(newCatalog(t, printfRegex()), &fakeClient{},
		WithSecretGenerator(secret.Static("DEADBEEF")), WithLogger(quietLogger()))
	require.NoError(t, err)

	p, err := g.Generate(context.Background(), linuxRCE)
	require.NoError(t, err)
	assert.Equal(t, "printf %s%s%s TSUNAMI_PAYLOAD_START DEADBEEF TSUNAMI_PAYLOAD_END", p.PayloadString())

	rv, ok := p.Validator().(*RegexValidator)
	require.True(t, ok)
	assert.Equal(t, "TSUNAMI_PAYLOAD_STARTDEADBEEFTSUNAMI_PAYLOAD_END", rv.Pattern())
}

func TestGenerateFreshSecrets(t *testing.T) {
	cat, err := payloads.LoadDefault()
	require.NoError(t, err)
	g, err := New(cat, &fakeClient{}, WithLogger(quietLogger()))
	require.NoError(t, err)

	const n = 50
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		seen = make(map[string]bool, n)
		ids  = make(map[string]bool, n)
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p, err := g.Generate(context.Background(), linuxRCE)
			if !assert.NoError(t, err) {
				return
			}
			mu.Lock()
			defer mu.Unlock()
			seen[p.Secret()] = true
			ids[p.ID()] = true
		}()
	}
	wg.Wait()

	assert.Len(t, seen, n)
	assert.Len(t, ids, n)
	for s := range seen {
		assert.Len(t, s, 16)
		assert.Equal(t, strings.ToUpper(s), s)
	}
}

func TestGenerateRecordsMetricsAndSpans(t *testing.T) {
	m, err := metrics.New()
	require.NoError(t, err)
	exporter := tracetest.NewInMemoryExporter()
	tp := telemetry.NewProvider(exporter, "payloadgen-test")
	defer tp.Shutdown(context.Background())

	g, err := New(newCatalog(t, printfRegex()), &fakeClient{},
		WithLogger(quietLogger()), WithMetrics(m), WithTracer(tp.Tracer()))
	require.NoError(t, err)

	_, err = g.Generate(context.Background(), linuxRCE)
	require.NoError(t, err)
	_, err = g.Generate(context.Background(), anySSRF)
	require.Error(t, err)

	count, err := testutil.GatherAndCount(m.Registry(),
		"oobkit_payloads_generated_total", "oobkit_payload_selection_failures_total")
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	require.NoError(t, tp.ForceFlush(context.Background()))
	spans := exporter.GetSpans()
	require.Len(t, spans, 2)
	assert.Equal(t, "payload.generate", spans[0].Name)
}

// A target that only echoes the request back must not pass regex
// validation; only running the payload may join the marker.
func TestDefaultCatalogRegexPayloadsNeedExecution(t *testing.T) {
	cat, err := payloads.LoadDefault()
	require.NoError(t, err)
	g, err := New(cat, nil, WithLogger(quietLogger()), WithSecretGenerator(secret.Static(testSecret)))
	require.NoError(t, err)

	for _, def := range cat.Definitions() {
		if def.UsesCallbackServer {
			continue
		}
		t.Run(def.Name, func(t *testing.T) {
			req := payloads.Request{
				VulnerabilityType:         def.VulnerabilityTypes[0],
				InterpretationEnvironment: def.InterpretationEnvironment,
				ExecutionEnvironment:      def.ExecutionEnvironment,
			}
			p, err := g.GenerateNoCallback(context.Background(), req)
			require.NoError(t, err)
			require.Equal(t, def.Name, p.DefinitionName())

			reflected := "<html>you searched for: " + p.PayloadString() + "</html>"
			executed, err := p.CheckIfExecutedString(context.Background(), reflected)
			require.NoError(t, err)
			assert.False(t, executed, "reflected payload %q passed validation", p.PayloadString())

			if strings.Contains(def.ValidationRegex, payloads.TokenRandom) {
				output := "TSUNAMI_PAYLOAD_START" + testSecret + "TSUNAMI_PAYLOAD_END\r\n"
				executed, err = p.CheckIfExecutedString(context.Background(), output)
				require.NoError(t, err)
				assert.True(t, executed)
			}
		})
	}
}
