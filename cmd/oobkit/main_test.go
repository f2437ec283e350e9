package main

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oobkit/oobkit/pkg/defaults"
	"github.com/oobkit/oobkit/pkg/jsonutil"
	"github.com/oobkit/oobkit/pkg/metrics"
	"github.com/oobkit/oobkit/pkg/oob"
	"github.com/oobkit/oobkit/pkg/output"
)

const testSecret = "a3d9ed89deadbeef"

func runCLI(t *testing.T, args ...string) (code int, stdout, stderr string) {
	t.Helper()
	var out, errOut bytes.Buffer
	code = run(context.Background(), append(args, "-no-color"), &out, &errOut)
	return code, out.String(), errOut.String()
}

// callbackServer answers polls for cbid with an HTTP interaction once
// confirmAfter polls have been seen, and with no interaction otherwise.
func callbackServer(t *testing.T, cbid string, confirmAfter int32) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var polls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := polls.Add(1)
		hit := r.URL.Query().Get("secret") == cbid && confirmAfter > 0 && n >= confirmAfter
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"has_dns_interaction":false,"has_http_interaction":%t}`, hit)
	}))
	t.Cleanup(srv.Close)
	return srv, &polls
}

func callbackFlags(srv *httptest.Server) []string {
	return []string{"-callback-address", "127.0.0.1", "-callback-port", "8881", "-polling-uri", srv.URL}
}

func TestRunUsage(t *testing.T) {
	var out, errOut bytes.Buffer

	assert.Equal(t, defaults.ExitUserError, run(context.Background(), nil, &out, &errOut))
	assert.Contains(t, errOut.String(), "USAGE:")

	out.Reset()
	assert.Equal(t, defaults.ExitSuccess, run(context.Background(), []string{"help"}, &out, &errOut))
	assert.Contains(t, out.String(), "COMMANDS:")

	errOut.Reset()
	assert.Equal(t, defaults.ExitUserError, run(context.Background(), []string{"scan"}, &out, &errOut))
	assert.Contains(t, errOut.String(), `unknown command "scan"`)
}

func TestRunVersion(t *testing.T) {
	var out bytes.Buffer
	assert.Equal(t, defaults.ExitSuccess, run(context.Background(), []string{"version"}, &out, &out))
	assert.True(t, strings.HasPrefix(out.String(), defaults.ToolName+" "+defaults.Version))
}

func TestCommandHelp(t *testing.T) {
	code, _, stderr := runCLI(t, "generate", "-h")
	assert.Equal(t, defaults.ExitSuccess, code)
	assert.Contains(t, stderr, "-vt")
}

func TestBadFlags(t *testing.T) {
	code, _, stderr := runCLI(t, "poll", "-callback-port", "70000", "-secret", testSecret)
	assert.Equal(t, defaults.ExitUserError, code)
	assert.Contains(t, stderr, "poll:")

	code, _, _ = runCLI(t, "uri", "stray")
	assert.Equal(t, defaults.ExitUserError, code)
}

// =============================================================================
// CATALOG COMMANDS
// =============================================================================

func TestValidateDefaultCatalog(t *testing.T) {
	code, stdout, _ := runCLI(t, "validate")
	require.Equal(t, defaults.ExitSuccess, code)
	assert.Contains(t, stdout, "Catalog:     embedded")
	assert.Contains(t, stdout, "Fingerprint:")
}

func TestListJSON(t *testing.T) {
	code, stdout, _ := runCLI(t, "list", "-format", "json")
	require.Equal(t, defaults.ExitSuccess, code)

	var got output.CatalogSummary
	require.NoError(t, jsonutil.Unmarshal([]byte(stdout), &got))
	assert.Equal(t, "embedded", got.Source)
	require.NotEmpty(t, got.Definitions)
	assert.Equal(t, "linux_curl_trace_read", got.Definitions[0].Name)
	assert.Len(t, got.Definitions, got.Total)
}

func TestValidateBadCatalog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`payloads:
  - name: broken
    interpretation_environment: LINUX_SHELL
    execution_environment: EXEC_INTERPRETATION_ENVIRONMENT
    vulnerability_type: [REFLECTIVE_RCE]
    uses_callback_server: true
    payload_string: 'curl http://example.com'
`), 0o600))

	code, _, stderr := runCLI(t, "validate", "-catalog", path)
	assert.Equal(t, defaults.ExitUserError, code)
	assert.Contains(t, stderr, "(broken)")
	assert.Contains(t, stderr, "Parse payload uses callback server but $TSUNAMI_PAYLOAD_TOKEN_URL not found in payload string.")
}

// =============================================================================
// GENERATE COMMAND
// =============================================================================

func TestGenerateRegexPayload(t *testing.T) {
	data := "uid=0 TSUNAMI_PAYLOAD_START" + testSecret + "TSUNAMI_PAYLOAD_END"
	code, stdout, _ := runCLI(t, "generate",
		"-vt", "REFLECTIVE_RCE", "-ie", "LINUX_SHELL", "-ee", "EXEC_INTERPRETATION_ENVIRONMENT",
		"-secret", testSecret, "-data", data, "-format", "json")
	require.Equal(t, defaults.ExitSuccess, code)

	var got output.GenerationResult
	require.NoError(t, jsonutil.Unmarshal([]byte(stdout), &got))
	assert.Equal(t, "linux_printf", got.Definition)
	assert.Equal(t, "printf %s%s%s TSUNAMI_PAYLOAD_START "+testSecret+" TSUNAMI_PAYLOAD_END", got.Payload)
	assert.False(t, got.UsesCallbackServer)
	assert.Empty(t, got.CBID)
	require.NotNil(t, got.Executed)
	assert.True(t, *got.Executed)
}

func TestGenerateNotExecuted(t *testing.T) {
	dataFile := filepath.Join(t.TempDir(), "resp.txt")
	require.NoError(t, os.WriteFile(dataFile, []byte("permission denied"), 0o600))

	code, stdout, _ := runCLI(t, "generate",
		"-vt", "REFLECTIVE_RCE", "-ie", "PYTHON3", "-ee", "EXEC_INTERPRETATION_ENVIRONMENT",
		"-data-file", dataFile)
	assert.Equal(t, defaults.ExitNotExecuted, code)
	assert.Contains(t, stdout, "Definition:  python3_print")
	assert.Contains(t, stdout, "Executed:    false")
}

func TestGenerateWithoutCallbackServerSkipsCallbackEntries(t *testing.T) {
	code, stdout, _ := runCLI(t, "generate",
		"-vt", "SSRF", "-ie", "INTERPRETATION_ANY", "-ee", "EXEC_ANY", "-format", "json")
	require.Equal(t, defaults.ExitSuccess, code)

	var got output.GenerationResult
	require.NoError(t, jsonutil.Unmarshal([]byte(stdout), &got))
	assert.Equal(t, "ssrf_firing_range", got.Definition)
	assert.Equal(t, "http://public-firing-range.appspot.com/", got.Payload)
}

func TestGenerateNoPayload(t *testing.T) {
	code, stdout, stderr := runCLI(t, "generate",
		"-vt", "ARBITRARY_FILE_WRITE", "-ie", "JSP", "-ee", "EXEC_ANY")
	assert.Equal(t, defaults.ExitUserError, code)
	assert.Empty(t, stdout)
	assert.Contains(t, stderr,
		"No payload implemented for ARBITRARY_FILE_WRITE vulnerability type, JSP interpretation environment, and EXEC_ANY execution environment.")
}

func TestGenerateRequiresRequest(t *testing.T) {
	code, _, stderr := runCLI(t, "generate", "-vt", "SSRF")
	assert.Equal(t, defaults.ExitUserError, code)
	assert.Contains(t, stderr, "required")

	code, _, _ = runCLI(t, "generate", "-vt", "XSS", "-ie", "JAVA", "-ee", "EXEC_ANY")
	assert.Equal(t, defaults.ExitUserError, code)
}

func TestGenerateCallbackConfirmed(t *testing.T) {
	cbid := oob.CBID(testSecret)
	srv, polls := callbackServer(t, cbid, 2)

	args := append([]string{"generate",
		"-vt", "BLIND_RCE", "-ie", "LINUX_SHELL", "-ee", "EXEC_INTERPRETATION_ENVIRONMENT",
		"-secret", testSecret, "-wait", "-wait-for", "5s", "-poll-rate", "50", "-format", "json"},
		callbackFlags(srv)...)
	code, stdout, _ := runCLI(t, args...)
	require.Equal(t, defaults.ExitSuccess, code)

	var got output.GenerationResult
	require.NoError(t, jsonutil.Unmarshal([]byte(stdout), &got))
	assert.Equal(t, "linux_curl_trace_read", got.Definition)
	assert.Equal(t, "curl http://127.0.0.1:8881/"+cbid, got.Payload)
	assert.Equal(t, cbid, got.CBID)
	require.NotNil(t, got.Verification)
	assert.Equal(t, metrics.OutcomeConfirmed, got.Verification.Outcome)
	assert.Equal(t, 2, got.Verification.Attempts)
	assert.EqualValues(t, 2, polls.Load())
}

func TestGenerateNoCallbackFlag(t *testing.T) {
	srv, polls := callbackServer(t, "", 0)

	args := append([]string{"generate",
		"-vt", "REFLECTIVE_RCE", "-ie", "WINDOWS_SHELL", "-ee", "EXEC_INTERPRETATION_ENVIRONMENT",
		"-no-callback", "-format", "json"}, callbackFlags(srv)...)
	code, stdout, _ := runCLI(t, args...)
	require.Equal(t, defaults.ExitSuccess, code)

	var got output.GenerationResult
	require.NoError(t, jsonutil.Unmarshal([]byte(stdout), &got))
	assert.Equal(t, "windows_echo", got.Definition)
	assert.Zero(t, polls.Load())
}

// =============================================================================
// POLL / URI COMMANDS
// =============================================================================

func TestPollConfirmed(t *testing.T) {
	srv, _ := callbackServer(t, oob.CBID(testSecret), 1)

	code, stdout, _ := runCLI(t, append([]string{"poll", "-secret", testSecret}, callbackFlags(srv)...)...)
	assert.Equal(t, defaults.ExitSuccess, code)
	assert.Contains(t, stdout, "Outcome:     confirmed")
	assert.Contains(t, stdout, "HTTP:        true")
}

func TestPollPending(t *testing.T) {
	srv, polls := callbackServer(t, oob.CBID(testSecret), 0)

	args := append([]string{"poll", "-secret", testSecret, "-wait-for", "300ms", "-poll-rate", "20", "-format", "json"},
		callbackFlags(srv)...)
	code, stdout, _ := runCLI(t, args...)
	assert.Equal(t, defaults.ExitNotExecuted, code)

	var got output.PollResult
	require.NoError(t, jsonutil.Unmarshal([]byte(stdout), &got))
	assert.Equal(t, metrics.OutcomePending, got.Outcome)
	assert.Equal(t, oob.CBID(testSecret), got.CBID)
	assert.GreaterOrEqual(t, got.Attempts, 2)
	assert.GreaterOrEqual(t, int(polls.Load()), got.Attempts)
}

func TestPollServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	code, stdout, _ := runCLI(t, append([]string{"poll", "-secret", testSecret}, callbackFlags(srv)...)...)
	assert.Equal(t, defaults.ExitNetworkError, code)
	assert.Contains(t, stdout, "Outcome:     failed")
	assert.Contains(t, stdout, "502")
}

func TestPollRequiresCallbackServer(t *testing.T) {
	code, _, stderr := runCLI(t, "poll", "-secret", testSecret)
	assert.Equal(t, defaults.ExitUserError, code)
	assert.Contains(t, stderr, "no callback server configured")

	code, _, _ = runCLI(t, "poll")
	assert.Equal(t, defaults.ExitUserError, code)
}

func TestURI(t *testing.T) {
	code, stdout, _ := runCLI(t, "uri", "-secret", testSecret, "-format", "json",
		"-callback-address", "2001:db8::1", "-callback-port", "80", "-polling-uri", "http://127.0.0.1:8880/")
	require.Equal(t, defaults.ExitSuccess, code)

	var got output.URIResult
	require.NoError(t, jsonutil.Unmarshal([]byte(stdout), &got))
	cbid := oob.CBID(testSecret)
	assert.Equal(t, "ip", got.AddressKind)
	assert.Equal(t, "http://[2001:db8::1]/"+cbid, got.CallbackURI)
	assert.Equal(t, "http://127.0.0.1:8880/?secret="+cbid, got.PollURL)
	assert.True(t, got.Enabled)
}

func TestURIRandomSecret(t *testing.T) {
	code, stdout, stderr := runCLI(t, "uri", "-format", "json")
	require.Equal(t, defaults.ExitSuccess, code)
	assert.Contains(t, stderr, "no callback server configured")

	var got output.URIResult
	require.NoError(t, jsonutil.Unmarshal([]byte(stdout), &got))
	assert.Len(t, got.Secret, 2*defaults.SecretLength)
	assert.Equal(t, oob.CBID(got.Secret), got.CBID)
	assert.False(t, got.Enabled)
}

func TestConfigFile(t *testing.T) {
	srv, _ := callbackServer(t, oob.CBID(testSecret), 1)

	path := filepath.Join(t.TempDir(), "oobkit.yaml")
	require.NoError(t, os.WriteFile(path, []byte(fmt.Sprintf(`callback_server:
  callback_address: 127.0.0.1
  callback_port: 8881
  polling_uri: %s
`, srv.URL)), 0o600))

	code, stdout, _ := runCLI(t, "poll", "-config", path, "-secret", testSecret)
	assert.Equal(t, defaults.ExitSuccess, code)
	assert.Contains(t, stdout, "confirmed")
}

func TestLogFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "oobkit.log")

	code, _, stderr := runCLI(t, "validate", "-v", "-log-file", path)
	require.Equal(t, defaults.ExitSuccess, code)
	assert.NotContains(t, stderr, "catalog loaded")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "catalog loaded")
	assert.Contains(t, string(data), "fingerprint=")
}
