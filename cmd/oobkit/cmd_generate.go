package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/oobkit/oobkit/pkg/defaults"
	"github.com/oobkit/oobkit/pkg/duration"
	"github.com/oobkit/oobkit/pkg/oob"
	"github.com/oobkit/oobkit/pkg/output"
	"github.com/oobkit/oobkit/pkg/payloadgen"
	"github.com/oobkit/oobkit/pkg/payloads"
	"github.com/oobkit/oobkit/pkg/secret"
	"github.com/oobkit/oobkit/pkg/ui"
)

// =============================================================================
// GENERATE COMMAND - Payload generation and verification
// =============================================================================

type generateFlags struct {
	vulnerabilityType string
	interpretation    string
	execution         string
	noCallback        bool
	secret            string
	data              string
	dataFile          string
	wait              bool
	waitFor           time.Duration
	pollRate          float64
}

func (f *generateFlags) register(fs *flag.FlagSet) {
	// === REQUEST ===
	fs.StringVar(&f.vulnerabilityType, "vt", "", "Vulnerability type (e.g. REFLECTIVE_RCE, SSRF)")
	fs.StringVar(&f.interpretation, "ie", "", "Interpretation environment (e.g. LINUX_SHELL, INTERPRETATION_ANY)")
	fs.StringVar(&f.execution, "ee", "", "Execution environment (e.g. EXEC_INTERPRETATION_ENVIRONMENT, EXEC_ANY)")
	fs.BoolVar(&f.noCallback, "no-callback", false, "Never select callback server payloads")
	fs.StringVar(&f.secret, "secret", "", "Use this secret instead of a random one (reproduce an attempt)")

	// === VERIFICATION ===
	fs.StringVar(&f.data, "data", "", "Captured target output to check a regex payload against")
	fs.StringVar(&f.dataFile, "data-file", "", "File with captured target output")
	fs.BoolVar(&f.wait, "wait", false, "Wait for the callback server to confirm a callback payload")
	fs.DurationVar(&f.waitFor, "wait-for", duration.WaitDefault, "Wait window for -wait")
	fs.Float64Var(&f.pollRate, "poll-rate", defaults.PollRatePerSecond, "Polls per second while waiting")
}

func runGenerate(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	var f generateFlags
	a, code := setup("generate", args, stdout, stderr, f.register)
	if a == nil {
		return code
	}
	defer a.close()

	if f.vulnerabilityType == "" || f.interpretation == "" || f.execution == "" {
		ui.PrintError("-vt, -ie and -ee are required")
		return defaults.ExitUserError
	}
	req, err := payloads.ParseRequest(f.vulnerabilityType, f.interpretation, f.execution)
	if err != nil {
		ui.PrintError(err.Error())
		return defaults.ExitUserError
	}
	if f.wait && f.pollRate <= 0 {
		ui.PrintError("-poll-rate must be positive")
		return defaults.ExitUserError
	}

	var captured []byte
	switch {
	case f.dataFile != "":
		captured, err = os.ReadFile(f.dataFile)
		if err != nil {
			ui.PrintError(err.Error())
			return defaults.ExitUserError
		}
	case f.data != "":
		captured = []byte(f.data)
	}

	catalog, source, err := a.loadCatalog()
	if err != nil {
		ui.PrintError(describeCatalogError(source, err))
		return defaults.ExitUserError
	}
	client, err := a.newClient()
	if err != nil {
		ui.PrintError(err.Error())
		return defaults.ExitUserError
	}

	opts := []payloadgen.Option{
		payloadgen.WithLogger(a.logger),
		payloadgen.WithMetrics(a.metrics),
		payloadgen.WithTracer(a.tracing.Tracer()),
	}
	if f.secret != "" {
		opts = append(opts, payloadgen.WithSecretGenerator(secret.Static(f.secret)))
	}
	gen, err := payloadgen.New(catalog, client, opts...)
	if err != nil {
		ui.PrintError(err.Error())
		return defaults.ExitInternalError
	}

	var p *payloadgen.Payload
	if f.noCallback {
		p, err = gen.GenerateNoCallback(ctx, req)
	} else {
		p, err = gen.Generate(ctx, req)
	}
	var selErr *payloadgen.SelectionError
	switch {
	case errors.As(err, &selErr):
		ui.PrintError(selErr.Error())
		return defaults.ExitUserError
	case err != nil:
		ui.PrintError(err.Error())
		return defaults.ExitInternalError
	}

	res := output.NewGenerationResult(p)
	code = defaults.ExitSuccess

	if captured != nil && res.UsesCallbackServer {
		ui.PrintWarning("captured output ignored: callback payloads are confirmed by the callback server")
	}
	if captured != nil && !res.UsesCallbackServer {
		executed, err := p.CheckIfExecuted(ctx, captured)
		if err != nil {
			ui.PrintError(err.Error())
			return defaults.ExitInternalError
		}
		res.Executed = &executed
		if !executed {
			code = defaults.ExitNotExecuted
		}
	}

	if f.wait {
		if !res.UsesCallbackServer {
			ui.PrintWarning("-wait ignored: payload is validated from captured output, not the callback server")
		} else {
			ui.PrintKV("callback", client.CallbackURI(p.Secret()))
			ui.PrintInfo(fmt.Sprintf("waiting up to %s for an interaction", f.waitFor))
			poll := func(ctx context.Context) (oob.PollingResult, error) { return client.Poll(ctx, p.Secret()) }
			last, attempts, err := waitForCallback(ctx, poll, f.waitFor, newLimiter(f.pollRate))
			verification := output.NewPollResult(res.CBID, client.PollURL(p.Secret()), last, attempts, err)
			res.Verification = &verification
			if !verification.Confirmed() {
				code = defaults.ExitNotExecuted
			}
		}
	}

	if err := a.renderer.Render(res); err != nil {
		ui.PrintError(err.Error())
		return defaults.ExitInternalError
	}
	return code
}
