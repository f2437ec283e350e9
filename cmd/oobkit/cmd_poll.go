package main

import (
	"context"
	"errors"
	"flag"
	"io"
	"time"

	"github.com/oobkit/oobkit/pkg/defaults"
	"github.com/oobkit/oobkit/pkg/oob"
	"github.com/oobkit/oobkit/pkg/output"
	"github.com/oobkit/oobkit/pkg/secret"
	"github.com/oobkit/oobkit/pkg/ui"
)

// =============================================================================
// POLL / URI COMMANDS - Callback server client
// =============================================================================

func runPoll(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	var (
		s        string
		waitFor  time.Duration
		pollRate float64
	)
	a, code := setup("poll", args, stdout, stderr, func(fs *flag.FlagSet) {
		fs.StringVar(&s, "secret", "", "Secret embedded in the payload (required)")
		fs.DurationVar(&waitFor, "wait-for", 0, "Keep polling for this long (0 polls once)")
		fs.Float64Var(&pollRate, "poll-rate", defaults.PollRatePerSecond, "Polls per second while waiting")
	})
	if a == nil {
		return code
	}
	defer a.close()

	if s == "" {
		ui.PrintError("-secret is required")
		return defaults.ExitUserError
	}
	if pollRate <= 0 {
		ui.PrintError("-poll-rate must be positive")
		return defaults.ExitUserError
	}
	if !a.cfg.CallbackEnabled() {
		ui.PrintError("no callback server configured: set -callback-address, -callback-port and -polling-uri")
		return defaults.ExitUserError
	}

	client, err := a.newClient()
	if err != nil {
		ui.PrintError(err.Error())
		return defaults.ExitUserError
	}

	poll := func(ctx context.Context) (oob.PollingResult, error) { return client.Poll(ctx, s) }
	last, attempts, err := waitForCallback(ctx, poll, waitFor, newLimiter(pollRate))
	res := output.NewPollResult(oob.CBID(s), client.PollURL(s), last, attempts, err)

	if err := a.renderer.Render(res); err != nil {
		ui.PrintError(err.Error())
		return defaults.ExitInternalError
	}
	ui.PrintOutcome(res.Outcome, "cbid="+res.CBID)

	switch {
	case res.Confirmed():
		return defaults.ExitSuccess
	case err != nil && !errors.Is(err, context.DeadlineExceeded):
		return defaults.ExitNetworkError
	default:
		return defaults.ExitNotExecuted
	}
}

func runURI(_ context.Context, args []string, stdout, stderr io.Writer) int {
	var s string
	a, code := setup("uri", args, stdout, stderr, func(fs *flag.FlagSet) {
		fs.StringVar(&s, "secret", "", "Secret to map (default: a fresh random one)")
	})
	if a == nil {
		return code
	}
	defer a.close()

	if s == "" {
		var err error
		if s, err = secret.NewRandom().Generate(defaults.SecretLength); err != nil {
			ui.PrintError(err.Error())
			return defaults.ExitInternalError
		}
	}

	client, err := a.newClient()
	if err != nil {
		ui.PrintError(err.Error())
		return defaults.ExitUserError
	}
	if !client.IsCallbackServerEnabled() {
		ui.PrintWarning("no callback server configured; callback payloads will not be selected")
	}

	if err := a.renderer.Render(output.NewURIResult(client, s)); err != nil {
		ui.PrintError(err.Error())
		return defaults.ExitInternalError
	}
	return defaults.ExitSuccess
}
