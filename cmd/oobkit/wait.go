package main

import (
	"context"
	"time"

	"golang.org/x/time/rate"

	"github.com/oobkit/oobkit/pkg/defaults"
	"github.com/oobkit/oobkit/pkg/duration"
	"github.com/oobkit/oobkit/pkg/oob"
)

type pollFunc func(ctx context.Context) (oob.PollingResult, error)

// waitForCallback polls until an interaction is reported or the wait
// window closes, pacing polls with limiter. A non-positive wait polls
// once. It returns the last result, the number of polls, and the error of
// the last poll.
func waitForCallback(ctx context.Context, poll pollFunc, wait time.Duration, limiter *rate.Limiter) (oob.PollingResult, int, error) {
	if wait <= 0 {
		res, err := poll(ctx)
		return res, 1, err
	}
	if wait > duration.WaitMax {
		wait = duration.WaitMax
	}

	ctx, cancel := context.WithTimeout(ctx, wait)
	defer cancel()

	var (
		last     oob.PollingResult
		lastErr  error
		attempts int
	)
	for {
		if err := limiter.Wait(ctx); err != nil {
			if attempts == 0 {
				return last, attempts, err
			}
			return last, attempts, lastErr
		}

		res, err := poll(ctx)
		if err != nil && ctx.Err() != nil && attempts > 0 {
			// Cut off by the wait window; the previous poll stands.
			return last, attempts, lastErr
		}
		attempts++
		last, lastErr = res, err
		if err == nil && res.Interacted() {
			return res, attempts, nil
		}
	}
}

func newLimiter(perSecond float64) *rate.Limiter {
	return rate.NewLimiter(rate.Limit(perSecond), defaults.PollBurst)
}
