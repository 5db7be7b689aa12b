package livellm

import (
	"context"
	"errors"
	"log/slog"
)

// FallbackPolicy decides which failures move a fallback sequence on to its next candidate.
type FallbackPolicy struct {
	// ShouldFallback reports whether the next candidate should be tried after err.
	// If it returns false, err is returned to the caller as is.
	// If nil, every error except a cancellation of the caller's context falls back.
	ShouldFallback func(err error) bool
}

func defaultShouldFallback(err error) bool {
	return !errors.Is(err, context.Canceled)
}

// RateLimitOnlyFallbackPolicy returns a FallbackPolicy that only falls back on rate limit errors.
func RateLimitOnlyFallbackPolicy() FallbackPolicy {
	return FallbackPolicy{
		ShouldFallback: func(err error) bool {
			var rateLimitErr RateLimitErr
			return errors.As(err, &rateLimitErr)
		},
	}
}

// candidate is one (model, credentials) pair of a fallback sequence.
type candidate struct {
	model string
	creds Creds
}

type fallbackExecutor struct {
	shouldFallback func(error) bool
	logger         *slog.Logger
}

func newFallbackExecutor(policy FallbackPolicy, logger *slog.Logger) fallbackExecutor {
	should := policy.ShouldFallback
	if should == nil {
		should = defaultShouldFallback
	}
	return fallbackExecutor{shouldFallback: should, logger: logger}
}

// runWithFallback calls action with each candidate in order until one succeeds.
//
// Attempts are strictly sequential and no candidate is tried twice. When every candidate
// fails, the returned [FallbackExhaustedErr] holds one entry per candidate in attempt order,
// labelled with model. If the caller's context is done after a failed attempt, that attempt's
// error is returned and no further candidate is tried.
func runWithFallback[T any](
	ctx context.Context,
	f fallbackExecutor,
	model string,
	cands []candidate,
	action func(ctx context.Context, c candidate) (T, error),
) (T, error) {
	var zero T
	if len(cands) == 0 {
		return zero, ModelNotFoundErr(model)
	}

	attempts := make([]AttemptErr, 0, len(cands))
	for i, c := range cands {
		if err := ctx.Err(); err != nil {
			return zero, err
		}

		res, err := action(ctx, c)
		if err == nil {
			if i > 0 {
				f.logger.Info("fallback candidate succeeded", "model", c.model, "provider", c.creds.Provider, "attempt", i+1)
			}
			return res, nil
		}

		if ctx.Err() != nil || !f.shouldFallback(err) {
			return zero, err
		}

		f.logger.Warn("fallback candidate failed",
			"model", c.model,
			"provider", c.creds.Provider,
			"attempt", i+1,
			"candidates", len(cands),
			"error", err,
		)
		attempts = append(attempts, AttemptErr{Model: c.model, Provider: c.creds.Provider, Err: err})
	}

	return zero, FallbackExhaustedErr{Model: model, Attempts: attempts}
}
