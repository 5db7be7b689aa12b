package livellm

import (
	"context"
	"errors"
	"iter"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v5"
)

const (
	// Default parameters for the ExponentialBackOff if no policy is provided by the user.
	defaultRetryInitialInterval = 500 * time.Millisecond
	defaultRetryMaxInterval     = 15 * time.Second
	// Default MaxElapsedTime if the user provides no RetryOptions.
	defaultRetryMaxElapsedTime = 1 * time.Minute
)

// RetryTransport is a [Transport] that retries failed calls against the same credentials
// according to a backoff policy.
//
// It retries on:
//   - context.DeadlineExceeded of the call itself, not of the caller's context
//   - [RateLimitErr]
//   - [ApiErr] with HTTP status code 429 (Too Many Requests)
//   - [ApiErr] with HTTP status codes 5xx (Server Errors)
//
// Every other error is returned immediately. For streams only opening is retried.
// Ping is never retried; see [Client.WaitReady].
type RetryTransport struct {
	TransportWrapper
	newBackOff   func() backoff.BackOff
	retryOptions []backoff.RetryOption
}

// NewRetryTransport wraps t with retries.
//
// newBackOff returns a fresh backoff policy for each call, since policies such as
// *backoff.ExponentialBackOff are stateful. If nil, an ExponentialBackOff with
// InitialInterval 500ms and MaxInterval 15s is used.
// If no opts are given, retries stop after one minute. If opts are given they are used as is.
func NewRetryTransport(t Transport, newBackOff func() backoff.BackOff, opts ...backoff.RetryOption) *RetryTransport {
	if newBackOff == nil {
		newBackOff = func() backoff.BackOff {
			exp := backoff.NewExponentialBackOff()
			exp.InitialInterval = defaultRetryInitialInterval
			exp.MaxInterval = defaultRetryMaxInterval
			return exp
		}
	}

	finalOpts := opts
	if len(opts) == 0 {
		finalOpts = []backoff.RetryOption{
			backoff.WithMaxElapsedTime(defaultRetryMaxElapsedTime),
		}
	}

	return &RetryTransport{
		TransportWrapper: TransportWrapper{Inner: t},
		newBackOff:       newBackOff,
		retryOptions:     finalOpts,
	}
}

// WithRetry returns a TransportWrapperFunc applying [NewRetryTransport].
func WithRetry(newBackOff func() backoff.BackOff, opts ...backoff.RetryOption) TransportWrapperFunc {
	return func(t Transport) Transport {
		return NewRetryTransport(t, newBackOff, opts...)
	}
}

func isRetriable(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var rateLimitErr RateLimitErr
	if errors.As(err, &rateLimitErr) {
		return true
	}
	var apiErr ApiErr
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == http.StatusTooManyRequests || // 429
			(apiErr.StatusCode >= 500 && apiErr.StatusCode <= 599) // 5xx
	}
	return false
}

func withRetries[T any](ctx context.Context, rt *RetryTransport, call func() (T, error)) (T, error) {
	operation := func() (T, error) {
		// Stop as soon as the caller's context is done.
		if err := ctx.Err(); err != nil {
			var zero T
			return zero, backoff.Permanent(err)
		}
		res, err := call()
		if err != nil && !isRetriable(err) {
			return res, backoff.Permanent(err)
		}
		return res, err
	}

	callOpts := make([]backoff.RetryOption, 0, 1+len(rt.retryOptions))
	callOpts = append(callOpts, backoff.WithBackOff(rt.newBackOff()))
	callOpts = append(callOpts, rt.retryOptions...)

	res, err := backoff.Retry(ctx, operation, callOpts...)
	if err != nil {
		var permanent *backoff.PermanentError
		if errors.As(err, &permanent) {
			return res, permanent.Err
		}
		return res, err
	}
	return res, nil
}

// AgentRun implements Transport.
func (rt *RetryTransport) AgentRun(ctx context.Context, req AgentRequest, creds Creds) (AgentResponse, error) {
	return withRetries(ctx, rt, func() (AgentResponse, error) {
		return rt.Inner.AgentRun(ctx, req, creds)
	})
}

// AgentRunStream implements Transport. Only opening the stream is retried.
func (rt *RetryTransport) AgentRunStream(ctx context.Context, req AgentRequest, creds Creds) (iter.Seq2[AgentResponse, error], error) {
	return withRetries(ctx, rt, func() (iter.Seq2[AgentResponse, error], error) {
		return rt.Inner.AgentRunStream(ctx, req, creds)
	})
}

// Speak implements Transport.
func (rt *RetryTransport) Speak(ctx context.Context, req SpeakRequest, creds Creds) ([]byte, error) {
	return withRetries(ctx, rt, func() ([]byte, error) {
		return rt.Inner.Speak(ctx, req, creds)
	})
}

// SpeakStream implements Transport. Only opening the stream is retried.
func (rt *RetryTransport) SpeakStream(ctx context.Context, req SpeakRequest, creds Creds) (iter.Seq2[[]byte, error], error) {
	return withRetries(ctx, rt, func() (iter.Seq2[[]byte, error], error) {
		return rt.Inner.SpeakStream(ctx, req, creds)
	})
}

// Transcribe implements Transport.
func (rt *RetryTransport) Transcribe(ctx context.Context, req TranscribeRequest, creds Creds) (TranscribeResponse, error) {
	return withRetries(ctx, rt, func() (TranscribeResponse, error) {
		return rt.Inner.Transcribe(ctx, req, creds)
	})
}

// ensure RetryTransport implements Transport
var _ Transport = (*RetryTransport)(nil)
