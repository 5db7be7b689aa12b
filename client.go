package livellm

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v5"
)

const (
	defaultReadyInitialInterval = 250 * time.Millisecond
	defaultReadyMaxInterval     = 5 * time.Second
	defaultReadyMaxElapsedTime  = 30 * time.Second
)

// errStreamConsumed is yielded when a stream returned by Client is ranged over a second time.
var errStreamConsumed = errors.New("stream already consumed")

// AgentOptions tunes a single agent call. A nil *AgentOptions is the same as the zero value.
type AgentOptions struct {
	// ForceTransform converts every binary message to text even if the model could read it.
	ForceTransform bool
	// Capabilities overrides the capabilities the registry declares for the target model.
	Capabilities *CapabilitySet
	// GenConfig is passed through to the gateway, e.g. {"temperature": 0.2}.
	GenConfig map[string]any
}

// Client runs agent, speech and transcription calls through a [Transport], falling back
// across every configured provider that serves the requested model.
//
// Binary messages the target model cannot read are converted to text first, using a model
// that can. A Client is safe for concurrent use; attempts within one call are always made
// one at a time, in provider registration order.
type Client struct {
	transport Transport
	registry  *Registry
	fallback  fallbackExecutor
	logger    *slog.Logger
	tokens    *tokenCounter
}

// Option configures a Client.
type Option func(*clientOptions)

type clientOptions struct {
	logger   *slog.Logger
	policy   FallbackPolicy
	encoding string
	loader   func(encoding string) (tokenEncoder, error)
}

// WithLogger sets the logger used to report failed attempts and binary transformations.
// By default nothing is logged.
func WithLogger(logger *slog.Logger) Option {
	return func(o *clientOptions) {
		o.logger = logger
	}
}

// WithFallbackPolicy replaces the default policy, under which every failure except a
// cancellation falls back to the next candidate.
func WithFallbackPolicy(policy FallbackPolicy) Option {
	return func(o *clientOptions) {
		o.policy = policy
	}
}

// WithTokenEncoding sets the tiktoken encoding used by [Client.EstimateTokens].
// The default is "cl100k_base".
func WithTokenEncoding(encoding string) Option {
	return func(o *clientOptions) {
		o.encoding = encoding
	}
}

// New returns a Client sending calls through transport. providers are tried in the given
// order; the slice is copied.
func New(transport Transport, providers []ProviderConfig, opts ...Option) (*Client, error) {
	if transport == nil {
		return nil, errors.New("transport must not be nil")
	}
	for i, p := range providers {
		if p.Creds.Provider == "" {
			return nil, fmt.Errorf("provider %d: provider identifier must not be empty", i)
		}
	}

	o := clientOptions{
		logger:   slog.New(slog.DiscardHandler),
		encoding: defaultTokenEncoding,
		loader:   loadTiktoken,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.New(slog.DiscardHandler)
	}

	return &Client{
		transport: transport,
		registry:  NewRegistry(providers),
		fallback:  newFallbackExecutor(o.policy, o.logger),
		logger:    o.logger,
		tokens:    newTokenCounter(o.encoding, o.loader),
	}, nil
}

// Registry returns the registry built from the client's provider configurations.
func (c *Client) Registry() *Registry {
	return c.registry
}

func (c *Client) candidatesFor(model string) ([]candidate, error) {
	creds, err := c.registry.ProvidersForModel(model)
	if err != nil {
		return nil, err
	}
	cands := make([]candidate, len(creds))
	for i, cr := range creds {
		cands[i] = candidate{model: model, creds: cr}
	}
	return cands, nil
}

// RunAgent runs an agent call against model.
//
// Binary messages model cannot read, or all of them if opts.ForceTransform is set, are
// converted to text before the call. The returned messages are the ones actually sent.
func (c *Client) RunAgent(ctx context.Context, model string, messages []Message, tools []Tool, opts *AgentOptions) (AgentResponse, []Message, error) {
	var o AgentOptions
	if opts != nil {
		o = *opts
	}

	cands, err := c.candidatesFor(model)
	if err != nil {
		return AgentResponse{}, nil, err
	}

	sent, err := c.preprocess(ctx, messages, model, o.ForceTransform, o.Capabilities)
	if err != nil {
		return AgentResponse{}, nil, err
	}

	req := AgentRequest{Model: model, Messages: sent, Tools: tools, GenConfig: o.GenConfig}
	resp, err := runWithFallback(ctx, c.fallback, model, cands, func(ctx context.Context, cand candidate) (AgentResponse, error) {
		return c.transport.AgentRun(ctx, req, cand.creds)
	})
	return resp, sent, err
}

// RunAgentStream is the streaming form of [Client.RunAgent].
//
// Messages are preprocessed before RunAgentStream returns. The stream is opened when the
// returned sequence is first ranged over; providers are tried in order until one accepts it.
// After that, errors read from the stream are yielded and no other provider is tried.
// Breaking out of the loop closes the stream. The sequence can only be ranged over once.
func (c *Client) RunAgentStream(ctx context.Context, model string, messages []Message, tools []Tool, opts *AgentOptions) (iter.Seq2[AgentResponse, error], []Message, error) {
	var o AgentOptions
	if opts != nil {
		o = *opts
	}

	cands, err := c.candidatesFor(model)
	if err != nil {
		return nil, nil, err
	}

	sent, err := c.preprocess(ctx, messages, model, o.ForceTransform, o.Capabilities)
	if err != nil {
		return nil, nil, err
	}

	req := AgentRequest{Model: model, Messages: sent, Tools: tools, GenConfig: o.GenConfig}
	open := func(ctx context.Context, cand candidate) (iter.Seq2[AgentResponse, error], error) {
		return c.transport.AgentRunStream(ctx, req, cand.creds)
	}
	return streamWithFallback(ctx, c.fallback, model, cands, open), sent, nil
}

// Speak converts text to audio with model. format names the audio encoding, e.g. "mp3".
func (c *Client) Speak(ctx context.Context, model, text, voice, format string, genConfig map[string]any) ([]byte, error) {
	cands, err := c.candidatesFor(model)
	if err != nil {
		return nil, err
	}

	req := SpeakRequest{Model: model, Text: text, Voice: voice, OutputFormat: format, GenConfig: genConfig}
	return runWithFallback(ctx, c.fallback, model, cands, func(ctx context.Context, cand candidate) ([]byte, error) {
		return c.transport.Speak(ctx, req, cand.creds)
	})
}

// SpeakStream is the streaming form of [Client.Speak]. It follows the same establishment
// rules as [Client.RunAgentStream]; an unknown model is yielded as the first error.
func (c *Client) SpeakStream(ctx context.Context, model, text, voice, format string, genConfig map[string]any) iter.Seq2[[]byte, error] {
	cands, err := c.candidatesFor(model)
	if err != nil {
		return errSeq[[]byte](err)
	}

	req := SpeakRequest{Model: model, Text: text, Voice: voice, OutputFormat: format, GenConfig: genConfig}
	open := func(ctx context.Context, cand candidate) (iter.Seq2[[]byte, error], error) {
		return c.transport.SpeakStream(ctx, req, cand.creds)
	}
	return streamWithFallback(ctx, c.fallback, model, cands, open)
}

// Transcribe converts audio to text with model. language is an optional hint such as "en".
func (c *Client) Transcribe(ctx context.Context, model string, file AudioFile, language string, genConfig map[string]any) (TranscribeResponse, error) {
	cands, err := c.candidatesFor(model)
	if err != nil {
		return TranscribeResponse{}, err
	}

	req := TranscribeRequest{Model: model, File: file, Language: language, GenConfig: genConfig}
	return runWithFallback(ctx, c.fallback, model, cands, func(ctx context.Context, cand candidate) (TranscribeResponse, error) {
		return c.transport.Transcribe(ctx, req, cand.creds)
	})
}

// Ping checks the health of the gateway.
func (c *Client) Ping(ctx context.Context) (map[string]any, error) {
	return c.transport.Ping(ctx)
}

// WaitReady pings the gateway until it answers, backing off exponentially between tries.
// Without opts it gives up after 30 seconds; opts are applied after the defaults and so
// override them.
func (c *Client) WaitReady(ctx context.Context, opts ...backoff.RetryOption) error {
	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = defaultReadyInitialInterval
	exp.MaxInterval = defaultReadyMaxInterval

	retryOpts := make([]backoff.RetryOption, 0, 3+len(opts))
	retryOpts = append(retryOpts,
		backoff.WithBackOff(exp),
		backoff.WithMaxElapsedTime(defaultReadyMaxElapsedTime),
		backoff.WithNotify(func(err error, next time.Duration) {
			c.logger.Debug("gateway not ready", "error", err, "retry_in", next)
		}),
	)
	retryOpts = append(retryOpts, opts...)

	_, err := backoff.Retry(ctx, func() (map[string]any, error) {
		return c.transport.Ping(ctx)
	}, retryOpts...)
	if err != nil {
		return fmt.Errorf("gateway not ready: %w", err)
	}
	return nil
}

// streamWithFallback returns a sequence that opens a stream with the first candidate that
// accepts it and then relays its items. Errors after establishment end the sequence without
// trying further candidates.
func streamWithFallback[T any](
	ctx context.Context,
	f fallbackExecutor,
	model string,
	cands []candidate,
	open func(ctx context.Context, c candidate) (iter.Seq2[T, error], error),
) iter.Seq2[T, error] {
	var used atomic.Bool
	return func(yield func(T, error) bool) {
		var zero T
		if used.Swap(true) {
			yield(zero, errStreamConsumed)
			return
		}

		stream, err := runWithFallback(ctx, f, model, cands, func(ctx context.Context, cand candidate) (iter.Seq2[T, error], error) {
			s, err := open(ctx, cand)
			if err == nil && s == nil {
				return nil, errors.New("transport returned no stream")
			}
			return s, err
		})
		if err != nil {
			yield(zero, err)
			return
		}

		for item, err := range stream {
			if !yield(item, err) || err != nil {
				return
			}
		}
	}
}
