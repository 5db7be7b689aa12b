package livellm

import (
	"context"
	"iter"
)

// TransportWrapper is a base type for middleware-style transport wrappers.
// Embed it in a wrapper struct to get delegation of every [Transport] method to Inner, then
// override only the methods that need custom behavior.
//
// Wrappers sit below the fallback logic of [Client]: each wrapped call concerns exactly one
// candidate, so a wrapper that retries ([RetryTransport]) retries within a candidate and a
// wrapper that logs ([LoggingTransport]) sees every attempt.
//
// # Example
//
//	type CountingTransport struct {
//		livellm.TransportWrapper
//		calls atomic.Int64
//	}
//
//	func (t *CountingTransport) AgentRun(ctx context.Context, req livellm.AgentRequest, creds livellm.Creds) (livellm.AgentResponse, error) {
//		t.calls.Add(1)
//		return t.TransportWrapper.AgentRun(ctx, req, creds)
//	}
type TransportWrapper struct {
	Inner Transport
}

// AgentRun delegates to Inner.AgentRun.
func (w *TransportWrapper) AgentRun(ctx context.Context, req AgentRequest, creds Creds) (AgentResponse, error) {
	return w.Inner.AgentRun(ctx, req, creds)
}

// AgentRunStream delegates to Inner.AgentRunStream.
func (w *TransportWrapper) AgentRunStream(ctx context.Context, req AgentRequest, creds Creds) (iter.Seq2[AgentResponse, error], error) {
	return w.Inner.AgentRunStream(ctx, req, creds)
}

// Speak delegates to Inner.Speak.
func (w *TransportWrapper) Speak(ctx context.Context, req SpeakRequest, creds Creds) ([]byte, error) {
	return w.Inner.Speak(ctx, req, creds)
}

// SpeakStream delegates to Inner.SpeakStream.
func (w *TransportWrapper) SpeakStream(ctx context.Context, req SpeakRequest, creds Creds) (iter.Seq2[[]byte, error], error) {
	return w.Inner.SpeakStream(ctx, req, creds)
}

// Transcribe delegates to Inner.Transcribe.
func (w *TransportWrapper) Transcribe(ctx context.Context, req TranscribeRequest, creds Creds) (TranscribeResponse, error) {
	return w.Inner.Transcribe(ctx, req, creds)
}

// Ping delegates to Inner.Ping.
func (w *TransportWrapper) Ping(ctx context.Context) (map[string]any, error) {
	return w.Inner.Ping(ctx)
}

var _ Transport = (*TransportWrapper)(nil)

// TransportWrapperFunc wraps a [Transport], returning a new Transport.
// Use with [WrapTransport] to compose several wrappers.
type TransportWrapperFunc func(Transport) Transport

// WrapTransport applies wrappers to t. The first wrapper becomes the outermost layer:
//
//	t := WrapTransport(base, WithTransportLogging(logger), WithRetry(nil))
//
// gives Logging{Retry{base}}, so every retry is logged.
func WrapTransport(t Transport, wrappers ...TransportWrapperFunc) Transport {
	for i := len(wrappers) - 1; i >= 0; i-- {
		t = wrappers[i](t)
	}
	return t
}
