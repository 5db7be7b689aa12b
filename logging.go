package livellm

import (
	"context"
	"iter"
	"log/slog"
	"time"
)

// LoggingTransport is a [Transport] that logs every call with its provider, model and
// duration. Failed calls are logged at Warn, successful ones at Debug. API keys are never
// logged.
type LoggingTransport struct {
	TransportWrapper
	Logger *slog.Logger
}

// WithTransportLogging returns a TransportWrapperFunc applying a [LoggingTransport].
func WithTransportLogging(logger *slog.Logger) TransportWrapperFunc {
	return func(t Transport) Transport {
		return &LoggingTransport{
			TransportWrapper: TransportWrapper{Inner: t},
			Logger:           logger,
		}
	}
}

func (l *LoggingTransport) log(ctx context.Context, op, model string, creds Creds, start time.Time, err error) {
	attrs := []any{
		"op", op,
		"model", model,
		"provider", creds.Provider,
		"duration", time.Since(start),
	}
	if err != nil {
		l.Logger.WarnContext(ctx, "transport call failed", append(attrs, "error", err)...)
		return
	}
	l.Logger.DebugContext(ctx, "transport call", attrs...)
}

// AgentRun implements Transport.
func (l *LoggingTransport) AgentRun(ctx context.Context, req AgentRequest, creds Creds) (AgentResponse, error) {
	start := time.Now()
	resp, err := l.Inner.AgentRun(ctx, req, creds)
	l.log(ctx, "agent_run", req.Model, creds, start, err)
	return resp, err
}

// AgentRunStream implements Transport. The logged duration covers opening the stream.
func (l *LoggingTransport) AgentRunStream(ctx context.Context, req AgentRequest, creds Creds) (iter.Seq2[AgentResponse, error], error) {
	start := time.Now()
	seq, err := l.Inner.AgentRunStream(ctx, req, creds)
	l.log(ctx, "agent_run_stream", req.Model, creds, start, err)
	return seq, err
}

// Speak implements Transport.
func (l *LoggingTransport) Speak(ctx context.Context, req SpeakRequest, creds Creds) ([]byte, error) {
	start := time.Now()
	audio, err := l.Inner.Speak(ctx, req, creds)
	l.log(ctx, "speak", req.Model, creds, start, err)
	return audio, err
}

// SpeakStream implements Transport. The logged duration covers opening the stream.
func (l *LoggingTransport) SpeakStream(ctx context.Context, req SpeakRequest, creds Creds) (iter.Seq2[[]byte, error], error) {
	start := time.Now()
	seq, err := l.Inner.SpeakStream(ctx, req, creds)
	l.log(ctx, "speak_stream", req.Model, creds, start, err)
	return seq, err
}

// Transcribe implements Transport.
func (l *LoggingTransport) Transcribe(ctx context.Context, req TranscribeRequest, creds Creds) (TranscribeResponse, error) {
	start := time.Now()
	resp, err := l.Inner.Transcribe(ctx, req, creds)
	l.log(ctx, "transcribe", req.Model, creds, start, err)
	return resp, err
}

var _ Transport = (*LoggingTransport)(nil)
