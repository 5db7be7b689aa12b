package livellm

import (
	"context"
	"iter"
)

// Transport carries single calls to the gateway. Every call names the credentials it is made
// with; choosing which credentials to use is the job of [Client], not of the Transport.
//
// A Transport implementation may return several types of errors:
//   - [ApiErr] when the gateway answers with a non-2xx status
//   - [RateLimitErr] when the call was rejected because of rate limiting
//   - [AuthenticationErr] when the credentials were rejected
//   - any connection or decoding error
//
// The streaming methods return an error only when the stream could not be opened. Once a
// sequence is returned the stream counts as established; errors read later are yielded by
// the sequence, which ends after yielding one. The sequence owns the underlying connection
// and releases it when iteration ends, including when the consumer stops early.
type Transport interface {
	AgentRun(ctx context.Context, req AgentRequest, creds Creds) (AgentResponse, error)
	AgentRunStream(ctx context.Context, req AgentRequest, creds Creds) (iter.Seq2[AgentResponse, error], error)
	Speak(ctx context.Context, req SpeakRequest, creds Creds) ([]byte, error)
	SpeakStream(ctx context.Context, req SpeakRequest, creds Creds) (iter.Seq2[[]byte, error], error)
	Transcribe(ctx context.Context, req TranscribeRequest, creds Creds) (TranscribeResponse, error)
	// Ping checks the health of the gateway itself and needs no credentials.
	Ping(ctx context.Context) (map[string]any, error)
}
