package livellm

import (
	"context"
	"errors"
	"iter"
	"sync"
	"testing"
)

// recordedCall is one call received by mockTransport.
type recordedCall struct {
	Op       string
	Model    string
	Provider string
}

// mockTransport implements Transport for testing. Each method delegates to the matching func
// field and records the call; a nil func fails the call.
type mockTransport struct {
	mu          sync.Mutex
	calls       []recordedCall
	agentRuns   []AgentRequest
	credentials []Creds

	agentRunFunc       func(ctx context.Context, req AgentRequest, creds Creds) (AgentResponse, error)
	agentRunStreamFunc func(ctx context.Context, req AgentRequest, creds Creds) (iter.Seq2[AgentResponse, error], error)
	speakFunc          func(ctx context.Context, req SpeakRequest, creds Creds) ([]byte, error)
	speakStreamFunc    func(ctx context.Context, req SpeakRequest, creds Creds) (iter.Seq2[[]byte, error], error)
	transcribeFunc     func(ctx context.Context, req TranscribeRequest, creds Creds) (TranscribeResponse, error)
	pingFunc           func(ctx context.Context) (map[string]any, error)
}

var errNotImplemented = errors.New("not implemented")

func (m *mockTransport) record(op, model string, creds Creds) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, recordedCall{Op: op, Model: model, Provider: creds.Provider})
	m.credentials = append(m.credentials, creds)
}

func (m *mockTransport) Calls() []recordedCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]recordedCall(nil), m.calls...)
}

func (m *mockTransport) AgentRequests() []AgentRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]AgentRequest(nil), m.agentRuns...)
}

func (m *mockTransport) AgentRun(ctx context.Context, req AgentRequest, creds Creds) (AgentResponse, error) {
	m.record("agent_run", req.Model, creds)
	m.mu.Lock()
	m.agentRuns = append(m.agentRuns, req)
	m.mu.Unlock()
	if m.agentRunFunc == nil {
		return AgentResponse{}, errNotImplemented
	}
	return m.agentRunFunc(ctx, req, creds)
}

func (m *mockTransport) AgentRunStream(ctx context.Context, req AgentRequest, creds Creds) (iter.Seq2[AgentResponse, error], error) {
	m.record("agent_run_stream", req.Model, creds)
	if m.agentRunStreamFunc == nil {
		return nil, errNotImplemented
	}
	return m.agentRunStreamFunc(ctx, req, creds)
}

func (m *mockTransport) Speak(ctx context.Context, req SpeakRequest, creds Creds) ([]byte, error) {
	m.record("speak", req.Model, creds)
	if m.speakFunc == nil {
		return nil, errNotImplemented
	}
	return m.speakFunc(ctx, req, creds)
}

func (m *mockTransport) SpeakStream(ctx context.Context, req SpeakRequest, creds Creds) (iter.Seq2[[]byte, error], error) {
	m.record("speak_stream", req.Model, creds)
	if m.speakStreamFunc == nil {
		return nil, errNotImplemented
	}
	return m.speakStreamFunc(ctx, req, creds)
}

func (m *mockTransport) Transcribe(ctx context.Context, req TranscribeRequest, creds Creds) (TranscribeResponse, error) {
	m.record("transcribe", req.Model, creds)
	if m.transcribeFunc == nil {
		return TranscribeResponse{}, errNotImplemented
	}
	return m.transcribeFunc(ctx, req, creds)
}

func (m *mockTransport) Ping(ctx context.Context) (map[string]any, error) {
	m.record("ping", "", Creds{})
	if m.pingFunc == nil {
		return nil, errNotImplemented
	}
	return m.pingFunc(ctx)
}

// seqOf returns a sequence yielding items, then err if it is non-nil.
func seqOf[T any](err error, items ...T) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		for _, it := range items {
			if !yield(it, nil) {
				return
			}
		}
		if err != nil {
			var zero T
			yield(zero, err)
		}
	}
}

// testProviders registers text-model with three providers, and a handful of models with
// binary and audio capabilities.
func testProviders() []ProviderConfig {
	return []ProviderConfig{
		{
			Creds: Creds{APIKey: "key-1", Provider: "p1"},
			Models: []Model{
				{Name: "text-model"},
				{Name: "vision-model", Capabilities: NewCapabilitySet(ImageAgent)},
			},
		},
		{
			Creds: Creds{APIKey: "key-2", Provider: "p2", BaseURL: "https://p2.example.com"},
			Models: []Model{
				{Name: "text-model"},
				{Name: "omni-model", Capabilities: NewCapabilitySet(ImageAgent, AudioAgent, VideoAgent)},
			},
		},
		{
			Creds: Creds{APIKey: "key-3", Provider: "p3"},
			Models: []Model{
				{Name: "text-model"},
				{Name: "tts", Capabilities: NewCapabilitySet(Speak)},
				{Name: "stt", Capabilities: NewCapabilitySet(Transcribe)},
			},
		},
	}
}

func newTestClient(t testing.TB, m *mockTransport, providers []ProviderConfig, opts ...Option) *Client {
	t.Helper()
	c, err := New(m, providers, opts...)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return c
}
