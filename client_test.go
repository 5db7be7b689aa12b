package livellm

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/google/go-cmp/cmp"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name      string
		transport Transport
		providers []ProviderConfig
		wantErr   bool
	}{
		{name: "valid", transport: &mockTransport{}, providers: testProviders()},
		{name: "no providers", transport: &mockTransport{}},
		{name: "nil transport", providers: testProviders(), wantErr: true},
		{
			name:      "empty provider identifier",
			transport: &mockTransport{},
			providers: []ProviderConfig{{Creds: Creds{APIKey: "k"}, Models: []Model{{Name: "m"}}}},
			wantErr:   true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.transport, tt.providers)
			if (err != nil) != tt.wantErr {
				t.Errorf("New() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestClient_RunAgent(t *testing.T) {
	m := &mockTransport{
		agentRunFunc: func(ctx context.Context, req AgentRequest, creds Creds) (AgentResponse, error) {
			return AgentResponse{Output: "hi there", Usage: Usage{InputTokens: 4, OutputTokens: 2}}, nil
		},
	}
	c := newTestClient(t, m, testProviders())

	messages := []Message{
		TextMessage{Role: System, Content: "be brief"},
		TextMessage{Role: User, Content: "hello"},
	}
	tools := []Tool{WebSearch{ContextSize: SearchContextHigh}, MCPServer{URL: "http://mcp.local", Prefix: "fs"}}
	opts := &AgentOptions{GenConfig: map[string]any{"temperature": 0.2}}

	resp, sent, err := c.RunAgent(context.Background(), "text-model", messages, tools, opts)
	if err != nil {
		t.Fatalf("RunAgent() error = %v", err)
	}
	if diff := cmp.Diff(AgentResponse{Output: "hi there", Usage: Usage{InputTokens: 4, OutputTokens: 2}}, resp); diff != "" {
		t.Errorf("response mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(messages, sent); diff != "" {
		t.Errorf("text only messages must be sent unchanged (-want +got):\n%s", diff)
	}

	reqs := m.AgentRequests()
	if len(reqs) != 1 {
		t.Fatalf("got %d agent calls, want 1", len(reqs))
	}
	want := AgentRequest{Model: "text-model", Messages: messages, Tools: tools, GenConfig: opts.GenConfig}
	if diff := cmp.Diff(want, reqs[0]); diff != "" {
		t.Errorf("request mismatch (-want +got):\n%s", diff)
	}
	if got := m.credentials[0]; got.APIKey != "key-1" || got.Provider != "p1" {
		t.Errorf("first attempt used %+v, want p1 credentials", got)
	}
}

func TestClient_RunAgent_Fallback(t *testing.T) {
	m := &mockTransport{
		agentRunFunc: func(ctx context.Context, req AgentRequest, creds Creds) (AgentResponse, error) {
			switch creds.Provider {
			case "p1":
				return AgentResponse{}, ApiErr{StatusCode: http.StatusBadGateway, Message: "upstream"}
			case "p2":
				return AgentResponse{}, RateLimitErr("busy")
			}
			return AgentResponse{Output: "from " + creds.Provider}, nil
		},
	}
	c := newTestClient(t, m, testProviders())

	resp, _, err := c.RunAgent(context.Background(), "text-model", []Message{TextMessage{Role: User, Content: "hi"}}, nil, nil)
	if err != nil {
		t.Fatalf("RunAgent() error = %v", err)
	}
	if resp.Output != "from p3" {
		t.Errorf("Output = %q, want %q", resp.Output, "from p3")
	}

	want := []recordedCall{
		{Op: "agent_run", Model: "text-model", Provider: "p1"},
		{Op: "agent_run", Model: "text-model", Provider: "p2"},
		{Op: "agent_run", Model: "text-model", Provider: "p3"},
	}
	if diff := cmp.Diff(want, m.Calls()); diff != "" {
		t.Errorf("calls mismatch (-want +got):\n%s", diff)
	}
}

func TestClient_RunAgent_Exhausted(t *testing.T) {
	m := &mockTransport{
		agentRunFunc: func(ctx context.Context, req AgentRequest, creds Creds) (AgentResponse, error) {
			return AgentResponse{}, errors.New(creds.Provider + " failed")
		},
	}
	c := newTestClient(t, m, testProviders())

	messages := []Message{TextMessage{Role: User, Content: "hi"}}
	_, sent, err := c.RunAgent(context.Background(), "text-model", messages, nil, nil)

	var exhausted FallbackExhaustedErr
	if !errors.As(err, &exhausted) {
		t.Fatalf("RunAgent() error = %v, want FallbackExhaustedErr", err)
	}
	if len(exhausted.Attempts) != 3 {
		t.Fatalf("got %d attempts, want 3", len(exhausted.Attempts))
	}
	for i, p := range []string{"p1", "p2", "p3"} {
		if got := exhausted.Attempts[i]; got.Provider != p || got.Model != "text-model" || got.Err.Error() != p+" failed" {
			t.Errorf("attempt %d = %v", i, got)
		}
	}
	if diff := cmp.Diff(messages, sent); diff != "" {
		t.Errorf("sent messages must be returned on failure (-want +got):\n%s", diff)
	}
}

func TestClient_RunAgent_UnknownModel(t *testing.T) {
	m := &mockTransport{}
	c := newTestClient(t, m, testProviders())

	_, _, err := c.RunAgent(context.Background(), "gpt-9", []Message{TextMessage{Role: User, Content: "hi"}}, nil, nil)
	var notFound ModelNotFoundErr
	if !errors.As(err, &notFound) {
		t.Fatalf("RunAgent() error = %v, want ModelNotFoundErr", err)
	}
	if len(m.Calls()) != 0 {
		t.Errorf("transport called for an unknown model: %v", m.Calls())
	}
}

func TestClient_RunAgent_UnknownModelWithOverride(t *testing.T) {
	m := describingTransport()
	c := newTestClient(t, m, testProviders())
	empty := NewCapabilitySet()
	messages := []Message{NewBinaryMessage([]byte("png"), "image/png", "")}

	_, sent, err := c.RunAgent(context.Background(), "ghost", messages, nil, &AgentOptions{Capabilities: &empty})
	var notFound ModelNotFoundErr
	if !errors.As(err, &notFound) {
		t.Fatalf("RunAgent() error = %v, want ModelNotFoundErr", err)
	}
	if sent != nil {
		t.Errorf("sent = %v, want nil", sent)
	}

	_, _, err = c.RunAgentStream(context.Background(), "ghost", messages, nil, &AgentOptions{Capabilities: &empty})
	if !errors.As(err, &notFound) {
		t.Fatalf("RunAgentStream() error = %v, want ModelNotFoundErr", err)
	}

	if calls := m.Calls(); len(calls) != 0 {
		t.Errorf("no transformation may run for a model nobody serves, got %v", calls)
	}
}

func TestClient_RunAgent_NonFallbackPolicy(t *testing.T) {
	authErr := AuthenticationErr("bad key")
	m := &mockTransport{
		agentRunFunc: func(ctx context.Context, req AgentRequest, creds Creds) (AgentResponse, error) {
			return AgentResponse{}, authErr
		},
	}
	c := newTestClient(t, m, testProviders(), WithFallbackPolicy(RateLimitOnlyFallbackPolicy()))

	_, _, err := c.RunAgent(context.Background(), "text-model", []Message{TextMessage{Role: User, Content: "hi"}}, nil, nil)
	if !errors.Is(err, authErr) {
		t.Fatalf("RunAgent() error = %v, want %v", err, authErr)
	}
	if n := len(m.Calls()); n != 1 {
		t.Errorf("got %d calls, want 1", n)
	}
}

func TestClient_Speak(t *testing.T) {
	providers := append(testProviders(), ProviderConfig{
		Creds:  Creds{APIKey: "key-4", Provider: "p4"},
		Models: []Model{{Name: "tts", Capabilities: NewCapabilitySet(Speak)}},
	})
	var got SpeakRequest
	m := &mockTransport{
		speakFunc: func(ctx context.Context, req SpeakRequest, creds Creds) ([]byte, error) {
			if creds.Provider == "p3" {
				return nil, ApiErr{StatusCode: http.StatusServiceUnavailable, Message: "down"}
			}
			got = req
			return []byte("ID3audio"), nil
		},
	}
	c := newTestClient(t, m, providers)

	audio, err := c.Speak(context.Background(), "tts", "hello", "alloy", "mp3", map[string]any{"speed": 1.5})
	if err != nil {
		t.Fatalf("Speak() error = %v", err)
	}
	if string(audio) != "ID3audio" {
		t.Errorf("audio = %q", audio)
	}
	want := SpeakRequest{Model: "tts", Text: "hello", Voice: "alloy", OutputFormat: "mp3", GenConfig: map[string]any{"speed": 1.5}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("request mismatch (-want +got):\n%s", diff)
	}
	wantCalls := []recordedCall{
		{Op: "speak", Model: "tts", Provider: "p3"},
		{Op: "speak", Model: "tts", Provider: "p4"},
	}
	if diff := cmp.Diff(wantCalls, m.Calls()); diff != "" {
		t.Errorf("calls mismatch (-want +got):\n%s", diff)
	}

	if _, err := c.Speak(context.Background(), "nope", "hello", "alloy", "mp3", nil); !errors.As(err, new(ModelNotFoundErr)) {
		t.Errorf("Speak(unknown) error = %v, want ModelNotFoundErr", err)
	}
}

func TestClient_Transcribe(t *testing.T) {
	m := &mockTransport{
		transcribeFunc: func(ctx context.Context, req TranscribeRequest, creds Creds) (TranscribeResponse, error) {
			if req.File.Name != "clip.wav" || string(req.File.Content) != "RIFF" || req.Language != "en" {
				return TranscribeResponse{}, errors.New("unexpected request")
			}
			return TranscribeResponse{Text: "hello world", Language: "en"}, nil
		},
	}
	c := newTestClient(t, m, testProviders())

	file := AudioFile{Name: "clip.wav", Content: []byte("RIFF"), ContentType: "audio/wav"}
	resp, err := c.Transcribe(context.Background(), "stt", file, "en", nil)
	if err != nil {
		t.Fatalf("Transcribe() error = %v", err)
	}
	if diff := cmp.Diff(TranscribeResponse{Text: "hello world", Language: "en"}, resp); diff != "" {
		t.Errorf("response mismatch (-want +got):\n%s", diff)
	}
}

func TestClient_Ping(t *testing.T) {
	m := &mockTransport{
		pingFunc: func(ctx context.Context) (map[string]any, error) {
			return map[string]any{"status": "ok"}, nil
		},
	}
	c := newTestClient(t, m, nil)

	got, err := c.Ping(context.Background())
	if err != nil {
		t.Fatalf("Ping() error = %v", err)
	}
	if got["status"] != "ok" {
		t.Errorf("Ping() = %v", got)
	}
}

func TestClient_WaitReady(t *testing.T) {
	t.Run("becomes ready", func(t *testing.T) {
		pings := 0
		m := &mockTransport{
			pingFunc: func(ctx context.Context) (map[string]any, error) {
				pings++
				if pings < 3 {
					return nil, errors.New("connection refused")
				}
				return map[string]any{"status": "ok"}, nil
			},
		}
		c := newTestClient(t, m, nil)

		err := c.WaitReady(context.Background(), backoff.WithBackOff(backoff.NewConstantBackOff(time.Millisecond)))
		if err != nil {
			t.Fatalf("WaitReady() error = %v", err)
		}
		if pings != 3 {
			t.Errorf("pings = %d, want 3", pings)
		}
	})

	t.Run("gives up", func(t *testing.T) {
		refused := errors.New("connection refused")
		m := &mockTransport{
			pingFunc: func(ctx context.Context) (map[string]any, error) {
				return nil, refused
			},
		}
		c := newTestClient(t, m, nil)

		err := c.WaitReady(context.Background(),
			backoff.WithBackOff(backoff.NewConstantBackOff(time.Millisecond)),
			backoff.WithMaxTries(2),
		)
		if !errors.Is(err, refused) {
			t.Fatalf("WaitReady() error = %v, want %v", err, refused)
		}
		if n := len(m.Calls()); n != 2 {
			t.Errorf("pings = %d, want 2", n)
		}
	})
}
