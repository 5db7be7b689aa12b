// Package livellm provides a client for a multi-provider generative-AI gateway.
//
// The client accepts a logical model name together with conversation messages and tools,
// resolves which configured providers expose that model, and tries them one after another
// until one succeeds. It also negotiates input capabilities: when the target model cannot
// consume an image, audio, or video message, the message is converted to text by another
// model that can, and the original request is then issued with the converted messages.
//
// # Core Concepts
//
// Transport: The port through which every call reaches the gateway. The [gateway] sub-package
// provides the HTTP implementation; tests and custom deployments may supply their own.
//
//	type Transport interface {
//		AgentRun(ctx context.Context, req AgentRequest, creds Creds) (AgentResponse, error)
//		AgentRunStream(ctx context.Context, req AgentRequest, creds Creds) (iter.Seq2[AgentResponse, error], error)
//		Speak(ctx context.Context, req SpeakRequest, creds Creds) ([]byte, error)
//		SpeakStream(ctx context.Context, req SpeakRequest, creds Creds) (iter.Seq2[[]byte, error], error)
//		Transcribe(ctx context.Context, req TranscribeRequest, creds Creds) (TranscribeResponse, error)
//		Ping(ctx context.Context) (map[string]any, error)
//	}
//
// ProviderConfig: One set of credentials plus the models reachable with them. The order in
// which providers are passed to [New] is the order in which they are tried.
//
//	type ProviderConfig struct {
//		Creds  Creds
//		Models []Model
//	}
//
// Model: A model name and the set of input capabilities it supports.
//
//	type Model struct {
//		Name         string
//		Capabilities CapabilitySet
//	}
//
// Message: Either a [TextMessage] or a [BinaryMessage]. Binary messages carry raw bytes and a
// MIME type; their media type (image, audio, video) decides which capability is required.
//
// # Examples
//
// Running an agent with fallback between two providers:
//
//	transport := gateway.New("http://localhost:8000")
//	client := livellm.New(transport, []livellm.ProviderConfig{
//		livellm.OpenAIProvider(os.Getenv("OPENAI_API_KEY"), ""),
//		livellm.GoogleProvider(os.Getenv("GEMINI_API_KEY"), ""),
//	})
//
//	resp, sent, err := client.RunAgent(ctx, "gpt-4o", []livellm.Message{
//		livellm.NewBinaryMessage(audio, "audio/mp3", "What is said here?"),
//		livellm.TextMessage{Role: livellm.User, Content: "Summarize the audio."},
//	}, nil, nil)
//
// gpt-4o has no audio capability, so the audio message is first transcribed by a Gemini model
// and sent describes the messages the gateway actually received.
//
// Streaming responses are exposed as iterators:
//
//	seq, _, err := client.RunAgentStream(ctx, "gpt-4o", messages, nil, nil)
//	for chunk, err := range seq {
//		if err != nil {
//			return err
//		}
//		fmt.Print(chunk.Output)
//	}
//
// Fallback only guards stream establishment. Once a provider has accepted a stream, errors
// read from it are returned to the caller and no other provider is tried.
package livellm

//go:generate go run scripts/generate-readme.go -out README.md
