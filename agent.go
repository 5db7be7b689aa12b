package livellm

import (
	"encoding/json"
	"fmt"
)

// AgentRequest is a single agent call as sent to the gateway.
type AgentRequest struct {
	Model    string
	Messages []Message
	Tools    []Tool
	// GenConfig holds free-form generation settings such as temperature.
	GenConfig map[string]any
}

// MarshalJSON implements json.Marshaler.
func (r AgentRequest) MarshalJSON() ([]byte, error) {
	messages := make([]Message, 0, len(r.Messages))
	for i, m := range r.Messages {
		if m == nil {
			return nil, fmt.Errorf("message %d is nil", i)
		}
		messages = append(messages, m)
	}
	tools := make([]Tool, 0, len(r.Tools))
	for i, t := range r.Tools {
		if t == nil {
			return nil, fmt.Errorf("tool %d is nil", i)
		}
		tools = append(tools, t)
	}
	return json.Marshal(struct {
		Model     string         `json:"model"`
		Messages  []Message      `json:"messages"`
		Tools     []Tool         `json:"tools"`
		GenConfig map[string]any `json:"gen_config,omitempty"`
	}{r.Model, messages, tools, r.GenConfig})
}

// Usage reports the tokens consumed by an agent call.
type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// AgentResponse is the result of an agent call, or one chunk of a streamed call.
type AgentResponse struct {
	Output string `json:"output"`
	Usage  Usage  `json:"usage"`
}

// SpeakRequest asks a model to turn text into audio.
type SpeakRequest struct {
	Model        string         `json:"model"`
	Text         string         `json:"text"`
	Voice        string         `json:"voice"`
	OutputFormat string         `json:"output_format"`
	GenConfig    map[string]any `json:"gen_config,omitempty"`
}

// AudioFile is an uploaded audio payload.
type AudioFile struct {
	Name        string
	Content     []byte
	ContentType string
}

// TranscribeRequest asks a model to turn audio into text.
type TranscribeRequest struct {
	Model     string
	File      AudioFile
	Language  string
	GenConfig map[string]any
}

// TranscribeResponse is the result of a transcription.
// Language is empty when the provider does not report it.
type TranscribeResponse struct {
	Text     string `json:"text"`
	Language string `json:"language,omitempty"`
}
