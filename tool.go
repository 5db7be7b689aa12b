package livellm

import (
	"encoding/json"
	"fmt"
)

// Tool is a capability the gateway makes available to the agent, either a [WebSearch]
// or an [MCPServer].
type Tool interface {
	isTool()
}

// SearchContextSize controls how much search context a WebSearch tool retrieves.
type SearchContextSize string

const (
	SearchContextLow    SearchContextSize = "low"
	SearchContextMedium SearchContextSize = "medium"
	SearchContextHigh   SearchContextSize = "high"
)

// WebSearch lets the agent search the web. An empty ContextSize means [SearchContextMedium].
type WebSearch struct {
	ContextSize SearchContextSize
}

func (WebSearch) isTool() {}

// MarshalJSON implements json.Marshaler.
func (w WebSearch) MarshalJSON() ([]byte, error) {
	size := w.ContextSize
	switch size {
	case "":
		size = SearchContextMedium
	case SearchContextLow, SearchContextMedium, SearchContextHigh:
	default:
		return nil, fmt.Errorf("invalid search context size %q", size)
	}
	return json.Marshal(struct {
		SearchContextSize SearchContextSize `json:"search_context_size"`
	}{size})
}

// MCPServer exposes the tools of a streamable-HTTP MCP server to the agent.
// Prefix namespaces the server's tool names.
type MCPServer struct {
	URL    string `json:"url"`
	Prefix string `json:"prefix"`
}

func (MCPServer) isTool() {}
