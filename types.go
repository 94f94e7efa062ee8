package runtime

import "context"

// Role identifies who authored a conversation turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one turn of conversation history.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// ToolSpec describes how the agent should present a tool to the model.
type ToolSpec struct {
	Name        string           `json:"name"`
	Description string           `json:"description"`
	InputSchema map[string]any   `json:"input_schema"`
	Examples    []map[string]any `json:"examples,omitempty"`
}

// ToolRequest captures an invocation request for a tool.
type ToolRequest struct {
	SessionID string
	Arguments map[string]any
}

// ToolResponse is what a tool hands back to the model as an observation.
type ToolResponse struct {
	Content  string
	Metadata map[string]string
}

// Tool exposes structured metadata and an invocation handler.
type Tool interface {
	Spec() ToolSpec
	Invoke(ctx context.Context, req ToolRequest) (ToolResponse, error)
}

// ToolCatalog maintains an ordered set of tools and provides lookup by name.
type ToolCatalog interface {
	Register(tool Tool) error
	Lookup(name string) (Tool, ToolSpec, bool)
	Specs() []ToolSpec
	Tools() []Tool
}

// StringArg returns the first non-empty string argument among keys. The free
// text fallback key "input" is always consulted last.
func (r ToolRequest) StringArg(keys ...string) string {
	for _, k := range append(keys, "input") {
		if v, ok := r.Arguments[k].(string); ok && v != "" {
			return v
		}
	}
	return ""
}
