package tools

import (
	"context"
	"errors"
	"fmt"
	"strings"

	agent "github.com/Protocol-Lattice/research-agent"
	"github.com/Protocol-Lattice/research-agent/src/archive"
)

const SaveToolName = "save_text_to_file"

// SaveTool lets the model archive text on explicit request. It writes through
// the same sink the shell uses for automatic saves.
type SaveTool struct {
	sink archive.Sink
}

func NewSaveTool(sink archive.Sink) *SaveTool {
	return &SaveTool{sink: sink}
}

func (s *SaveTool) Spec() agent.ToolSpec {
	return agent.ToolSpec{
		Name:        SaveToolName,
		Description: "Saves structured research data to a text file",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"text": map[string]any{"type": "string", "description": "The text to append to the research archive."},
			},
			"required": []string{"text"},
		},
	}
}

func (s *SaveTool) Invoke(ctx context.Context, req agent.ToolRequest) (agent.ToolResponse, error) {
	text := req.StringArg("text", "data")
	if text == "" {
		if items, ok := req.Arguments["items"].([]any); ok {
			parts := make([]string, 0, len(items))
			for _, it := range items {
				parts = append(parts, fmt.Sprint(it))
			}
			text = strings.Join(parts, "\n")
		}
	}
	if strings.TrimSpace(text) == "" {
		return agent.ToolResponse{}, errors.New("save: text is required")
	}
	if err := Save(ctx, s.sink, text); err != nil {
		return agent.ToolResponse{}, err
	}
	return agent.ToolResponse{
		Content:  "Data successfully saved to " + s.sink.Target(),
		Metadata: map[string]string{"target": s.sink.Target()},
	}, nil
}

// Save appends text to sink.
func Save(ctx context.Context, sink archive.Sink, text string) error {
	if sink == nil {
		return errors.New("save: no archive configured")
	}
	if err := sink.Save(ctx, text); err != nil {
		return fmt.Errorf("save: %w", err)
	}
	return nil
}
