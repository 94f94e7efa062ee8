package runtime

import (
	"encoding/json"
	"fmt"
	"strings"
)

func (a *Agent) buildPrompt(in Input, steps []Step) string {
	var sb strings.Builder
	sb.Grow(4096)

	sb.WriteString(a.systemPrompt)

	if tools := a.renderTools(); tools != "" {
		sb.WriteString("\n\n")
		sb.WriteString(tools)
	}

	sb.WriteString("\n\nConversation history:\n")
	sb.WriteString(renderHistory(in.ChatHistory))

	sb.WriteString("\nCurrent user message:\n")
	sb.WriteString(strings.TrimSpace(in.Query))

	if len(steps) > 0 {
		sb.WriteString("\n\nTool results so far:\n")
		sb.WriteString(renderSteps(steps))
		sb.WriteString("\nUse these results. Call another tool only if something is still missing.\n")
	} else {
		sb.WriteString("\n")
	}
	return sb.String()
}

// renderTools formats the available tool specs into a prompt-friendly block.
func (a *Agent) renderTools() string {
	specs := a.ToolSpecs()
	if len(specs) == 0 {
		return ""
	}

	var sb strings.Builder
	sb.WriteString("Available tools:\n")
	for _, spec := range specs {
		sb.WriteString(fmt.Sprintf("- %s: %s\n", spec.Name, spec.Description))
		if len(spec.InputSchema) > 0 {
			if schemaJSON, err := json.Marshal(spec.InputSchema); err == nil {
				sb.WriteString("  Input schema: ")
				sb.Write(schemaJSON)
				sb.WriteString("\n")
			}
		}
		for _, ex := range spec.Examples {
			if exJSON, err := json.Marshal(ex); err == nil {
				sb.WriteString("  Example: tool:")
				sb.WriteString(spec.Name)
				sb.WriteString(" ")
				sb.Write(exJSON)
				sb.WriteString("\n")
			}
		}
	}
	sb.WriteString("Invoke a tool with: `tool:<name> <json arguments>` and nothing else in the message.\n")
	return sb.String()
}

func renderHistory(history []Message) string {
	if len(history) == 0 {
		return "(no previous messages)\n"
	}
	var sb strings.Builder
	for _, msg := range history {
		content := strings.TrimSpace(msg.Content)
		if content == "" {
			continue
		}
		sb.WriteString(fmt.Sprintf("[%s] %s\n", msg.Role, escapePromptContent(content)))
	}
	return sb.String()
}

func renderSteps(steps []Step) string {
	var sb strings.Builder
	for i, step := range steps {
		args, _ := json.Marshal(step.Arguments)
		sb.WriteString(fmt.Sprintf("%d. tool:%s %s\n   => %s\n", i+1, step.Tool, args, escapePromptContent(step.Observation)))
	}
	return sb.String()
}

// escapePromptContent keeps backticks in user content from being read as tool syntax.
func escapePromptContent(s string) string {
	return strings.ReplaceAll(s, "`", "'")
}
