package research

import (
	"strings"
)

// Result is the structured answer the model must produce for every turn.
type Result struct {
	Topic     string   `json:"topic" jsonschema_description:"The subject the user asked about"`
	Summary   string   `json:"summary" jsonschema_description:"A concise research summary answering the query"`
	Sources   []string `json:"sources" jsonschema_description:"References consulted for the summary, in order of use"`
	ToolsUsed []string `json:"tools_used" jsonschema_description:"Names of the tools invoked while researching"`
}

// Render formats the result for display, conversation history and archiving.
func (r *Result) Render() string {
	var b strings.Builder
	b.WriteString("Topic: ")
	b.WriteString(r.Topic)
	b.WriteString("\nSummary: ")
	b.WriteString(r.Summary)
	b.WriteString("\nSources: ")
	b.WriteString(joinOrNone(r.Sources))
	b.WriteString("\nTools Used: ")
	b.WriteString(joinOrNone(r.ToolsUsed))
	return b.String()
}

func joinOrNone(items []string) string {
	if len(items) == 0 {
		return "none"
	}
	return strings.Join(items, ", ")
}
