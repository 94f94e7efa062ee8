package runtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Protocol-Lattice/research-agent/src/logging"
	"github.com/Protocol-Lattice/research-agent/src/models"
	"github.com/Protocol-Lattice/research-agent/src/research"
)

const (
	defaultMaxIterations = 6
	maxObservationChars  = 4000
)

// ErrMaxIterations is returned when the model keeps calling tools past the limit.
var ErrMaxIterations = errors.New("agent exceeded the maximum number of tool iterations")

// researchPrompt is the default persona. The save tool name must match tools.SaveToolName.
const researchPrompt = `You are a research assistant that will help generate a research paper.
Answer the user query and use necessary tools you require.
Whenever the user asks to save to a file you must use the 'save_text_to_file' tool.
Wrap the output in this format and provide no other text
`

// DefaultSystemPrompt is the research persona followed by the response format instructions.
func DefaultSystemPrompt() string {
	return researchPrompt + research.FormatInstructions()
}

// Agent runs a tool-calling loop over a language model until it produces a
// final answer.
type Agent struct {
	model         models.LLM
	systemPrompt  string
	toolCatalog   ToolCatalog
	maxIterations int
	logger        logging.Logger
	onToolCall    func(tool string, err error)
}

// Options configure a new Agent.
type Options struct {
	Model         models.LLM
	SystemPrompt  string
	Tools         []Tool
	ToolCatalog   ToolCatalog
	MaxIterations int
	Logger        logging.Logger
	// OnToolCall is notified after every tool invocation, e.g. for metrics.
	OnToolCall func(tool string, err error)
}

// Input is a single runtime invocation.
type Input struct {
	Query       string
	ChatHistory []Message
	SessionID   string
}

// Output is the final model reply, trimmed, plus the tool steps taken.
type Output struct {
	Output string
	Steps  []Step
}

// Step records one tool call and what it returned.
type Step struct {
	Tool        string
	Arguments   map[string]any
	Observation string
	Err         error
}

// New creates an Agent with the provided options.
func New(opts Options) (*Agent, error) {
	if opts.Model == nil {
		return nil, errors.New("agent requires a language model")
	}

	systemPrompt := opts.SystemPrompt
	if strings.TrimSpace(systemPrompt) == "" {
		systemPrompt = DefaultSystemPrompt()
	}

	maxIterations := opts.MaxIterations
	if maxIterations <= 0 {
		maxIterations = defaultMaxIterations
	}

	toolCatalog := opts.ToolCatalog
	if toolCatalog == nil {
		var err error
		if toolCatalog, err = NewStaticToolCatalog(); err != nil {
			return nil, err
		}
	}
	for _, tool := range opts.Tools {
		if err := toolCatalog.Register(tool); err != nil {
			return nil, fmt.Errorf("register tool: %w", err)
		}
	}

	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNop()
	}

	return &Agent{
		model:         opts.Model,
		systemPrompt:  systemPrompt,
		toolCatalog:   toolCatalog,
		maxIterations: maxIterations,
		logger:        logger,
		onToolCall:    opts.OnToolCall,
	}, nil
}

// Invoke answers in.Query given the prior conversation. Tool failures are fed
// back to the model; model failures are returned.
func (a *Agent) Invoke(ctx context.Context, in Input) (Output, error) {
	if strings.TrimSpace(in.Query) == "" {
		return Output{}, errors.New("query is empty")
	}

	var steps []Step
	for {
		if err := ctx.Err(); err != nil {
			return Output{Steps: steps}, err
		}

		reply, err := a.model.Generate(ctx, a.buildPrompt(in, steps))
		if err != nil {
			return Output{Steps: steps}, fmt.Errorf("model generate: %w", err)
		}

		name, args, isCall := parseToolCall(reply)
		if !isCall {
			return Output{Output: strings.TrimSpace(reply), Steps: steps}, nil
		}
		if len(steps) >= a.maxIterations {
			return Output{Steps: steps}, ErrMaxIterations
		}
		steps = append(steps, a.runTool(ctx, in.SessionID, name, args))
	}
}

func (a *Agent) runTool(ctx context.Context, sessionID, name, rawArgs string) Step {
	step := Step{Tool: name, Arguments: parseToolArguments(rawArgs)}
	log := a.logger.With(map[string]any{"tool": name, "session": sessionID})

	tool, spec, ok := a.lookupTool(name)
	if !ok {
		step.Err = fmt.Errorf("unknown tool: %s", name)
		step.Observation = "error: " + step.Err.Error()
		log.Warn("model requested unknown tool", nil)
		a.notifyTool(name, step.Err)
		return step
	}
	step.Tool = spec.Name

	started := time.Now()
	resp, err := tool.Invoke(ctx, ToolRequest{SessionID: sessionID, Arguments: step.Arguments})
	fields := map[string]any{"duration_ms": time.Since(started).Milliseconds()}
	if err != nil {
		step.Err = err
		step.Observation = "error: " + err.Error()
		log.WithError(err).Warn("tool call failed", fields)
	} else {
		step.Observation = truncate(strings.TrimSpace(resp.Content), maxObservationChars)
		log.Info("tool call", fields)
	}
	a.notifyTool(spec.Name, err)
	return step
}

func (a *Agent) notifyTool(name string, err error) {
	if a.onToolCall != nil {
		a.onToolCall(name, err)
	}
}

// parseToolCall recognises replies of the form `tool:<name> <arguments>`.
// Arguments may span several lines.
func parseToolCall(reply string) (name, args string, ok bool) {
	trimmed := strings.TrimSpace(reply)
	if len(trimmed) < len("tool:") || !strings.EqualFold(trimmed[:len("tool:")], "tool:") {
		return "", "", false
	}
	payload := strings.TrimSpace(trimmed[len("tool:"):])
	name, args = splitCommand(payload)
	if name == "" {
		return "", "", false
	}
	return name, args, true
}

func parseToolArguments(raw string) map[string]any {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return map[string]any{}
	}
	if strings.HasPrefix(raw, "{") {
		var payload map[string]any
		if err := json.Unmarshal([]byte(raw), &payload); err == nil {
			return payload
		}
	}
	if strings.HasPrefix(raw, "[") {
		var arr []any
		if err := json.Unmarshal([]byte(raw), &arr); err == nil {
			return map[string]any{"items": arr}
		}
	}
	return map[string]any{"input": raw}
}

func splitCommand(payload string) (name string, args string) {
	parts := strings.Fields(payload)
	if len(parts) == 0 {
		return "", ""
	}
	name = parts[0]
	if len(payload) > len(name) {
		args = strings.TrimSpace(payload[len(name):])
	}
	return name, args
}

func (a *Agent) lookupTool(name string) (Tool, ToolSpec, bool) {
	if a.toolCatalog == nil {
		return nil, ToolSpec{}, false
	}
	return a.toolCatalog.Lookup(name)
}

// ToolSpecs returns the registered tool specifications in deterministic order.
func (a *Agent) ToolSpecs() []ToolSpec {
	if a.toolCatalog == nil {
		return nil
	}
	return a.toolCatalog.Specs()
}

// SystemPrompt returns the prompt every request starts with.
func (a *Agent) SystemPrompt() string {
	return a.systemPrompt
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-3]) + "..."
}
