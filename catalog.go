package runtime

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"unicode"
)

type catalogEntry struct {
	tool Tool
	spec ToolSpec
}

// StaticToolCatalog is the in-memory ToolCatalog used by the runtime. Names are
// matched case-insensitively and listed in registration order.
type StaticToolCatalog struct {
	mu      sync.RWMutex
	entries []catalogEntry
	index   map[string]int
}

// NewStaticToolCatalog registers tools in order and fails on the first
// invalid or duplicate entry.
func NewStaticToolCatalog(tools ...Tool) (*StaticToolCatalog, error) {
	c := &StaticToolCatalog{index: make(map[string]int, len(tools))}
	for _, tool := range tools {
		if err := c.Register(tool); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Register adds tool. A name must be a single token because the model calls it
// as `tool:<name> <args>`.
func (c *StaticToolCatalog) Register(tool Tool) error {
	if tool == nil {
		return errors.New("tool is nil")
	}
	spec := tool.Spec()
	key := normalizeToolName(spec.Name)
	switch {
	case key == "":
		return errors.New("tool name is empty")
	case strings.IndexFunc(key, unicode.IsSpace) >= 0:
		return fmt.Errorf("tool name %q contains whitespace", spec.Name)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if _, dup := c.index[key]; dup {
		return fmt.Errorf("tool %s already registered", spec.Name)
	}
	c.index[key] = len(c.entries)
	c.entries = append(c.entries, catalogEntry{tool: tool, spec: spec})
	return nil
}

func (c *StaticToolCatalog) Lookup(name string) (Tool, ToolSpec, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	i, ok := c.index[normalizeToolName(name)]
	if !ok {
		return nil, ToolSpec{}, false
	}
	e := c.entries[i]
	return e.tool, e.spec, true
}

func (c *StaticToolCatalog) Specs() []ToolSpec {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]ToolSpec, len(c.entries))
	for i, e := range c.entries {
		out[i] = e.spec
	}
	return out
}

func (c *StaticToolCatalog) Tools() []Tool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Tool, len(c.entries))
	for i, e := range c.entries {
		out[i] = e.tool
	}
	return out
}

// Names lists the registered tool names as declared by their specs.
func (c *StaticToolCatalog) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, len(c.entries))
	for i, e := range c.entries {
		out[i] = e.spec.Name
	}
	return out
}

func normalizeToolName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
