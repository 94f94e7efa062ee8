// Package tools holds the collaborators the research agent can call.
package tools

import (
	agent "github.com/Protocol-Lattice/research-agent"
	"github.com/Protocol-Lattice/research-agent/src/archive"
	"github.com/Protocol-Lattice/research-agent/src/cache"
	"github.com/Protocol-Lattice/research-agent/src/config"
)

// Build assembles the enabled tools in the order they are shown to the model.
// Lookup results share one cache.
func Build(cfg config.ToolsConfig, sink archive.Sink) []agent.Tool {
	lookups := cache.New[string](cfg.Cache.Size, cfg.Cache.TTL)

	var out []agent.Tool
	if cfg.Search.Enabled {
		out = append(out, NewSearchTool(SearchOptions{
			BaseURL:    cfg.Search.BaseURL,
			MaxResults: cfg.Search.MaxResults,
			Client:     newHTTPClient(cfg.Search.Timeout),
			Cache:      lookups,
		}))
	}
	if sink != nil {
		out = append(out, NewSaveTool(sink))
	}
	if cfg.Wiki.Enabled {
		out = append(out, NewWikiTool(WikiOptions{
			BaseURL:  cfg.Wiki.BaseURL,
			Language: cfg.Wiki.Language,
			MaxChars: cfg.Wiki.MaxChars,
			Client:   newHTTPClient(cfg.Wiki.Timeout),
			Cache:    lookups,
		}))
	}
	return out
}
