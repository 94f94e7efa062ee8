package tools

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	agent "github.com/Protocol-Lattice/research-agent"
	"github.com/Protocol-Lattice/research-agent/src/cache"
)

const (
	WikiToolName    = "wiki"
	DefaultMaxChars = 100
	noWikiResult    = "No good Wikipedia Search Result was found"
)

type WikiOptions struct {
	// BaseURL overrides https://<language>.wikipedia.org.
	BaseURL  string
	Language string
	MaxChars int
	Client   *http.Client
	Cache    *cache.LRU[string]
}

// WikiTool looks up the best matching Wikipedia article and returns its summary.
type WikiTool struct {
	baseURL  string
	maxChars int
	client   *http.Client
	cache    *cache.LRU[string]
}

func NewWikiTool(opts WikiOptions) *WikiTool {
	if opts.Language == "" {
		opts.Language = "en"
	}
	if opts.BaseURL == "" {
		opts.BaseURL = fmt.Sprintf("https://%s.wikipedia.org", opts.Language)
	}
	if opts.MaxChars <= 0 {
		opts.MaxChars = DefaultMaxChars
	}
	if opts.Client == nil {
		opts.Client = newHTTPClient(0)
	}
	return &WikiTool{
		baseURL:  strings.TrimRight(opts.BaseURL, "/"),
		maxChars: opts.MaxChars,
		client:   opts.Client,
		cache:    opts.Cache,
	}
}

func (w *WikiTool) Spec() agent.ToolSpec {
	return agent.ToolSpec{
		Name:        WikiToolName,
		Description: "Look up a topic on Wikipedia and return a short summary of the best matching article",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"query": map[string]any{"type": "string", "description": "Article title or search terms."},
			},
			"required": []string{"query"},
		},
		Examples: []map[string]any{{"query": "France"}},
	}
}

func (w *WikiTool) Invoke(ctx context.Context, req agent.ToolRequest) (agent.ToolResponse, error) {
	query := strings.TrimSpace(req.StringArg("query", "title"))
	if query == "" {
		return agent.ToolResponse{}, errors.New("wiki: query is required")
	}

	key := cache.Key(WikiToolName, map[string]any{"query": query, "base": w.baseURL, "max": w.maxChars})
	if hit, ok := w.cache.Get(key); ok {
		return agent.ToolResponse{Content: hit, Metadata: map[string]string{"cache": "hit"}}, nil
	}

	content, meta, err := w.lookup(ctx, query)
	if err != nil {
		return agent.ToolResponse{}, err
	}
	w.cache.Set(key, content)
	return agent.ToolResponse{Content: content, Metadata: meta}, nil
}

type wikiSearchResponse struct {
	Query struct {
		Search []struct {
			Title string `json:"title"`
		} `json:"search"`
	} `json:"query"`
}

type wikiSummary struct {
	Title       string `json:"title"`
	Extract     string `json:"extract"`
	ContentURLs struct {
		Desktop struct {
			Page string `json:"page"`
		} `json:"desktop"`
	} `json:"content_urls"`
}

func (w *WikiTool) lookup(ctx context.Context, query string) (string, map[string]string, error) {
	params := url.Values{}
	params.Set("action", "query")
	params.Set("list", "search")
	params.Set("srsearch", query)
	params.Set("srlimit", "1")
	params.Set("format", "json")

	var search wikiSearchResponse
	if err := getJSON(ctx, w.client, w.baseURL+"/w/api.php?"+params.Encode(), &search); err != nil {
		return "", nil, fmt.Errorf("wiki search: %w", err)
	}
	if len(search.Query.Search) == 0 {
		return noWikiResult, nil, nil
	}
	title := search.Query.Search[0].Title

	var summary wikiSummary
	summaryURL := w.baseURL + "/api/rest_v1/page/summary/" + url.PathEscape(strings.ReplaceAll(title, " ", "_"))
	if err := getJSON(ctx, w.client, summaryURL, &summary); err != nil {
		return "", nil, fmt.Errorf("wiki summary: %w", err)
	}
	if summary.Title == "" {
		summary.Title = title
	}

	content := truncateRunes(fmt.Sprintf("Page: %s\nSummary: %s", summary.Title, strings.TrimSpace(summary.Extract)), w.maxChars)
	meta := map[string]string{"title": summary.Title}
	if page := summary.ContentURLs.Desktop.Page; page != "" {
		meta["url"] = page
		content += "\nSource: " + page
	}
	return content, meta, nil
}

func truncateRunes(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max])
}
