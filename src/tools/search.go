package tools

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/net/html"

	agent "github.com/Protocol-Lattice/research-agent"
	"github.com/Protocol-Lattice/research-agent/src/cache"
)

const (
	SearchToolName       = "search"
	DefaultSearchBaseURL = "https://html.duckduckgo.com/html/"
)

// SearchResult is one organic hit from the search page.
type SearchResult struct {
	Title   string
	URL     string
	Snippet string
}

type SearchOptions struct {
	BaseURL    string
	MaxResults int
	Client     *http.Client
	Cache      *cache.LRU[string]
}

// SearchTool queries DuckDuckGo's HTML endpoint and scrapes the result list.
type SearchTool struct {
	baseURL    string
	maxResults int
	client     *http.Client
	cache      *cache.LRU[string]
}

func NewSearchTool(opts SearchOptions) *SearchTool {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultSearchBaseURL
	}
	if opts.MaxResults <= 0 {
		opts.MaxResults = 5
	}
	if opts.Client == nil {
		opts.Client = newHTTPClient(0)
	}
	return &SearchTool{baseURL: opts.BaseURL, maxResults: opts.MaxResults, client: opts.Client, cache: opts.Cache}
}

func (s *SearchTool) Spec() agent.ToolSpec {
	return agent.ToolSpec{
		Name:        SearchToolName,
		Description: "Search the web for information",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"query": map[string]any{"type": "string", "description": "What to search for."},
			},
			"required": []string{"query"},
		},
		Examples: []map[string]any{{"query": "capital of France"}},
	}
}

func (s *SearchTool) Invoke(ctx context.Context, req agent.ToolRequest) (agent.ToolResponse, error) {
	query := strings.TrimSpace(req.StringArg("query", "q"))
	if query == "" {
		return agent.ToolResponse{}, errors.New("search: query is required")
	}

	key := cache.Key(SearchToolName, map[string]any{"query": query, "limit": s.maxResults})
	if hit, ok := s.cache.Get(key); ok {
		return agent.ToolResponse{Content: hit, Metadata: map[string]string{"cache": "hit"}}, nil
	}

	results, err := s.Search(ctx, query)
	if err != nil {
		return agent.ToolResponse{}, err
	}
	content := formatSearchResults(query, results)
	s.cache.Set(key, content)
	return agent.ToolResponse{Content: content, Metadata: map[string]string{"results": fmt.Sprint(len(results))}}, nil
}

// Search returns up to MaxResults hits for query.
func (s *SearchTool) Search(ctx context.Context, query string) ([]SearchResult, error) {
	u, err := url.Parse(s.baseURL)
	if err != nil {
		return nil, fmt.Errorf("search: invalid base url: %w", err)
	}
	q := u.Query()
	q.Set("q", query)
	u.RawQuery = q.Encode()

	body, err := get(ctx, s.client, u.String())
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	defer body.Close()

	doc, err := html.Parse(body)
	if err != nil {
		return nil, fmt.Errorf("search: parse results page: %w", err)
	}
	results := extractResults(doc)
	if len(results) > s.maxResults {
		results = results[:s.maxResults]
	}
	return results, nil
}

func extractResults(doc *html.Node) []SearchResult {
	var results []SearchResult
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "a" {
			switch {
			case hasClass(n, "result__a"):
				results = append(results, SearchResult{
					Title: nodeText(n),
					URL:   unwrapRedirect(attr(n, "href")),
				})
				return
			case hasClass(n, "result__snippet") && len(results) > 0:
				results[len(results)-1].Snippet = nodeText(n)
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return results
}

// unwrapRedirect resolves DuckDuckGo's /l/?uddg= tracking links to the target URL.
func unwrapRedirect(href string) string {
	u, err := url.Parse(href)
	if err != nil {
		return href
	}
	if target := u.Query().Get("uddg"); target != "" {
		return target
	}
	if u.Scheme == "" && strings.HasPrefix(href, "//") {
		return "https:" + href
	}
	return href
}

func formatSearchResults(query string, results []SearchResult) string {
	if len(results) == 0 {
		return fmt.Sprintf("No results found for %q.", query)
	}
	var b strings.Builder
	for i, r := range results {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "%d. %s - %s\n", i+1, r.Title, r.URL)
		if r.Snippet != "" {
			b.WriteString("   ")
			b.WriteString(r.Snippet)
			b.WriteString("\n")
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func hasClass(n *html.Node, class string) bool {
	for _, field := range strings.Fields(attr(n, "class")) {
		if field == class {
			return true
		}
	}
	return false
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func nodeText(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return strings.Join(strings.Fields(b.String()), " ")
}
