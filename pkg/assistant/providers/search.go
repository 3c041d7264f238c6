package providers

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"vesta-hq/vesta/pkg/config"
	"vesta-hq/vesta/pkg/telemetry/health"
)

// DefaultSearchCount is the number of results requested when a query
// does not specify one.
const DefaultSearchCount = 5

// SearchResult is a single web search hit.
type SearchResult struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet"`
}

// SearchResponse is the search API's result page.
type SearchResponse struct {
	Query   string         `json:"query"`
	Results []SearchResult `json:"results"`
}

// SearchClient talks to the web search API.
type SearchClient struct {
	*httpClient
}

// NewSearchClient creates a client for the search API described by cfg.
func NewSearchClient(name string, cfg config.ProviderConfig, opts Options) *SearchClient {
	return &SearchClient{httpClient: newHTTPClient(name, cfg, opts)}
}

// Search runs a web search and returns up to count results.
func (c *SearchClient) Search(ctx context.Context, query string, count int) (*SearchResponse, error) {
	if query == "" {
		return nil, &ValidationError{Field: "query", Message: "query is required"}
	}
	if count <= 0 {
		count = DefaultSearchCount
	}

	params := url.Values{}
	params.Set("q", query)
	params.Set("count", strconv.Itoa(count))

	var resp SearchResponse
	if err := c.doJSON(ctx, "search", http.MethodGet, "/search?"+params.Encode(), nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Probe returns a health check function for the health checker.
func (c *SearchClient) Probe() health.CheckFunc {
	return func(ctx context.Context) (health.CheckResponse, error) {
		if err := c.doJSON(ctx, "health", http.MethodGet, "/health", nil, nil); err != nil {
			return health.CheckResponse{}, err
		}
		return health.CheckResponse{Message: "reachable"}, nil
	}
}
