package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"toolscout/internal/logger"
)

const tavilyEndpoint = "https://api.tavily.com/search"

// TavilyProvider implements Provider using the Tavily search API. Tavily is
// tuned for LLM consumption: results carry relevance scores and the API can
// return a synthesized answer alongside them.
type TavilyProvider struct {
	apiKey   string
	endpoint string
	client   *http.Client
}

// NewTavilyProvider creates a new Tavily search provider
func NewTavilyProvider(apiKey string) *TavilyProvider {
	return &TavilyProvider{
		apiKey:   apiKey,
		endpoint: tavilyEndpoint,
		client: &http.Client{
			Timeout: defaultHTTPTimeout,
		},
	}
}

// GetName returns the name of this provider
func (t *TavilyProvider) GetName() string {
	return "Tavily"
}

// Search performs a search using the Tavily REST API
func (t *TavilyProvider) Search(ctx context.Context, query string, config Config) (ProviderResult, error) {
	depth := config.Depth
	if depth != DepthAdvanced {
		depth = DepthBasic
	}

	payload := map[string]any{
		"api_key":        t.apiKey,
		"query":          query,
		"search_depth":   depth,
		"max_results":    clampMaxResults(config.MaxResults),
		"include_answer": config.IncludeAnswer,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return ProviderResult{}, fmt.Errorf("failed to encode Tavily request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", t.endpoint, bytes.NewReader(body))
	if err != nil {
		return ProviderResult{}, fmt.Errorf("failed to create Tavily request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return ProviderResult{}, fmt.Errorf("failed to execute Tavily request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusUnauthorized, http.StatusForbidden:
		return ProviderResult{}, fmt.Errorf("tavily rejected credentials (status %d): %w", resp.StatusCode, ErrMissingAPIKey)
	case http.StatusTooManyRequests:
		return ProviderResult{}, fmt.Errorf("tavily: %w", ErrRateLimited)
	default:
		return ProviderResult{}, fmt.Errorf("tavily request failed with status %d: %w", resp.StatusCode, ErrProviderUnavailable)
	}

	var apiResponse struct {
		Answer  string `json:"answer"`
		Results []struct {
			Title         string  `json:"title"`
			URL           string  `json:"url"`
			Content       string  `json:"content"`
			Score         float64 `json:"score"`
			PublishedDate string  `json:"published_date"`
		} `json:"results"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&apiResponse); err != nil {
		return ProviderResult{}, fmt.Errorf("failed to parse Tavily response: %w", err)
	}

	var results []Result
	for i, item := range apiResponse.Results {
		results = append(results, Result{
			URL:         item.URL,
			Title:       item.Title,
			Snippet:     item.Content,
			Score:       item.Score,
			Domain:      extractDomain(item.URL),
			PublishedAt: parsePublishedDate(item.PublishedDate),
			Source:      "Tavily",
			Rank:        i + 1,
		})
	}

	logger.Info("Tavily search completed", "query", query, "results_found", len(results))

	return ProviderResult{Results: results, Answer: apiResponse.Answer}, nil
}

// parsePublishedDate handles the date formats Tavily emits.
func parsePublishedDate(raw string) time.Time {
	if raw == "" {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02", time.RFC1123} {
		if ts, err := time.Parse(layout, raw); err == nil {
			return ts
		}
	}
	return time.Time{}
}

// extractDomain extracts the domain name from a URL
func extractDomain(urlStr string) string {
	parsed, err := url.Parse(urlStr)
	if err != nil {
		return ""
	}

	domain := parsed.Hostname()
	domain = strings.TrimPrefix(domain, "www.")

	return domain
}
