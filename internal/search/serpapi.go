package search

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"toolscout/internal/logger"
)

// SerpAPIProvider implements Provider using SerpAPI (paid Google results)
type SerpAPIProvider struct {
	apiKey    string
	baseURL   string
	client    *http.Client
	rateLimit time.Duration
	lastCall  time.Time
}

// NewSerpAPIProvider creates a new SerpAPI search provider
func NewSerpAPIProvider(apiKey string) *SerpAPIProvider {
	return &SerpAPIProvider{
		apiKey:  apiKey,
		baseURL: "https://serpapi.com/search",
		client: &http.Client{
			Timeout: defaultHTTPTimeout,
		},
		rateLimit: 1 * time.Second,
	}
}

// GetName returns the name of this provider
func (s *SerpAPIProvider) GetName() string {
	return "SerpAPI"
}

// Search performs a search using SerpAPI
func (s *SerpAPIProvider) Search(ctx context.Context, query string, config Config) (ProviderResult, error) {
	// Space out requests. The chain drives providers one query at a time, so
	// lastCall needs no lock.
	if wait := s.rateLimit - time.Since(s.lastCall); wait > 0 {
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ProviderResult{}, ctx.Err()
		case <-timer.C:
		}
	}
	s.lastCall = time.Now()

	params := url.Values{}
	params.Set("q", query)
	params.Set("engine", "google")
	params.Set("api_key", s.apiKey)
	params.Set("num", strconv.Itoa(clampMaxResults(config.MaxResults)))

	// Add time filter if specified
	if config.SinceTime > 0 {
		days := int(config.SinceTime.Hours() / 24)
		switch {
		case days <= 1:
			params.Set("tbs", "qdr:d")
		case days <= 7:
			params.Set("tbs", "qdr:w")
		case days <= 30:
			params.Set("tbs", "qdr:m")
		case days <= 365:
			params.Set("tbs", "qdr:y")
		}
	}

	fullURL := s.baseURL + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, "GET", fullURL, nil)
	if err != nil {
		return ProviderResult{}, fmt.Errorf("failed to create SerpAPI request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return ProviderResult{}, fmt.Errorf("failed to execute SerpAPI request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusTooManyRequests {
		return ProviderResult{}, fmt.Errorf("serpapi: %w", ErrRateLimited)
	}
	if resp.StatusCode != http.StatusOK {
		return ProviderResult{}, fmt.Errorf("SerpAPI request failed with status %d: %w", resp.StatusCode, ErrProviderUnavailable)
	}

	var apiResponse struct {
		OrganicResults []struct {
			Title    string `json:"title"`
			Link     string `json:"link"`
			Snippet  string `json:"snippet"`
			Position int    `json:"position"`
		} `json:"organic_results"`
		Error struct {
			Code    int    `json:"code"`
			Message string `json:"message"`
		} `json:"error,omitempty"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&apiResponse); err != nil {
		return ProviderResult{}, fmt.Errorf("failed to parse SerpAPI response: %w", err)
	}

	if apiResponse.Error.Code != 0 {
		return ProviderResult{}, fmt.Errorf("SerpAPI error (%d): %s", apiResponse.Error.Code, apiResponse.Error.Message)
	}

	var results []Result
	for _, item := range apiResponse.OrganicResults {
		results = append(results, Result{
			URL:     item.Link,
			Title:   item.Title,
			Snippet: item.Snippet,
			Domain:  extractDomain(item.Link),
			Source:  "SerpAPI",
			Rank:    item.Position,
		})
	}

	logger.Info("SerpAPI search completed", "query", query, "results_found", len(results))

	return ProviderResult{Results: results}, nil
}
