package search

import (
	"context"
	"time"
)

// Depth values accepted by providers that distinguish shallow and deep search.
const (
	DepthBasic    = "basic"
	DepthAdvanced = "advanced"
)

// Bounds applied to Config.MaxResults before a provider sees it.
const (
	MinResults = 1
	MaxResults = 10
)

// Provider defines the unified interface for search providers
type Provider interface {
	// Search performs a search with configuration
	Search(ctx context.Context, query string, config Config) (ProviderResult, error)

	// GetName returns the name of the search provider
	GetName() string
}

// ProviderResult is the outcome of one provider-level search. Answer is only
// populated by providers that synthesize one (Tavily, when IncludeAnswer is
// set); everyone else leaves it empty.
type ProviderResult struct {
	Results []Result
	Answer  string
}

// Config holds configuration for search requests
type Config struct {
	MaxResults    int           // Maximum number of results to return, clamped to [MinResults, MaxResults]
	Depth         string        // DepthBasic or DepthAdvanced; providers without depth tiers ignore it
	IncludeAnswer bool          // Ask the provider for a synthesized answer when supported
	SinceTime     time.Duration // Only return results newer than this duration, when supported
}

// Result represents a unified search result
type Result struct {
	URL         string    `json:"url"`
	Title       string    `json:"title"`
	Snippet     string    `json:"snippet"`
	Score       float64   `json:"score,omitempty"` // Provider relevance score when available
	Domain      string    `json:"domain"`
	PublishedAt time.Time `json:"published_at,omitempty"`
	Source      string    `json:"source"` // Provider that produced this result
	Rank        int       `json:"rank"`   // Position in search results
}

// Response wraps the results of one adapter-level search together with the
// provider that ultimately served it.
type Response struct {
	Provider  string    `json:"provider"`
	Query     string    `json:"query"`
	Results   []Result  `json:"results"`
	Answer    string    `json:"answer,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// ProviderType represents the type of search provider
type ProviderType string

const (
	ProviderTypeTavily     ProviderType = "tavily"
	ProviderTypeDuckDuckGo ProviderType = "duckduckgo"
	ProviderTypeSerpAPI    ProviderType = "serpapi"
	ProviderTypeMock       ProviderType = "mock"
)

// ProviderFactory creates search providers based on type and configuration
type ProviderFactory struct{}

// NewProviderFactory creates a new provider factory
func NewProviderFactory() *ProviderFactory {
	return &ProviderFactory{}
}

// CreateProvider creates a search provider of the specified type. The config
// map may carry a "timeout" duration string applied to the provider's HTTP
// client.
func (f *ProviderFactory) CreateProvider(providerType ProviderType, config map[string]string) (Provider, error) {
	switch providerType {
	case ProviderTypeTavily:
		apiKey, exists := config["api_key"]
		if !exists || apiKey == "" {
			return nil, ErrMissingAPIKey
		}
		provider := NewTavilyProvider(apiKey)
		provider.client.Timeout = httpTimeout(config)
		return provider, nil
	case ProviderTypeDuckDuckGo:
		provider := NewDuckDuckGoProvider()
		provider.client.Timeout = httpTimeout(config)
		return provider, nil
	case ProviderTypeSerpAPI:
		apiKey, exists := config["api_key"]
		if !exists || apiKey == "" {
			return nil, ErrMissingAPIKey
		}
		provider := NewSerpAPIProvider(apiKey)
		provider.client.Timeout = httpTimeout(config)
		return provider, nil
	case ProviderTypeMock:
		return NewMockProvider(), nil
	default:
		return nil, ErrUnsupportedProvider
	}
}

// GetAvailableProviders returns a list of available provider types
func (f *ProviderFactory) GetAvailableProviders() []ProviderType {
	return []ProviderType{
		ProviderTypeTavily,
		ProviderTypeDuckDuckGo,
		ProviderTypeSerpAPI,
		ProviderTypeMock,
	}
}

// defaultHTTPTimeout bounds one provider request when no timeout is
// configured.
const defaultHTTPTimeout = 30 * time.Second

// httpTimeout parses the "timeout" entry of a factory config map.
func httpTimeout(config map[string]string) time.Duration {
	if raw := config["timeout"]; raw != "" {
		if d, err := time.ParseDuration(raw); err == nil && d > 0 {
			return d
		}
	}
	return defaultHTTPTimeout
}

// clampMaxResults forces a requested result count into the supported bounds.
func clampMaxResults(n int) int {
	if n < MinResults {
		return MinResults
	}
	if n > MaxResults {
		return MaxResults
	}
	return n
}
