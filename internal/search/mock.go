package search

import (
	"context"
	"fmt"
)

// MockProvider implements Provider for testing purposes
type MockProvider struct {
	name    string
	results []Result
	answer  string
	err     error
	calls   int
}

// NewMockProvider creates a new mock search provider
func NewMockProvider() *MockProvider {
	return &MockProvider{
		name: "Mock",
		results: []Result{
			{
				URL:     "https://example.com/tool1",
				Title:   "Example Tool 1",
				Snippet: "This is a mock search result for testing purposes.",
				Domain:  "example.com",
				Source:  "Mock",
				Rank:    1,
			},
			{
				URL:     "https://test.org/tool2",
				Title:   "Test Tool 2",
				Snippet: "Another mock search result with different content.",
				Domain:  "test.org",
				Source:  "Mock",
				Rank:    2,
			},
			{
				URL:     "https://demo.net/tool3",
				Title:   "Demo Tool 3",
				Snippet: "Third mock result to simulate multiple search results.",
				Domain:  "demo.net",
				Source:  "Mock",
				Rank:    3,
			},
		},
	}
}

// GetName returns the name of this provider
func (m *MockProvider) GetName() string {
	return m.name
}

// Search returns the configured mock results or error
func (m *MockProvider) Search(ctx context.Context, query string, config Config) (ProviderResult, error) {
	m.calls++

	if m.err != nil {
		return ProviderResult{}, m.err
	}

	maxResults := config.MaxResults
	if maxResults <= 0 || maxResults > len(m.results) {
		maxResults = len(m.results)
	}

	results := make([]Result, maxResults)
	for i := 0; i < maxResults; i++ {
		result := m.results[i]
		result.Title = fmt.Sprintf("%s (for query: %s)", result.Title, query)
		results[i] = result
	}

	return ProviderResult{Results: results, Answer: m.answer}, nil
}

// SetResults allows customization of mock results for testing
func (m *MockProvider) SetResults(results []Result) {
	m.results = results
}

// SetAnswer makes every Search call return a synthesized answer
func (m *MockProvider) SetAnswer(answer string) {
	m.answer = answer
}

// SetErr makes every Search call fail with err
func (m *MockProvider) SetErr(err error) {
	m.err = err
}

// SetName allows customization of provider name for testing
func (m *MockProvider) SetName(name string) {
	m.name = name
}

// Calls reports how many times Search was invoked
func (m *MockProvider) Calls() int {
	return m.calls
}
