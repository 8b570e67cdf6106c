package search

import (
	"context"
	"errors"
	"fmt"
	"time"

	"toolscout/internal/logger"
)

// Chain tries providers in a fixed preference order. When the preferred
// provider errors (auth failure, quota, network), the same query is retried
// against the next provider. An empty result set is a valid outcome and does
// not trigger fallback.
type Chain struct {
	providers []Provider
}

// NewChain creates a fallback chain over the given providers, tried first
// to last.
func NewChain(providers ...Provider) *Chain {
	return &Chain{providers: providers}
}

// GetName returns the name of the chain's preferred provider.
func (c *Chain) GetName() string {
	if len(c.providers) == 0 {
		return "none"
	}
	return c.providers[0].GetName()
}

// Providers returns the configured fallback order.
func (c *Chain) Providers() []Provider {
	return c.providers
}

// Search runs the query against each provider in order and returns the first
// successful response, tagged with the provider that served it.
func (c *Chain) Search(ctx context.Context, query string, config Config) (Response, error) {
	if len(c.providers) == 0 {
		return Response{}, ErrUnsupportedProvider
	}

	var errs []error
	for i, provider := range c.providers {
		result, err := provider.Search(ctx, query, config)
		if err != nil {
			logger.Warn("Search provider failed, trying next",
				"provider", provider.GetName(),
				"query", query,
				"remaining", len(c.providers)-i-1,
				"error", err.Error(),
			)
			errs = append(errs, fmt.Errorf("%s: %w", provider.GetName(), err))
			continue
		}

		resp := Response{
			Provider:  provider.GetName(),
			Query:     query,
			Results:   result.Results,
			Answer:    result.Answer,
			Timestamp: time.Now().UTC(),
		}

		if i > 0 {
			logger.Info("Search served by fallback provider",
				"provider", provider.GetName(),
				"query", query,
			)
		}
		return resp, nil
	}

	return Response{}, fmt.Errorf("%w: %w", ErrAllProvidersFailed, errors.Join(errs...))
}
