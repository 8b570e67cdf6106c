package handlers

import (
	"context"
	"fmt"

	"toolscout/internal/catalog"
	"toolscout/internal/config"
	"toolscout/internal/events"
	"toolscout/internal/fetch"
	"toolscout/internal/llm"
	"toolscout/internal/logger"
	"toolscout/internal/research"
	"toolscout/internal/search"
	"toolscout/internal/store"
)

// pipeline bundles everything a research run needs, wired from configuration.
type pipeline struct {
	controller *research.Controller
	catalog    *catalog.Catalog
	store      *store.Store
	llmClient  *llm.Client
}

func (p *pipeline) close() {
	if p.store != nil {
		if err := p.store.Close(); err != nil {
			logger.Warn("Failed to close run history store", "error", err.Error())
		}
	}
}

// buildPipeline constructs the full research pipeline from configuration:
// search providers in fallback order, the LLM client, the page fetcher, the
// catalog, and the run-history store.
func buildPipeline(ctx context.Context, cfg *config.Config) (*pipeline, error) {
	chain, err := buildSearchChain(cfg)
	if err != nil {
		return nil, err
	}

	llmClient, err := llm.NewClient(ctx, cfg.AI.Gemini.APIKey, cfg.AI.Gemini.Model)
	if err != nil {
		return nil, fmt.Errorf("failed to create LLM client: %w", err)
	}

	fetcher := fetch.NewPageFetcher(cfg.Research.PageFetchTimeout(), 0)
	cat := catalog.New(cfg.Catalog.Path)

	runStore, err := store.NewStore(cfg.App.DataDir)
	if err != nil {
		// Run history is supplementary; research still works without it.
		logger.Warn("Run history disabled", "error", err.Error())
		runStore = nil
	}

	opts := research.Options{
		MaxTools:         cfg.Research.MaxTools,
		ValidationCap:    cfg.Research.ValidationCap,
		SearchResults:    cfg.Search.MaxResults,
		SearchDepth:      cfg.Search.Depth,
		SentimentResults: cfg.Research.SentimentResults,
		SentimentFetches: cfg.Research.SentimentFetches,
		MinConfidence:    cfg.Research.MinConfidence,
		ModelTimeout:     cfg.AI.Gemini.ModelTimeout(),
	}

	var recorder research.RunRecorder
	if runStore != nil {
		recorder = runStore
	}

	controller := research.New(llmClient, chain, fetcher, cat, recorder, events.NewBus(0), opts)

	return &pipeline{
		controller: controller,
		catalog:    cat,
		store:      runStore,
		llmClient:  llmClient,
	}, nil
}

// buildSearchChain creates the provider fallback chain in the configured
// preference order. Providers whose credentials are missing are skipped with
// a warning rather than failing startup.
func buildSearchChain(cfg *config.Config) (*search.Chain, error) {
	factory := search.NewProviderFactory()
	var providers []search.Provider

	for _, name := range cfg.Search.PreferredOrder {
		providerCfg := map[string]string{
			"timeout": cfg.Search.SearchTimeout().String(),
		}
		switch search.ProviderType(name) {
		case search.ProviderTypeTavily:
			providerCfg["api_key"] = cfg.Search.Providers.Tavily.APIKey
		case search.ProviderTypeSerpAPI:
			providerCfg["api_key"] = cfg.Search.Providers.SerpAPI.APIKey
		}

		provider, err := factory.CreateProvider(search.ProviderType(name), providerCfg)
		if err != nil {
			logger.Warn("Skipping search provider", "provider", name, "error", err.Error())
			continue
		}
		providers = append(providers, provider)
	}

	if len(providers) == 0 {
		return nil, fmt.Errorf("no usable search providers configured (tried: %v)", cfg.Search.PreferredOrder)
	}

	return search.NewChain(providers...), nil
}
