package search

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"toolscout/internal/logger"
)

// DuckDuckGoProvider implements the Provider interface by scraping the
// DuckDuckGo HTML endpoint. It needs no credentials, which makes it the
// fallback of last resort in the provider chain.
type DuckDuckGoProvider struct {
	client    *http.Client
	baseURL   string
	userAgent string
	rateLimit time.Duration
	lastCall  time.Time
}

// NewDuckDuckGoProvider creates a new DuckDuckGo search provider
func NewDuckDuckGoProvider() *DuckDuckGoProvider {
	return &DuckDuckGoProvider{
		client: &http.Client{
			Timeout: defaultHTTPTimeout,
		},
		baseURL:   "https://html.duckduckgo.com/html/",
		userAgent: "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36",
		rateLimit: 1 * time.Second,
	}
}

// GetName returns the name of this provider
func (d *DuckDuckGoProvider) GetName() string {
	return "DuckDuckGo"
}

// Search performs a search using DuckDuckGo and returns results
func (d *DuckDuckGoProvider) Search(ctx context.Context, query string, config Config) (ProviderResult, error) {
	// Space out requests to the HTML endpoint. The chain drives providers one
	// query at a time, so lastCall needs no lock.
	if wait := d.rateLimit - time.Since(d.lastCall); wait > 0 {
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ProviderResult{}, ctx.Err()
		case <-timer.C:
		}
	}
	d.lastCall = time.Now()

	searchURL := d.buildSearchURL(query, config)

	req, err := http.NewRequestWithContext(ctx, "GET", searchURL, nil)
	if err != nil {
		return ProviderResult{}, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("User-Agent", d.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")

	resp, err := d.client.Do(req)
	if err != nil {
		return ProviderResult{}, fmt.Errorf("failed to execute search request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return ProviderResult{}, fmt.Errorf("search request failed with status %d: %w", resp.StatusCode, ErrProviderUnavailable)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return ProviderResult{}, fmt.Errorf("failed to read response body: %w", err)
	}

	bodyStr := string(body)

	// Check for CAPTCHA or blocking
	if strings.Contains(bodyStr, "captcha") || strings.Contains(bodyStr, "Captcha") || strings.Contains(bodyStr, "blocked") {
		logger.Debug("DuckDuckGo CAPTCHA detected", "query", query)
		return ProviderResult{}, fmt.Errorf("DuckDuckGo search blocked by CAPTCHA: %w", ErrRateLimited)
	}

	results := d.parseSearchResults(bodyStr, clampMaxResults(config.MaxResults))

	logger.Info("DuckDuckGo search completed", "query", query, "results_found", len(results))

	return ProviderResult{Results: results}, nil
}

// buildSearchURL constructs the DuckDuckGo search URL with parameters
func (d *DuckDuckGoProvider) buildSearchURL(query string, config Config) string {
	params := url.Values{}

	// Add time filter if specified
	if config.SinceTime > 0 {
		days := int(config.SinceTime.Hours() / 24)
		switch {
		case days <= 1:
			params.Set("df", "d")
		case days <= 7:
			params.Set("df", "w")
		case days <= 30:
			params.Set("df", "m")
		case days <= 365:
			params.Set("df", "y")
		}
	}

	params.Set("q", query)
	params.Set("b", "0")
	params.Set("kl", "us-en")

	return d.baseURL + "?" + params.Encode()
}

// Regular expressions for parsing DuckDuckGo HTML results.
// These patterns may need adjustment if DuckDuckGo changes their markup.
var (
	ddgResultPattern  = regexp.MustCompile(`<div class="result[^"]*"[^>]*>(.*?)</div>`)
	ddgTitlePattern   = regexp.MustCompile(`<a[^>]*class="result__a"[^>]*href="([^"]*)"[^>]*>(.*?)</a>`)
	ddgSnippetPattern = regexp.MustCompile(`<a[^>]*class="result__snippet"[^>]*>(.*?)</a>`)
	htmlTagPattern    = regexp.MustCompile(`<[^>]*>`)
	whitespacePattern = regexp.MustCompile(`\s+`)
)

// parseSearchResults extracts search results from DuckDuckGo HTML response
func (d *DuckDuckGoProvider) parseSearchResults(html string, maxResults int) []Result {
	var results []Result

	resultMatches := ddgResultPattern.FindAllStringSubmatch(html, -1)

	for _, match := range resultMatches {
		if len(results) >= maxResults {
			break
		}

		resultHTML := match[1]

		titleMatch := ddgTitlePattern.FindStringSubmatch(resultHTML)
		if len(titleMatch) < 3 {
			continue
		}

		rawURL := titleMatch[1]
		title := cleanHTMLText(titleMatch[2])

		snippetMatch := ddgSnippetPattern.FindStringSubmatch(resultHTML)
		snippet := ""
		if len(snippetMatch) >= 2 {
			snippet = cleanHTMLText(snippetMatch[1])
		}

		// Decode URL (DuckDuckGo uses redirect URLs)
		finalURL := extractFinalURL(rawURL)
		if finalURL == "" {
			continue
		}

		results = append(results, Result{
			URL:     finalURL,
			Title:   title,
			Snippet: snippet,
			Domain:  extractDomain(finalURL),
			Source:  "DuckDuckGo",
			Rank:    len(results) + 1,
		})
	}

	return results
}

// extractFinalURL extracts the actual URL from DuckDuckGo's redirect URL
func extractFinalURL(redirectURL string) string {
	// DuckDuckGo uses URLs like: /l/?uddg=https%3A//example.com/...&rut=...
	if strings.HasPrefix(redirectURL, "/l/?") || strings.HasPrefix(redirectURL, "//duckduckgo.com/l/?") {
		parsed, err := url.Parse(redirectURL)
		if err != nil {
			return ""
		}

		uddg := parsed.Query().Get("uddg")
		if uddg != "" {
			decoded, err := url.QueryUnescape(uddg)
			if err != nil {
				return ""
			}
			return decoded
		}
	}

	// If it's already a full URL, return as-is
	if strings.HasPrefix(redirectURL, "http") {
		return redirectURL
	}

	return ""
}

// cleanHTMLText removes HTML tags and decodes HTML entities
func cleanHTMLText(text string) string {
	text = htmlTagPattern.ReplaceAllString(text, "")

	text = strings.ReplaceAll(text, "&amp;", "&")
	text = strings.ReplaceAll(text, "&lt;", "<")
	text = strings.ReplaceAll(text, "&gt;", ">")
	text = strings.ReplaceAll(text, "&quot;", "\"")
	text = strings.ReplaceAll(text, "&#39;", "'")
	text = strings.ReplaceAll(text, "&nbsp;", " ")

	text = whitespacePattern.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}
