package fetch

import (
	"context"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
)

const (
	// DefaultTimeout bounds a single page fetch.
	DefaultTimeout = 10 * time.Second

	// DefaultMaxChars bounds how much extracted text is kept for scoring.
	DefaultMaxChars = 1500
)

var whitespacePattern = regexp.MustCompile(`\s+`)

// PageFetcher downloads a web page and reduces it to a bounded block of
// plain text suitable for sentiment scoring.
type PageFetcher struct {
	client    *http.Client
	userAgent string
	maxChars  int
}

// NewPageFetcher creates a fetcher with the given per-request timeout and
// text budget. Zero values select the defaults.
func NewPageFetcher(timeout time.Duration, maxChars int) *PageFetcher {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if maxChars <= 0 {
		maxChars = DefaultMaxChars
	}
	return &PageFetcher{
		client: &http.Client{
			Timeout: timeout,
		},
		userAgent: "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
		maxChars:  maxChars,
	}
}

// FetchText downloads the page at url, strips markup and boilerplate, and
// returns at most maxChars of collapsed plain text.
func (f *PageFetcher) FetchText(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request for %s: %w", url, err)
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")

	resp, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to fetch %s: %w", url, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("failed to fetch %s: status code %d", url, resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to parse %s: %w", url, err)
	}

	return f.extractText(doc), nil
}

// extractText pulls readable text out of a parsed document, preferring the
// main content region when one can be identified.
func (f *PageFetcher) extractText(doc *goquery.Document) string {
	// Remove common non-content elements
	doc.Find("script, style, nav, footer, header, aside, form, iframe, noscript, .sidebar, #sidebar, .ad, .advertisement, .popup, .modal, .cookie-banner").Remove()

	mainContentSelectors := []string{
		"article", "main", ".main-content", ".entry-content", ".post-content", ".comment", ".comments",
		"[role='main']",
		".content", "#content",
	}

	var text string
	for _, selector := range mainContentSelectors {
		if sel := doc.Find(selector); sel.Length() > 0 {
			text = sel.Text()
			break
		}
	}
	if text == "" {
		text = doc.Find("body").Text()
	}

	text = whitespacePattern.ReplaceAllString(text, " ")
	text = strings.TrimSpace(text)

	return truncate(text, f.maxChars)
}

// truncate cuts s at limit bytes without splitting a word when possible,
// and never splits a multi-byte rune.
func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	for limit > 0 && !utf8.RuneStart(s[limit]) {
		limit--
	}
	cut := s[:limit]
	if idx := strings.LastIndexByte(cut, ' '); idx > limit/2 {
		cut = cut[:idx]
	}
	return cut
}
