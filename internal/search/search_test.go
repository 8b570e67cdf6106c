package search

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestProviderFactory(t *testing.T) {
	factory := NewProviderFactory()

	tests := []struct {
		name         string
		providerType ProviderType
		config       map[string]string
		wantErr      error
		wantName     string
	}{
		{
			name:         "tavily with key",
			providerType: ProviderTypeTavily,
			config:       map[string]string{"api_key": "tvly-test"},
			wantName:     "Tavily",
		},
		{
			name:         "tavily without key",
			providerType: ProviderTypeTavily,
			config:       map[string]string{},
			wantErr:      ErrMissingAPIKey,
		},
		{
			name:         "duckduckgo needs no key",
			providerType: ProviderTypeDuckDuckGo,
			config:       nil,
			wantName:     "DuckDuckGo",
		},
		{
			name:         "serpapi with key",
			providerType: ProviderTypeSerpAPI,
			config:       map[string]string{"api_key": "serp-test"},
			wantName:     "SerpAPI",
		},
		{
			name:         "serpapi without key",
			providerType: ProviderTypeSerpAPI,
			config:       map[string]string{},
			wantErr:      ErrMissingAPIKey,
		},
		{
			name:         "unknown provider",
			providerType: ProviderType("bing"),
			wantErr:      ErrUnsupportedProvider,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider, err := factory.CreateProvider(tt.providerType, tt.config)
			if tt.wantErr != nil {
				if err != tt.wantErr {
					t.Fatalf("expected error %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if provider.GetName() != tt.wantName {
				t.Errorf("expected provider name %q, got %q", tt.wantName, provider.GetName())
			}
		})
	}
}

func TestClampMaxResults(t *testing.T) {
	tests := []struct {
		in   int
		want int
	}{
		{-5, 1},
		{0, 1},
		{1, 1},
		{5, 5},
		{10, 10},
		{50, 10},
	}

	for _, tt := range tests {
		if got := clampMaxResults(tt.in); got != tt.want {
			t.Errorf("clampMaxResults(%d) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestTavilySearchParsesResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"answer": "Tools exist.",
			"results": [
				{"title": "Tool A", "url": "https://www.a.dev/docs", "content": "desc a", "score": 0.91, "published_date": "2025-05-01"},
				{"title": "Tool B", "url": "https://b.io", "content": "desc b", "score": 0.42}
			]
		}`))
	}))
	defer server.Close()

	provider := NewTavilyProvider("tvly-test")
	provider.endpoint = server.URL

	res, err := provider.Search(context.Background(), "ai tools", Config{MaxResults: 5})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(res.Results))
	}
	if res.Results[0].Domain != "a.dev" {
		t.Errorf("expected domain a.dev, got %q", res.Results[0].Domain)
	}
	if res.Results[0].Score != 0.91 {
		t.Errorf("expected score 0.91, got %f", res.Results[0].Score)
	}
	if res.Results[0].PublishedAt.IsZero() {
		t.Error("expected published date to be parsed")
	}
	if res.Results[1].Rank != 2 {
		t.Errorf("expected rank 2, got %d", res.Results[1].Rank)
	}
	if res.Answer != "Tools exist." {
		t.Errorf("expected answer returned with the results, got %q", res.Answer)
	}
}

func TestTavilySearchAuthFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	provider := NewTavilyProvider("bad-key")
	provider.endpoint = server.URL

	_, err := provider.Search(context.Background(), "ai tools", Config{MaxResults: 5})
	if err == nil {
		t.Fatal("expected error for 401 response")
	}
}

func TestProviderFactoryAppliesTimeout(t *testing.T) {
	factory := NewProviderFactory()

	provider, err := factory.CreateProvider(ProviderTypeDuckDuckGo, map[string]string{"timeout": "5s"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := provider.(*DuckDuckGoProvider).client.Timeout; got != 5*time.Second {
		t.Errorf("expected configured timeout 5s, got %v", got)
	}

	provider, err = factory.CreateProvider(ProviderTypeTavily, map[string]string{"api_key": "tvly-test", "timeout": "garbage"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := provider.(*TavilyProvider).client.Timeout; got != defaultHTTPTimeout {
		t.Errorf("expected default timeout on bad value, got %v", got)
	}
}

func TestDuckDuckGoRateLimitHonorsContext(t *testing.T) {
	provider := NewDuckDuckGoProvider()
	provider.lastCall = time.Now() // forces a full rate-limit wait

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	_, err := provider.Search(ctx, "anything", Config{MaxResults: 1})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled during rate-limit wait, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > 500*time.Millisecond {
		t.Errorf("cancellation did not interrupt the wait, took %v", elapsed)
	}
}

func TestDuckDuckGoExtractFinalURL(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "redirect url",
			in:   "/l/?uddg=https%3A%2F%2Fexample.com%2Fpage&rut=abc",
			want: "https://example.com/page",
		},
		{
			name: "direct url",
			in:   "https://example.com/direct",
			want: "https://example.com/direct",
		},
		{
			name: "relative non-redirect",
			in:   "/settings",
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := extractFinalURL(tt.in); got != tt.want {
				t.Errorf("extractFinalURL(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestDuckDuckGoParseSearchResults(t *testing.T) {
	html := `
	<div class="result results_links"><h2><a class="result__a" href="/l/?uddg=https%3A%2F%2Ffirst.dev%2F&rut=x">First &amp; Best Tool</a></h2><a class="result__snippet">A <b>great</b> tool.</a></div>
	<div class="result results_links"><h2><a class="result__a" href="https://second.io/page">Second Tool</a></h2><a class="result__snippet">Another tool.</a></div>
	`

	provider := NewDuckDuckGoProvider()
	results := provider.parseSearchResults(html, 10)

	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].Title != "First & Best Tool" {
		t.Errorf("expected decoded title, got %q", results[0].Title)
	}
	if results[0].URL != "https://first.dev/" {
		t.Errorf("expected decoded redirect URL, got %q", results[0].URL)
	}
	if results[0].Snippet != "A great tool." {
		t.Errorf("expected tag-stripped snippet, got %q", results[0].Snippet)
	}
	if results[1].Domain != "second.io" {
		t.Errorf("expected domain second.io, got %q", results[1].Domain)
	}

	capped := provider.parseSearchResults(html, 1)
	if len(capped) != 1 {
		t.Errorf("expected max results cap to apply, got %d results", len(capped))
	}
}

func TestExtractDomain(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"https://www.example.com/path", "example.com"},
		{"https://sub.example.org", "sub.example.org"},
		{"not a url", ""},
	}

	for _, tt := range tests {
		if got := extractDomain(tt.in); got != tt.want {
			t.Errorf("extractDomain(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
