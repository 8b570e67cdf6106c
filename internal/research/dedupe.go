package research

import (
	"net/url"
	"strings"

	"toolscout/internal/core"
)

// Dedupe collapses candidates that share a normalized (title, URL) identity.
// The first-seen candidate per key wins, so given the same input order the
// output is always identical; later duplicates are discarded regardless of
// their scores.
func Dedupe(candidates []core.CandidateTool) []core.CandidateTool {
	seen := make(map[string]struct{}, len(candidates))
	out := make([]core.CandidateTool, 0, len(candidates))

	for _, c := range candidates {
		key := dedupeKey(c)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, c)
	}

	return out
}

func dedupeKey(c core.CandidateTool) string {
	return normalizeTitle(c.Title) + "|" + NormalizeURL(c.URL)
}

func normalizeTitle(title string) string {
	return strings.ToLower(strings.TrimSpace(title))
}

// NormalizeURL canonicalizes a URL to scheme+host+path with the trailing
// slash removed, lower-casing the scheme and host. Query strings and
// fragments do not contribute to identity. Unparseable input falls back to
// the case-folded raw string.
func NormalizeURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}

	parsed, err := url.Parse(raw)
	if err != nil || parsed.Host == "" {
		return strings.ToLower(raw)
	}

	path := strings.TrimSuffix(parsed.Path, "/")
	return strings.ToLower(parsed.Scheme) + "://" + strings.ToLower(parsed.Host) + path
}

// isValidAbsoluteURL reports whether raw parses as an absolute http(s) URL.
func isValidAbsoluteURL(raw string) bool {
	parsed, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (parsed.Scheme == "http" || parsed.Scheme == "https") && parsed.Host != ""
}
