package research

import (
	"fmt"
	"strings"
	"time"

	"toolscout/internal/core"
	"toolscout/internal/search"
)

// defaultPlan is the conservative fallback when the planning model output
// cannot be parsed or yields zero queries. The planning phase never fails
// outright due to malformed model output.
func defaultPlan() core.QueryPlan {
	year := time.Now().Year()
	return core.QueryPlan{
		Reasoning: "default query set (planner output unavailable)",
		Queries: []string{
			fmt.Sprintf("new AI developer tools %d", year),
			"best AI coding assistants",
			"AI code review tools",
			"open source LLM developer tools",
			"AI testing and debugging tools",
		},
	}
}

func planningPrompt(focusAreas []string, maxTools int) string {
	focus := "decide for yourself which areas of AI developer tooling are most worth covering right now"
	if len(focusAreas) > 0 {
		focus = "focus on: " + strings.Join(focusAreas, ", ")
	}

	return fmt.Sprintf(`You are an autonomous researcher discovering AI developer tools.

Research focus: %s.
Target: up to %d tools.

Generate 5-8 diverse web search queries that together cover the focus well.
Vary the angle (product launches, comparisons, community discussions) so the
queries do not all return the same results.

Respond with JSON only, no other text:
{"reasoning": "one or two sentences on your query strategy", "queries": ["query 1", "query 2"]}`, focus, maxTools)
}

func extractionPrompt(query string, resultsBlock string) string {
	return fmt.Sprintf(`You are extracting AI developer tools from web search results.

Search query: %q

Search results:
%s

Extract every distinct tool that appears in these results. Rules:
- Only include tools actually present in the results above. Never invent tools.
- Exclude research papers, tutorials, blog posts, courses and news articles that are not themselves tools.
- category must be one of: %s.
- confidence is your certainty (0.0-1.0) that this is a real, distinct tool.
- source_url is the result URL the tool was found in.

Respond with a JSON array only, no other text:
[{"title": "Tool Name", "url": "https://tool.example", "description": "what it does", "category": "Testing", "features": ["feature 1"], "confidence": 0.9, "source_url": "https://where.it.was.found"}]

Return [] if no tools are present.`, query, resultsBlock, strings.Join(core.Categories, ", "))
}

func validationPrompt(candidates []core.CandidateTool) string {
	var b strings.Builder
	for i, tool := range candidates {
		fmt.Fprintf(&b, "%d. %s (%s)\n   URL: %s\n   %s\n   confidence: %.2f\n",
			i+1, tool.Title, tool.Category, tool.URL, tool.Description, tool.Confidence)
	}

	return fmt.Sprintf(`You are the quality curator for a catalog of AI developer tools.

Candidate tools:
%s
Approve only candidates that are:
- real and existing products or projects,
- actively maintained,
- of clear value to developers,
- accessible (public website, repository or install path).

Score approved candidates 0-10 with a one-sentence reason.

Respond with JSON only, no other text. Indices are 1-based:
{"approved_indices": [1, 3], "quality_scores": {"1": {"score": 8.5, "reason": "..."}, "3": {"score": 7.0, "reason": "..."}}}`, b.String())
}

// sentimentQuery builds the review-oriented query for one tool, steering
// toward forum discussion and the current year.
func sentimentQuery(toolName string) string {
	return fmt.Sprintf("%s reviews opinions reddit hackernews %d", toolName, time.Now().Year())
}

// formatSearchResults renders a search response as the compact text block
// the extraction prompt consumes.
func formatSearchResults(resp search.Response) string {
	var b strings.Builder
	if resp.Answer != "" {
		fmt.Fprintf(&b, "Summary answer: %s\n\n", resp.Answer)
	}
	for i, r := range resp.Results {
		fmt.Fprintf(&b, "[%d] %s\nURL: %s\n%s\n\n", i+1, r.Title, r.URL, r.Snippet)
	}
	return strings.TrimSpace(b.String())
}
