package server

import (
	"net/http"

	"toolscout/internal/core"
)

// ToolListResponse is the GET /tools payload.
type ToolListResponse struct {
	Count int               `json:"count"`
	Tools []core.StoredTool `json:"tools"`
}

// ToolStatsResponse is the GET /tools/stats payload.
type ToolStatsResponse struct {
	Total      int            `json:"total"`
	Categories map[string]int `json:"categories"`
	Sentiment  map[string]int `json:"sentiment"`
}

// handleListTools handles GET /tools, optionally filtered by ?category=.
func (s *Server) handleListTools(w http.ResponseWriter, r *http.Request) {
	tools, err := s.catalog.Load()
	if err != nil {
		s.log.Error("Failed to load catalog", "error", err)
		s.respondError(w, http.StatusInternalServerError, "failed to load catalog")
		return
	}

	if category := r.URL.Query().Get("category"); category != "" {
		normalized := core.NormalizeCategory(category)
		filtered := tools[:0:0]
		for _, t := range tools {
			if t.Category == normalized {
				filtered = append(filtered, t)
			}
		}
		tools = filtered
	}

	if tools == nil {
		tools = []core.StoredTool{}
	}

	s.respondJSON(w, http.StatusOK, ToolListResponse{
		Count: len(tools),
		Tools: tools,
	})
}

// handleToolStats handles GET /tools/stats with per-category and
// per-sentiment-rating counts.
func (s *Server) handleToolStats(w http.ResponseWriter, r *http.Request) {
	tools, err := s.catalog.Load()
	if err != nil {
		s.log.Error("Failed to load catalog", "error", err)
		s.respondError(w, http.StatusInternalServerError, "failed to load catalog")
		return
	}

	stats := ToolStatsResponse{
		Total:      len(tools),
		Categories: make(map[string]int),
		Sentiment:  make(map[string]int),
	}
	for _, t := range tools {
		stats.Categories[t.Category]++
		if t.Sentiment != nil && t.Sentiment.Summary.Rating != "" {
			stats.Sentiment[t.Sentiment.Summary.Rating]++
		}
	}

	s.respondJSON(w, http.StatusOK, stats)
}
