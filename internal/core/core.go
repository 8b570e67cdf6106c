package core

import (
	"strings"
	"time"
)

// RunStatus describes the lifecycle state of a research run.
type RunStatus string

const (
	StatusIdle      RunStatus = "idle"
	StatusRunning   RunStatus = "running"
	StatusCompleted RunStatus = "completed"
	StatusError     RunStatus = "error"
)

// RunPhase identifies which pipeline phase a running run is executing.
type RunPhase string

const (
	PhasePlanning   RunPhase = "planning"
	PhaseDiscovery  RunPhase = "discovery"
	PhaseValidation RunPhase = "validation"
	PhaseSentiment  RunPhase = "sentiment"
	PhaseDone       RunPhase = "done"
)

// EventType classifies a progress event. Complete and Error are terminal:
// once either is emitted for a run, no further events follow.
type EventType string

const (
	EventProgress EventType = "progress"
	EventComplete EventType = "complete"
	EventError    EventType = "error"
)

// ProgressEvent is a single human-readable progress update, ordered by
// emission time within a run.
type ProgressEvent struct {
	Type      EventType `json:"type"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// RunSnapshot is a read-only copy of the controller's run state, safe to
// hand to status handlers and history stores.
type RunSnapshot struct {
	ID              string          `json:"id"`
	Status          RunStatus       `json:"status"`
	Phase           RunPhase        `json:"phase"`
	StartedAt       time.Time       `json:"started_at,omitempty"`
	CompletedAt     time.Time       `json:"completed_at,omitempty"`
	DiscoveredCount int             `json:"discovered_count"`
	AddedCount      int             `json:"added_count"`
	FocusAreas      []string        `json:"focus_areas,omitempty"`
	Error           string          `json:"error,omitempty"`
	Progress        []ProgressEvent `json:"progress"`
}

// QueryPlan is the planning phase output: a short rationale and the search
// queries the discovery phase will execute.
type QueryPlan struct {
	Reasoning string   `json:"reasoning"`
	Queries   []string `json:"queries"`
}

// CandidateTool is an unvalidated record extracted from search results
// before quality filtering.
type CandidateTool struct {
	Title          string    `json:"title"`
	URL            string    `json:"url"`
	Description    string    `json:"description"`
	Category       string    `json:"category"`
	Features       []string  `json:"features,omitempty"`
	Confidence     float64   `json:"confidence"`
	SourceURL      string    `json:"source_url,omitempty"`
	DiscoveredAt   time.Time `json:"discovered_at"`
	DiscoveryQuery string    `json:"discovery_query"`
	SearchProvider string    `json:"search_provider"`
}

// ValidatedTool is a candidate that survived the quality filter, carrying
// the filter's score and rationale.
type ValidatedTool struct {
	CandidateTool
	QualityScore  float64 `json:"quality_score"`
	QualityReason string  `json:"quality_reason,omitempty"`
}

// SentimentMention is one web mention considered during sentiment analysis.
// Either the scoring fields are populated, or Error explains why the page
// could not be fetched or analyzed.
type SentimentMention struct {
	Title           string    `json:"title"`
	URL             string    `json:"url"`
	Snippet         string    `json:"snippet,omitempty"`
	Score           int       `json:"score"`
	NormalizedScore float64   `json:"normalized_score"`
	Label           string    `json:"label,omitempty"`
	Source          string    `json:"source,omitempty"`
	PublishedAt     time.Time `json:"published_at,omitempty"`
	Error           string    `json:"error,omitempty"`
}

// SentimentSummary aggregates per-mention scores for one tool. Errored
// mentions are excluded from the averages but counted in TotalResults.
type SentimentSummary struct {
	AverageScore      float64 `json:"average_score"`
	AverageNormalized float64 `json:"average_normalized"`
	Positive          int     `json:"positive"`
	Neutral           int     `json:"neutral"`
	Negative          int     `json:"negative"`
	Rating            string  `json:"rating"`
}

// SentimentRecord is the full sentiment result for one tool: the query used,
// how many mentions were considered and analyzed, the aggregate summary, and
// every mention including errored ones.
type SentimentRecord struct {
	Tool          string             `json:"tool"`
	Query         string             `json:"query"`
	GeneratedAt   time.Time          `json:"generated_at"`
	TotalResults  int                `json:"total_results"`
	AnalyzedCount int                `json:"analyzed_count"`
	Summary       SentimentSummary   `json:"summary"`
	Mentions      []SentimentMention `json:"mentions,omitempty"`
}

// StoredTool is the catalog's persisted shape: a validated tool enriched
// with its sentiment record and a sequential catalog identifier. Stored
// tools are never mutated by the pipeline after creation.
type StoredTool struct {
	ID             int              `json:"id"`
	Title          string           `json:"title"`
	URL            string           `json:"url"`
	Description    string           `json:"description"`
	Category       string           `json:"category"`
	Features       []string         `json:"features,omitempty"`
	Confidence     float64          `json:"confidence"`
	QualityScore   float64          `json:"quality_score"`
	QualityReason  string           `json:"quality_reason,omitempty"`
	DiscoveredAt   time.Time        `json:"discovered_at"`
	DiscoveryQuery string           `json:"discovery_query,omitempty"`
	SearchProvider string           `json:"search_provider,omitempty"`
	AddedAt        time.Time        `json:"added_at"`
	Sentiment      *SentimentRecord `json:"sentiment,omitempty"`
}

// CategoryOther is the fallback category for tools the model could not
// place in the fixed vocabulary.
const CategoryOther = "Other"

// Categories is the fixed vocabulary the extraction prompt asks the model
// to choose from. Anything else is normalized to CategoryOther.
var Categories = []string{
	"Code Completion",
	"IDE/Editor",
	"Terminal Tools",
	"Testing",
	"Code Review",
	"Agent Framework",
	"Language Model",
	"Developer Platform",
	CategoryOther,
}

// NormalizeCategory maps a free-form category string onto the fixed
// vocabulary, falling back to CategoryOther.
func NormalizeCategory(category string) string {
	category = strings.TrimSpace(category)
	for _, c := range Categories {
		if strings.EqualFold(c, category) {
			return c
		}
	}
	return CategoryOther
}
