package research

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"toolscout/internal/catalog"
	"toolscout/internal/core"
	"toolscout/internal/events"
	"toolscout/internal/llm"
	"toolscout/internal/logger"
	"toolscout/internal/search"
	"toolscout/internal/sentiment"
)

// ErrAlreadyRunning is returned by Start while a run is active. Runs are
// single-flight: a second start request is rejected, never queued.
var ErrAlreadyRunning = errors.New("research already running")

// ModelCaller sends one prompt to the language model and returns raw text.
// Malformed output is the caller's concern.
type ModelCaller interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Searcher is the provider-fallback search adapter.
type Searcher interface {
	Search(ctx context.Context, query string, config search.Config) (search.Response, error)
}

// Fetcher downloads a page and reduces it to bounded plain text.
type Fetcher interface {
	FetchText(ctx context.Context, url string) (string, error)
}

// CatalogStore is the persisted tool collection, touched only through load
// and save.
type CatalogStore interface {
	Load() ([]core.StoredTool, error)
	Save([]core.StoredTool) error
}

// RunRecorder persists finished run snapshots. Optional; a nil recorder
// disables history.
type RunRecorder interface {
	RecordRun(core.RunSnapshot) error
}

// Options tunes the pipeline. Zero values select the defaults.
type Options struct {
	MaxTools         int           // soft target for the catalog merge (default 10)
	ValidationCap    int           // candidates submitted to the quality filter (default 20)
	SearchResults    int           // results per discovery query (default 5)
	SearchDepth      string        // search.DepthBasic or search.DepthAdvanced
	SentimentResults int           // search results considered per tool (default 10)
	SentimentFetches int           // pages fetched and scored per tool (default 3)
	MinConfidence    float64       // validation fallback threshold (default 0.7)
	ModelTimeout     time.Duration // deadline per model call (default 60s)
}

func (o Options) withDefaults() Options {
	if o.MaxTools <= 0 {
		o.MaxTools = 10
	}
	if o.ValidationCap <= 0 {
		o.ValidationCap = 20
	}
	if o.SearchResults <= 0 {
		o.SearchResults = 5
	}
	if o.SearchDepth == "" {
		o.SearchDepth = search.DepthBasic
	}
	if o.SentimentResults <= 0 {
		o.SentimentResults = 10
	}
	if o.SentimentFetches <= 0 {
		o.SentimentFetches = 3
	}
	if o.MinConfidence <= 0 {
		o.MinConfidence = 0.7
	}
	if o.ModelTimeout <= 0 {
		o.ModelTimeout = 60 * time.Second
	}
	return o
}

// Controller drives the four research phases in strict order: Planning,
// Discovery, Validation, Sentiment, then the catalog merge. It owns the run
// state exclusively; the outside world only sees read-only snapshots and the
// event stream.
type Controller struct {
	model    ModelCaller
	searcher Searcher
	fetcher  Fetcher
	catalog  CatalogStore
	history  RunRecorder
	bus      *events.Bus
	opts     Options

	mu  sync.Mutex
	run core.RunSnapshot
}

// New creates a controller. history may be nil.
func New(model ModelCaller, searcher Searcher, fetcher Fetcher, cat CatalogStore, history RunRecorder, bus *events.Bus, opts Options) *Controller {
	if bus == nil {
		bus = events.NewBus(0)
	}
	return &Controller{
		model:    model,
		searcher: searcher,
		fetcher:  fetcher,
		catalog:  cat,
		history:  history,
		bus:      bus,
		opts:     opts.withDefaults(),
		run:      core.RunSnapshot{Status: core.StatusIdle},
	}
}

// Start launches a background run. It returns the run ID, or
// ErrAlreadyRunning while a run is active.
func (c *Controller) Start(focusAreas []string, maxTools int) (string, error) {
	if maxTools <= 0 {
		maxTools = c.opts.MaxTools
	}

	c.mu.Lock()
	if c.run.Status == core.StatusRunning {
		c.mu.Unlock()
		return "", ErrAlreadyRunning
	}

	c.bus.Reset()
	c.run = core.RunSnapshot{
		ID:         uuid.NewString(),
		Status:     core.StatusRunning,
		Phase:      core.PhasePlanning,
		StartedAt:  time.Now().UTC(),
		FocusAreas: focusAreas,
	}
	runID := c.run.ID
	c.mu.Unlock()

	logger.Info("Research run started", "run_id", runID, "focus_areas", focusAreas, "max_tools", maxTools)

	go c.execute(context.Background(), focusAreas, maxTools)

	return runID, nil
}

// Status returns a read-only snapshot of the current (or most recent) run,
// including its ordered progress events.
func (c *Controller) Status() core.RunSnapshot {
	c.mu.Lock()
	snapshot := c.run
	snapshot.FocusAreas = append([]string(nil), c.run.FocusAreas...)
	c.mu.Unlock()

	snapshot.Progress = c.bus.History()
	return snapshot
}

// Subscribe returns a channel of progress events for the current run,
// replaying history first. The channel closes after the terminal event.
func (c *Controller) Subscribe() (<-chan core.ProgressEvent, func()) {
	return c.bus.Subscribe()
}

// execute runs all phases. Any unrecoverable failure transitions the run to
// error; the process itself never crashes on a failed run.
func (c *Controller) execute(ctx context.Context, focusAreas []string, maxTools int) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("Research run panicked", nil, "panic", fmt.Sprint(r))
			c.fail(fmt.Sprintf("unexpected failure: %v", r))
		}
	}()

	c.bus.Progress("Starting autonomous research run")

	// Phase 1: planning.
	c.setPhase(core.PhasePlanning)
	plan := c.plan(ctx, focusAreas, maxTools)
	c.bus.Progress(fmt.Sprintf("Planning complete: %d queries. %s", len(plan.Queries), plan.Reasoning))

	// Phase 2: discovery.
	c.setPhase(core.PhaseDiscovery)
	candidates := c.discover(ctx, plan.Queries)
	deduped := Dedupe(candidates)
	c.setDiscovered(len(deduped))
	c.bus.Progress(fmt.Sprintf("Discovery complete: %d candidates, %d after deduplication", len(candidates), len(deduped)))

	// Phase 3: validation.
	c.setPhase(core.PhaseValidation)
	validated := c.validate(ctx, deduped)
	if len(validated) > maxTools {
		validated = validated[:maxTools]
	}
	c.bus.Progress(fmt.Sprintf("Validation complete: %d tools approved", len(validated)))

	// Phase 4: sentiment.
	c.setPhase(core.PhaseSentiment)
	incoming := make([]core.StoredTool, 0, len(validated))
	for i, tool := range validated {
		c.bus.Progress(fmt.Sprintf("Sentiment: analyzing %s (%d/%d)", tool.Title, i+1, len(validated)))
		record := c.analyzeSentiment(ctx, tool)
		incoming = append(incoming, storedFrom(tool, record))
	}
	c.bus.Progress(fmt.Sprintf("Sentiment complete for %d tools", len(incoming)))

	// Merge into the catalog. This is the only fatal-error class: a failed
	// catalog write ends the run in error state.
	c.setPhase(core.PhaseDone)
	existing, err := c.catalog.Load()
	if err != nil {
		c.fail(fmt.Sprintf("catalog load failed: %v", err))
		return
	}
	merged, added := catalog.Merge(existing, incoming)
	if err := c.catalog.Save(merged); err != nil {
		c.fail(fmt.Sprintf("catalog save failed: %v", err))
		return
	}

	c.finish(added)
}

// generate sends one prompt to the model with the per-call deadline applied.
// A stalled inference request errors out instead of pinning the run in the
// running state, where single-flight would reject every later start.
func (c *Controller) generate(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.opts.ModelTimeout)
	defer cancel()
	return c.model.Generate(ctx, prompt)
}

// plan asks the model for 5-8 search queries and falls back to the default
// set on malformed output.
func (c *Controller) plan(ctx context.Context, focusAreas []string, maxTools int) core.QueryPlan {
	c.bus.Progress("Planning: generating search queries")

	text, err := c.generate(ctx, planningPrompt(focusAreas, maxTools))
	if err != nil {
		c.bus.Progress(fmt.Sprintf("Planning: model call failed (%v), using default queries", err))
		return defaultPlan()
	}

	var plan core.QueryPlan
	if err := llm.Unmarshal(text, &plan); err != nil || len(plan.Queries) == 0 {
		c.bus.Progress("Planning: could not parse model output, using default queries")
		return defaultPlan()
	}

	if len(plan.Queries) > 8 {
		plan.Queries = plan.Queries[:8]
	}
	return plan
}

// discover runs each planned query through search and extraction. A failure
// in one query skips that query's contribution without aborting the run.
func (c *Controller) discover(ctx context.Context, queries []string) []core.CandidateTool {
	var pool []core.CandidateTool

	for i, query := range queries {
		c.bus.Progress(fmt.Sprintf("Discovery: searching %q (%d/%d)", query, i+1, len(queries)))

		resp, err := c.searcher.Search(ctx, query, search.Config{
			MaxResults:    c.opts.SearchResults,
			Depth:         c.opts.SearchDepth,
			IncludeAnswer: true,
		})
		if err != nil {
			c.bus.Progress(fmt.Sprintf("Discovery: search failed for %q, skipping (%v)", query, err))
			continue
		}
		if len(resp.Results) == 0 {
			c.bus.Progress(fmt.Sprintf("Discovery: no results for %q", query))
			continue
		}

		extracted := c.extract(ctx, query, resp)
		pool = append(pool, extracted...)
		c.bus.Progress(fmt.Sprintf("Discovery: %d candidates from %q via %s", len(extracted), query, resp.Provider))
	}

	return pool
}

// extractedTool is the JSON shape the extraction prompt asks for.
type extractedTool struct {
	Title       string   `json:"title"`
	URL         string   `json:"url"`
	Description string   `json:"description"`
	Category    string   `json:"category"`
	Features    []string `json:"features"`
	Confidence  float64  `json:"confidence"`
	SourceURL   string   `json:"source_url"`
}

// extract turns one query's search results into stamped candidate records.
func (c *Controller) extract(ctx context.Context, query string, resp search.Response) []core.CandidateTool {
	text, err := c.generate(ctx, extractionPrompt(query, formatSearchResults(resp)))
	if err != nil {
		c.bus.Progress(fmt.Sprintf("Discovery: extraction call failed for %q, skipping (%v)", query, err))
		return nil
	}

	var raw []extractedTool
	if err := llm.Unmarshal(text, &raw); err != nil {
		c.bus.Progress(fmt.Sprintf("Discovery: could not parse extraction output for %q, skipping", query))
		return nil
	}

	now := time.Now().UTC()
	candidates := make([]core.CandidateTool, 0, len(raw))
	for _, t := range raw {
		if t.Title == "" {
			continue
		}
		if t.URL != "" && !isValidAbsoluteURL(t.URL) {
			t.URL = ""
		}
		if t.Confidence < 0 {
			t.Confidence = 0
		}
		if t.Confidence > 1 {
			t.Confidence = 1
		}
		candidates = append(candidates, core.CandidateTool{
			Title:          t.Title,
			URL:            t.URL,
			Description:    t.Description,
			Category:       core.NormalizeCategory(t.Category),
			Features:       t.Features,
			Confidence:     t.Confidence,
			SourceURL:      t.SourceURL,
			DiscoveredAt:   now,
			DiscoveryQuery: query,
			SearchProvider: resp.Provider,
		})
	}

	return candidates
}

// validationVerdict is the JSON shape the validation prompt asks for.
type validationVerdict struct {
	ApprovedIndices []int `json:"approved_indices"`
	QualityScores   map[string]struct {
		Score  float64 `json:"score"`
		Reason string  `json:"reason"`
	} `json:"quality_scores"`
}

// validate submits up to ValidationCap candidates to the quality filter.
// Candidates beyond the cap are excluded by policy, a stated approximation
// of the model's context limits, and the exclusion is announced. On
// malformed output the phase falls back to the confidence threshold.
func (c *Controller) validate(ctx context.Context, candidates []core.CandidateTool) []core.ValidatedTool {
	if len(candidates) == 0 {
		return nil
	}

	submitted := candidates
	if len(submitted) > c.opts.ValidationCap {
		submitted = submitted[:c.opts.ValidationCap]
		c.bus.Progress(fmt.Sprintf("Validation: submitting first %d of %d candidates", c.opts.ValidationCap, len(candidates)))
	} else {
		c.bus.Progress(fmt.Sprintf("Validation: submitting %d candidates", len(submitted)))
	}

	text, err := c.generate(ctx, validationPrompt(submitted))
	if err != nil {
		c.bus.Progress(fmt.Sprintf("Validation: model call failed (%v), falling back to confidence threshold", err))
		return c.validateByConfidence(submitted)
	}

	var verdict validationVerdict
	if err := llm.Unmarshal(text, &verdict); err != nil {
		c.bus.Progress("Validation: could not parse model output, falling back to confidence threshold")
		return c.validateByConfidence(submitted)
	}

	var approved []core.ValidatedTool
	for _, idx := range verdict.ApprovedIndices {
		if idx < 1 || idx > len(submitted) {
			continue
		}
		tool := core.ValidatedTool{CandidateTool: submitted[idx-1]}
		if qs, ok := verdict.QualityScores[strconv.Itoa(idx)]; ok {
			tool.QualityScore = qs.Score
			tool.QualityReason = qs.Reason
		}
		approved = append(approved, tool)
	}

	return approved
}

// validateByConfidence keeps candidates at or above the confidence
// threshold. The quality score is derived from confidence so downstream
// consumers still see a populated record.
func (c *Controller) validateByConfidence(candidates []core.CandidateTool) []core.ValidatedTool {
	var approved []core.ValidatedTool
	for _, cand := range candidates {
		if cand.Confidence >= c.opts.MinConfidence {
			approved = append(approved, core.ValidatedTool{
				CandidateTool: cand,
				QualityScore:  cand.Confidence * 10,
				QualityReason: "approved by confidence threshold",
			})
		}
	}
	return approved
}

// analyzeSentiment builds the full sentiment record for one tool. Each
// tool's analysis is independent: search or fetch failures are contained to
// this tool's record and never abort the phase for other tools.
func (c *Controller) analyzeSentiment(ctx context.Context, tool core.ValidatedTool) core.SentimentRecord {
	query := sentimentQuery(tool.Title)
	record := core.SentimentRecord{
		Tool:        tool.Title,
		Query:       query,
		GeneratedAt: time.Now().UTC(),
	}

	resp, err := c.searcher.Search(ctx, query, search.Config{
		MaxResults: c.opts.SentimentResults,
	})
	if err != nil {
		c.bus.Progress(fmt.Sprintf("Sentiment: search failed for %s (%v)", tool.Title, err))
		record.Summary = sentiment.Aggregate(nil)
		return record
	}

	record.TotalResults = len(resp.Results)

	seen := make(map[string]struct{})
	for _, result := range resp.Results {
		if len(record.Mentions) >= c.opts.SentimentFetches {
			break
		}
		// At most one mention per URL per tool.
		key := NormalizeURL(result.URL)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}

		mention := core.SentimentMention{
			Title:       result.Title,
			URL:         result.URL,
			Snippet:     result.Snippet,
			Source:      result.Source,
			PublishedAt: result.PublishedAt,
		}

		text, err := c.fetcher.FetchText(ctx, result.URL)
		if err != nil {
			mention.Error = err.Error()
		} else {
			score := sentiment.Analyze(text)
			mention.Score = score.Score
			mention.NormalizedScore = score.Normalized
			mention.Label = score.Label
			record.AnalyzedCount++
		}

		record.Mentions = append(record.Mentions, mention)
	}

	record.Summary = sentiment.Aggregate(record.Mentions)
	return record
}

func storedFrom(tool core.ValidatedTool, record core.SentimentRecord) core.StoredTool {
	return core.StoredTool{
		Title:          tool.Title,
		URL:            tool.URL,
		Description:    tool.Description,
		Category:       tool.Category,
		Features:       tool.Features,
		Confidence:     tool.Confidence,
		QualityScore:   tool.QualityScore,
		QualityReason:  tool.QualityReason,
		DiscoveredAt:   tool.DiscoveredAt,
		DiscoveryQuery: tool.DiscoveryQuery,
		SearchProvider: tool.SearchProvider,
		AddedAt:        time.Now().UTC(),
		Sentiment:      &record,
	}
}

func (c *Controller) setPhase(phase core.RunPhase) {
	c.mu.Lock()
	c.run.Phase = phase
	c.mu.Unlock()
}

func (c *Controller) setDiscovered(n int) {
	c.mu.Lock()
	c.run.DiscoveredCount = n
	c.mu.Unlock()
}

// finish transitions the run to completed and emits the terminal event.
func (c *Controller) finish(added int) {
	c.mu.Lock()
	c.run.Status = core.StatusCompleted
	c.run.Phase = core.PhaseDone
	c.run.AddedCount = added
	c.run.CompletedAt = time.Now().UTC()
	snapshot := c.run
	c.mu.Unlock()

	c.recordHistory(snapshot)

	logger.Info("Research run completed", "run_id", snapshot.ID, "discovered", snapshot.DiscoveredCount, "added", added)
	c.bus.Complete(fmt.Sprintf("Research complete: %d tools discovered, %d added to catalog", snapshot.DiscoveredCount, added))
}

// fail transitions the run to error with the message captured verbatim and
// emits the terminal event.
func (c *Controller) fail(message string) {
	c.mu.Lock()
	c.run.Status = core.StatusError
	c.run.Error = message
	c.run.CompletedAt = time.Now().UTC()
	snapshot := c.run
	c.mu.Unlock()

	c.recordHistory(snapshot)

	logger.Error("Research run failed", nil, "run_id", snapshot.ID, "message", message)
	c.bus.Error(message)
}

func (c *Controller) recordHistory(snapshot core.RunSnapshot) {
	if c.history == nil {
		return
	}
	if err := c.history.RecordRun(snapshot); err != nil {
		logger.Warn("Failed to record run history", "run_id", snapshot.ID, "error", err.Error())
	}
}
