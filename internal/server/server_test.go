package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"toolscout/internal/config"
	"toolscout/internal/core"
	"toolscout/internal/research"
	"toolscout/internal/store"
)

type fakeController struct {
	startID  string
	startErr error
	snapshot core.RunSnapshot
	events   []core.ProgressEvent
}

func (c *fakeController) Start(focusAreas []string, maxTools int) (string, error) {
	return c.startID, c.startErr
}

func (c *fakeController) Status() core.RunSnapshot {
	snap := c.snapshot
	snap.Progress = c.events
	return snap
}

func (c *fakeController) Subscribe() (<-chan core.ProgressEvent, func()) {
	ch := make(chan core.ProgressEvent, len(c.events))
	for _, evt := range c.events {
		ch <- evt
	}
	close(ch)
	return ch, func() {}
}

type fakeCatalogReader struct {
	tools []core.StoredTool
	err   error
}

func (c *fakeCatalogReader) Load() ([]core.StoredTool, error) {
	return c.tools, c.err
}

type fakeRunLog struct {
	entries []store.RunEntry
	err     error
}

func (l *fakeRunLog) RecentRuns(n int) ([]store.RunEntry, error) {
	if l.err != nil {
		return nil, l.err
	}
	if n < len(l.entries) {
		return l.entries[:n], nil
	}
	return l.entries, nil
}

func testServerConfig() config.Server {
	return config.Server{
		Host: "127.0.0.1",
		Port: 0,
		CORS: config.CORS{Enabled: true, AllowedOrigins: []string{"*"}},
	}
}

func newTestServer(controller ResearchController, cat CatalogReader, runLog RunLog) *Server {
	return New(controller, cat, runLog, testServerConfig())
}

func TestStartAccepted(t *testing.T) {
	controller := &fakeController{startID: "run-123"}
	s := newTestServer(controller, &fakeCatalogReader{}, nil)

	body := strings.NewReader(`{"focus_areas": ["testing"], "max_tools": 5}`)
	req := httptest.NewRequest(http.MethodPost, "/research/start", body)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp StartResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid response body: %v", err)
	}
	if resp.RunID != "run-123" || resp.Status != "running" {
		t.Errorf("unexpected response: %+v", resp)
	}
}

func TestStartEmptyBodyAccepted(t *testing.T) {
	s := newTestServer(&fakeController{startID: "run-1"}, &fakeCatalogReader{}, nil)

	req := httptest.NewRequest(http.MethodPost, "/research/start", nil)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202 for empty body, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestStartConflictWhileRunning(t *testing.T) {
	controller := &fakeController{startErr: research.ErrAlreadyRunning}
	s := newTestServer(controller, &fakeCatalogReader{}, nil)

	req := httptest.NewRequest(http.MethodPost, "/research/start", nil)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}
}

func TestStartMalformedBody(t *testing.T) {
	s := newTestServer(&fakeController{startID: "run-1"}, &fakeCatalogReader{}, nil)

	req := httptest.NewRequest(http.MethodPost, "/research/start", strings.NewReader("{not json"))
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestStatusIdle(t *testing.T) {
	controller := &fakeController{snapshot: core.RunSnapshot{Status: core.StatusIdle}}
	s := newTestServer(controller, &fakeCatalogReader{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/research/status", nil)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var snap core.RunSnapshot
	if err := json.Unmarshal(rec.Body.Bytes(), &snap); err != nil {
		t.Fatalf("invalid response body: %v", err)
	}
	if snap.Status != core.StatusIdle {
		t.Errorf("expected idle status, got %s", snap.Status)
	}
	if snap.Progress == nil {
		t.Error("expected progress to serialize as an empty array, not null")
	}
}

func TestStatusRunning(t *testing.T) {
	controller := &fakeController{
		snapshot: core.RunSnapshot{
			ID:     "run-9",
			Status: core.StatusRunning,
			Phase:  core.PhaseDiscovery,
		},
		events: []core.ProgressEvent{
			{Type: core.EventProgress, Message: "Planning complete", Timestamp: time.Now().UTC()},
		},
	}
	s := newTestServer(controller, &fakeCatalogReader{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/research/status", nil)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)

	var snap core.RunSnapshot
	if err := json.Unmarshal(rec.Body.Bytes(), &snap); err != nil {
		t.Fatalf("invalid response body: %v", err)
	}
	if snap.ID != "run-9" || snap.Phase != core.PhaseDiscovery {
		t.Errorf("unexpected snapshot: %+v", snap)
	}
	if len(snap.Progress) != 1 || snap.Progress[0].Message != "Planning complete" {
		t.Errorf("progress events not carried: %+v", snap.Progress)
	}
}

func TestStreamReplaysAndCloses(t *testing.T) {
	controller := &fakeController{
		events: []core.ProgressEvent{
			{Type: core.EventProgress, Message: "Discovery complete", Timestamp: time.Now().UTC()},
			{Type: core.EventComplete, Message: "Research complete", Timestamp: time.Now().UTC()},
		},
	}
	s := newTestServer(controller, &fakeCatalogReader{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/research/stream", nil)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("expected text/event-stream, got %q", ct)
	}

	body := rec.Body.String()
	if !strings.Contains(body, "event: progress\n") {
		t.Errorf("progress event missing from stream:\n%s", body)
	}
	if !strings.Contains(body, "event: complete\n") {
		t.Errorf("terminal event missing from stream:\n%s", body)
	}
	if !strings.Contains(body, `"message":"Discovery complete"`) {
		t.Errorf("event payload missing from stream:\n%s", body)
	}
	// The complete event must arrive after the progress event.
	if strings.Index(body, "event: progress") > strings.Index(body, "event: complete") {
		t.Errorf("events out of order:\n%s", body)
	}
}

func TestListTools(t *testing.T) {
	cat := &fakeCatalogReader{tools: []core.StoredTool{
		{ID: 1, Title: "Aider", Category: "Terminal Tools"},
		{ID: 2, Title: "Cursor", Category: "IDE/Editor"},
	}}
	s := newTestServer(&fakeController{}, cat, nil)

	req := httptest.NewRequest(http.MethodGet, "/tools", nil)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var resp ToolListResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid response body: %v", err)
	}
	if resp.Count != 2 || len(resp.Tools) != 2 {
		t.Errorf("unexpected tool list: %+v", resp)
	}
}

func TestListToolsCategoryFilter(t *testing.T) {
	cat := &fakeCatalogReader{tools: []core.StoredTool{
		{ID: 1, Title: "Aider", Category: "Terminal Tools"},
		{ID: 2, Title: "Cursor", Category: "IDE/Editor"},
	}}
	s := newTestServer(&fakeController{}, cat, nil)

	req := httptest.NewRequest(http.MethodGet, "/tools?category=terminal+tools", nil)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)

	var resp ToolListResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid response body: %v", err)
	}
	if resp.Count != 1 || resp.Tools[0].Title != "Aider" {
		t.Errorf("category filter failed: %+v", resp)
	}
}

func TestToolStats(t *testing.T) {
	cat := &fakeCatalogReader{tools: []core.StoredTool{
		{ID: 1, Category: "Testing", Sentiment: &core.SentimentRecord{Summary: core.SentimentSummary{Rating: "positive"}}},
		{ID: 2, Category: "Testing", Sentiment: &core.SentimentRecord{Summary: core.SentimentSummary{Rating: "unknown"}}},
		{ID: 3, Category: "Other"},
	}}
	s := newTestServer(&fakeController{}, cat, nil)

	req := httptest.NewRequest(http.MethodGet, "/tools/stats", nil)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)

	var resp ToolStatsResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid response body: %v", err)
	}
	if resp.Total != 3 {
		t.Errorf("expected total 3, got %d", resp.Total)
	}
	if resp.Categories["Testing"] != 2 || resp.Categories["Other"] != 1 {
		t.Errorf("unexpected category counts: %+v", resp.Categories)
	}
	if resp.Sentiment["positive"] != 1 || resp.Sentiment["unknown"] != 1 {
		t.Errorf("unexpected sentiment counts: %+v", resp.Sentiment)
	}
}

func TestToolsCatalogError(t *testing.T) {
	cat := &fakeCatalogReader{err: errors.New("disk error")}
	s := newTestServer(&fakeController{}, cat, nil)

	req := httptest.NewRequest(http.MethodGet, "/tools", nil)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
}

func TestResearchLog(t *testing.T) {
	runLog := &fakeRunLog{entries: []store.RunEntry{
		{RunID: "run-2", Status: "completed"},
		{RunID: "run-1", Status: "error"},
	}}
	s := newTestServer(&fakeController{}, &fakeCatalogReader{}, runLog)

	req := httptest.NewRequest(http.MethodGet, "/research/log?limit=1", nil)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var resp struct {
		Count int              `json:"count"`
		Runs  []store.RunEntry `json:"runs"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid response body: %v", err)
	}
	if resp.Count != 1 || resp.Runs[0].RunID != "run-2" {
		t.Errorf("unexpected log response: %+v", resp)
	}
}

func TestResearchLogDisabled(t *testing.T) {
	s := newTestServer(&fakeController{}, &fakeCatalogReader{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/research/log", nil)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 when history disabled, got %d", rec.Code)
	}
}

func TestResearchLogBadLimit(t *testing.T) {
	s := newTestServer(&fakeController{}, &fakeCatalogReader{}, &fakeRunLog{})

	req := httptest.NewRequest(http.MethodGet, "/research/log?limit=zero", nil)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestHealth(t *testing.T) {
	s := newTestServer(&fakeController{}, &fakeCatalogReader{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var resp HealthResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid response body: %v", err)
	}
	if resp.Status != "ok" {
		t.Errorf("unexpected health payload: %+v", resp)
	}
}
