package store

import (
	"fmt"
	"testing"
	"time"

	"toolscout/internal/core"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestRecordAndRecentRuns(t *testing.T) {
	s := newTestStore(t)

	run := core.RunSnapshot{
		ID:              "run-1",
		Status:          core.StatusCompleted,
		StartedAt:       time.Now().UTC().Add(-time.Minute),
		CompletedAt:     time.Now().UTC(),
		DiscoveredCount: 12,
		AddedCount:      4,
		FocusAreas:      []string{"testing", "code review"},
	}
	if err := s.RecordRun(run); err != nil {
		t.Fatalf("record failed: %v", err)
	}

	entries, err := s.RecentRuns(10)
	if err != nil {
		t.Fatalf("recent runs failed: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	got := entries[0]
	if got.RunID != "run-1" || got.Status != "completed" {
		t.Errorf("unexpected entry: %+v", got)
	}
	if got.DiscoveredCount != 12 || got.AddedCount != 4 {
		t.Errorf("counters not persisted: %+v", got)
	}
	if len(got.FocusAreas) != 2 || got.FocusAreas[0] != "testing" {
		t.Errorf("focus areas not persisted: %+v", got.FocusAreas)
	}
}

func TestRecentRunsOrder(t *testing.T) {
	s := newTestStore(t)

	for i := 0; i < 3; i++ {
		if err := s.RecordRun(core.RunSnapshot{
			ID:     fmt.Sprintf("run-%d", i),
			Status: core.StatusCompleted,
		}); err != nil {
			t.Fatalf("record failed: %v", err)
		}
	}

	entries, err := s.RecentRuns(2)
	if err != nil {
		t.Fatalf("recent runs failed: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].RunID != "run-2" || entries[1].RunID != "run-1" {
		t.Errorf("expected most recent first, got %q then %q", entries[0].RunID, entries[1].RunID)
	}
}

func TestHistoryPruned(t *testing.T) {
	s := newTestStore(t)

	for i := 0; i < MaxHistory+10; i++ {
		if err := s.RecordRun(core.RunSnapshot{
			ID:     fmt.Sprintf("run-%d", i),
			Status: core.StatusCompleted,
		}); err != nil {
			t.Fatalf("record failed: %v", err)
		}
	}

	count, err := s.Count()
	if err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if count != MaxHistory {
		t.Errorf("expected history capped at %d, got %d", MaxHistory, count)
	}

	entries, err := s.RecentRuns(1)
	if err != nil {
		t.Fatalf("recent runs failed: %v", err)
	}
	if entries[0].RunID != fmt.Sprintf("run-%d", MaxHistory+9) {
		t.Errorf("expected newest run retained, got %q", entries[0].RunID)
	}
}

func TestErrorRunRecorded(t *testing.T) {
	s := newTestStore(t)

	if err := s.RecordRun(core.RunSnapshot{
		ID:     "run-err",
		Status: core.StatusError,
		Error:  "catalog write failed",
	}); err != nil {
		t.Fatalf("record failed: %v", err)
	}

	entries, err := s.RecentRuns(1)
	if err != nil {
		t.Fatalf("recent runs failed: %v", err)
	}
	if entries[0].Status != "error" || entries[0].Error != "catalog write failed" {
		t.Errorf("error run not persisted verbatim: %+v", entries[0])
	}
}
