package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"toolscout/internal/core"
)

// MaxHistory is how many run records are retained; older rows are pruned on
// every write, matching the bounded research log the HTTP surface exposes.
const MaxHistory = 100

// Store persists the run history in SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// RunEntry is one persisted run-history row.
type RunEntry struct {
	RunID           string    `json:"run_id"`
	StartedAt       time.Time `json:"started_at"`
	CompletedAt     time.Time `json:"completed_at"`
	Status          string    `json:"status"`
	DiscoveredCount int       `json:"discovered_count"`
	AddedCount      int       `json:"added_count"`
	FocusAreas      []string  `json:"focus_areas,omitempty"`
	Error           string    `json:"error,omitempty"`
}

// NewStore opens (creating if needed) the run-history database under dataDir.
func NewStore(dataDir string) (*Store, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "toolscout.db")
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{
		db:   db,
		path: dbPath,
	}

	if err := store.initialize(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	return store, nil
}

// initialize creates the necessary tables
func (s *Store) initialize() error {
	runsTable := `
	CREATE TABLE IF NOT EXISTS runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL,
		started_at DATETIME,
		completed_at DATETIME,
		status TEXT,
		discovered INTEGER,
		added INTEGER,
		focus_areas TEXT,
		error TEXT
	);`

	if _, err := s.db.Exec(runsTable); err != nil {
		return fmt.Errorf("failed to create runs table: %w", err)
	}

	return nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// RecordRun appends a finished run to the history and prunes rows beyond
// MaxHistory.
func (s *Store) RecordRun(run core.RunSnapshot) error {
	focusAreas, _ := json.Marshal(run.FocusAreas)

	query := `
	INSERT INTO runs (run_id, started_at, completed_at, status, discovered, added, focus_areas, error)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := s.db.Exec(query,
		run.ID,
		run.StartedAt,
		run.CompletedAt,
		string(run.Status),
		run.DiscoveredCount,
		run.AddedCount,
		string(focusAreas),
		run.Error,
	)
	if err != nil {
		return fmt.Errorf("failed to record run: %w", err)
	}

	_, err = s.db.Exec(`DELETE FROM runs WHERE id NOT IN (SELECT id FROM runs ORDER BY id DESC LIMIT ?)`, MaxHistory)
	if err != nil {
		return fmt.Errorf("failed to prune run history: %w", err)
	}

	return nil
}

// RecentRuns returns up to n runs, most recent first.
func (s *Store) RecentRuns(n int) ([]RunEntry, error) {
	if n <= 0 || n > MaxHistory {
		n = MaxHistory
	}

	query := `
	SELECT run_id, started_at, completed_at, status, discovered, added, focus_areas, error
	FROM runs ORDER BY id DESC LIMIT ?`

	rows, err := s.db.Query(query, n)
	if err != nil {
		return nil, fmt.Errorf("failed to query run history: %w", err)
	}
	defer rows.Close()

	var entries []RunEntry
	for rows.Next() {
		var entry RunEntry
		var focusAreas string
		if err := rows.Scan(
			&entry.RunID,
			&entry.StartedAt,
			&entry.CompletedAt,
			&entry.Status,
			&entry.DiscoveredCount,
			&entry.AddedCount,
			&focusAreas,
			&entry.Error,
		); err != nil {
			return nil, fmt.Errorf("failed to scan run entry: %w", err)
		}
		if focusAreas != "" && focusAreas != "null" {
			_ = json.Unmarshal([]byte(focusAreas), &entry.FocusAreas)
		}
		entries = append(entries, entry)
	}

	return entries, rows.Err()
}

// Count returns how many runs are currently recorded.
func (s *Store) Count() (int, error) {
	var count int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM runs`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count runs: %w", err)
	}
	return count, nil
}
