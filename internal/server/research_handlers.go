package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"toolscout/internal/core"
	"toolscout/internal/research"
	"toolscout/internal/store"
)

// StartRequest is the optional POST /research/start body.
type StartRequest struct {
	FocusAreas []string `json:"focus_areas,omitempty"`
	MaxTools   int      `json:"max_tools,omitempty"`
}

// StartResponse acknowledges an accepted run.
type StartResponse struct {
	RunID  string `json:"run_id"`
	Status string `json:"status"`
}

// sseHeartbeat is how often a comment line is written to keep idle SSE
// connections from being dropped by proxies.
const sseHeartbeat = 15 * time.Second

// handleResearchStart handles POST /research/start. An empty body is valid
// and starts a run with defaults. A concurrent run yields 409.
func (s *Server) handleResearchStart(w http.ResponseWriter, r *http.Request) {
	var req StartRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.respondError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
			return
		}
	}

	runID, err := s.controller.Start(req.FocusAreas, req.MaxTools)
	if err != nil {
		if errors.Is(err, research.ErrAlreadyRunning) {
			s.respondError(w, http.StatusConflict, "a research run is already in progress")
			return
		}
		s.log.Error("Failed to start research run", "error", err)
		s.respondError(w, http.StatusInternalServerError, "failed to start research run")
		return
	}

	s.respondJSON(w, http.StatusAccepted, StartResponse{
		RunID:  runID,
		Status: string(core.StatusRunning),
	})
}

// handleResearchStatus handles GET /research/status. Always 200: an idle
// server reports idle status with an empty progress log.
func (s *Server) handleResearchStatus(w http.ResponseWriter, r *http.Request) {
	snap := s.controller.Status()
	if snap.Progress == nil {
		snap.Progress = []core.ProgressEvent{}
	}
	s.respondJSON(w, http.StatusOK, snap)
}

// handleResearchStream handles GET /research/stream as Server-Sent Events.
// Past events for the current run are replayed first, then live events
// follow. The stream closes itself after the terminal event.
func (s *Server) handleResearchStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		s.respondError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	events, cancel := s.controller.Subscribe()
	defer cancel()

	heartbeat := time.NewTicker(sseHeartbeat)
	defer heartbeat.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-heartbeat.C:
			if _, err := w.Write([]byte(": heartbeat\n\n")); err != nil {
				return
			}
			flusher.Flush()
		case evt, open := <-events:
			if !open {
				return
			}
			if err := writeSSE(w, evt); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

// writeSSE renders one event in text/event-stream framing.
func writeSSE(w http.ResponseWriter, evt core.ProgressEvent) error {
	payload, err := json.Marshal(evt)
	if err != nil {
		return err
	}
	_, err = w.Write([]byte("event: " + string(evt.Type) + "\ndata: " + string(payload) + "\n\n"))
	return err
}

// handleResearchLog handles GET /research/log, returning recent finished
// runs, most recent first. limit defaults to 20.
func (s *Server) handleResearchLog(w http.ResponseWriter, r *http.Request) {
	if s.runLog == nil {
		s.respondError(w, http.StatusNotFound, "run history is not enabled")
		return
	}

	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			s.respondError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	entries, err := s.runLog.RecentRuns(limit)
	if err != nil {
		s.log.Error("Failed to read run history", "error", err)
		s.respondError(w, http.StatusInternalServerError, "failed to read run history")
		return
	}
	if entries == nil {
		entries = []store.RunEntry{}
	}

	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"count": len(entries),
		"runs":  entries,
	})
}
