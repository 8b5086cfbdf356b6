// Package api serves the orchestrator over HTTP.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"github.com/TheHaywire/solid-fortnight/internal/models"
	"github.com/TheHaywire/solid-fortnight/internal/orchestrator"
)

type Server struct {
	orch   *orchestrator.Orchestrator
	logger *slog.Logger
	// runCtx parents asynchronous runs; cancelling it stops them.
	runCtx context.Context
	runs   sync.WaitGroup
}

func NewServer(ctx context.Context, orch *orchestrator.Orchestrator, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{orch: orch, logger: logger, runCtx: ctx}
}

// Wait blocks until every run started through POST /runs has returned.
func (s *Server) Wait() { s.runs.Wait() }

type goalRequest struct {
	Goal string   `json:"goal"`
	Plan []string `json:"plan,omitempty"`
}

type runSummary struct {
	ID      string        `json:"id"`
	Goal    string        `json:"goal"`
	Status  models.Status `json:"status"`
	Results int           `json:"results"`
	Logs    int           `json:"logs"`
}

// Handler returns the routes wrapped in the CORS middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.RegisterRoutes(mux)
	return cors(mux)
}

func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	// Synchronous: runs the goal to completion and returns the report.
	mux.HandleFunc("POST /project", func(w http.ResponseWriter, r *http.Request) {
		req, ok := decodeGoal(w, r)
		if !ok {
			return
		}
		respondJSON(w, http.StatusOK, s.orch.Run(r.Context(), req.Goal, runOptions(req)...))
	})

	mux.HandleFunc("POST /runs", func(w http.ResponseWriter, r *http.Request) {
		req, ok := decodeGoal(w, r)
		if !ok {
			return
		}
		rc := s.orch.CreateRun(req.Goal, runOptions(req)...)
		s.runs.Add(1)
		go func() {
			defer s.runs.Done()
			if _, err := s.orch.Start(s.runCtx, rc.ID); err != nil {
				s.logger.Error("start run failed", "run_id", rc.ID, "err", err)
			}
		}()
		respondJSON(w, http.StatusAccepted, summarize(rc))
	})

	mux.HandleFunc("GET /runs", func(w http.ResponseWriter, r *http.Request) {
		runs := s.orch.ListRuns()
		out := make([]runSummary, 0, len(runs))
		for _, rc := range runs {
			out = append(out, summarize(rc))
		}
		respondJSON(w, http.StatusOK, out)
	})

	mux.HandleFunc("GET /runs/{id}", func(w http.ResponseWriter, r *http.Request) {
		rc, ok := s.orch.GetRun(r.PathValue("id"))
		if !ok {
			http.NotFound(w, r)
			return
		}
		respondJSON(w, http.StatusOK, rc.Report())
	})

	mux.HandleFunc("GET /runs/{id}/events", s.streamEvents)
}

// streamEvents relays hub events for one run as server-sent events until the
// run finishes or the client goes away.
func (s *Server) streamEvents(w http.ResponseWriter, r *http.Request) {
	rc, ok := s.orch.GetRun(r.PathValue("id"))
	if !ok {
		http.NotFound(w, r)
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}
	events, unsubscribe := s.orch.Subscribe(rc.ID)
	defer unsubscribe()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	// Current state first, so late subscribers see where the run is.
	current, _ := json.Marshal(orchestrator.Event{Event: orchestrator.EventRunStatus, RunID: rc.ID, Payload: map[string]any{"status": rc.Status()}})
	writeEvent(w, orchestrator.EventRunStatus, current)
	flusher.Flush()
	if rc.Finished() {
		return
	}

	for {
		select {
		case <-r.Context().Done():
			return
		case msg, ok := <-events:
			if !ok {
				return
			}
			var head struct {
				Event string `json:"event"`
			}
			_ = json.Unmarshal(msg, &head)
			writeEvent(w, head.Event, msg)
			flusher.Flush()
			if head.Event == orchestrator.EventRunStatus && rc.Finished() {
				return
			}
		}
	}
}

func writeEvent(w http.ResponseWriter, name string, data []byte) {
	if name != "" {
		fmt.Fprintf(w, "event: %s\n", name)
	}
	fmt.Fprintf(w, "data: %s\n\n", data)
}

func decodeGoal(w http.ResponseWriter, r *http.Request) (goalRequest, bool) {
	var req goalRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return req, false
	}
	req.Goal = strings.TrimSpace(req.Goal)
	if req.Goal == "" {
		http.Error(w, "goal is required", http.StatusBadRequest)
		return req, false
	}
	return req, true
}

func runOptions(req goalRequest) []orchestrator.RunOption {
	if len(req.Plan) == 0 {
		return nil
	}
	return []orchestrator.RunOption{orchestrator.WithPlan(req.Plan)}
}

func summarize(rc *orchestrator.RunContext) runSummary {
	rep := rc.Report()
	return runSummary{ID: rc.ID, Goal: rc.Goal, Status: rep.Status, Results: len(rep.Results), Logs: len(rep.Logs)}
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.Encode(v)
}

// cors is a permissive CORS middleware for local dev.
func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
