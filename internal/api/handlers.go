package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"parcelroute/internal/model"
	"parcelroute/internal/opt"
	"parcelroute/internal/planner"
	"parcelroute/internal/store"
)

const maxBodyBytes = 8 << 20

// RunsHandler handles POST/GET /v1/runs
func (s *Server) RunsHandler(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/v1/runs" {
		writeProblem(w, http.StatusNotFound, "Not Found", "", r.URL.Path)
		return
	}
	switch r.Method {
	case http.MethodPost:
		var req model.RunRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error(), r.URL.Path)
			return
		}
		if err := validateRunRequest(&req); err != nil {
			writeProblem(w, http.StatusBadRequest, "Invalid run request", err.Error(), r.URL.Path)
			return
		}
		if req.Async {
			run, err := s.Planner.Submit(r.Context(), req)
			if err != nil {
				writeRunError(w, r, err)
				return
			}
			w.Header().Set("Location", "/v1/runs/"+run.ID)
			writeJSON(w, http.StatusAccepted, map[string]any{"id": run.ID, "status": run.Status, "stream": "/v1/runs/" + run.ID + "/stream"})
			return
		}
		run, err := s.Planner.Solve(r.Context(), req)
		if err != nil {
			writeRunError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, run)
	case http.MethodGet:
		cursor := r.URL.Query().Get("cursor")
		limit := 50
		if v := r.URL.Query().Get("limit"); v != "" {
			fmt.Sscanf(v, "%d", &limit)
		}
		items, next, err := s.Store.ListRuns(r.Context(), cursor, limit)
		if err != nil {
			writeProblem(w, http.StatusInternalServerError, "List runs failed", err.Error(), r.URL.Path)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"items": items, "nextCursor": next})
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func writeRunError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, model.ErrInvalidProblem):
		writeProblem(w, http.StatusUnprocessableEntity, "Invalid problem", err.Error(), r.URL.Path)
	case errors.Is(err, planner.ErrInvalidRequest):
		writeProblem(w, http.StatusBadRequest, "Invalid run request", err.Error(), r.URL.Path)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		writeProblem(w, http.StatusServiceUnavailable, "Run cancelled", err.Error(), r.URL.Path)
	default:
		writeProblem(w, http.StatusInternalServerError, "Run failed", err.Error(), r.URL.Path)
	}
}

// RunByIDHandler handles GET /v1/runs/{id} and its /stream, /metrics and
// /deliveries subresources.
func (s *Server) RunByIDHandler(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Path
	rest := strings.TrimPrefix(path, "/v1/runs/")
	if rest == path || rest == "" {
		writeProblem(w, http.StatusNotFound, "Not Found", "missing id", path)
		return
	}
	parts := strings.Split(rest, "/")
	id := parts[0]
	if len(parts) > 2 || id == "" {
		writeProblem(w, http.StatusNotFound, "Not Found", "", path)
		return
	}
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	sub := ""
	if len(parts) == 2 {
		sub = parts[1]
	}
	switch sub {
	case "":
		run, err := s.Store.GetRun(r.Context(), id)
		if err != nil {
			writeStoreError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, run)
	case "stream":
		s.streamRun(w, r, id)
	case "metrics":
		if _, err := s.Store.GetRun(r.Context(), id); err != nil {
			writeStoreError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"runId": id, "metrics": metricsView(opt.GetMetrics(id))})
	case "deliveries":
		if _, err := s.Store.GetRun(r.Context(), id); err != nil {
			writeStoreError(w, r, err)
			return
		}
		items, err := s.Store.ListWebhookDeliveries(r.Context(), id)
		if err != nil {
			writeProblem(w, http.StatusInternalServerError, "List deliveries failed", err.Error(), path)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"items": items})
	default:
		writeProblem(w, http.StatusNotFound, "Not Found", "", path)
	}
}

func writeStoreError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, store.ErrNotFound) {
		writeProblem(w, http.StatusNotFound, "Not Found", "run not found", r.URL.Path)
		return
	}
	writeProblem(w, http.StatusInternalServerError, "Get run failed", err.Error(), r.URL.Path)
}

func metricsView(m map[string]opt.RunStats) map[string]any {
	out := make(map[string]any, len(m))
	for algo, st := range m {
		out[algo] = map[string]any{
			"iterations":    st.Iterations,
			"improvements":  st.Improvements,
			"acceptedWorse": st.AcceptedWorse,
			"evaluations":   st.Evaluations,
			"bestDistance":  st.BestDistance,
			"bestPriority":  st.BestPriority,
			"bestFitness":   st.BestFitness,
			"durationMs":    st.Duration.Milliseconds(),
		}
	}
	return out
}

// OptimizerConfigHandler returns the effective optimizer defaults
func (s *Server) OptimizerConfigHandler(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/v1/optimizer/config" || r.Method != http.MethodGet {
		writeProblem(w, 404, "Not Found", "", r.URL.Path)
		return
	}
	cfg := s.Planner.Config()
	defaults := map[string]any{
		"algorithm":        cfg.Algorithm,
		"seed":             cfg.Seed,
		"polish":           cfg.Polish,
		"polishIterations": cfg.PolishIterations,
		"annealing":        cfg.Annealing,
		"genetic":          cfg.Genetic,
	}
	writeJSON(w, 200, map[string]any{"defaults": defaults, "samples": model.SampleNames()})
}

// HealthHandler reports liveness
func (s *Server) HealthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type pinger interface{ Ping(ctx context.Context) error }

// ReadyHandler reports readiness, checking the store when it can be pinged.
func (s *Server) ReadyHandler(w http.ResponseWriter, r *http.Request) {
	if p, ok := s.Store.(pinger); ok {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := p.Ping(ctx); err != nil {
			writeProblem(w, http.StatusServiceUnavailable, "Not Ready", err.Error(), r.URL.Path)
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
