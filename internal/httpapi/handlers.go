package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/kevichi7/bench-sort/internal/apitypes"
	"github.com/kevichi7/bench-sort/internal/engine"
	"github.com/kevichi7/bench-sort/internal/engine/plugin"
	"github.com/kevichi7/bench-sort/internal/store"
	"github.com/kevichi7/bench-sort/internal/validate"
)

// loadExtraPlugins loads per-request plugin paths (the ?plugin= query
// params on /meta, or a request's "plugins" field on /run), ignoring any
// that fail to load — per §4.5, loader errors are non-fatal.
func loadExtraPlugins(paths []string) []engine.LoadedPlugin {
	if len(paths) == 0 {
		return nil
	}
	loaded, _ := plugin.LoadAll(paths)
	return loaded
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, apitypes.ErrorBody{Error: message})
}

func decodeRequest(r *http.Request) (apitypes.Request, error) {
	var req apitypes.Request
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(&req); err != nil {
		return req, err
	}
	return req, nil
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// handleReadyz performs algorithm discovery plus a tiny smoke run per
// sample distribution, per SPEC_FULL.md §6.
func (s *Server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if len(engine.ListAlgorithms(apitypes.ElemI32, s.Plugins)) == 0 {
		writeError(w, http.StatusInternalServerError, "algorithm discovery failed")
		return
	}
	for _, dist := range apitypes.Distributions {
		sample := apitypes.Request{
			N: 32, Repeats: 1, Distribution: dist,
			ElemType: apitypes.ElemI32, Algorithms: []string{"std_sort"},
		}
		if _, err := engine.Run(ctx, sample, s.Plugins); err != nil {
			writeError(w, http.StatusInternalServerError, "engine smoke run failed")
			return
		}
	}

	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

func (s *Server) handleMeta(w http.ResponseWriter, r *http.Request) {
	plugins := s.Plugins
	if paths := r.URL.Query()["plugin"]; len(paths) > 0 {
		extra := loadExtraPlugins(paths)
		plugins = append(append([]engine.LoadedPlugin{}, s.Plugins...), extra...)
	}

	algos := make(map[string][]string, len(apitypes.ElemTypes))
	for _, t := range apitypes.ElemTypes {
		algos[string(t)] = engine.ListAlgorithms(t, plugins)
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"types": apitypes.ElemTypes,
		"dists": apitypes.Distributions,
		"algos": algos,
	})
}

func (s *Server) handleLimits(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"max_n":              s.Limits.MaxN,
		"max_repeats":        s.Limits.MaxRepeats,
		"max_threads":        s.Limits.MaxThreads,
		"max_jobs":           s.MaxJobs,
		"default_timeout_ms": s.Limits.DefaultTimeoutMS,
		"durable_mode":       s.DurableMode,
		"mode":               "in-process",
	})
}

func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	req, err := decodeRequest(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	if err := validate.Validate(req, s.Limits); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	req = validate.BuildEngineArgs(req, s.Limits)

	plugins := s.Plugins
	if len(req.Plugins) > 0 {
		extra := loadExtraPlugins(req.Plugins)
		plugins = append(append([]engine.LoadedPlugin{}, s.Plugins...), extra...)
	}

	ctx, cancel := context.WithTimeout(r.Context(), time.Duration(req.TimeoutMS)*time.Millisecond)
	defer cancel()

	rows, err := engine.Run(ctx, req, plugins)
	if err != nil {
		writeError(w, http.StatusInternalServerError, sanitize(err))
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

func (s *Server) handleJobsSubmit(w http.ResponseWriter, r *http.Request) {
	req, err := decodeRequest(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	if err := validate.Validate(req, s.Limits); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	// Async jobs always run under the server default timeout: unlike the
	// sync /run path's min(request.timeout_ms, default_timeout), spec.md §5
	// says request-supplied timeout_ms "does not extend it beyond the
	// server cap" for async runs, and the ground-truth submitJobHandler
	// opens its execution context with the default unconditionally, never
	// consulting the request's timeout_ms at all. BuildEngineArgs is the
	// sync path's clamp and must not be reused here.
	req.TimeoutMS = s.Limits.DefaultTimeoutMS

	active, err := s.Store.ActiveCount(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "storage unavailable")
		return
	}
	if active >= s.MaxJobs {
		writeError(w, http.StatusTooManyRequests, "too many jobs")
		return
	}

	job, err := s.Store.Enqueue(r.Context(), req)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "storage unavailable")
		return
	}
	if s.Metrics != nil {
		s.Metrics.JobsSubmittedTotal.Inc()
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"job_id": job.ID})
}

func (s *Server) handleJobGet(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	job, err := s.Store.Get(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "job not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "storage unavailable")
		return
	}

	if r.URL.Query().Get("verbose") == "1" {
		writeJSON(w, http.StatusOK, job)
		return
	}
	writeJSON(w, http.StatusOK, jobSummaryFrom(job))
}

// jobSummary is the minimal job payload from SPEC_FULL.md §6, omitting the
// operator-only mode/state_transitions fields unless ?verbose=1.
type jobSummary struct {
	ID         string              `json:"id"`
	Status     apitypes.JobStatus  `json:"status"`
	Error      *string             `json:"error,omitempty"`
	Result     json.RawMessage     `json:"result,omitempty"`
	CreatedAt  string              `json:"created_at"`
	StartedAt  *string             `json:"started_at,omitempty"`
	FinishedAt *string             `json:"finished_at,omitempty"`
	DurationMS *int64              `json:"duration_ms,omitempty"`
}

func jobSummaryFrom(job *apitypes.Job) jobSummary {
	s := jobSummary{
		ID:         job.ID,
		Status:     job.Status,
		Error:      job.Error,
		CreatedAt:  job.CreatedAt.Format(time.RFC3339Nano),
		DurationMS: job.DurationMS,
	}
	if len(job.Result) > 0 {
		s.Result = json.RawMessage(job.Result)
	}
	if job.StartedAt != nil {
		v := job.StartedAt.Format(time.RFC3339Nano)
		s.StartedAt = &v
	}
	if job.FinishedAt != nil {
		v := job.FinishedAt.Format(time.RFC3339Nano)
		s.FinishedAt = &v
	}
	return s
}

func (s *Server) handleJobCancel(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	job, err := s.Store.Get(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "job not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "storage unavailable")
		return
	}
	if job.Status.Terminal() {
		writeJSON(w, http.StatusOK, map[string]string{"status": "noop"})
		return
	}

	if s.CancelReg != nil {
		s.CancelReg.Cancel(id)
	}
	if _, err := s.Store.Cancel(r.Context(), id); err != nil {
		writeError(w, http.StatusInternalServerError, "storage unavailable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "cancelled"})
}

// sanitize strips an engine error down to a message safe to return to
// clients, per §7's "500 with a sanitized message".
func sanitize(err error) string {
	var ae *engine.AssertionError
	if errors.As(err, &ae) {
		return ae.Error()
	}
	return "engine error"
}
