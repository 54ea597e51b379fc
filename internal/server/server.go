package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/cwbudde/mspfilter/internal/msp"
	"github.com/cwbudde/mspfilter/internal/scan"
	"github.com/cwbudde/mspfilter/internal/store"
)

// Server represents the HTTP server
type Server struct {
	jobManager  *JobManager
	reportStore *store.FSStore
	addr        string
	server      *http.Server

	// DefaultWorkers is used for jobs that do not set workers. Zero means
	// one worker per CPU.
	DefaultWorkers int
	// DefaultThreshold is used for jobs that do not set a threshold.
	DefaultThreshold float32
}

// NewServer creates a new HTTP server. reportStore may be nil, in which case
// job results live only in memory.
func NewServer(addr string, reportStore *store.FSStore) *Server {
	return &Server{
		jobManager:  NewJobManager(),
		reportStore: reportStore,
		addr:        addr,
	}
}

// Handler returns the routed handler wrapped in middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/api/v1/jobs", s.handleJobs)
	mux.HandleFunc("/api/v1/jobs/", s.handleJobsWithID)

	return s.loggingMiddleware(s.corsMiddleware(mux))
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	slog.Info("Starting HTTP server", "addr", s.addr, "backend", msp.ActiveBackend.String())
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server and cancels pending and running jobs
func (s *Server) Shutdown(ctx context.Context) error {
	slog.Info("Shutting down HTTP server")
	for _, job := range s.jobManager.GetActiveJobs() {
		if err := s.jobManager.CancelJob(job.ID); err == nil {
			slog.Info("Cancelled job", "job_id", job.ID, "state", job.State)
		}
	}
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

// handleHealth handles GET /healthz
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"backend": msp.ActiveBackend.String(),
		"running": len(s.jobManager.GetRunningJobs()),
	})
}

// handleJobs handles /api/v1/jobs
func (s *Server) handleJobs(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		s.handleCreateJob(w, r)
	case http.MethodGet:
		s.handleListJobs(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleJobsWithID handles /api/v1/jobs/:id/*
func (s *Server) handleJobsWithID(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/v1/jobs/")
	parts := strings.Split(path, "/")
	if len(parts) == 0 || parts[0] == "" {
		http.Error(w, "Job ID required", http.StatusBadRequest)
		return
	}

	jobID := parts[0]
	sub := ""
	if len(parts) > 1 {
		sub = parts[1]
	}

	switch sub {
	case "", "status":
		s.handleGetJobStatus(w, r, jobID)
	case "hits":
		s.handleGetHits(w, r, jobID)
	case "stream":
		s.handleJobStream(w, r, jobID)
	case "cancel":
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		s.handleCancelJob(w, r, jobID)
	default:
		http.Error(w, "Not found", http.StatusNotFound)
	}
}

// handleCreateJob handles POST /api/v1/jobs
func (s *Server) handleCreateJob(w http.ResponseWriter, r *http.Request) {
	var config JobConfig
	if err := json.NewDecoder(r.Body).Decode(&config); err != nil {
		http.Error(w, fmt.Sprintf("Invalid JSON: %v", err), http.StatusBadRequest)
		return
	}

	if config.ProfilePath == "" {
		http.Error(w, "profilePath is required", http.StatusBadRequest)
		return
	}
	if config.SeqPath == "" {
		http.Error(w, "seqPath is required", http.StatusBadRequest)
		return
	}
	if config.Workers < 0 {
		http.Error(w, "workers must not be negative", http.StatusBadRequest)
		return
	}
	if config.Workers == 0 {
		config.Workers = s.DefaultWorkers
	}
	if config.Threshold == 0 {
		config.Threshold = s.DefaultThreshold
	}

	job := s.jobManager.CreateJob(config)

	ctx, cancel := context.WithCancel(context.Background())
	s.jobManager.setCancel(job.ID, cancel)
	go func() {
		defer cancel()
		defer s.jobManager.clearCancel(job.ID)
		runJob(ctx, s.jobManager, s.reportStore, job.ID)
	}()

	writeJSON(w, http.StatusCreated, job)
}

// handleListJobs handles GET /api/v1/jobs
func (s *Server) handleListJobs(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.jobManager.ListJobs())
}

// handleGetJobStatus handles GET /api/v1/jobs/:id/status
func (s *Server) handleGetJobStatus(w http.ResponseWriter, r *http.Request, jobID string) {
	job, exists := s.jobManager.GetJob(jobID)
	if !exists {
		http.Error(w, "Job not found", http.StatusNotFound)
		return
	}

	response := map[string]any{
		"id":         job.ID,
		"state":      job.State,
		"config":     job.Config,
		"profile":    job.Profile,
		"total":      job.Total,
		"processed":  job.Processed,
		"passed":     job.Passed,
		"overflowed": job.Overflowed,
		"elapsed":    jobElapsed(job).Seconds(),
		"rate":       jobRate(job),
		"startTime":  job.StartTime,
		"endTime":    job.EndTime,
		"error":      job.Error,
	}

	writeJSON(w, http.StatusOK, response)
}

// handleGetHits handles GET /api/v1/jobs/:id/hits[?pass=true]
func (s *Server) handleGetHits(w http.ResponseWriter, r *http.Request, jobID string) {
	job, exists := s.jobManager.GetJob(jobID)
	if !exists {
		http.Error(w, "Job not found", http.StatusNotFound)
		return
	}
	if job.State != StateCompleted {
		http.Error(w, fmt.Sprintf("Job is %s", job.State), http.StatusConflict)
		return
	}

	passOnly := false
	if v := r.URL.Query().Get("pass"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			http.Error(w, fmt.Sprintf("Invalid pass parameter: %v", err), http.StatusBadRequest)
			return
		}
		passOnly = b
	}

	var hits []scan.Hit
	if s.reportStore != nil {
		var err error
		hits, err = store.ReadHits(s.reportStore.BaseDir(), jobID, passOnly)
		if err != nil {
			status := http.StatusInternalServerError
			if errors.Is(err, store.ErrNotFound) {
				status = http.StatusNotFound
			}
			http.Error(w, fmt.Sprintf("Failed to read hits: %v", err), status)
			return
		}
	} else if rep := s.jobManager.report(jobID); rep != nil {
		for _, h := range rep.Hits {
			if !passOnly || h.Pass {
				hits = append(hits, h)
			}
		}
	}
	if hits == nil {
		hits = []scan.Hit{}
	}

	writeJSON(w, http.StatusOK, hits)
}

// handleCancelJob handles POST /api/v1/jobs/:id/cancel
func (s *Server) handleCancelJob(w http.ResponseWriter, r *http.Request, jobID string) {
	err := s.jobManager.CancelJob(jobID)
	switch {
	case errors.Is(err, ErrJobFinished):
		http.Error(w, err.Error(), http.StatusConflict)
		return
	case err != nil:
		http.Error(w, "Job not found", http.StatusNotFound)
		return
	}

	slog.Info("Job cancellation requested", "job_id", jobID)
	writeJSON(w, http.StatusAccepted, map[string]string{"id": jobID, "status": "cancelling"})
}

// corsMiddleware adds CORS headers
func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// loggingMiddleware logs HTTP requests
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		slog.Debug("HTTP request", "method", r.Method, "path", r.URL.Path, "duration", time.Since(start))
	})
}
