package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"
)

// writeJSON encodes v as the response body.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

// jobElapsed returns the run time so far, or the total for finished jobs.
func jobElapsed(job *Job) time.Duration {
	if job.EndTime != nil {
		return job.EndTime.Sub(job.StartTime)
	}
	return time.Since(job.StartTime)
}

// jobRate returns scanned targets per second.
func jobRate(job *Job) float64 {
	elapsed := jobElapsed(job).Seconds()
	if elapsed <= 0 {
		return 0
	}
	return float64(job.Processed) / elapsed
}
