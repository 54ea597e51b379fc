package store

import (
	"time"

	"github.com/cwbudde/mspfilter/internal/scan"
)

// JobConfig holds the configuration of a scan job (stored copy).
// This avoids import cycles with server package.
type JobConfig struct {
	ProfilePath string  `json:"profilePath"`
	SeqPath     string  `json:"seqPath"`
	Workers     int     `json:"workers,omitempty"`
	Threshold   float32 `json:"threshold"`
	FixedLength bool    `json:"fixedLength,omitempty"`
}

// Report is the stored summary of a finished scan. Per-target hits are kept
// separately in hits.jsonl so listing stays cheap.
type Report struct {
	JobID      string        `json:"jobId"`
	Config     JobConfig     `json:"config"`
	Profile    string        `json:"profile"`
	Backend    string        `json:"backend"`
	Total      int           `json:"total"`
	Passed     int           `json:"passed"`
	Overflowed int           `json:"overflowed"`
	Elapsed    time.Duration `json:"elapsed"`
	Timestamp  time.Time     `json:"timestamp"`
}

// ReportInfo is the listing view of a report.
type ReportInfo struct {
	JobID     string    `json:"jobId"`
	Profile   string    `json:"profile"`
	SeqPath   string    `json:"seqPath"`
	Total     int       `json:"total"`
	Passed    int       `json:"passed"`
	Timestamp time.Time `json:"timestamp"`
}

// NewReport summarizes a scan result for storage.
func NewReport(jobID string, config JobConfig, rep *scan.Report) *Report {
	return &Report{
		JobID:      jobID,
		Config:     config,
		Profile:    rep.Profile,
		Backend:    rep.Backend,
		Total:      rep.Total,
		Passed:     rep.Passed,
		Overflowed: rep.Overflowed,
		Elapsed:    rep.Elapsed,
		Timestamp:  time.Now(),
	}
}

// ToInfo converts a Report to its listing view.
func (r *Report) ToInfo() ReportInfo {
	return ReportInfo{
		JobID:     r.JobID,
		Profile:   r.Profile,
		SeqPath:   r.Config.SeqPath,
		Total:     r.Total,
		Passed:    r.Passed,
		Timestamp: r.Timestamp,
	}
}

// Validate checks if the report has valid data.
func (r *Report) Validate() error {
	if r.JobID == "" {
		return &ValidationError{Field: "JobID", Reason: "cannot be empty"}
	}
	if r.Config.ProfilePath == "" {
		return &ValidationError{Field: "Config.ProfilePath", Reason: "cannot be empty"}
	}
	if r.Config.SeqPath == "" {
		return &ValidationError{Field: "Config.SeqPath", Reason: "cannot be empty"}
	}
	if r.Total < 0 {
		return &ValidationError{Field: "Total", Reason: "cannot be negative"}
	}
	if r.Passed < 0 || r.Passed > r.Total {
		return &ValidationError{Field: "Passed", Reason: "must be between 0 and Total"}
	}
	if r.Overflowed < 0 || r.Overflowed > r.Total {
		return &ValidationError{Field: "Overflowed", Reason: "must be between 0 and Total"}
	}
	if r.Timestamp.IsZero() {
		return &ValidationError{Field: "Timestamp", Reason: "cannot be zero"}
	}
	return nil
}

// ValidationError represents a report validation error.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return "validation error: " + e.Field + " " + e.Reason
}
