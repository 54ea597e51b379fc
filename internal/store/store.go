package store

// Store defines the interface for scan report persistence.
// Implementations must be safe for concurrent use.
//
// Error handling conventions:
//   - Return nil error on success
//   - Return ErrNotFound if the report doesn't exist (for Load/Delete)
//   - Wrap underlying errors with context using fmt.Errorf("context: %w", err)
type Store interface {
	// SaveReport atomically saves the report summary for a job,
	// overwriting any previous one.
	SaveReport(jobID string, report *Report) error

	// LoadReport retrieves the report for a job.
	// Returns ErrNotFound if no report exists for this jobID.
	LoadReport(jobID string) (*Report, error)

	// ListReports returns metadata for all stored reports.
	ListReports() ([]ReportInfo, error)

	// DeleteReport removes the report and all job artifacts
	// (report.json, hits.jsonl).
	// Returns ErrNotFound if the job directory doesn't exist.
	DeleteReport(jobID string) error
}

// ErrNotFound is returned when a requested report does not exist.
// Use errors.Is(err, ErrNotFound) to check for this error.
var ErrNotFound = &NotFoundError{}

// NotFoundError represents a missing report.
type NotFoundError struct {
	JobID string
}

func (e *NotFoundError) Error() string {
	if e.JobID != "" {
		return "report not found: " + e.JobID
	}
	return "report not found"
}

func (e *NotFoundError) Is(target error) bool {
	_, ok := target.(*NotFoundError)
	return ok
}
