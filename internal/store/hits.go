package store

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/cwbudde/mspfilter/internal/scan"
)

// HitWriter appends scan hits to <baseDir>/jobs/<jobID>/hits.jsonl, one
// JSON object per line. It is safe for concurrent use.
type HitWriter struct {
	mu     sync.Mutex
	file   *os.File
	writer *bufio.Writer
	path   string
	count  int
}

// NewHitWriter creates (or truncates) the hits file for a job.
func NewHitWriter(baseDir, jobID string) (*HitWriter, error) {
	jobDir := filepath.Join(baseDir, "jobs", jobID)
	if err := os.MkdirAll(jobDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create job directory: %w", err)
	}

	path := filepath.Join(jobDir, "hits.jsonl")
	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open hits file: %w", err)
	}

	return &HitWriter{
		file:   file,
		writer: bufio.NewWriterSize(file, 64*1024),
		path:   path,
	}, nil
}

// Write buffers one hit; it reaches disk on Flush or Close.
func (hw *HitWriter) Write(hit scan.Hit) error {
	hw.mu.Lock()
	defer hw.mu.Unlock()

	data, err := json.Marshal(hit)
	if err != nil {
		return fmt.Errorf("failed to marshal hit: %w", err)
	}
	if _, err := hw.writer.Write(data); err != nil {
		return fmt.Errorf("failed to write hit: %w", err)
	}
	if err := hw.writer.WriteByte('\n'); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}
	hw.count++
	return nil
}

// Count returns the number of hits written.
func (hw *HitWriter) Count() int {
	hw.mu.Lock()
	defer hw.mu.Unlock()
	return hw.count
}

// Flush writes buffered hits and syncs the file.
func (hw *HitWriter) Flush() error {
	hw.mu.Lock()
	defer hw.mu.Unlock()

	if err := hw.writer.Flush(); err != nil {
		return fmt.Errorf("failed to flush hits: %w", err)
	}
	if err := hw.file.Sync(); err != nil {
		return fmt.Errorf("failed to sync hits file: %w", err)
	}
	return nil
}

// Close flushes and closes the hits file.
func (hw *HitWriter) Close() error {
	hw.mu.Lock()
	defer hw.mu.Unlock()

	if err := hw.writer.Flush(); err != nil {
		hw.file.Close()
		return fmt.Errorf("failed to flush on close: %w", err)
	}
	if err := hw.file.Close(); err != nil {
		return fmt.Errorf("failed to close hits file: %w", err)
	}
	return nil
}

// Path returns the filesystem path of the hits file.
func (hw *HitWriter) Path() string {
	return hw.path
}

// ReadHits reads all hits of a job, in the order they were written.
// If passOnly is set, hits below the threshold are left out.
func ReadHits(baseDir, jobID string, passOnly bool) ([]scan.Hit, error) {
	path := filepath.Join(baseDir, "jobs", jobID, "hits.jsonl")
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &NotFoundError{JobID: jobID}
		}
		return nil, fmt.Errorf("failed to open hits file: %w", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	hits := []scan.Hit{}
	line := 0
	for scanner.Scan() {
		line++
		var hit scan.Hit
		if err := json.Unmarshal(scanner.Bytes(), &hit); err != nil {
			return nil, fmt.Errorf("failed to unmarshal hit on line %d: %w", line, err)
		}
		if passOnly && !hit.Pass {
			continue
		}
		hits = append(hits, hit)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan hits file: %w", err)
	}
	return hits, nil
}
