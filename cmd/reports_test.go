package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/cwbudde/mspfilter/internal/store"
)

func testInfos(now time.Time) []store.ReportInfo {
	return []store.ReportInfo{
		{JobID: "job1", Timestamp: now.AddDate(0, 0, -10)}, // 10 days old
		{JobID: "job2", Timestamp: now.AddDate(0, 0, -5)},  // 5 days old
		{JobID: "job3", Timestamp: now.AddDate(0, 0, -1)},  // 1 day old
		{JobID: "job4", Timestamp: now.AddDate(0, 0, -30)}, // 30 days old
	}
}

func jobIDs(infos []store.ReportInfo) []string {
	ids := make([]string, len(infos))
	for i, info := range infos {
		ids[i] = info.JobID
	}
	return ids
}

func TestSelectReportsForDeletion(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name      string
		infos     []store.ReportInfo
		keepLast  int
		olderThan int
		want      []string
	}{
		{"by age", testInfos(now), 0, 7, []string{"job4", "job1"}},
		{"by count", testInfos(now), 2, 0, []string{"job4", "job1"}},
		{"keep more than exist", testInfos(now), 10, 0, nil},
		{"combined overlapping", append(testInfos(now), store.ReportInfo{JobID: "job5", Timestamp: now.AddDate(0, 0, -2)}), 3, 7, []string{"job4", "job1"}},
		{"combined count wins", testInfos(now), 1, 7, []string{"job4", "job1", "job2"}},
		{"nothing old enough", testInfos(now), 0, 60, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := jobIDs(selectReportsForDeletion(tt.infos, tt.keepLast, tt.olderThan, now))
			if len(got) != len(tt.want) {
				t.Fatalf("Expected %v, got %v", tt.want, got)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("Expected %v, got %v", tt.want, got)
					break
				}
			}
		})
	}
}

func TestGetDirSize(t *testing.T) {
	tmpDir := t.TempDir()

	testFile := filepath.Join(tmpDir, "test.txt")
	content := []byte("Hello, World!")
	if err := os.WriteFile(testFile, content, 0644); err != nil {
		t.Fatalf("Failed to create test file: %v", err)
	}

	size, err := getDirSize(tmpDir)
	if err != nil {
		t.Fatalf("getDirSize failed: %v", err)
	}

	if size < int64(len(content)) {
		t.Errorf("Expected size >= %d, got %d", len(content), size)
	}
}

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		bytes    int64
		expected string
	}{
		{0, "0 B"},
		{512, "512 B"},
		{1023, "1023 B"},
		{1024, "1.0 KB"},
		{1536, "1.5 KB"},
		{1048576, "1.0 MB"},
		{1073741824, "1.0 GB"},
	}

	for _, tt := range tests {
		result := formatBytes(tt.bytes)
		if result != tt.expected {
			t.Errorf("formatBytes(%d) = %s, expected %s", tt.bytes, result, tt.expected)
		}
	}
}

func TestShortID(t *testing.T) {
	if got := shortID("abc"); got != "abc" {
		t.Errorf("shortID(abc) = %s", got)
	}
	if got := shortID("0123456789abcdef"); got != "0123456789ab..." {
		t.Errorf("shortID truncation = %s", got)
	}
}

func saveTestReport(t *testing.T, st *store.FSStore, jobID string, ts time.Time) {
	t.Helper()
	rep := &store.Report{
		JobID:     jobID,
		Config:    store.JobConfig{ProfilePath: "model.yaml", SeqPath: "targets.fa"},
		Profile:   "model",
		Total:     10,
		Passed:    2,
		Timestamp: ts,
	}
	if err := st.SaveReport(jobID, rep); err != nil {
		t.Fatalf("Failed to save report: %v", err)
	}
}

func TestReportsListCommand_NoReports(t *testing.T) {
	originalDataDir := reportDataDir
	reportDataDir = t.TempDir()
	defer func() { reportDataDir = originalDataDir }()

	if err := runListReports(nil, nil); err != nil {
		t.Errorf("Expected no error, got %v", err)
	}
}

func TestReportsListCommand_WithReports(t *testing.T) {
	tmpDir := t.TempDir()

	reportStore, err := store.NewFSStore(tmpDir)
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	saveTestReport(t, reportStore, "test-job-id", time.Now())

	originalDataDir := reportDataDir
	reportDataDir = tmpDir
	defer func() { reportDataDir = originalDataDir }()

	if err := runListReports(nil, nil); err != nil {
		t.Errorf("Expected no error, got %v", err)
	}
}

func TestReportsCleanCommand_NoFlags(t *testing.T) {
	originalDataDir := reportDataDir
	reportDataDir = t.TempDir()
	defer func() { reportDataDir = originalDataDir }()

	keepLast = 0
	olderThanDays = 0

	if err := runCleanReports(nil, nil); err == nil {
		t.Error("Expected error when no flags specified")
	}
}

func TestReportsCleanCommand_WithForce(t *testing.T) {
	tmpDir := t.TempDir()

	reportStore, err := store.NewFSStore(tmpDir)
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	saveTestReport(t, reportStore, "old-job", time.Now().AddDate(0, 0, -30))
	saveTestReport(t, reportStore, "new-job", time.Now())

	originalDataDir := reportDataDir
	reportDataDir = tmpDir
	defer func() {
		reportDataDir = originalDataDir
		keepLast, olderThanDays, forceClean = 0, 0, false
	}()

	keepLast = 0
	olderThanDays = 7
	forceClean = true

	if err := runCleanReports(nil, nil); err != nil {
		t.Errorf("Expected no error, got %v", err)
	}

	if _, err := reportStore.LoadReport("old-job"); err == nil {
		t.Error("Expected old report to be deleted")
	}
	if _, err := reportStore.LoadReport("new-job"); err != nil {
		t.Errorf("Expected new report to be kept: %v", err)
	}
}
