package server

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestJobManager_CreateJob(t *testing.T) {
	jm := NewJobManager()

	config := JobConfig{
		ProfilePath: "model.yaml",
		SeqPath:     "targets.fa",
		Workers:     2,
		Threshold:   1.5,
	}

	job := jm.CreateJob(config)

	if job.ID == "" {
		t.Error("Job ID should not be empty")
	}

	if job.State != StatePending {
		t.Errorf("Initial state should be pending, got %s", job.State)
	}

	if job.Config.ProfilePath != "model.yaml" || job.Config.Threshold != 1.5 {
		t.Errorf("Config not set correctly")
	}
}

func TestJobManager_GetJob(t *testing.T) {
	jm := NewJobManager()

	job := jm.CreateJob(JobConfig{ProfilePath: "model.yaml"})

	retrieved, exists := jm.GetJob(job.ID)
	if !exists {
		t.Fatal("Job should exist")
	}

	if retrieved.ID != job.ID {
		t.Error("Retrieved wrong job")
	}

	// Snapshots must not alias the stored job
	retrieved.State = StateFailed
	again, _ := jm.GetJob(job.ID)
	if again.State != StatePending {
		t.Errorf("Mutating a snapshot changed the job state to %s", again.State)
	}

	_, exists = jm.GetJob("nonexistent")
	if exists {
		t.Error("Should not find nonexistent job")
	}
}

func TestJobManager_ListJobs(t *testing.T) {
	jm := NewJobManager()

	if len(jm.ListJobs()) != 0 {
		t.Error("Should start with no jobs")
	}

	first := jm.CreateJob(JobConfig{ProfilePath: "a.yaml"})
	jm.UpdateJob(first.ID, func(j *Job) { j.StartTime = time.Now().Add(-time.Minute) })
	jm.CreateJob(JobConfig{ProfilePath: "b.yaml"})

	jobs := jm.ListJobs()
	if len(jobs) != 2 {
		t.Fatalf("Expected 2 jobs, got %d", len(jobs))
	}
	if jobs[0].ID != first.ID {
		t.Error("Jobs should be listed oldest first")
	}
}

func TestJobManager_UpdateJob(t *testing.T) {
	jm := NewJobManager()

	job := jm.CreateJob(JobConfig{ProfilePath: "model.yaml"})

	err := jm.UpdateJob(job.ID, func(j *Job) {
		j.State = StateRunning
		j.Total = 100
		j.Processed = 10
	})

	if err != nil {
		t.Errorf("Update should succeed: %v", err)
	}

	updated, _ := jm.GetJob(job.ID)
	if updated.State != StateRunning {
		t.Error("State should be updated")
	}
	if updated.Processed != 10 || updated.Total != 100 {
		t.Error("Progress should be updated")
	}

	err = jm.UpdateJob("nonexistent", func(j *Job) {})
	if err == nil {
		t.Error("Update of nonexistent job should fail")
	}
}

func TestJobManager_GetRunningJobs(t *testing.T) {
	jm := NewJobManager()

	running := jm.CreateJob(JobConfig{ProfilePath: "a.yaml"})
	jm.CreateJob(JobConfig{ProfilePath: "b.yaml"})
	jm.UpdateJob(running.ID, func(j *Job) { j.State = StateRunning })

	jobs := jm.GetRunningJobs()
	if len(jobs) != 1 || jobs[0].ID != running.ID {
		t.Errorf("Expected only job %s running, got %d jobs", running.ID, len(jobs))
	}
}

func TestJobManager_GetActiveJobs(t *testing.T) {
	jm := NewJobManager()

	pending := jm.CreateJob(JobConfig{ProfilePath: "a.yaml"})
	running := jm.CreateJob(JobConfig{ProfilePath: "b.yaml"})
	done := jm.CreateJob(JobConfig{ProfilePath: "c.yaml"})
	jm.UpdateJob(running.ID, func(j *Job) { j.State = StateRunning })
	jm.UpdateJob(done.ID, func(j *Job) { j.State = StateCompleted })

	ids := make(map[string]bool)
	for _, job := range jm.GetActiveJobs() {
		ids[job.ID] = true
	}
	if len(ids) != 2 || !ids[pending.ID] || !ids[running.ID] {
		t.Errorf("Expected pending and running jobs to be active, got %v", ids)
	}
}

func TestJobManager_CancelJob(t *testing.T) {
	jm := NewJobManager()
	job := jm.CreateJob(JobConfig{ProfilePath: "model.yaml"})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	jm.setCancel(job.ID, cancel)

	if err := jm.CancelJob(job.ID); err != nil {
		t.Fatalf("CancelJob failed: %v", err)
	}
	select {
	case <-ctx.Done():
	default:
		t.Error("CancelJob should cancel the job context")
	}

	jm.UpdateJob(job.ID, func(j *Job) { j.State = StateCancelled })
	if err := jm.CancelJob(job.ID); !errors.Is(err, ErrJobFinished) {
		t.Errorf("Cancelling a finished job: got %v, want ErrJobFinished", err)
	}

	if err := jm.CancelJob("nonexistent"); err == nil {
		t.Error("Cancelling a nonexistent job should fail")
	}
}

func TestJobState_Terminal(t *testing.T) {
	tests := []struct {
		state JobState
		want  bool
	}{
		{StatePending, false},
		{StateRunning, false},
		{StateCompleted, true},
		{StateFailed, true},
		{StateCancelled, true},
	}
	for _, tt := range tests {
		if got := tt.state.Terminal(); got != tt.want {
			t.Errorf("%s.Terminal() = %v, want %v", tt.state, got, tt.want)
		}
	}
}

func TestJobManager_ThreadSafety(t *testing.T) {
	jm := NewJobManager()

	job := jm.CreateJob(JobConfig{ProfilePath: "model.yaml"})

	// Simulate concurrent updates and reads
	done := make(chan bool)
	for i := 0; i < 10; i++ {
		go func(iteration int) {
			jm.UpdateJob(job.ID, func(j *Job) {
				j.Processed = iteration
				time.Sleep(1 * time.Millisecond)
			})
			jm.GetJob(job.ID)
			jm.ListJobs()
			done <- true
		}(i)
	}

	for i := 0; i < 10; i++ {
		<-done
	}

	_, exists := jm.GetJob(job.ID)
	if !exists {
		t.Error("Job should still exist after concurrent updates")
	}
}
