package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cwbudde/mspfilter/internal/profile"
	"github.com/cwbudde/mspfilter/internal/scan"
	"github.com/cwbudde/mspfilter/internal/seqio"
	"github.com/cwbudde/mspfilter/internal/store"
)

// runJob executes a scan job in the background.
// If reportStore is not nil, hits are streamed to hits.jsonl and the report
// summary is saved when the scan completes.
func runJob(ctx context.Context, jm *JobManager, reportStore *store.FSStore, jobID string) error {
	job, exists := jm.GetJob(jobID)
	if !exists {
		return fmt.Errorf("job not found: %s", jobID)
	}

	if err := jm.UpdateJob(jobID, func(j *Job) { j.State = StateRunning }); err != nil {
		return err
	}

	slog.Info("Starting job", "job_id", jobID, "profile", job.Config.ProfilePath, "sequences", job.Config.SeqPath)

	gm, err := profile.Load(job.Config.ProfilePath)
	if err != nil {
		markJobFailed(jm, jobID, err)
		return err
	}
	om, err := profile.Convert(gm)
	if err != nil {
		markJobFailed(jm, jobID, err)
		return err
	}
	records, err := seqio.ReadFile(job.Config.SeqPath)
	if err != nil {
		markJobFailed(jm, jobID, err)
		return err
	}

	jm.UpdateJob(jobID, func(j *Job) {
		j.Profile = gm.Name
		j.Total = len(records)
	})
	slog.Info("Loaded scan inputs", "job_id", jobID, "profile", gm.Name, "m", gm.M, "targets", len(records))

	scanner := &scan.Scanner{
		Profile:     om,
		Generic:     gm,
		Workers:     job.Config.Workers,
		Threshold:   job.Config.Threshold,
		FixedLength: job.Config.FixedLength,
	}

	var hits *store.HitWriter
	if reportStore != nil {
		hits, err = store.NewHitWriter(reportStore.BaseDir(), jobID)
		if err != nil {
			markJobFailed(jm, jobID, err)
			return err
		}
		defer hits.Close()
		scanner.OnHit = hits.Write
	}

	progressDone := make(chan struct{})
	go monitorProgress(ctx, jm, jobID, progressDone)

	rep, err := scanner.Scan(ctx, records, func(done, _ int) {
		jm.UpdateJob(jobID, func(j *Job) { j.Processed = done })
	})
	close(progressDone)

	if errors.Is(err, context.Canceled) || ctx.Err() != nil {
		markJobCancelled(jm, jobID)
		return ctx.Err()
	}
	if err != nil {
		markJobFailed(jm, jobID, err)
		return err
	}

	if reportStore != nil {
		if err := hits.Flush(); err != nil {
			markJobFailed(jm, jobID, err)
			return err
		}
		if err := reportStore.SaveReport(jobID, store.NewReport(jobID, job.Config, rep)); err != nil {
			markJobFailed(jm, jobID, err)
			return err
		}
	}

	endTime := time.Now()
	var final *Job
	jm.UpdateJob(jobID, func(j *Job) {
		j.State = StateCompleted
		j.Processed = rep.Total
		j.Passed = rep.Passed
		j.Overflowed = rep.Overflowed
		j.EndTime = &endTime
		j.report = rep
		snapshot := *j
		final = &snapshot
	})

	slog.Info("Job completed",
		"job_id", jobID,
		"elapsed", rep.Elapsed,
		"targets", rep.Total,
		"passed", rep.Passed,
		"overflowed", rep.Overflowed,
		"backend", rep.Backend,
	)

	jm.broadcaster.Broadcast(eventFor(final))
	return nil
}

// monitorProgress periodically broadcasts progress events during a scan
func monitorProgress(ctx context.Context, jm *JobManager, jobID string, done chan struct{}) {
	ticker := time.NewTicker(500 * time.Millisecond) // Throttle to 2 updates per second
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			job, exists := jm.GetJob(jobID)
			if !exists {
				return
			}
			jm.broadcaster.Broadcast(eventFor(job))
		}
	}
}

// markJobFailed marks a job as failed with an error message
func markJobFailed(jm *JobManager, jobID string, err error) {
	endTime := time.Now()
	var final *Job
	jm.UpdateJob(jobID, func(j *Job) {
		j.State = StateFailed
		j.Error = err.Error()
		j.EndTime = &endTime
		snapshot := *j
		final = &snapshot
	})
	if final != nil {
		jm.broadcaster.Broadcast(eventFor(final))
	}
	slog.Error("Job failed", "job_id", jobID, "error", err)
}

// markJobCancelled marks a job as cancelled
func markJobCancelled(jm *JobManager, jobID string) {
	endTime := time.Now()
	var final *Job
	jm.UpdateJob(jobID, func(j *Job) {
		j.State = StateCancelled
		j.EndTime = &endTime
		snapshot := *j
		final = &snapshot
	})
	if final != nil {
		jm.broadcaster.Broadcast(eventFor(final))
	}
	slog.Info("Job cancelled", "job_id", jobID)
}
