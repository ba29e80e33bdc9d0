// SPDX-FileCopyrightText: 2025 The Grantwise Authors
//
// SPDX-License-Identifier: Apache-2.0

package retention

import (
	"encoding/json"
	"time"
)

// Status represents the overall status of a cleanup run.
type Status string

const (
	// StatusPending means the run has been created, but no job was
	// started yet.
	StatusPending Status = "pending"

	// StatusRunning means the run is currently executing jobs.
	StatusRunning Status = "running"

	// StatusSuccess means every attempted job completed without errors
	// and no job was skipped.
	StatusSuccess Status = "success"

	// StatusPartialFailure means at least one attempted job reported an
	// error, or a job was skipped because the soft deadline elapsed.
	StatusPartialFailure Status = "partial_failure"

	// StatusTimedOut means the hard deadline forced early termination of
	// the run.
	StatusTimedOut Status = "timed_out"
)

// JobResult represents the outcome of a single retention job within a run.
// A JobResult is finalized exactly once, when the job returns or observes
// cancellation.
type JobResult struct {
	// Name is the name of the job.
	Name string

	// Processed is the number of items the job examined.
	Processed int64

	// Removed is the number of items the job removed or archived.
	Removed int64

	// Duration is the wall-clock duration of the job.
	Duration time.Duration

	// Err records the error of the job, if any. Errors never propagate
	// past the job boundary.
	Err error
}

// MarshalJSON implements the [json.Marshaler] interface.
func (r JobResult) MarshalJSON() ([]byte, error) {
	var errMsg *string
	if r.Err != nil {
		s := r.Err.Error()
		errMsg = &s
	}

	out := struct {
		Name       string  `json:"name"`
		Processed  int64   `json:"processed"`
		Removed    int64   `json:"removed"`
		DurationMs int64   `json:"duration_ms"`
		Error      *string `json:"error"`
	}{
		Name:       r.Name,
		Processed:  r.Processed,
		Removed:    r.Removed,
		DurationMs: r.Duration.Milliseconds(),
		Error:      errMsg,
	}

	return json.Marshal(out)
}

// Run represents a single cleanup run. It accumulates the per-job outcomes
// and becomes terminal once all jobs have been attempted, or the hard
// deadline fired.
type Run struct {
	// ID is the unique id of the run.
	ID string `json:"id"`

	// StartedAt is the time at which the run started. It also serves as
	// the reference time for all retention cutoffs within the run.
	StartedAt time.Time `json:"started_at"`

	// CompletedAt is the time at which the run became terminal.
	CompletedAt time.Time `json:"completed_at"`

	// SoftDeadline is the point in time past which no new job is started.
	SoftDeadline time.Time `json:"-"`

	// HardDeadline is the point in time past which in-flight jobs are
	// cancelled.
	HardDeadline time.Time `json:"-"`

	// Status is the overall status of the run.
	Status Status `json:"status"`

	// Jobs contains the results of all attempted jobs, in execution
	// order.
	Jobs []JobResult `json:"jobs"`

	// Skipped contains the names of jobs which were never started,
	// either because the soft deadline elapsed, or because the run was
	// cancelled.
	Skipped []string `json:"skipped,omitempty"`
}

// Record appends the given job result to the run.
func (r *Run) Record(res JobResult) {
	r.Jobs = append(r.Jobs, res)
}

// Skip records the given job as skipped.
func (r *Run) Skip(name string) {
	r.Skipped = append(r.Skipped, name)
}

// Failed returns the number of attempted jobs which reported an error.
func (r *Run) Failed() int {
	var count int
	for _, res := range r.Jobs {
		if res.Err != nil {
			count++
		}
	}

	return count
}

// Removed returns the total number of items removed or archived by all
// attempted jobs.
func (r *Run) Removed() int64 {
	var total int64
	for _, res := range r.Jobs {
		total += res.Removed
	}

	return total
}
