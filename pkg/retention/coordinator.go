// SPDX-FileCopyrightText: 2025 The Grantwise Authors
//
// SPDX-License-Identifier: Apache-2.0

package retention

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Job is a single unit of retention work. Jobs record their outcome in the
// returned [JobResult] and never propagate errors to the caller. Jobs are
// expected to observe context cancellation between batch-sized units of work
// and return their best partial result.
type Job interface {
	// Name returns the name of the job.
	Name() string

	// Run executes the job.
	Run(ctx context.Context) JobResult
}

// Compactor is the capability used for the best-effort maintenance pass over
// the relational tables touched by a purge.
type Compactor interface {
	// Compact runs a compaction pass over the given tables.
	Compact(ctx context.Context, tables []string) error
}

// Coordinator sequences the retention jobs of a single cleanup run. It
// enforces the soft and hard deadlines, aggregates the run report and
// triggers storage compaction after the relational purge.
//
// The caller is expected to guarantee at most one concurrent run
// system-wide. The Coordinator does not lock.
type Coordinator struct {
	// Jobs are the retention jobs, executed in the given order. The
	// order carries no semantics, the jobs touch disjoint resources, but
	// a fixed order keeps the logs reproducible.
	Jobs []Job

	// SoftDeadline is the duration after run start past which no new job
	// is started.
	SoftDeadline time.Duration

	// HardDeadline is the duration after run start past which the
	// in-flight job is cancelled.
	HardDeadline time.Duration

	// Compactor, if set, is invoked best-effort after the relational
	// purge job, regardless of its error state. Compaction failures are
	// logged and never change the run status.
	Compactor Compactor

	// CompactTables are the tables eligible for compaction.
	CompactTables []string

	// Logger is the logger used by the coordinator. Defaults to
	// [slog.Default].
	Logger *slog.Logger

	// Now returns the current time. Defaults to [time.Now].
	Now func() time.Time
}

func (c *Coordinator) now() time.Time {
	if c.Now != nil {
		return c.Now()
	}

	return time.Now()
}

func (c *Coordinator) logger() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}

	return slog.Default()
}

// Execute performs a single cleanup run. It never returns an error or
// panics; the returned [Run] is always terminal and carries the outcome of
// every attempted job. Invoking Execute again with no intervening writes
// removes nothing on the second run.
func (c *Coordinator) Execute(ctx context.Context) *Run {
	softDeadline := c.SoftDeadline
	if softDeadline <= 0 {
		softDeadline = DefaultSoftDeadline
	}
	hardDeadline := c.HardDeadline
	if hardDeadline <= 0 {
		hardDeadline = DefaultHardDeadline
	}

	start := c.now()
	run := &Run{
		ID:           uuid.NewString(),
		StartedAt:    start,
		SoftDeadline: start.Add(softDeadline),
		HardDeadline: start.Add(hardDeadline),
		Status:       StatusRunning,
	}

	logger := c.logger().With("run_id", run.ID)
	logger.Info(
		"starting cleanup run",
		"jobs", len(c.Jobs),
		"soft_deadline", run.SoftDeadline,
		"hard_deadline", run.HardDeadline,
	)

	ctx, cancel := context.WithDeadline(ctx, run.HardDeadline)
	defer cancel()

	for _, job := range c.Jobs {
		if ctx.Err() != nil || c.now().After(run.SoftDeadline) {
			logger.Warn("skipping job, deadline elapsed", "job", job.Name())
			run.Skip(job.Name())

			continue
		}

		res := c.runJob(ctx, logger, job)
		run.Record(res)

		if job.Name() == RelationalPurgeJobName {
			c.compact(ctx, logger)
		}
	}

	run.CompletedAt = c.now()
	switch {
	case ctx.Err() != nil:
		run.Status = StatusTimedOut
	case run.Failed() > 0 || len(run.Skipped) > 0:
		run.Status = StatusPartialFailure
	default:
		run.Status = StatusSuccess
	}

	logger.Info(
		"cleanup run finished",
		"status", run.Status,
		"removed", run.Removed(),
		"failed", run.Failed(),
		"skipped", len(run.Skipped),
		"duration", run.CompletedAt.Sub(run.StartedAt),
	)

	return run
}

// runJob executes a single job, converting panics into job errors, so that a
// misbehaving job cannot take down the run.
func (c *Coordinator) runJob(ctx context.Context, logger *slog.Logger, job Job) (res JobResult) {
	defer func() {
		if v := recover(); v != nil {
			res = JobResult{
				Name: job.Name(),
				Err:  fmt.Errorf("job panicked: %v", v),
			}
		}
	}()

	logger.Info("starting job", "job", job.Name())
	res = job.Run(ctx)
	if res.Err != nil {
		logger.Error(
			"job failed",
			"job", res.Name,
			"processed", res.Processed,
			"removed", res.Removed,
			"reason", res.Err,
		)

		return res
	}

	logger.Info(
		"job finished",
		"job", res.Name,
		"processed", res.Processed,
		"removed", res.Removed,
		"duration", res.Duration,
	)

	return res
}

func (c *Coordinator) compact(ctx context.Context, logger *slog.Logger) {
	if c.Compactor == nil || len(c.CompactTables) == 0 {
		return
	}

	if err := c.Compactor.Compact(ctx, c.CompactTables); err != nil {
		logger.Warn("compaction failed", "tables", c.CompactTables, "reason", err)

		return
	}

	logger.Info("compacted tables", "tables", c.CompactTables)
}
