// SPDX-FileCopyrightText: 2025 The Grantwise Authors
//
// SPDX-License-Identifier: Apache-2.0

package retention

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// TaskResult represents a completed async task result.
type TaskResult struct {
	// ID is the task id.
	ID string

	// Queue is the queue in which the task completed.
	Queue string

	// CompletedAt is the time at which the task completed.
	CompletedAt time.Time
}

// TaskResultStore is the capability consumed by the [TaskResultReaper]. The
// page-based listing is the cursor discipline for walking the task-result
// namespace without materializing it.
type TaskResultStore interface {
	// Queues returns the names of the known task queues.
	Queues(ctx context.Context) ([]string, error)

	// ListCompleted returns the given page of completed task results for
	// the queue. Pages are 1-based. An empty page means the enumeration
	// is complete.
	ListCompleted(ctx context.Context, queue string, page, pageSize int) ([]TaskResult, error)

	// Delete removes the given task result.
	Delete(ctx context.Context, queue, id string) error
}

// TaskResultReaper removes completed task results older than the retention
// window. It applies the same incremental scan discipline as the cache
// sweep, against the async task-result store.
type TaskResultReaper struct {
	// Store is the task-result store capability.
	Store TaskResultStore

	// Policy provides the retention window. The cutoff derives from the
	// policy reference time, fixed at run start.
	Policy Policy

	// PageSize is the number of task results fetched per page.
	PageSize int
}

var _ Job = &TaskResultReaper{}

// TaskResultReaperJobName is the name of the task-result reaper job.
const TaskResultReaperJobName = "task_result_reaper"

// Name implements the [Job] interface.
func (j *TaskResultReaper) Name() string {
	return TaskResultReaperJobName
}

// Run implements the [Job] interface.
func (j *TaskResultReaper) Run(ctx context.Context) JobResult {
	start := time.Now()
	res := JobResult{Name: j.Name()}

	pageSize := j.PageSize
	if pageSize <= 0 {
		pageSize = DefaultBatchSize
	}
	cutoff := j.Policy.TaskResultCutoff()

	queues, err := j.Store.Queues(ctx)
	if err != nil {
		res.Err = Classify(err)
		res.Duration = time.Since(start)

		return res
	}

	errs := make([]error, 0)

queues:
	for _, queue := range queues {
		// Pages are re-listed after a removal, so a surviving result can
		// show up more than once. Count each result once.
		seen := make(map[string]struct{})
		for page := 1; ; {
			if err := ctx.Err(); err != nil {
				errs = append(errs, Classify(err))

				break queues
			}

			items, err := j.Store.ListCompleted(ctx, queue, page, pageSize)
			if err != nil {
				// Keep going with the remaining queues.
				errs = append(errs, fmt.Errorf("%s: %w", queue, Classify(err)))

				continue queues
			}

			if len(items) == 0 {
				break
			}

			var removed int64
			for _, item := range items {
				if _, ok := seen[item.ID]; !ok {
					seen[item.ID] = struct{}{}
					res.Processed++
				}
				if !item.CompletedAt.Before(cutoff) {
					continue
				}

				if err := j.Store.Delete(ctx, queue, item.ID); err != nil {
					errs = append(errs, fmt.Errorf("%s: %s: %w", queue, item.ID, Classify(err)))

					continue
				}
				removed++
			}
			res.Removed += removed

			// Deleting shifts the remaining results towards the
			// current page, so only advance when this page removed
			// nothing.
			if removed == 0 {
				page++
			}
		}
	}

	res.Err = errors.Join(errs...)
	res.Duration = time.Since(start)

	return res
}
