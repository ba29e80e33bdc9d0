// SPDX-FileCopyrightText: 2025 The Grantwise Authors
//
// SPDX-License-Identifier: Apache-2.0

package storage

import (
	"context"

	"github.com/hibiken/asynq"

	"github.com/grantwise-io/grantwise/pkg/retention"
)

// TaskResults implements the [retention.TaskResultStore] capability on top
// of [asynq.Inspector].
type TaskResults struct {
	inspector *asynq.Inspector
}

var _ retention.TaskResultStore = &TaskResults{}

// NewTaskResults creates a new [TaskResults] using the given inspector.
func NewTaskResults(inspector *asynq.Inspector) *TaskResults {
	return &TaskResults{inspector: inspector}
}

// Queues implements the [retention.TaskResultStore] interface.
func (t *TaskResults) Queues(_ context.Context) ([]string, error) {
	return t.inspector.Queues()
}

// ListCompleted implements the [retention.TaskResultStore] interface.
func (t *TaskResults) ListCompleted(_ context.Context, queue string, page, pageSize int) ([]retention.TaskResult, error) {
	items, err := t.inspector.ListCompletedTasks(queue, asynq.Page(page), asynq.PageSize(pageSize))
	if err != nil {
		return nil, err
	}

	results := make([]retention.TaskResult, 0, len(items))
	for _, item := range items {
		results = append(results, retention.TaskResult{
			ID:          item.ID,
			Queue:       item.Queue,
			CompletedAt: item.CompletedAt,
		})
	}

	return results, nil
}

// Delete implements the [retention.TaskResultStore] interface.
func (t *TaskResults) Delete(_ context.Context, queue, id string) error {
	return t.inspector.DeleteTask(queue, id)
}
