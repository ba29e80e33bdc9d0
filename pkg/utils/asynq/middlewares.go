// SPDX-FileCopyrightText: 2025 The Grantwise Authors
//
// SPDX-License-Identifier: Apache-2.0

package asynq

import (
	"context"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/grantwise-io/grantwise/pkg/metrics"
)

// NewLoggerMiddleware returns a new [asynq.MiddlewareFunc], which embeds a
// [slog.Logger] in the context provided to task handlers.
func NewLoggerMiddleware(logger *slog.Logger) asynq.MiddlewareFunc {
	middleware := func(handler asynq.Handler) asynq.Handler {
		mw := func(ctx context.Context, task *asynq.Task) error {
			// Add the task id, queue and task name as default
			// attributes to each log event.
			attrs := make([]slog.Attr, 0)
			taskID, ok := asynq.GetTaskID(ctx)
			if ok {
				attrs = append(attrs, slog.String("task_id", taskID))
			}

			queueName, ok := asynq.GetQueueName(ctx)
			if ok {
				attrs = append(attrs, slog.String("task_queue", queueName))
			}

			taskName := task.Type()
			attrs = append(attrs, slog.String("task_name", taskName))
			logHandler := logger.Handler().WithAttrs(attrs)
			newCtx := WithLogger(ctx, slog.New(logHandler))

			return handler.ProcessTask(newCtx, task)
		}

		return asynq.HandlerFunc(mw)
	}

	return asynq.MiddlewareFunc(middleware)
}

// NewMeasuringMiddleware returns a new [asynq.MiddlewareFunc] which measures
// the execution of tasks.
func NewMeasuringMiddleware() asynq.MiddlewareFunc {
	middleware := func(handler asynq.Handler) asynq.Handler {
		mw := func(ctx context.Context, task *asynq.Task) error {
			logger := GetLogger(ctx)
			logger.Info("received task")
			start := time.Now()
			err := handler.ProcessTask(ctx, task)
			elapsed := time.Since(start)
			logger.Info("task finished", "duration", elapsed)

			return err
		}

		return asynq.HandlerFunc(mw)
	}

	return asynq.MiddlewareFunc(middleware)
}

// NewMetricsMiddleware returns a new [asynq.MiddlewareFunc] which provides
// metrics about task handlers.
func NewMetricsMiddleware() asynq.MiddlewareFunc {
	middleware := func(handler asynq.Handler) asynq.Handler {
		mw := func(ctx context.Context, task *asynq.Task) error {
			taskName := task.Type()
			queueName := GetQueueName(ctx)
			metrics.TaskExecutionTotal.WithLabelValues(taskName, queueName).Inc()

			err := handler.ProcessTask(ctx, task)
			if err != nil {
				metrics.TaskFailedTotal.WithLabelValues(taskName, queueName).Inc()
			}

			return err
		}

		return asynq.HandlerFunc(mw)
	}

	return asynq.MiddlewareFunc(middleware)
}
