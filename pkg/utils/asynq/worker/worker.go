// SPDX-FileCopyrightText: 2025 The Grantwise Authors
//
// SPDX-License-Identifier: Apache-2.0

package worker

import (
	"runtime"

	"github.com/hibiken/asynq"

	"github.com/grantwise-io/grantwise/pkg/core/config"
)

// Option is a function, which configures the [Worker].
type Option func(conf *asynq.Config)

// Worker wraps an [asynq.Server] and [asynq.ServeMux] with additional
// convenience methods for task handlers.
type Worker struct {
	server *asynq.Server
	mux    *asynq.ServeMux
}

// WithLogLevel is an [Option], which configures the log level of the [Worker].
func WithLogLevel(level asynq.LogLevel) Option {
	opt := func(conf *asynq.Config) {
		conf.LogLevel = level
	}

	return opt
}

// WithErrorHandler is an [Option], which configures the [Worker] to use the
// specified [asynq.ErrorHandler].
func WithErrorHandler(handler asynq.ErrorHandler) Option {
	opt := func(conf *asynq.Config) {
		conf.ErrorHandler = handler
	}

	return opt
}

// NewFromConfig creates a new [Worker] based on the provided
// [config.WorkerConfig] spec.
func NewFromConfig(r asynq.RedisClientOpt, conf config.WorkerConfig, opts ...Option) *Worker {
	concurrency := conf.Concurrency
	if concurrency <= 0 {
		concurrency = runtime.NumCPU()
	}

	defaultQueues := map[string]int{
		config.DefaultQueueName: 1,
	}

	queues := conf.Queues
	if len(queues) == 0 {
		queues = defaultQueues
	}

	cfg := asynq.Config{
		Concurrency:    concurrency,
		Queues:         queues,
		StrictPriority: conf.StrictPriority,
	}

	for _, opt := range opts {
		opt(&cfg)
	}

	server := asynq.NewServer(r, cfg)
	mux := asynq.NewServeMux()
	worker := &Worker{
		server: server,
		mux:    mux,
	}

	return worker
}

// Handle registers the given handler for the given task type.
func (w *Worker) Handle(name string, handler asynq.Handler) {
	w.mux.Handle(name, handler)
}

// UseMiddlewares registers the given middlewares with the worker.
func (w *Worker) UseMiddlewares(middlewares ...asynq.MiddlewareFunc) {
	w.mux.Use(middlewares...)
}

// Run starts the worker and blocks until a shutdown signal is received.
func (w *Worker) Run() error {
	return w.server.Run(w.mux)
}
