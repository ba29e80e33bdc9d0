// SPDX-FileCopyrightText: 2025 The Grantwise Authors
//
// SPDX-License-Identifier: Apache-2.0

package tasks

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/grantwise-io/grantwise/pkg/clients"
	asynqclient "github.com/grantwise-io/grantwise/pkg/clients/asynq"
	"github.com/grantwise-io/grantwise/pkg/core/config"
	"github.com/grantwise-io/grantwise/pkg/core/models"
	"github.com/grantwise-io/grantwise/pkg/core/registry"
	"github.com/grantwise-io/grantwise/pkg/metrics"
	"github.com/grantwise-io/grantwise/pkg/retention"
	"github.com/grantwise-io/grantwise/pkg/storage"
	asynqutils "github.com/grantwise-io/grantwise/pkg/utils/asynq"
)

const (
	// RetentionRunTaskType is the name of the task responsible for
	// running the periodic cleanup of stale records.
	RetentionRunTaskType = "retention:task:run"
)

// RetentionRunPayload represents the payload of the retention run task.
type RetentionRunPayload struct {
	// Retention provides the retention configuration for the run.
	Retention config.RetentionConfig `yaml:"retention" json:"retention"`
}

// HandleRetentionRunTask runs a single cleanup of stale records across the
// backing stores. The run itself never fails; job errors are aggregated
// into the run report. Only an invalid payload or configuration yields a
// task error, and such errors are not retried.
func HandleRetentionRunTask(ctx context.Context, task *asynq.Task) error {
	var payload RetentionRunPayload
	if data := task.Payload(); len(data) > 0 {
		if err := asynqutils.Unmarshal(data, &payload); err != nil {
			return asynqutils.SkipRetry(err)
		}
	}

	logger := asynqutils.GetLogger(ctx)
	if _, err := Execute(ctx, payload.Retention, logger); err != nil {
		return asynqutils.SkipRetry(err)
	}

	return nil
}

// Execute builds the retention jobs from the given configuration and the
// global clients, then executes a single cleanup run. The returned error is
// non-nil only for configuration errors, which are reported before the run
// is started.
func Execute(ctx context.Context, conf config.RetentionConfig, logger *slog.Logger) (*retention.Run, error) {
	policy, err := conf.Policy(time.Now())
	if err != nil {
		return nil, err
	}

	dlqSuffix := conf.DLQSuffix
	if dlqSuffix == "" {
		dlqSuffix = retention.DefaultDLQSuffix
	}

	store := storage.NewStore(clients.DB)
	jobs := []retention.Job{
		&retention.RelationalPurgeJob{
			Store:  store,
			Policy: policy,
		},
		&retention.StreamRetentionJob{
			Trimmer: storage.NewRedisStreams(clients.Redis),
			Streams: retention.ExpandStreams(conf.Streams, dlqSuffix),
			MaxLen:  policy.StreamMaxLen,
		},
		&retention.CacheSweepJob{
			Cache:     storage.NewRedisKeySpace(clients.Redis),
			Prefix:    policy.CachePrefix,
			ScanCount: int64(policy.BatchSize),
		},
		&retention.TaskResultReaper{
			Store:    storage.NewTaskResults(asynqclient.Inspector),
			Policy:   policy,
			PageSize: policy.BatchSize,
		},
	}

	coordinator := &retention.Coordinator{
		Jobs:          jobs,
		SoftDeadline:  conf.SoftDeadline,
		HardDeadline:  conf.HardDeadline,
		Compactor:     store,
		CompactTables: conf.CompactTables,
		Logger:        logger,
	}

	run := coordinator.Execute(ctx)
	collectRunMetrics(run)
	saveRun(ctx, store, run, logger)

	return run, nil
}

// collectRunMetrics reports the per-job outcome of the given run.
func collectRunMetrics(run *retention.Run) {
	for _, res := range run.Jobs {
		metric := prometheus.MustNewConstMetric(
			removedRecordsDesc,
			prometheus.GaugeValue,
			float64(res.Removed),
			res.Name,
		)
		key := metrics.Key(RetentionRunTaskType, res.Name)
		metrics.DefaultCollector.AddMetric(key, metric)
	}
}

// saveRun persists the given run for audit. Persisting is best-effort and
// never affects the run outcome.
func saveRun(ctx context.Context, store *storage.Store, run *retention.Run, logger *slog.Logger) {
	jobs, err := json.Marshal(run.Jobs)
	if err != nil {
		logger.Error("failed to encode run report", "run_id", run.ID, "reason", err)

		return
	}

	record := &models.RetentionRun{
		RunID:       run.ID,
		Status:      string(run.Status),
		StartedAt:   run.StartedAt,
		CompletedAt: run.CompletedAt,
		Jobs:        jobs,
	}

	if err := store.SaveRun(ctx, record); err != nil {
		logger.Error("failed to persist run report", "run_id", run.ID, "reason", err)
	}
}

func init() {
	registry.TaskRegistry.MustRegister(RetentionRunTaskType, asynq.HandlerFunc(HandleRetentionRunTask))

	// Run the cleanup once daily during the low-traffic hours. The
	// schedule can be overridden via the scheduler configuration.
	registry.ScheduledTaskRegistry.MustRegister(
		"0 3 * * *",
		asynq.NewTask(RetentionRunTaskType, nil),
	)
}
