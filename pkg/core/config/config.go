// SPDX-FileCopyrightText: 2025 The Grantwise Authors
//
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/grantwise-io/grantwise/pkg/retention"
)

// ErrNoConfigVersion error is returned when the configuration does not specify
// config format version.
var ErrNoConfigVersion = errors.New("config format version not specified")

// ErrUnsupportedVersion is an error, which is returned when the config file
// uses an incompatible version format.
var ErrUnsupportedVersion = errors.New("unsupported config format version")

// ConfigFormatVersion represents the supported config format version.
const ConfigFormatVersion = "v1alpha1"

// DefaultQueueName is the name of the default queue.
const DefaultQueueName = "default"

// Config represents the grantwise configuration.
type Config struct {
	// Version is the version of the config file.
	Version string `yaml:"version"`

	// Debug configures debug mode, if set to true.
	Debug bool `yaml:"debug"`

	// Logging represents the logging configuration.
	Logging LoggingConfig `yaml:"logging"`

	// Redis represents the Redis configuration
	Redis RedisConfig `yaml:"redis"`

	// Database represents the database configuration.
	Database DatabaseConfig `yaml:"database"`

	// Worker represents the worker configuration.
	Worker WorkerConfig `yaml:"worker"`

	// Scheduler represents the scheduler configuration.
	Scheduler SchedulerConfig `yaml:"scheduler"`

	// Metrics represents the metrics configuration.
	Metrics MetricsConfig `yaml:"metrics"`

	// Dashboard represents the dashboard configuration.
	Dashboard DashboardConfig `yaml:"dashboard"`

	// Retention represents the retention configuration.
	Retention RetentionConfig `yaml:"retention"`
}

// LoggingConfig provides logging specific configuration settings.
type LoggingConfig struct {
	// Level specifies the log level.
	Level string `yaml:"level"`

	// Format specifies the log format, either "text" or "json".
	Format string `yaml:"format"`

	// AddSource configures logging source code position of log
	// statements, if set to true.
	AddSource bool `yaml:"add_source"`

	// Attributes provides default attributes added to each log event.
	Attributes map[string]any `yaml:"attributes"`
}

// RedisConfig provides Redis specific configuration settings.
type RedisConfig struct {
	// Endpoint is the endpoint of the Redis service.
	Endpoint string `yaml:"endpoint"`
}

// DatabaseConfig provides database specific configuration settings.
type DatabaseConfig struct {
	// DSN is the Data Source Name to connect to.
	DSN string `yaml:"dsn"`

	// MigrationDirectory specifies an alternate location with migration
	// files.
	MigrationDirectory string `yaml:"migration_dir"`
}

// WorkerConfig provides worker specific configuration settings.
type WorkerConfig struct {
	// Concurrency specifies the concurrency level for workers.
	Concurrency int `yaml:"concurrency"`

	// Queues specifies the queues and their priorities, which workers
	// process tasks from.
	Queues map[string]int `yaml:"queues"`

	// StrictPriority configures strict queue priority, if set to true.
	StrictPriority bool `yaml:"strict_priority"`
}

// SchedulerConfig provides scheduler specific configuration settings.
type SchedulerConfig struct {
	// DefaultQueue is the queue periodic tasks are submitted to, unless
	// the job specifies one.
	DefaultQueue string `yaml:"default_queue"`

	// Jobs provides the periodic jobs to be scheduled.
	Jobs []PeriodicJobConfig `yaml:"jobs"`
}

// PeriodicJobConfig represents a single periodic job.
type PeriodicJobConfig struct {
	// Name is the name of the task to submit.
	Name string `yaml:"name"`

	// Spec is the cron spec of the job.
	Spec string `yaml:"spec"`

	// Desc is an optional description of the job.
	Desc string `yaml:"desc"`

	// Queue is the queue to submit the task to.
	Queue string `yaml:"queue"`

	// Payload is the payload of the task.
	Payload string `yaml:"payload"`
}

// MetricsConfig provides metrics specific configuration settings.
type MetricsConfig struct {
	// Address is the network address on which metrics are exposed.
	Address string `yaml:"address"`

	// Path is the HTTP path on which metrics are exposed.
	Path string `yaml:"path"`
}

// DashboardConfig provides dashboard specific configuration settings.
type DashboardConfig struct {
	// Address is the network address of the dashboard UI.
	Address string `yaml:"address"`

	// ReadOnly configures the dashboard in read-only mode.
	ReadOnly bool `yaml:"read_only"`

	// PrometheusEndpoint is the endpoint of a Prometheus instance used
	// by the dashboard for queue metrics.
	PrometheusEndpoint string `yaml:"prometheus_endpoint"`
}

// RetentionConfig provides the configuration of the periodic cleanup
// process. Zero values fall back to the package defaults of
// [github.com/grantwise-io/grantwise/pkg/retention].
type RetentionConfig struct {
	// GrantMaxAge is the retention window for grants past their
	// deadline.
	GrantMaxAge time.Duration `yaml:"grant_max_age" json:"grant_max_age"`

	// MatchMaxAge is the retention window for dismissed or unactioned
	// grant matches.
	MatchMaxAge time.Duration `yaml:"match_max_age" json:"match_max_age"`

	// AlertMaxAge is the retention window for alert delivery records.
	AlertMaxAge time.Duration `yaml:"alert_max_age" json:"alert_max_age"`

	// TaskResultMaxAge is the retention window for completed task
	// results.
	TaskResultMaxAge time.Duration `yaml:"task_result_max_age" json:"task_result_max_age"`

	// MatchAction specifies what happens with stale matches, either
	// "archive" or "delete".
	MatchAction string `yaml:"match_action" json:"match_action"`

	// BatchSize is the max number of records processed per batch.
	BatchSize int `yaml:"batch_size" json:"batch_size"`

	// SoftDeadline is the duration after run start past which no new
	// job is started.
	SoftDeadline time.Duration `yaml:"soft_deadline" json:"soft_deadline"`

	// HardDeadline is the duration after run start past which the
	// in-flight job is cancelled.
	HardDeadline time.Duration `yaml:"hard_deadline" json:"hard_deadline"`

	// Streams are the names of the event streams to trim. The
	// dead-letter twin of each stream is derived using DLQSuffix.
	Streams []string `yaml:"streams" json:"streams"`

	// DLQSuffix is the suffix of dead-letter streams.
	DLQSuffix string `yaml:"dlq_suffix" json:"dlq_suffix"`

	// StreamMaxLen is the max number of entries retained per stream.
	StreamMaxLen int64 `yaml:"stream_max_len" json:"stream_max_len"`

	// CachePrefix is the owned cache key namespace swept by the cache
	// sweep job.
	CachePrefix string `yaml:"cache_prefix" json:"cache_prefix"`

	// CompactTables are the tables eligible for compaction after a
	// relational purge.
	CompactTables []string `yaml:"compact_tables" json:"compact_tables"`
}

// Policy derives an immutable [retention.Policy] from the configuration,
// with the reference time fixed at ref. Zero values fall back to the
// retention defaults. The returned policy is validated; an error indicates
// a deployment defect and callers are expected to fail fast.
func (c RetentionConfig) Policy(ref time.Time) (retention.Policy, error) {
	policy := retention.NewPolicy(ref)

	if c.GrantMaxAge != 0 {
		policy.GrantMaxAge = c.GrantMaxAge
	}
	if c.MatchMaxAge != 0 {
		policy.MatchMaxAge = c.MatchMaxAge
	}
	if c.AlertMaxAge != 0 {
		policy.AlertMaxAge = c.AlertMaxAge
	}
	if c.TaskResultMaxAge != 0 {
		policy.TaskResultMaxAge = c.TaskResultMaxAge
	}
	if c.MatchAction != "" {
		policy.MatchAction = retention.Action(c.MatchAction)
	}
	if c.BatchSize != 0 {
		policy.BatchSize = c.BatchSize
	}
	if c.StreamMaxLen != 0 {
		policy.StreamMaxLen = c.StreamMaxLen
	}
	if c.CachePrefix != "" {
		policy.CachePrefix = c.CachePrefix
	}

	if err := policy.Validate(); err != nil {
		return retention.Policy{}, err
	}

	if err := c.validateDeadlines(); err != nil {
		return retention.Policy{}, err
	}

	return policy, nil
}

func (c RetentionConfig) validateDeadlines() error {
	soft := c.SoftDeadline
	if soft == 0 {
		soft = retention.DefaultSoftDeadline
	}
	hard := c.HardDeadline
	if hard == 0 {
		hard = retention.DefaultHardDeadline
	}

	if soft < 0 || hard < 0 {
		return fmt.Errorf("%w: deadlines must be positive", retention.ErrConfiguration)
	}

	if hard <= soft {
		return fmt.Errorf("%w: hard deadline must be later than soft deadline", retention.ErrConfiguration)
	}

	return nil
}

// Parse parses the config from the given path.
func Parse(path string) (*Config, error) {
	var conf Config
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	if err := yaml.Unmarshal(data, &conf); err != nil {
		return nil, err
	}

	if conf.Version == "" {
		return nil, ErrNoConfigVersion
	}

	if conf.Version != ConfigFormatVersion {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedVersion, conf.Version)
	}

	return &conf, nil
}

// MustParse parses the config from the given path, or panics in case of errors.
func MustParse(path string) *Config {
	config, err := Parse(path)
	if err != nil {
		panic(err)
	}

	return config
}
