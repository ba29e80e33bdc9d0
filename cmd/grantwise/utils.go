// SPDX-FileCopyrightText: 2025 The Grantwise Authors
//
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"errors"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/hibiken/asynq"
	"github.com/olekukonko/tablewriter"
	"github.com/redis/go-redis/v9"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/migrate"
	"github.com/urfave/cli/v2"

	"github.com/grantwise-io/grantwise/internal/pkg/migrations"
	"github.com/grantwise-io/grantwise/pkg/core/config"
	dbutils "github.com/grantwise-io/grantwise/pkg/utils/db"
)

// na is displayed in table output for values which are not available.
const na = "N/A"

// ErrInvalidRedisEndpoint is returned when the Redis endpoint configuration
// is incorrect, or empty.
var ErrInvalidRedisEndpoint = errors.New("invalid or missing redis configuration")

// ErrInvalidDashboardAddress is returned when the dashboard address
// configuration is incorrect, or empty.
var ErrInvalidDashboardAddress = errors.New("invalid or missing dashboard configuration")

// configKey is the key used to store the parsed configuration in the context.
type configKey struct{}

// getConfig returns the configuration from the given cli context.
func getConfig(ctx *cli.Context) *config.Config {
	return ctx.Context.Value(configKey{}).(*config.Config)
}

// validateRedisConfig validates the Redis configuration settings.
func validateRedisConfig(conf *config.Config) error {
	if conf.Redis.Endpoint == "" {
		return ErrInvalidRedisEndpoint
	}

	return nil
}

// validateDBConfig validates the database configuration settings.
func validateDBConfig(conf *config.Config) error {
	if conf.Database.DSN == "" {
		return dbutils.ErrInvalidDSN
	}

	return nil
}

// validateDashboardConfig validates the dashboard configuration settings.
func validateDashboardConfig(conf *config.Config) error {
	if conf.Dashboard.Address == "" {
		return ErrInvalidDashboardAddress
	}

	return nil
}

// validateRetentionConfig validates the retention configuration settings by
// deriving a policy from them. Configuration errors are fatal before a run
// begins.
func validateRetentionConfig(conf *config.Config) error {
	_, err := conf.Retention.Policy(time.Now())

	return err
}

// newRedisClientOpt returns a new [asynq.RedisClientOpt] from the given
// config.
func newRedisClientOpt(conf *config.Config) asynq.RedisClientOpt {
	// TODO: Handle authentication, TLS, etc.
	return asynq.RedisClientOpt{
		Addr: conf.Redis.Endpoint,
	}
}

// newRedisClient returns a new [redis.Client] from the given config.
func newRedisClient(conf *config.Config) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr: conf.Redis.Endpoint,
	})
}

// newAsynqClient returns a new [asynq.Client] from the given config.
func newAsynqClient(conf *config.Config) *asynq.Client {
	return asynq.NewClient(newRedisClientOpt(conf))
}

// newInspector returns a new [asynq.Inspector] from the given config.
func newInspector(conf *config.Config) *asynq.Inspector {
	return asynq.NewInspector(newRedisClientOpt(conf))
}

// newDB returns a new [bun.DB] from the given config.
func newDB(conf *config.Config) (*bun.DB, error) {
	return dbutils.NewFromConfig(conf.Database, conf.Debug)
}

// newMigrator returns a new [migrate.Migrator] from the given config. By
// default the bundled migrations are used, unless an alternate migrations
// directory is configured.
func newMigrator(conf *config.Config, db *bun.DB) (*migrate.Migrator, error) {
	m := migrations.Migrations
	if conf.Database.MigrationDirectory != "" {
		m = migrate.NewMigrations(migrate.WithMigrationsDirectory(conf.Database.MigrationDirectory))
		if err := m.Discover(os.DirFS(conf.Database.MigrationDirectory)); err != nil {
			return nil, err
		}
	}

	return migrate.NewMigrator(db, m), nil
}

// newScheduler returns a new [asynq.Scheduler] from the given config.
func newScheduler(conf *config.Config) *asynq.Scheduler {
	preEnqueueFunc := func(t *asynq.Task, _ []asynq.Option) {
		slog.Info("enqueueing task", "name", t.Type())
	}

	opts := &asynq.SchedulerOpts{
		PreEnqueueFunc: preEnqueueFunc,
	}

	return asynq.NewScheduler(newRedisClientOpt(conf), opts)
}

// newTableWriter returns a new [tablewriter.Table] with the given headers.
func newTableWriter(w io.Writer, headers []string) *tablewriter.Table {
	table := tablewriter.NewWriter(w)
	table.Header(headers)

	return table
}
