// SPDX-FileCopyrightText: 2025 The Grantwise Authors
//
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"log/slog"

	"github.com/hibiken/asynq"
	"github.com/urfave/cli/v2"

	"github.com/grantwise-io/grantwise/pkg/clients"
	asynqclient "github.com/grantwise-io/grantwise/pkg/clients/asynq"
	"github.com/grantwise-io/grantwise/pkg/core/config"
	"github.com/grantwise-io/grantwise/pkg/core/registry"
	"github.com/grantwise-io/grantwise/pkg/metrics"
	asynqutils "github.com/grantwise-io/grantwise/pkg/utils/asynq"
	workerutils "github.com/grantwise-io/grantwise/pkg/utils/asynq/worker"
)

// NewWorkerCommand returns a new command for interfacing with the workers.
func NewWorkerCommand() *cli.Command {
	cmd := &cli.Command{
		Name:    "worker",
		Usage:   "worker operations",
		Aliases: []string{"w"},
		Before: func(ctx *cli.Context) error {
			conf := getConfig(ctx)
			validatorFuncs := []func(c *config.Config) error{
				validateRedisConfig,
				validateDBConfig,
				validateRetentionConfig,
			}

			for _, validator := range validatorFuncs {
				if err := validator(conf); err != nil {
					return err
				}
			}

			return nil
		},
		Subcommands: []*cli.Command{
			{
				Name:    "start",
				Usage:   "start the workers",
				Aliases: []string{"s"},
				Action: func(ctx *cli.Context) error {
					conf := getConfig(ctx)

					// Initialize clients used by the task handlers.
					db, err := newDB(conf)
					if err != nil {
						return err
					}
					defer db.Close()
					clients.SetDB(db)
					clients.SetRedis(newRedisClient(conf))
					asynqclient.SetClient(newAsynqClient(conf))
					asynqclient.SetInspector(newInspector(conf))

					worker := workerutils.NewFromConfig(
						newRedisClientOpt(conf),
						conf.Worker,
					)
					worker.UseMiddlewares(
						asynqutils.NewLoggerMiddleware(slog.Default()),
						asynqutils.NewMeasuringMiddleware(),
						asynqutils.NewMetricsMiddleware(),
					)

					// Register our task handlers
					walker := func(name string, handler asynq.Handler) error {
						slog.Info("registering task", "name", name)
						worker.Handle(name, handler)

						return nil
					}
					if err := registry.TaskRegistry.Range(walker); err != nil {
						return err
					}

					if conf.Metrics.Address != "" {
						path := conf.Metrics.Path
						if path == "" {
							path = "/metrics"
						}
						server := metrics.NewServer(conf.Metrics.Address, path)
						go func() {
							slog.Info("starting metrics server", "address", conf.Metrics.Address, "path", path)
							if err := server.ListenAndServe(); err != nil {
								slog.Error("metrics server failed", "reason", err)
							}
						}()
					}

					return worker.Run()
				},
			},
		},
	}

	return cmd
}
