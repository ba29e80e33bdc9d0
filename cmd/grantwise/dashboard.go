// SPDX-FileCopyrightText: 2025 The Grantwise Authors
//
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"database/sql"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/hibiken/asynq/x/metrics"
	"github.com/hibiken/asynqmon"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/urfave/cli/v2"

	"github.com/grantwise-io/grantwise/pkg/core/config"
	"github.com/grantwise-io/grantwise/pkg/storage"
)

// NewDashboardCommand returns a new command for interfacing with the dashboard.
func NewDashboardCommand() *cli.Command {
	cmd := &cli.Command{
		Name:    "dashboard",
		Usage:   "dashboard operations",
		Aliases: []string{"ui"},
		Before: func(ctx *cli.Context) error {
			conf := getConfig(ctx)
			validatorFuncs := []func(c *config.Config) error{
				validateRedisConfig,
				validateDBConfig,
				validateDashboardConfig,
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
				Usage:   "start the dashboard ui",
				Aliases: []string{"s"},
				Action: func(ctx *cli.Context) error {
					conf := getConfig(ctx)
					redisClientOpt := newRedisClientOpt(conf)
					inspector := newInspector(conf)

					db, err := newDB(conf)
					if err != nil {
						return err
					}
					store := storage.NewStore(db)

					// Asynq UI
					opts := asynqmon.Options{
						RootPath:          "/",
						RedisConnOpt:      redisClientOpt,
						ReadOnly:          conf.Dashboard.ReadOnly,
						PrometheusAddress: conf.Dashboard.PrometheusEndpoint,
					}
					ui := asynqmon.New(opts)

					// Metrics
					promRegistry := prometheus.NewPedanticRegistry()
					promRegistry.MustRegister(
						// Queue metrics
						metrics.NewQueueMetricsCollector(inspector),
						// Standard Go metrics
						collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
						collectors.NewGoCollector(),
					)

					mux := http.NewServeMux()
					mux.Handle("/", ui)
					mux.Handle("/metrics", promhttp.HandlerFor(promRegistry, promhttp.HandlerOpts{}))
					mux.HandleFunc("/retention/latest", func(w http.ResponseWriter, r *http.Request) {
						run, err := store.LatestRun(r.Context())
						switch {
						case errors.Is(err, sql.ErrNoRows):
							http.Error(w, "no retention runs", http.StatusNotFound)
						case err != nil:
							slog.Error("failed to load latest run", "reason", err)
							http.Error(w, "failed to load latest run", http.StatusInternalServerError)
						default:
							w.Header().Set("Content-Type", "application/json")
							json.NewEncoder(w).Encode(run) // nolint: errcheck
						}
					})

					srv := &http.Server{
						Addr:    conf.Dashboard.Address,
						Handler: mux,
					}

					slog.Info(
						"starting server",
						"address", conf.Dashboard.Address,
						"ui", "/",
						"metrics", "/metrics",
						"retention", "/retention/latest",
					)

					return srv.ListenAndServe()
				},
			},
		},
	}

	return cmd
}
