// SPDX-FileCopyrightText: 2025 The Grantwise Authors
//
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/grantwise-io/grantwise/pkg/clients"
	asynqclient "github.com/grantwise-io/grantwise/pkg/clients/asynq"
	"github.com/grantwise-io/grantwise/pkg/core/config"
	"github.com/grantwise-io/grantwise/pkg/core/models"
	"github.com/grantwise-io/grantwise/pkg/retention/tasks"
)

// NewRetentionCommand returns a new command for interfacing with the
// retention process.
func NewRetentionCommand() *cli.Command {
	cmd := &cli.Command{
		Name:    "retention",
		Usage:   "retention operations",
		Aliases: []string{"r"},
		Before: func(ctx *cli.Context) error {
			conf := getConfig(ctx)
			validatorFuncs := []func(c *config.Config) error{
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
				Name:  "run",
				Usage: "run a cleanup of stale records once",
				Before: func(ctx *cli.Context) error {
					conf := getConfig(ctx)
					validatorFuncs := []func(c *config.Config) error{
						validateRedisConfig,
						validateDBConfig,
					}

					for _, validator := range validatorFuncs {
						if err := validator(conf); err != nil {
							return err
						}
					}

					return nil
				},
				Action: func(ctx *cli.Context) error {
					conf := getConfig(ctx)

					db, err := newDB(conf)
					if err != nil {
						return err
					}
					defer db.Close()
					clients.SetDB(db)
					clients.SetRedis(newRedisClient(conf))
					asynqclient.SetInspector(newInspector(conf))

					run, err := tasks.Execute(ctx.Context, conf.Retention, slog.Default())
					if err != nil {
						return err
					}

					out, err := json.MarshalIndent(run, "", "  ")
					if err != nil {
						return err
					}
					fmt.Println(string(out))

					return nil
				},
			},
			{
				Name:    "history",
				Usage:   "list past cleanup runs",
				Aliases: []string{"h"},
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "limit",
						Usage: "max number of runs to display",
						Value: 30,
					},
				},
				Before: func(ctx *cli.Context) error {
					conf := getConfig(ctx)

					return validateDBConfig(conf)
				},
				Action: func(ctx *cli.Context) error {
					conf := getConfig(ctx)

					db, err := newDB(conf)
					if err != nil {
						return err
					}
					defer db.Close()

					items := make([]models.RetentionRun, 0)
					err = db.NewSelect().
						Model(&items).
						Order("started_at DESC").
						Limit(ctx.Int("limit")).
						Scan(ctx.Context)
					if err != nil {
						return err
					}

					if len(items) == 0 {
						return nil
					}

					headers := []string{
						"RUN-ID",
						"STATUS",
						"STARTED-AT",
						"COMPLETED-AT",
						"DURATION",
					}
					table := newTableWriter(os.Stdout, headers)
					for _, item := range items {
						row := []string{
							item.RunID,
							item.Status,
							item.StartedAt.String(),
							item.CompletedAt.String(),
							item.CompletedAt.Sub(item.StartedAt).String(),
						}
						table.Append(row)
					}
					table.Render()

					return nil
				},
			},
			{
				Name:    "policy",
				Usage:   "display the effective retention policy",
				Aliases: []string{"p"},
				Action: func(ctx *cli.Context) error {
					conf := getConfig(ctx)
					policy, err := conf.Retention.Policy(time.Now())
					if err != nil {
						return err
					}

					out, err := json.MarshalIndent(policy, "", "  ")
					if err != nil {
						return err
					}
					fmt.Println(string(out))

					return nil
				},
			},
		},
	}

	return cmd
}
