// SPDX-FileCopyrightText: 2025 The Grantwise Authors
//
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/grantwise-io/grantwise/pkg/core/config"
	slogutils "github.com/grantwise-io/grantwise/pkg/utils/slog"
	"github.com/grantwise-io/grantwise/pkg/version"
)

func main() {
	app := &cli.App{
		Name:                 "grantwise",
		Version:              version.Version,
		EnableBashCompletion: true,
		Usage:                "command-line tool for managing the grantwise services",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "debug",
				Usage: "enables debug mode, if set",
				Value: false,
			},
			&cli.StringFlag{
				Name:     "config",
				Usage:    "path to config file",
				Required: true,
				Aliases:  []string{"file"},
				EnvVars:  []string{"GRANTWISE_CONFIG"},
			},
			&cli.StringFlag{
				Name:    "redis-endpoint",
				Usage:   "redis endpoint to connect to",
				EnvVars: []string{"REDIS_ENDPOINT"},
			},
			&cli.StringFlag{
				Name:    "database-uri",
				Usage:   "database uri to connect to",
				EnvVars: []string{"DATABASE_URI"},
			},
		},
		Before: func(ctx *cli.Context) error {
			configFile := ctx.String("config")
			conf, err := config.Parse(configFile)
			if err != nil {
				return fmt.Errorf("cannot parse config: %w", err)
			}

			// Overrides from flags/options
			if ctx.IsSet("debug") {
				conf.Debug = ctx.Bool("debug")
			}

			if ctx.IsSet("redis-endpoint") {
				conf.Redis.Endpoint = ctx.String("redis-endpoint")
			}

			if ctx.IsSet("database-uri") {
				conf.Database.DSN = ctx.String("database-uri")
			}

			logger, err := slogutils.NewFromConfig(os.Stderr, conf.Logging)
			if err != nil {
				return err
			}
			slog.SetDefault(logger)

			ctx.Context = context.WithValue(ctx.Context, configKey{}, conf)

			return nil
		},
		Commands: []*cli.Command{
			NewDatabaseCommand(),
			NewWorkerCommand(),
			NewSchedulerCommand(),
			NewRetentionCommand(),
			NewTaskCommand(),
			NewQueueCommand(),
			NewDashboardCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
