package main

import (
	"context"
	"os"

	cli "github.com/urfave/cli/v3"

	"github.com/webrpa/hub/pkg/cmd"
	"github.com/webrpa/hub/pkg/log"
	"github.com/webrpa/hub/pkg/services"
	"github.com/webrpa/hub/pkg/stats"
)

const (
	defaultPort          = 9091
	defaultTrendingLimit = 10
)

func main() {
	logger := log.WithModule("hub")

	command := &cli.Command{
		Name:                  "webrpa-hub",
		Usage:                 "Share and download deduplicated Web RPA workflows",
		EnableShellCompletion: true,
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Port to run the hub server on",
				Value:   defaultPort,
				Sources: cli.EnvVars("PORT"),
			},
			&cli.StringFlag{
				Name:     "database-url",
				Usage:    "Database connection URL or data directory for persistence",
				Required: true,
				Sources:  cli.EnvVars("DATABASE_URL"),
			},
			&cli.StringFlag{
				Name:    "redis-url",
				Usage:   "Redis connection URL for the workflow read cache (optional)",
				Sources: cli.EnvVars("REDIS_URL"),
			},
			&cli.StringFlag{
				Name:    "event-bus",
				Usage:   "Event bus provider (gochannel, kafka)",
				Value:   "gochannel",
				Sources: cli.EnvVars("EVENT_BUS"),
			},
			&cli.StringFlag{
				Name:    "trending-schedule",
				Usage:   "Cron schedule for trending snapshot refresh",
				Value:   stats.DefaultSchedule,
				Sources: cli.EnvVars("TRENDING_SCHEDULE"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			log.Setup(command.String("log-level"))

			logger.InfoContext(ctx, "Initializing Web RPA hub")

			persistence := cmd.NewPersistence(ctx, logger,
				command.String("database-url"), command.String("redis-url"))

			defer func() {
				err := persistence.Close(ctx)
				if err != nil {
					logger.ErrorContext(ctx, "Failed to close persistence", "error", err)
				}
			}()

			eventBus := cmd.NewEventBus(command.String("event-bus"), logger)
			defer func() {
				if err := eventBus.Close(); err != nil {
					logger.ErrorContext(ctx, "Failed to close event bus", "error", err)
				}
			}()

			workflowService := services.NewWorkflow(persistence, eventBus, logger)

			trending := stats.NewRefresher(workflowService, logger,
				command.String("trending-schedule"), defaultTrendingLimit)
			if err := trending.Bind(eventBus); err != nil {
				return err
			}

			if err := eventBus.Subscribe(ctx); err != nil {
				return err
			}

			if err := trending.Start(ctx); err != nil {
				return err
			}
			defer trending.Stop()

			api := NewAPI(
				logger,
				persistence,
				eventBus,
				trending,
			)

			err := api.Start(command.Int("port"))
			if err != nil {
				logger.ErrorContext(ctx, "Failed to start hub server", "error", err)
			}

			return nil
		},
	}

	err := command.Run(context.Background(), os.Args)
	if err != nil {
		panic(err)
	}
}
