package main

import (
	"context"
	"os"
	"time"

	cli "github.com/urfave/cli/v3"

	"github.com/veergo/motorbff/pkg/cmd"
	"github.com/veergo/motorbff/pkg/config"
	"github.com/veergo/motorbff/pkg/dashboard"
	"github.com/veergo/motorbff/pkg/log"
	"github.com/veergo/motorbff/pkg/orchestrator"
	"github.com/veergo/motorbff/pkg/otelhelper"
	"github.com/veergo/motorbff/pkg/resolver"
	"github.com/veergo/motorbff/pkg/services"
)

const (
	defaultPort    = 9096
	serviceName    = "motorbff"
	requestTimeout = 30 * time.Second
)

func main() {
	logger := log.WithModule("api")

	command := &cli.Command{
		Name:                  "motorbff-api",
		Usage:                 "Serve the motor purchase journey API",
		EnableShellCompletion: true,
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Port to run the API server on",
				Value:   defaultPort,
				Sources: cli.EnvVars("PORT"),
			},
			&cli.StringFlag{
				Name:     "proposal-service-url",
				Usage:    "Base URL of the proposal-management service",
				Required: true,
				Sources:  cli.EnvVars("PROPOSAL_SERVICE_URL"),
			},
			&cli.StringFlag{
				Name:    "config-path",
				Usage:   "Directory holding the mapper and error documents",
				Value:   "./configs",
				Sources: cli.EnvVars("CONFIG_PATH"),
			},
			&cli.StringFlag{
				Name:    "config-refresh-schedule",
				Usage:   "Cron schedule for configuration refresh (empty disables refresh)",
				Sources: cli.EnvVars("CONFIG_REFRESH_SCHEDULE"),
			},
			&cli.StringFlag{
				Name:    "redis-url",
				Usage:   "Redis URL for the configuration cache (empty disables caching)",
				Sources: cli.EnvVars("REDIS_URL"),
			},
			&cli.StringFlag{
				Name:    "data-url",
				Usage:   "Dashboard store URL (file path or postgres URL)",
				Value:   "file://./data",
				Sources: cli.EnvVars("DATA_URL"),
			},
			&cli.StringFlag{
				Name:    "event-bus",
				Usage:   "Event bus type (kafka, gochannel)",
				Value:   "gochannel",
				Sources: cli.EnvVars("EVENT_BUS_TYPE"),
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

			logger.InfoContext(ctx, "Initializing Motor BFF API")

			tracer, err := otelhelper.NewTracer(ctx, serviceName)
			if err != nil {
				logger.WarnContext(ctx, "Tracing disabled", "error", err)
			}

			configStore := cmd.NewConfigStore(ctx, logger, command.String("config-path"), command.String("redis-url"))
			defer configStore.Stop()

			if schedule := command.String("config-refresh-schedule"); schedule != "" {
				if err := configStore.StartRefresh(ctx, schedule); err != nil {
					return err
				}
			}

			eventBus := cmd.NewEventBus(command.String("event-bus"), logger)
			defer func() {
				if err := eventBus.Close(); err != nil {
					logger.ErrorContext(ctx, "Failed to close event bus", "error", err)
				}
			}()

			tabStore := cmd.NewTabStore(ctx, logger, command.String("data-url"))
			defer func() {
				if err := tabStore.Close(ctx); err != nil {
					logger.ErrorContext(ctx, "Failed to close tab store", "error", err)
				}
			}()

			client := orchestrator.NewClient(orchestrator.ClientConfig{
				BaseURL: command.String("proposal-service-url"),
				AppName: serviceName,
				Timeout: requestTimeout,
			}, configStore, logger, tracer, eventBus)

			executor := resolver.NewExecutor(errorLookup{store: configStore}, eventBus, logger)
			journeyService := services.NewJourney(client, executor, eventBus, logger)
			dashboardService := dashboard.NewService(tabStore, logger)

			api := NewAPI(logger, journeyService, dashboardService)

			err = api.Start(command.Int("port"))
			if err != nil {
				logger.ErrorContext(ctx, "Failed to start API server", "error", err)
			}

			return nil
		},
	}

	err := command.Run(context.Background(), os.Args)
	if err != nil {
		panic(err)
	}
}

// errorLookup resolves codes against the live configuration snapshot, so
// a refresh is picked up without restarting.
type errorLookup struct {
	store *config.Store
}

func (l errorLookup) Lookup(code string) (config.ErrorDetails, bool) {
	return l.store.Current().Lookup(code)
}
