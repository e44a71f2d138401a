package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/veergo/motorbff/pkg/config"
	"github.com/veergo/motorbff/pkg/dashboard"
	"github.com/veergo/motorbff/pkg/dashboard/file"
	"github.com/veergo/motorbff/pkg/dashboard/postgresql"
)

const configCacheTTL = 5 * time.Minute

// NewTabStore selects the dashboard store by the data URL scheme:
// postgres URLs open the SQL store, anything else is treated as a file
// root.
func NewTabStore(ctx context.Context, logger *slog.Logger, dataURL string) dashboard.Store {
	provider, _, found := strings.Cut(dataURL, "://")
	if found && (provider == "postgres" || provider == "postgresql") {
		store, err := postgresql.NewStore(ctx, logger, dataURL)
		if err != nil {
			panic(fmt.Errorf("failed to create PostgreSQL tab store: %w", err))
		}

		return store
	}

	return file.NewStore(dataURL)
}

// NewConfigStore loads the mapper and error documents from configPath,
// optionally fronted by a Redis cache when redisURL is set.
func NewConfigStore(ctx context.Context, logger *slog.Logger, configPath, redisURL string) *config.Store {
	var source config.Source = config.NewFileSource(configPath)

	if redisURL != "" {
		options, err := redis.ParseURL(redisURL)
		if err != nil {
			panic(fmt.Errorf("failed to parse redis URL: %w", err))
		}

		source = config.NewCachedSource(source, redis.NewClient(options), configCacheTTL)
	}

	store := config.NewStore(source, logger)
	if err := store.Load(ctx); err != nil {
		panic(fmt.Errorf("failed to load configuration: %w", err))
	}

	return store
}
