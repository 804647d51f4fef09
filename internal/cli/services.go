package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/adibhanna/focusflow/internal/background"
	"github.com/adibhanna/focusflow/internal/config"
	"github.com/adibhanna/focusflow/internal/metrics"
)

// newGenerator builds the image API client. Tests override it.
var newGenerator = func(cfg *config.Config) background.Generator {
	return background.NewReplicateClient(background.ReplicateOptions{
		BaseURL:      cfg.ReplicateAPIURL,
		Token:        cfg.ReplicateAPIToken,
		Model:        cfg.ReplicateModelID,
		PollInterval: cfg.PollInterval,
		Timeout:      cfg.GenerationTimeout,
	})
}

// loadConfig reads the environment and lets --log-level win over LOG_LEVEL.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if cmd.Flags().Changed("log-level") {
		cfg.LogLevel = logLevel
	}
	return cfg, nil
}

// connectRedis returns nil when no address is configured, which disables rate
// limiting and caching.
func connectRedis(ctx context.Context, cfg *config.Config) (redis.UniversalClient, error) {
	if cfg.RedisAddr == "" {
		logrus.Info("REDIS_ADDR not set, running without rate limiting or cache")
		return nil, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:         cfg.RedisAddr,
		Password:     cfg.RedisPassword,
		DB:           cfg.RedisDB,
		MaxRetries:   3,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	b := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 5), ctx)
	err := backoff.Retry(func() error {
		if err := client.Ping(ctx).Err(); err != nil {
			logrus.Warnf("Redis connection failed: %v, retrying...", err)
			return err
		}
		return nil
	}, b)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", cfg.RedisAddr, err)
	}

	logrus.WithField("addr", cfg.RedisAddr).Info("Redis client initialized")
	return client, nil
}

func newService(cfg *config.Config, client redis.UniversalClient, m *metrics.Metrics) *background.Service {
	return background.NewService(
		newGenerator(cfg),
		background.NewCache(client, cfg.CacheTTL),
		m,
		background.Defaults{
			AspectRatio:     cfg.ReplicateAspectRatio,
			OutputFormat:    cfg.ReplicateOutputFormat,
			OutputQuality:   cfg.ReplicateQuality,
			SafetyTolerance: cfg.ReplicateSafety,
		},
	)
}
