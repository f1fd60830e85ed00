// Package bootstrap connects the process-wide dependencies shared by the binaries.
package bootstrap

import (
	"context"
	"fmt"
	"log"
	"strings"

	"inkwell/internal/cache"
	"inkwell/internal/config"
	"inkwell/internal/database"
	"inkwell/internal/observability"
	"inkwell/internal/seed"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Options control runtime initialization behavior.
type Options struct {
	// FixturesPath, when set in development, is applied after connecting.
	FixturesPath string
}

// InitRuntime connects to DB and Redis and optionally applies development fixtures.
// An unreachable database is an error; an unreachable Redis yields a nil client.
func InitRuntime(ctx context.Context, cfg *config.Config, opts Options) (*gorm.DB, *redis.Client, error) {
	db, err := database.Connect(ctx, cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("database connection failed: %w", err)
	}

	// Init Redis (may result in nil client if unreachable)
	cache.InitRedis(cfg.RedisURL)
	r := cache.GetClient()

	if err := applyDevFixtures(ctx, cfg, db, opts.FixturesPath); err != nil {
		return nil, nil, fmt.Errorf("failed to apply development fixtures: %w", err)
	}

	return db, r, nil
}

func applyDevFixtures(ctx context.Context, cfg *config.Config, db *gorm.DB, path string) error {
	if path == "" {
		return nil
	}
	if !strings.EqualFold(cfg.Env, "development") {
		log.Printf("Skipping fixtures %s outside development (APP_ENV=%s)", path, cfg.Env)
		return nil
	}

	fx, err := seed.LoadFixturesFile(path)
	if err != nil {
		return err
	}
	res, err := seed.NewFactory(db, 0).ApplyFixtures(ctx, fx)
	if err != nil {
		return err
	}
	log.Printf("Applied fixtures %s: %d users, %d posts", path, res.Users, res.Posts)
	return nil
}

// InitTracing configures the global tracer from cfg.
func InitTracing(cfg *config.Config, serviceName string) (func(context.Context) error, error) {
	return observability.InitTracing(observability.TracingConfig{
		ServiceName:    serviceName,
		ServiceVersion: "1.0.0",
		Environment:    cfg.Env,
		Enabled:        cfg.TracingEnabled,
		Exporter:       cfg.TracingExporter,
		OTLPEndpoint:   cfg.OTLPEndpoint,
		SamplerRatio:   cfg.TracingSampleRatio,
	})
}
