// Package storage selects and opens the configured Store backend.
package storage

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/JakeFAU/sitesoft/internal/config"
	"github.com/JakeFAU/sitesoft/internal/crawler"
	"github.com/JakeFAU/sitesoft/internal/storage/gcs"
	"github.com/JakeFAU/sitesoft/internal/storage/local"
	"github.com/JakeFAU/sitesoft/internal/storage/memory"
	"github.com/JakeFAU/sitesoft/internal/storage/postgres"
	"github.com/JakeFAU/sitesoft/internal/storage/redis"
	"github.com/JakeFAU/sitesoft/internal/storage/sqlite"
)

// New opens the backend named by cfg.Backend.
func New(ctx context.Context, cfg config.StorageConfig, logger *zap.Logger) (crawler.Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	var (
		store crawler.Store
		err   error
	)
	switch cfg.Backend {
	case config.BackendMemory:
		store = memory.New()
	case config.BackendLocal:
		store, err = local.New(local.Config{BaseDir: cfg.Local.Dir})
	case config.BackendRedis:
		store, err = redis.New(ctx, redis.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			TTL:      cfg.Redis.TTL,
		})
	case config.BackendPostgres:
		store, err = postgres.New(ctx, postgres.Config{
			DSN:      cfg.Postgres.DSN,
			Table:    cfg.Postgres.Table,
			MaxConns: cfg.Postgres.MaxConns,
		})
	case config.BackendSQLite:
		store, err = sqlite.Open(ctx, cfg.SQLite.Path)
	case config.BackendGCS:
		store, err = gcs.Dial(ctx, gcs.Config{Bucket: cfg.GCS.Bucket, Prefix: cfg.GCS.Prefix})
	default:
		return nil, fmt.Errorf("unsupported storage backend %q", cfg.Backend)
	}
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", cfg.Backend, err)
	}
	logger.Info("store opened", zap.String("backend", cfg.Backend))
	return store, nil
}
