// Package app initializes and holds long-lived application services, acting
// as a dependency injection container for the CLI commands.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"

	"github.com/JakeFAU/sitesoft/internal/api"
	"github.com/JakeFAU/sitesoft/internal/archive"
	"github.com/JakeFAU/sitesoft/internal/clock/system"
	"github.com/JakeFAU/sitesoft/internal/config"
	"github.com/JakeFAU/sitesoft/internal/coordinator"
	"github.com/JakeFAU/sitesoft/internal/crawler"
	"github.com/JakeFAU/sitesoft/internal/extract"
	collyfetcher "github.com/JakeFAU/sitesoft/internal/fetcher/colly"
	"github.com/JakeFAU/sitesoft/internal/id/uuid"
	"github.com/JakeFAU/sitesoft/internal/policy/ratelimit"
	"github.com/JakeFAU/sitesoft/internal/publisher/pubsub"
	"github.com/JakeFAU/sitesoft/internal/storage"
	"github.com/JakeFAU/sitesoft/internal/telemetry"
)

// App holds the shared services for one process.
type App struct {
	cfg         config.Config
	logger      *zap.Logger
	store       crawler.Store
	publisher   crawler.Publisher
	archive     *archive.Archive
	coordinator *coordinator.Coordinator
	admission   *ratelimit.Limiter
	tracer      *sdktrace.TracerProvider
}

// New opens the configured store and publisher and wires the crawl pipeline.
// It fails fast if any backend cannot be initialized.
func New(ctx context.Context, cfg config.Config, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	store, err := storage.New(ctx, cfg.Storage, logger)
	if err != nil {
		return nil, fmt.Errorf("initialize storage: %w", err)
	}

	var publisher crawler.Publisher
	if cfg.PubSub.Topic != "" {
		pub, err := pubsub.Dial(ctx, cfg.PubSub.ProjectID)
		if err != nil {
			_ = store.Close()
			return nil, fmt.Errorf("initialize pubsub: %w", err)
		}
		logger.Info("completion notices enabled", zap.String("topic", cfg.PubSub.Topic))
		publisher = pub
	}
	a := Assemble(cfg, store, publisher, logger)
	if cfg.Tracing.Enabled {
		tp, err := telemetry.InitTracerProvider(ctx, "sitesoft", cfg.Tracing.SampleRatio, logger)
		if err != nil {
			_ = a.Close()
			return nil, fmt.Errorf("initialize tracing: %w", err)
		}
		a.tracer = tp
	}
	return a, nil
}

// Assemble wires the crawl pipeline around an already open store and an
// optional publisher. The App takes ownership of both.
func Assemble(cfg config.Config, store crawler.Store, publisher crawler.Publisher, logger *zap.Logger) *App {
	if logger == nil {
		logger = zap.NewNop()
	}
	arch := archive.New(store)
	fetcher := collyfetcher.New(collyfetcher.Config{
		UserAgent:    cfg.Crawl.UserAgent,
		Timeout:      cfg.Crawl.FetchTimeout,
		MaxBodyBytes: cfg.Crawl.MaxBodyBytes,
	})
	coord := coordinator.New(
		fetcher,
		extract.New(),
		arch,
		publisher,
		uuid.New(),
		system.New(),
		coordinator.Config{
			Workers:      cfg.Crawl.Workers,
			FetchTimeout: cfg.Crawl.FetchTimeout,
			Topic:        cfg.PubSub.Topic,
		},
		logger,
	)
	return &App{
		cfg:         cfg,
		logger:      logger,
		store:       store,
		publisher:   publisher,
		archive:     arch,
		coordinator: coord,
		admission: ratelimit.New(ratelimit.Config{
			RPS:   cfg.Server.CrawlRPS,
			Burst: cfg.Server.CrawlBurst,
		}),
	}
}

// Config returns the configuration the App was built from.
func (a *App) Config() config.Config {
	return a.cfg
}

// Logger returns the shared logger.
func (a *App) Logger() *zap.Logger {
	return a.logger
}

// Archive exposes stored crawl results.
func (a *App) Archive() *archive.Archive {
	return a.archive
}

// Coordinator runs crawls.
func (a *App) Coordinator() *coordinator.Coordinator {
	return a.coordinator
}

// Server builds the HTTP API over the app's services.
func (a *App) Server() *api.Server {
	return api.NewServer(a.coordinator, a.archive, api.Config{
		APIKey:    a.cfg.Server.APIKey,
		Admission: a.admission,
	}, a.logger)
}

// Close flushes traces and releases the publisher and the store.
func (a *App) Close() error {
	var errs []error
	if a.tracer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.tracer.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("shutdown tracing: %w", err))
		}
	}
	if closer, ok := a.publisher.(io.Closer); ok {
		if err := closer.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close publisher: %w", err))
		}
	}
	if err := a.store.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close store: %w", err))
	}
	return errors.Join(errs...)
}
