// Package coordinator runs one crawl invocation end to end: seed the frontier,
// run the worker pool until the pending counter drains, persist the result
// once, and announce it.
package coordinator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/JakeFAU/sitesoft/internal/archive"
	"github.com/JakeFAU/sitesoft/internal/crawler"
	"github.com/JakeFAU/sitesoft/internal/dispatcher"
	"github.com/JakeFAU/sitesoft/internal/frontier"
	"github.com/JakeFAU/sitesoft/internal/logging"
	"github.com/JakeFAU/sitesoft/internal/metrics"
	"github.com/JakeFAU/sitesoft/internal/telemetry"
	"github.com/JakeFAU/sitesoft/internal/worker"
)

const (
	// DefaultWorkers is the pool size when neither Options nor Config set one.
	DefaultWorkers = 32
	// MaxDepth is the deepest expansion a caller may request.
	MaxDepth = 2
)

var (
	// ErrPersistence wraps a failure to store the crawl result.
	ErrPersistence = errors.New("persist crawl result")
	// ErrInvalidOptions reports an out-of-range depth or worker count.
	ErrInvalidOptions = errors.New("invalid crawl options")
)

// Crawl outcomes recorded in metrics.
const (
	statusSucceeded = "succeeded"
	statusFailed    = "failed"
	statusCanceled  = "canceled"
)

// Options are the per-invocation crawl parameters.
type Options struct {
	Depth   int
	Workers int
}

// Config holds defaults shared by every crawl.
type Config struct {
	Workers      int
	FetchTimeout time.Duration
	// Topic receives a crawler.Notice after each successful save; empty
	// disables notices.
	Topic string
}

// Report summarizes one crawl invocation.
type Report struct {
	CrawlID   string
	Root      string
	Depth     int
	Workers   int
	State     crawler.State
	Records   []crawler.VisitRecord
	Submitted int64
	Completed int64
	Duration  time.Duration
	NoticeID  string
}

// Coordinator owns nothing between invocations; every Crawl builds a fresh
// frontier, visited set, and aggregator.
type Coordinator struct {
	fetcher   crawler.Fetcher
	extractor crawler.Extractor
	archive   *archive.Archive
	publisher crawler.Publisher
	ids       crawler.IDGenerator
	clock     crawler.Clock
	cfg       Config
	logger    *zap.Logger
}

// New constructs a Coordinator. publisher may be nil.
func New(
	fetcher crawler.Fetcher,
	extractor crawler.Extractor,
	arch *archive.Archive,
	publisher crawler.Publisher,
	ids crawler.IDGenerator,
	clock crawler.Clock,
	cfg Config,
	logger *zap.Logger,
) *Coordinator {
	if cfg.Workers <= 0 {
		cfg.Workers = DefaultWorkers
	}
	return &Coordinator{
		fetcher:   fetcher,
		extractor: extractor,
		archive:   arch,
		publisher: publisher,
		ids:       ids,
		clock:     clock,
		cfg:       cfg,
		logger:    logging.OrNop(logger).Named("coordinator"),
	}
}

// Validate checks opts against the supported ranges.
func (o Options) Validate() error {
	if o.Depth < 0 || o.Depth > MaxDepth {
		return fmt.Errorf("%w: depth %d not in 0..%d", ErrInvalidOptions, o.Depth, MaxDepth)
	}
	if o.Workers < 0 {
		return fmt.Errorf("%w: workers %d must not be negative", ErrInvalidOptions, o.Workers)
	}
	return nil
}

// Crawl runs one crawl from root and saves the result under root exactly
// once. Per-page failures only shrink the result; persistence failures,
// frontier protocol violations, and ctx cancellation are returned, and in the
// latter two cases nothing is saved.
func (c *Coordinator) Crawl(ctx context.Context, root string, opts Options) (report Report, err error) {
	if err := opts.Validate(); err != nil {
		return Report{}, err
	}
	ctx, span := telemetry.Tracer().Start(ctx, "crawl", trace.WithAttributes(
		attribute.String("url.full", root),
		attribute.Int("crawl.depth", opts.Depth),
	))
	defer func() {
		span.SetAttributes(
			attribute.String("crawl.id", report.CrawlID),
			attribute.String("crawl.state", report.State.String()),
			attribute.Int("crawl.pages", len(report.Records)),
		)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()
	workers := opts.Workers
	if workers == 0 {
		workers = c.cfg.Workers
	}
	crawlID, err := c.ids.NewID()
	if err != nil {
		return Report{}, fmt.Errorf("crawl id: %w", err)
	}
	logger := logging.ForCrawl(c.logger, crawlID, root)
	report = Report{
		CrawlID: crawlID,
		Root:    root,
		Depth:   opts.Depth,
		Workers: workers,
		State:   crawler.StateIdle,
	}
	start := c.clock.Now()

	fr := frontier.New()
	visited := crawler.NewVisitedSet()
	results := crawler.NewAggregator()
	if err := fr.Submit(crawler.Task{URL: root, Depth: opts.Depth}); err != nil {
		return report, fmt.Errorf("seed %s: %w", root, err)
	}
	report.State = crawler.StateSeeded

	runners := make([]dispatcher.Runner, workers)
	for i := range runners {
		runners[i] = worker.New(i, fr, visited, results, c.fetcher, c.extractor,
			worker.Config{FetchTimeout: c.cfg.FetchTimeout}, logger)
	}
	pool := dispatcher.New(runners)
	report.State = crawler.StateRunning
	logger.Info("crawl started", zap.Int("depth", opts.Depth), zap.Int("workers", pool.Size()))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return pool.Run(gctx) })
	g.Go(func() error { return fr.AwaitCompletion(gctx) })
	err = g.Wait()
	if err == nil && ctx.Err() != nil {
		// Completion raced with cancellation; the result may be partial.
		err = fmt.Errorf("crawl canceled: %w", ctx.Err())
	}

	stats := fr.Stats()
	report.Submitted, report.Completed = stats.Submitted, stats.Completed
	report.Duration = c.clock.Now().Sub(start)
	if err != nil {
		status := statusFailed
		if ctx.Err() != nil {
			status = statusCanceled
		}
		metrics.ObserveCrawl(status)
		logger.Warn("crawl aborted", zap.String("status", status), zap.Error(err))
		return report, fmt.Errorf("crawl %s: %w", root, err)
	}

	report.State = crawler.StateCompleted
	report.Records = results.Snapshot()
	if err := c.archive.Save(ctx, root, report.Records); err != nil {
		metrics.ObserveCrawl(statusFailed)
		logger.Error("crawl result not persisted", zap.Error(err))
		return report, fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	metrics.ObserveCrawl(statusSucceeded)
	logger.Info("crawl finished",
		zap.Int("pages", results.Len()),
		zap.Int("visited", visited.Len()),
		zap.Int64("submitted", report.Submitted),
		zap.Duration("duration", report.Duration),
	)

	report.NoticeID = c.announce(ctx, report, logger)
	return report, nil
}

// announce publishes a completion notice. Failures are logged only: the
// result is already persisted.
func (c *Coordinator) announce(ctx context.Context, report Report, logger *zap.Logger) string {
	if c.publisher == nil || c.cfg.Topic == "" {
		return ""
	}
	notice := crawler.Notice{
		CrawlID:    report.CrawlID,
		Root:       report.Root,
		Depth:      report.Depth,
		Pages:      len(report.Records),
		Submitted:  report.Submitted,
		DurationMs: report.Duration.Milliseconds(),
		FinishedAt: c.clock.Now(),
	}
	id, err := c.publisher.Publish(ctx, c.cfg.Topic, notice)
	if err != nil {
		logger.Warn("completion notice not published", zap.String("topic", c.cfg.Topic), zap.Error(err))
		return ""
	}
	return id
}
