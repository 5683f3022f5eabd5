// Package worker implements the per-task crawl loop: take, validate, visit,
// fetch, extract, record, expand, done.
package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/JakeFAU/sitesoft/internal/crawler"
	"github.com/JakeFAU/sitesoft/internal/metrics"
	"github.com/JakeFAU/sitesoft/internal/telemetry"
)

// DefaultFetchTimeout bounds one fetch when Config leaves it unset.
const DefaultFetchTimeout = 60 * time.Second

// Config controls Worker behavior.
type Config struct {
	FetchTimeout time.Duration
}

// Worker consumes tasks from a Frontier until the crawl completes.
type Worker struct {
	index     int
	frontier  crawler.Frontier
	visited   *crawler.VisitedSet
	results   *crawler.Aggregator
	fetcher   crawler.Fetcher
	extractor crawler.Extractor
	cfg       Config
	logger    *zap.Logger
}

// New constructs a Worker. The visited set and aggregator are shared by every
// worker of one crawl.
func New(
	index int,
	frontier crawler.Frontier,
	visited *crawler.VisitedSet,
	results *crawler.Aggregator,
	fetcher crawler.Fetcher,
	extractor crawler.Extractor,
	cfg Config,
	logger *zap.Logger,
) *Worker {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = DefaultFetchTimeout
	}
	return &Worker{
		index:     index,
		frontier:  frontier,
		visited:   visited,
		results:   results,
		fetcher:   fetcher,
		extractor: extractor,
		cfg:       cfg,
		logger:    logger.With(zap.Int("worker", index)),
	}
}

// Run blocks, taking tasks until the Frontier closes or ctx ends. It returns
// an error only for Frontier protocol violations; per-task failures never
// escape.
func (w *Worker) Run(ctx context.Context) error {
	for {
		task, err := w.frontier.Take(ctx)
		if err != nil {
			if errors.Is(err, crawler.ErrFrontierClosed) || ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("worker %d take: %w", w.index, err)
		}

		metrics.IncActiveWorkers()
		outcome, err := w.process(ctx, task)
		metrics.DecActiveWorkers()
		metrics.ObserveTask(outcome)
		if err != nil {
			return fmt.Errorf("worker %d: %w", w.index, err)
		}

		if err := w.frontier.MarkDone(); err != nil {
			return fmt.Errorf("worker %d mark done: %w", w.index, err)
		}
	}
}

// process runs one task inside a failure boundary. The returned error is
// reserved for Frontier protocol violations.
func (w *Worker) process(ctx context.Context, task crawler.Task) (outcome string, err error) {
	ctx, span := telemetry.Tracer().Start(ctx, "crawl.task", trace.WithAttributes(
		attribute.String("url.full", task.URL),
		attribute.Int("crawl.depth", task.Depth),
		attribute.Int("crawl.worker", w.index),
	))
	defer func() {
		span.SetAttributes(attribute.String("crawl.outcome", outcome))
		span.End()
	}()
	defer func() {
		if r := recover(); r != nil {
			w.logger.Error("task panicked",
				zap.String("url", task.URL),
				zap.Any("panic", r),
				zap.Stack("stack"),
			)
			outcome, err = metrics.OutcomePanic, nil
		}
	}()

	if !crawler.IsCrawlable(task.URL) {
		w.logger.Debug("url rejected", zap.String("url", task.URL))
		return metrics.OutcomeRejected, nil
	}
	if !w.visited.TryVisit(task.URL) {
		return metrics.OutcomeDuplicate, nil
	}

	resp, err := w.fetch(ctx, task.URL)
	if err != nil {
		w.logger.Debug("fetch failed", zap.String("url", task.URL), zap.Error(err))
		return metrics.OutcomeFetchFailed, nil
	}

	ext, err := w.extractor.Extract(resp.Body)
	if err != nil {
		w.logger.Debug("extract failed", zap.String("url", task.URL), zap.Error(err))
		return metrics.OutcomeExtractFailed, nil
	}
	w.results.Append(crawler.NewVisitRecord(task.URL, ext))

	if task.Depth > 0 {
		if err := w.expand(task, ext.Links); err != nil {
			return metrics.OutcomeFetched, err
		}
	}
	w.logger.Debug("page recorded",
		zap.String("url", task.URL),
		zap.Int("depth", task.Depth),
		zap.Int("links", len(ext.Links)),
	)
	return metrics.OutcomeFetched, nil
}

func (w *Worker) fetch(ctx context.Context, url string) (crawler.FetchResponse, error) {
	fetchCtx, cancel := context.WithTimeout(ctx, w.cfg.FetchTimeout)
	defer cancel()

	start := time.Now()
	resp, err := w.fetcher.Fetch(fetchCtx, crawler.FetchRequest{URL: url, Timeout: w.cfg.FetchTimeout})
	metrics.ObserveFetch(url, time.Since(start))
	if err != nil {
		var fetchErr *crawler.FetchError
		if errors.As(err, &fetchErr) {
			return crawler.FetchResponse{}, err
		}
		return crawler.FetchResponse{}, &crawler.FetchError{URL: url, Err: err}
	}
	return resp, nil
}

// expand submits unseen links one level shallower. The current task is still
// pending, so the Frontier cannot close underneath us and any Submit error is
// a protocol violation.
func (w *Worker) expand(task crawler.Task, links []string) error {
	for _, link := range links {
		if w.visited.Seen(link) {
			continue
		}
		if err := w.frontier.Submit(crawler.Task{URL: link, Depth: task.Depth - 1}); err != nil {
			return fmt.Errorf("submit follow-up of %s: %w", task.URL, err)
		}
	}
	return nil
}
