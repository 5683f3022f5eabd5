package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/JakeFAU/sitesoft/internal/archive"
	"github.com/JakeFAU/sitesoft/internal/coordinator"
	"github.com/JakeFAU/sitesoft/internal/crawler"
	"github.com/JakeFAU/sitesoft/internal/metrics"
)

// Crawler runs one crawl invocation.
type Crawler interface {
	Crawl(ctx context.Context, root string, opts coordinator.Options) (coordinator.Report, error)
}

// Records reads stored crawls.
type Records interface {
	Load(ctx context.Context, root string) ([]crawler.VisitRecord, error)
	Head(ctx context.Context, root string, n int) ([]crawler.VisitRecord, error)
}

// Admitter decides whether a client may start a crawl.
type Admitter interface {
	Allow(key string) bool
}

// Config controls server behavior.
type Config struct {
	// APIKey, when set, is required on every /v1 request.
	APIKey string
	// ReadTimeout bounds GET /v1/crawls.
	ReadTimeout time.Duration
	// Admission, when set, gates POST /v1/crawls per client.
	Admission Admitter
}

// Server wires HTTP handlers to the coordinator and the archive.
type Server struct {
	router  chi.Router
	crawls  Crawler
	records Records
	logger  *zap.Logger
}

// NewServer constructs a Server with middleware and routes.
func NewServer(crawls Crawler, records Records, cfg Config, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = 30 * time.Second
	}
	s := &Server{
		crawls:  crawls,
		records: records,
		logger:  logger.Named("api"),
	}
	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(loggingMiddleware(s.logger))
	r.Use(recoverMiddleware(s.logger))
	r.Use(metrics.Middleware)

	r.Get("/healthz", s.healthz)
	r.Handle("/metrics", metrics.Handler())

	r.Route("/v1", func(r chi.Router) {
		if cfg.APIKey != "" {
			r.Use(apiKeyMiddleware(cfg.APIKey))
		}
		if cfg.Admission != nil {
			r.With(admissionMiddleware(cfg.Admission, s.logger)).Post("/crawls", s.runCrawl)
		} else {
			r.Post("/crawls", s.runCrawl)
		}
		r.With(timeoutMiddleware(cfg.ReadTimeout)).Get("/crawls", s.getCrawl)
	})

	s.router = r
	return s
}

// Handler returns the Router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type crawlRequest struct {
	URL     string `json:"url"`
	Depth   int    `json:"depth"`
	Workers int    `json:"workers"`
}

type crawlResponse struct {
	CrawlID    string `json:"crawl_id"`
	Root       string `json:"root"`
	Depth      int    `json:"depth"`
	Workers    int    `json:"workers"`
	State      string `json:"state"`
	Pages      int    `json:"pages"`
	Submitted  int64  `json:"submitted"`
	Completed  int64  `json:"completed"`
	DurationMs int64  `json:"duration_ms"`
	NoticeID   string `json:"notice_id,omitempty"`
}

func (s *Server) runCrawl(w http.ResponseWriter, r *http.Request) {
	var req crawlRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if !crawler.IsCrawlable(req.URL) {
		writeError(w, http.StatusBadRequest, "url must be an absolute http(s) address of a document")
		return
	}
	opts := coordinator.Options{Depth: req.Depth, Workers: req.Workers}
	if err := opts.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	report, err := s.crawls.Crawl(r.Context(), req.URL, opts)
	if err != nil {
		status := http.StatusInternalServerError
		switch {
		case errors.Is(err, coordinator.ErrInvalidOptions):
			status = http.StatusBadRequest
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			status = http.StatusServiceUnavailable
		}
		s.logger.Error("crawl failed", zap.String("url", req.URL), zap.Error(err))
		writeError(w, status, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, crawlResponse{
		CrawlID:    report.CrawlID,
		Root:       report.Root,
		Depth:      report.Depth,
		Workers:    report.Workers,
		State:      report.State.String(),
		Pages:      len(report.Records),
		Submitted:  report.Submitted,
		Completed:  report.Completed,
		DurationMs: report.Duration.Milliseconds(),
		NoticeID:   report.NoticeID,
	})
}

func (s *Server) getCrawl(w http.ResponseWriter, r *http.Request) {
	root := r.URL.Query().Get("url")
	if root == "" {
		writeError(w, http.StatusBadRequest, "url query parameter required")
		return
	}

	var (
		records []crawler.VisitRecord
		err     error
	)
	if raw := r.URL.Query().Get("n"); raw != "" {
		n, convErr := strconv.Atoi(raw)
		if convErr != nil {
			writeError(w, http.StatusBadRequest, "n must be a positive integer")
			return
		}
		records, err = s.records.Head(r.Context(), root, n)
	} else {
		records, err = s.records.Load(r.Context(), root)
	}
	if err != nil {
		switch {
		case errors.Is(err, archive.ErrInvalidLimit):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, archive.ErrNotFound):
			writeError(w, http.StatusNotFound, "no crawl stored for url")
		default:
			s.logger.Error("load crawl failed", zap.String("url", root), zap.Error(err))
			writeError(w, http.StatusInternalServerError, "failed to load crawl")
		}
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"url": root, "records": records})
}

// writeJSON does not escape HTML so stored page text is returned verbatim.
func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
