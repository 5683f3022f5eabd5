package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/JakeFAU/sitesoft/internal/archive"
	"github.com/JakeFAU/sitesoft/internal/coordinator"
	"github.com/JakeFAU/sitesoft/internal/crawler"
	"github.com/JakeFAU/sitesoft/internal/policy/ratelimit"
	"github.com/JakeFAU/sitesoft/internal/storage/memory"
)

type fakeCrawler struct {
	mu    sync.Mutex
	calls []coordinator.Options
	err   error
	arch  *archive.Archive
}

func (f *fakeCrawler) Crawl(ctx context.Context, root string, opts coordinator.Options) (coordinator.Report, error) {
	f.mu.Lock()
	f.calls = append(f.calls, opts)
	f.mu.Unlock()
	if f.err != nil {
		return coordinator.Report{}, f.err
	}
	records := []crawler.VisitRecord{{URL: root, Title: "Home", HTML: "<b>hi</b>"}}
	if err := f.arch.Save(ctx, root, records); err != nil {
		return coordinator.Report{}, err
	}
	return coordinator.Report{
		CrawlID:   "crawl-1",
		Root:      root,
		Depth:     opts.Depth,
		Workers:   opts.Workers,
		State:     crawler.StateCompleted,
		Records:   records,
		Submitted: 1,
		Completed: 1,
		Duration:  1500 * time.Millisecond,
	}, nil
}

type panicRecords struct{}

func (panicRecords) Load(context.Context, string) ([]crawler.VisitRecord, error) { panic("boom") }
func (panicRecords) Head(context.Context, string, int) ([]crawler.VisitRecord, error) {
	panic("boom")
}

func newTestServer(t *testing.T, cfg Config) (*Server, *fakeCrawler, *archive.Archive) {
	t.Helper()
	arch := archive.New(memory.New())
	fc := &fakeCrawler{arch: arch}
	return NewServer(fc, arch, cfg, zap.NewNop()), fc, arch
}

func do(t *testing.T, s *Server, method, target string, body []byte, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, bytes.NewReader(body))
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func TestHealthzAndRequestID(t *testing.T) {
	t.Parallel()

	s, _, _ := newTestServer(t, Config{})
	rec := do(t, s, http.MethodGet, "/healthz", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	rec = do(t, s, http.MethodGet, "/healthz", nil, map[string]string{"X-Request-ID": "abc"})
	assert.Equal(t, "abc", rec.Header().Get("X-Request-ID"))
}

func TestMetricsEndpoint(t *testing.T) {
	t.Parallel()

	s, _, _ := newTestServer(t, Config{})
	do(t, s, http.MethodGet, "/healthz", nil, nil)
	rec := do(t, s, http.MethodGet, "/metrics", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "sitesoft_http_requests_total")
}

func TestRunCrawl(t *testing.T) {
	t.Parallel()

	s, fc, _ := newTestServer(t, Config{})
	rec := do(t, s, http.MethodPost, "/v1/crawls", []byte(`{"url":"https://a.test/","depth":1,"workers":4}`), nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp crawlResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "crawl-1", resp.CrawlID)
	assert.Equal(t, "completed", resp.State)
	assert.Equal(t, 1, resp.Pages)
	assert.Equal(t, int64(1500), resp.DurationMs)
	require.Len(t, fc.calls, 1)
	assert.Equal(t, coordinator.Options{Depth: 1, Workers: 4}, fc.calls[0])
}

func TestRunCrawlValidation(t *testing.T) {
	t.Parallel()

	s, fc, _ := newTestServer(t, Config{})
	tests := []struct {
		name string
		body string
	}{
		{"invalid json", `{invalid`},
		{"relative url", `{"url":"/relative"}`},
		{"media url", `{"url":"https://a.test/x.png"}`},
		{"depth too large", `{"url":"https://a.test/","depth":3}`},
		{"negative workers", `{"url":"https://a.test/","workers":-1}`},
	}
	for _, tt := range tests {
		rec := do(t, s, http.MethodPost, "/v1/crawls", []byte(tt.body), nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code, tt.name)
	}
	assert.Empty(t, fc.calls)
}

func TestRunCrawlFailures(t *testing.T) {
	t.Parallel()

	s, fc, _ := newTestServer(t, Config{})
	fc.err = errors.Join(coordinator.ErrPersistence, errors.New("disk full"))
	rec := do(t, s, http.MethodPost, "/v1/crawls", []byte(`{"url":"https://a.test/"}`), nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	fc.err = context.Canceled
	rec = do(t, s, http.MethodPost, "/v1/crawls", []byte(`{"url":"https://a.test/"}`), nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestGetCrawl(t *testing.T) {
	t.Parallel()

	s, _, arch := newTestServer(t, Config{})
	records := []crawler.VisitRecord{
		{URL: "https://a.test/", Title: "A", HTML: "<p>a</p>"},
		{URL: "https://a.test/b", Title: "B", HTML: "b"},
	}
	require.NoError(t, arch.Save(context.Background(), "https://a.test/", records))

	rec := do(t, s, http.MethodGet, "/v1/crawls?url=https://a.test/&n=1", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"html":"<p>a</p>"`)

	var resp struct {
		Records []crawler.VisitRecord `json:"records"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, records[:1], resp.Records)

	rec = do(t, s, http.MethodGet, "/v1/crawls?url=https://a.test/", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Len(t, resp.Records, 2)
}

func TestGetCrawlErrors(t *testing.T) {
	t.Parallel()

	s, _, arch := newTestServer(t, Config{})
	require.NoError(t, arch.Save(context.Background(), "https://a.test/", nil))

	tests := []struct {
		target string
		code   int
	}{
		{"/v1/crawls", http.StatusBadRequest},
		{"/v1/crawls?url=https://missing.test/", http.StatusNotFound},
		{"/v1/crawls?url=https://a.test/&n=0", http.StatusBadRequest},
		{"/v1/crawls?url=https://a.test/&n=abc", http.StatusBadRequest},
	}
	for _, tt := range tests {
		rec := do(t, s, http.MethodGet, tt.target, nil, nil)
		assert.Equal(t, tt.code, rec.Code, tt.target)
	}
}

func TestAPIKeyRequired(t *testing.T) {
	t.Parallel()

	s, _, _ := newTestServer(t, Config{APIKey: "secret"})
	rec := do(t, s, http.MethodPost, "/v1/crawls", []byte(`{"url":"https://a.test/"}`), nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = do(t, s, http.MethodPost, "/v1/crawls", []byte(`{"url":"https://a.test/"}`),
		map[string]string{"X-API-Key": "secret"})
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, s, http.MethodGet, "/healthz", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code, "probes stay open")
}

func TestRecoverMiddleware(t *testing.T) {
	t.Parallel()

	s := NewServer(&fakeCrawler{}, panicRecords{}, Config{}, nil)
	rec := do(t, s, http.MethodGet, "/v1/crawls?url=https://a.test/", nil, nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestCrawlAdmission(t *testing.T) {
	t.Parallel()

	s, fc, _ := newTestServer(t, Config{Admission: ratelimit.New(ratelimit.Config{RPS: 0.01, Burst: 1})})
	body := []byte(`{"url":"https://a.test/"}`)

	rec := do(t, s, http.MethodPost, "/v1/crawls", body, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, s, http.MethodPost, "/v1/crawls", body, nil)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("Retry-After"))

	rec = do(t, s, http.MethodPost, "/v1/crawls", body, map[string]string{"X-API-Key": "other"})
	assert.Equal(t, http.StatusOK, rec.Code, "separate bucket per client")

	rec = do(t, s, http.MethodGet, "/v1/crawls?url=https://a.test/", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code, "reads are not gated")
	assert.Len(t, fc.calls, 2)
}
