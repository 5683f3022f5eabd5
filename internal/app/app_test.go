package app_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/sitesoft/internal/app"
	"github.com/JakeFAU/sitesoft/internal/config"
	"github.com/JakeFAU/sitesoft/internal/crawler"
)

// MockStore mocks the crawler.Store interface.
type MockStore struct {
	mock.Mock
}

func (m *MockStore) Set(ctx context.Context, key string, value []byte) error {
	args := m.Called(ctx, key, value)
	return args.Error(0)
}

func (m *MockStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	args := m.Called(ctx, key)
	value, _ := args.Get(0).([]byte)
	return value, args.Bool(1), args.Error(2)
}

func (m *MockStore) Close() error {
	args := m.Called()
	return args.Error(0)
}

// MockPublisher mocks a closable crawler.Publisher.
type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(ctx context.Context, topic string, payload any) (string, error) {
	args := m.Called(ctx, topic, payload)
	return args.String(0), args.Error(1)
}

func (m *MockPublisher) Close() error {
	args := m.Called()
	return args.Error(0)
}

var _ crawler.Publisher = (*MockPublisher)(nil)

func memoryConfig() config.Config {
	cfg := config.Default()
	cfg.Storage.Backend = config.BackendMemory
	return cfg
}

func TestNewWithMemoryBackend(t *testing.T) {
	t.Parallel()

	a, err := app.New(context.Background(), memoryConfig(), nil)
	require.NoError(t, err)
	assert.NotNil(t, a.Coordinator())
	assert.NotNil(t, a.Archive())
	assert.NotNil(t, a.Logger())
	assert.NoError(t, a.Close())
}

func TestNewFailsOnBadBackend(t *testing.T) {
	t.Parallel()

	cfg := memoryConfig()
	cfg.Storage.Backend = "tape"
	_, err := app.New(context.Background(), cfg, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "initialize storage")
}

func TestCloseReleasesEverything(t *testing.T) {
	t.Parallel()

	store := &MockStore{}
	store.On("Close").Return(errors.New("store close failed"))
	pub := &MockPublisher{}
	pub.On("Close").Return(nil)

	a := app.Assemble(memoryConfig(), store, pub, nil)
	err := a.Close()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "close store")
	store.AssertExpectations(t)
	pub.AssertExpectations(t)
}

func TestServerUsesArchive(t *testing.T) {
	t.Parallel()

	store := &MockStore{}
	store.On("Get", mock.Anything, "https://a.test/").
		Return([]byte(`[{"url":"https://a.test/","title":"A","html":"a"}]`), true, nil)

	a := app.Assemble(memoryConfig(), store, nil, nil)
	rec := httptest.NewRecorder()
	a.Server().Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/crawls?url=https://a.test/&n=5", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"title":"A"`)
	store.AssertExpectations(t)
}

func TestNewWithTracingEnabled(t *testing.T) {
	cfg := memoryConfig()
	cfg.Tracing.Enabled = true
	cfg.Tracing.SampleRatio = 1

	a, err := app.New(context.Background(), cfg, nil)
	require.NoError(t, err)
	assert.NoError(t, a.Close())
}

func TestServerAppliesAdmission(t *testing.T) {
	t.Parallel()

	cfg := memoryConfig()
	cfg.Server.CrawlRPS = 0.01
	cfg.Server.CrawlBurst = 1
	store := &MockStore{}
	a := app.Assemble(cfg, store, nil, nil)
	handler := a.Server().Handler()

	// Rejected by validation after admission, so nothing is fetched.
	body := `{"url":"ftp://nowhere"}`
	first := httptest.NewRecorder()
	handler.ServeHTTP(first, httptest.NewRequest(http.MethodPost, "/v1/crawls", strings.NewReader(body)))
	second := httptest.NewRecorder()
	handler.ServeHTTP(second, httptest.NewRequest(http.MethodPost, "/v1/crawls", strings.NewReader(body)))

	assert.Equal(t, http.StatusBadRequest, first.Code)
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
}
