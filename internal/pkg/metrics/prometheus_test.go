package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sp3dr4/tern/config"
)

func testConfig() config.MetricsConfig {
	return config.MetricsConfig{
		Enabled:   true,
		Path:      "/metrics",
		Namespace: "test",
		Subsystem: "test",
	}
}

func TestNewPrometheusRegistry(t *testing.T) {
	tests := []struct {
		name   string
		config config.MetricsConfig
	}{
		{
			name: "valid config",
			config: config.MetricsConfig{
				Enabled:         true,
				Path:            "/metrics",
				Namespace:       "tern",
				Subsystem:       "shortener",
				CollectRuntime:  true,
				CollectDatabase: true,
			},
		},
		{
			name:   "minimal config",
			config: testConfig(),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			registry, err := NewPrometheusRegistry(tt.config)
			require.NoError(t, err)
			assert.NotNil(t, registry.GetRegistry())
			assert.NotNil(t, registry.GetHandler())
		})
	}
}

func TestPrometheusRegistry_BusinessMetrics(t *testing.T) {
	registry, err := NewPrometheusRegistry(testConfig())
	require.NoError(t, err)
	p := registry.(*PrometheusRegistry)

	registry.IncMappingsCreated()
	registry.IncMappingsCreated()
	registry.IncMappingsResolved()
	registry.IncMappingsDeleted()
	registry.IncCodeCollisions()
	registry.IncCodeExhausted()
	registry.IncCoalescedLoads()

	assert.Equal(t, 2.0, testutil.ToFloat64(p.mappingsCreatedTotal))
	assert.Equal(t, 1.0, testutil.ToFloat64(p.mappingsResolvedTotal))
	assert.Equal(t, 1.0, testutil.ToFloat64(p.mappingsDeletedTotal))
	assert.Equal(t, 1.0, testutil.ToFloat64(p.codeCollisionsTotal))
	assert.Equal(t, 1.0, testutil.ToFloat64(p.codeExhaustedTotal))
	assert.Equal(t, 1.0, testutil.ToFloat64(p.coalescedLoadsTotal))
}

func TestPrometheusRegistry_CacheAndStoreMetrics(t *testing.T) {
	registry, err := NewPrometheusRegistry(testConfig())
	require.NoError(t, err)
	p := registry.(*PrometheusRegistry)

	registry.RecordCacheLookup(CacheTierLocal, CacheHit)
	registry.RecordCacheLookup(CacheTierLocal, CacheMiss)
	registry.RecordCacheLookup(CacheTierLocal, CacheMiss)
	registry.RecordStoreOperation("find_by_short_code", StatusOK, 0.01)

	assert.Equal(t, 1.0, testutil.ToFloat64(p.cacheLookupsTotal.WithLabelValues(CacheTierLocal, CacheHit)))
	assert.Equal(t, 2.0, testutil.ToFloat64(p.cacheLookupsTotal.WithLabelValues(CacheTierLocal, CacheMiss)))
	assert.Equal(t, 1.0, testutil.ToFloat64(p.storeOperationsTotal.WithLabelValues("find_by_short_code", StatusOK)))
}

func TestPrometheusMiddleware(t *testing.T) {
	registry, err := NewPrometheusRegistry(testConfig())
	require.NoError(t, err)
	p := registry.(*PrometheusRegistry)

	r := chi.NewRouter()
	r.Use(PrometheusMiddleware(registry, "/metrics"))
	r.Get("/shorten/{code}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusFound)
	})
	r.Handle("/metrics", registry.GetHandler())

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/shorten/abcd1234", nil))
	assert.Equal(t, http.StatusFound, rec.Code)

	assert.Equal(t, 1.0, testutil.ToFloat64(p.httpRequestsTotal.WithLabelValues("GET", "/shorten/{code}", "302")))

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "test_test_http_requests_total"))
}

func TestNormalizePath(t *testing.T) {
	tests := map[string]string{
		"":                       "/",
		"/health":                "/health",
		"/shorten":               "/shorten",
		"/shorten/abcd1234":      "/shorten/{code}",
		"/api/mappings":          "/api/mappings",
		"/api/mappings/42":       "/api/mappings/{id}",
		"/api/mappings/code/abc": "/api/mappings/code/{code}",
		"/swagger/index.html":    "/swagger/*",
		"/random/deep/path":      "/unmatched",
	}

	for in, want := range tests {
		assert.Equal(t, want, NormalizePath(in), "NormalizePath(%q)", in)
	}
}

func TestNoOpRegistry(t *testing.T) {
	registry := NewNoOpRegistry()

	assert.NotPanics(t, func() {
		registry.RecordHTTPRequest("GET", "/test", "200", 0.1)
		registry.IncHTTPRequestsInFlight()
		registry.DecHTTPRequestsInFlight()
		registry.IncMappingsCreated()
		registry.IncMappingsResolved()
		registry.IncMappingsDeleted()
		registry.IncCodeCollisions()
		registry.IncCodeExhausted()
		registry.RecordCacheLookup(CacheTierRemote, CacheError)
		registry.IncCoalescedLoads()
		registry.RecordStoreOperation("insert", StatusError, 0.2)

		assert.Nil(t, registry.GetRegistry())
		assert.Nil(t, registry.GetHandler())
	})
}
