package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sp3dr4/tern/config"
)

// PrometheusRegistry implements the Registry interface using Prometheus metrics
type PrometheusRegistry struct {
	registry *prometheus.Registry
	config   config.MetricsConfig

	// HTTP Metrics
	httpRequestsTotal    *prometheus.CounterVec
	httpRequestDuration  *prometheus.HistogramVec
	httpRequestsInFlight prometheus.Gauge

	// Business Metrics
	mappingsCreatedTotal  prometheus.Counter
	mappingsResolvedTotal prometheus.Counter
	mappingsDeletedTotal  prometheus.Counter
	codeCollisionsTotal   prometheus.Counter
	codeExhaustedTotal    prometheus.Counter

	// Cache Metrics
	cacheLookupsTotal   *prometheus.CounterVec
	coalescedLoadsTotal prometheus.Counter

	// Store Metrics
	storeOperationsTotal   *prometheus.CounterVec
	storeOperationDuration *prometheus.HistogramVec
}

// NewPrometheusRegistry creates a new Prometheus metrics registry
func NewPrometheusRegistry(cfg config.MetricsConfig) (Registry, error) {
	registry := prometheus.NewRegistry()

	counter := func(name, help string) prometheus.Counter {
		return prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      name,
			Help:      help,
		})
	}

	httpRequestsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{LabelMethod, LabelPath, LabelStatusCode},
	)

	httpRequestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{LabelMethod, LabelPath, LabelStatusCode},
	)

	httpRequestsInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "http_requests_in_flight",
			Help:      "Number of HTTP requests currently being processed",
		},
	)

	cacheLookupsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "cache_lookups_total",
			Help:      "Cache lookups by tier and outcome",
		},
		[]string{LabelCacheTier, LabelCacheStatus},
	)

	storeOperationsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "store_operations_total",
			Help:      "Backing store operations by operation and outcome",
		},
		[]string{LabelOperation, LabelStatus},
	)

	storeOperationDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "store_operation_duration_seconds",
			Help:      "Backing store operation latency in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{LabelOperation},
	)

	p := &PrometheusRegistry{
		registry:               registry,
		config:                 cfg,
		httpRequestsTotal:      httpRequestsTotal,
		httpRequestDuration:    httpRequestDuration,
		httpRequestsInFlight:   httpRequestsInFlight,
		mappingsCreatedTotal:   counter("mappings_created_total", "Total number of mappings created"),
		mappingsResolvedTotal:  counter("mappings_resolved_total", "Total number of short codes resolved"),
		mappingsDeletedTotal:   counter("mappings_deleted_total", "Total number of mappings deleted"),
		codeCollisionsTotal:    counter("code_collisions_total", "Candidate codes already taken by a different URL"),
		codeExhaustedTotal:     counter("code_exhausted_total", "Creations that ran out of salts"),
		cacheLookupsTotal:      cacheLookupsTotal,
		coalescedLoadsTotal:    counter("coalesced_loads_total", "Loads that shared an in-flight fetch"),
		storeOperationsTotal:   storeOperationsTotal,
		storeOperationDuration: storeOperationDuration,
	}

	// Register all metrics
	metricsCollectors := []prometheus.Collector{
		p.httpRequestsTotal,
		p.httpRequestDuration,
		p.httpRequestsInFlight,
		p.mappingsCreatedTotal,
		p.mappingsResolvedTotal,
		p.mappingsDeletedTotal,
		p.codeCollisionsTotal,
		p.codeExhaustedTotal,
		p.cacheLookupsTotal,
		p.coalescedLoadsTotal,
		p.storeOperationsTotal,
		p.storeOperationDuration,
	}

	for _, collector := range metricsCollectors {
		if err := registry.Register(collector); err != nil {
			return nil, err
		}
	}

	// Register Go runtime metrics if enabled
	if cfg.CollectRuntime {
		registry.MustRegister(collectors.NewGoCollector())
		registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	}

	return p, nil
}

// RecordHTTPRequest records an HTTP request with method, path, status code, and duration
func (p *PrometheusRegistry) RecordHTTPRequest(method, path, statusCode string, duration float64) {
	labels := prometheus.Labels{
		LabelMethod:     method,
		LabelPath:       path,
		LabelStatusCode: statusCode,
	}
	p.httpRequestsTotal.With(labels).Inc()
	p.httpRequestDuration.With(labels).Observe(duration)
}

func (p *PrometheusRegistry) IncHTTPRequestsInFlight() {
	p.httpRequestsInFlight.Inc()
}

func (p *PrometheusRegistry) DecHTTPRequestsInFlight() {
	p.httpRequestsInFlight.Dec()
}

func (p *PrometheusRegistry) IncMappingsCreated() {
	p.mappingsCreatedTotal.Inc()
}

func (p *PrometheusRegistry) IncMappingsResolved() {
	p.mappingsResolvedTotal.Inc()
}

func (p *PrometheusRegistry) IncMappingsDeleted() {
	p.mappingsDeletedTotal.Inc()
}

func (p *PrometheusRegistry) IncCodeCollisions() {
	p.codeCollisionsTotal.Inc()
}

func (p *PrometheusRegistry) IncCodeExhausted() {
	p.codeExhaustedTotal.Inc()
}

// RecordCacheLookup counts a lookup against the local or remote cache tier
func (p *PrometheusRegistry) RecordCacheLookup(tier, status string) {
	p.cacheLookupsTotal.With(prometheus.Labels{
		LabelCacheTier:   tier,
		LabelCacheStatus: status,
	}).Inc()
}

func (p *PrometheusRegistry) IncCoalescedLoads() {
	p.coalescedLoadsTotal.Inc()
}

// RecordStoreOperation counts a backing store call and observes its latency
func (p *PrometheusRegistry) RecordStoreOperation(operation, status string, duration float64) {
	p.storeOperationsTotal.With(prometheus.Labels{
		LabelOperation: operation,
		LabelStatus:    status,
	}).Inc()
	p.storeOperationDuration.With(prometheus.Labels{LabelOperation: operation}).Observe(duration)
}

// GetRegistry returns the underlying Prometheus registry
func (p *PrometheusRegistry) GetRegistry() *prometheus.Registry {
	return p.registry
}

// GetHandler returns an HTTP handler for the metrics endpoint
func (p *PrometheusRegistry) GetHandler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}
