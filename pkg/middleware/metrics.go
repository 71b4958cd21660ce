package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsConfig configures the Prometheus metrics middleware.
type MetricsConfig struct {
	// Namespace is the metrics namespace (default: "matcha").
	Namespace string

	// Subsystem is the metrics subsystem (default: "").
	Subsystem string

	// ConstLabels are constant labels added to all metrics.
	ConstLabels prometheus.Labels

	// Buckets are the histogram buckets for request duration.
	// Default: prometheus.DefBuckets
	Buckets []float64

	// Registry is the Prometheus registry to use.
	// Default: prometheus.DefaultRegisterer
	Registry prometheus.Registerer
}

// MetricsOption configures the Prometheus metrics middleware.
type MetricsOption func(*MetricsConfig)

// WithNamespace sets the metrics namespace.
func WithNamespace(namespace string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Namespace = namespace
	}
}

// WithSubsystem sets the metrics subsystem.
func WithSubsystem(subsystem string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Subsystem = subsystem
	}
}

// WithConstLabels sets constant labels for all metrics.
func WithConstLabels(labels prometheus.Labels) MetricsOption {
	return func(c *MetricsConfig) {
		c.ConstLabels = labels
	}
}

// WithBuckets sets the histogram buckets.
func WithBuckets(buckets []float64) MetricsOption {
	return func(c *MetricsConfig) {
		c.Buckets = buckets
	}
}

// WithRegistry sets the Prometheus registry.
func WithRegistry(registry prometheus.Registerer) MetricsOption {
	return func(c *MetricsConfig) {
		c.Registry = registry
	}
}

func defaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Namespace: "matcha",
		Buckets:   prometheus.DefBuckets,
		Registry:  prometheus.DefaultRegisterer,
	}
}

type metrics struct {
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	loaderFailures  *prometheus.CounterVec
	pagesGenerated  *prometheus.CounterVec
}

// globalMetrics is created by the first InitMetrics or Metrics call.
// Later calls reuse it so a process registers each collector once.
var (
	globalMetrics   *metrics
	globalMetricsMu sync.Mutex
)

func initMetrics(config MetricsConfig) *metrics {
	factory := promauto.With(config.Registry)

	return &metrics{
		requestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "http_requests_total",
			Help:        "Total number of HTTP requests served",
			ConstLabels: config.ConstLabels,
		}, []string{"route", "status"}),

		requestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "http_request_duration_seconds",
			Help:        "HTTP request duration in seconds",
			ConstLabels: config.ConstLabels,
			Buckets:     config.Buckets,
		}, []string{"route"}),

		loaderFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "loader_failures_total",
			Help:        "Total number of failed static or request loader calls",
			ConstLabels: config.ConstLabels,
		}, []string{"kind"}),

		pagesGenerated: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "pages_generated_total",
			Help:        "Total number of pages generated, by rendering mode",
			ConstLabels: config.ConstLabels,
		}, []string{"mode"}),
	}
}

// InitMetrics registers the collectors if that has not happened yet.
// Commands that never serve HTTP (build) call it so the Record functions
// have somewhere to write.
func InitMetrics(opts ...MetricsOption) {
	config := defaultMetricsConfig()
	for _, opt := range opts {
		opt(&config)
	}
	ensureMetrics(config)
}

func ensureMetrics(config MetricsConfig) *metrics {
	globalMetricsMu.Lock()
	defer globalMetricsMu.Unlock()
	if globalMetrics == nil {
		globalMetrics = initMetrics(config)
	}
	return globalMetrics
}

func currentMetrics() *metrics {
	globalMetricsMu.Lock()
	defer globalMetricsMu.Unlock()
	return globalMetrics
}

// Metrics returns middleware recording request counts and latency.
//
// The route label is the value passed to SetRoute, else the matched chi
// pattern, else UnmatchedRoute. Raw paths are never used as labels.
//
//	r := chi.NewRouter()
//	r.Use(middleware.Metrics(middleware.WithNamespace("site")))
func Metrics(opts ...MetricsOption) func(http.Handler) http.Handler {
	config := defaultMetricsConfig()
	for _, opt := range opts {
		opt(&config)
	}
	m := ensureMetrics(config)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			r, label := withRouteLabel(r)
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()

			next.ServeHTTP(ww, r)

			route := routeFor(r, label)
			m.requestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
			m.requestsTotal.WithLabelValues(route, statusLabel(ww.Status())).Inc()
		})
	}
}

// statusLabel treats a handler that never called WriteHeader as 200.
func statusLabel(code int) string {
	if code == 0 {
		code = http.StatusOK
	}
	return strconv.Itoa(code)
}

// MetricsHandler exposes the given gatherer in the Prometheus text format.
func MetricsHandler(g prometheus.Gatherer) http.Handler {
	if g == nil {
		g = prometheus.DefaultGatherer
	}
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

// RecordLoaderFailure counts a failed loader call of the given kind
// ("static" or "request").
func RecordLoaderFailure(kind string) {
	if m := currentMetrics(); m != nil {
		m.loaderFailures.WithLabelValues(kind).Inc()
	}
}

// RecordPageGenerated counts one generated page in the given mode
// ("static" or "ssr").
func RecordPageGenerated(mode string) {
	if m := currentMetrics(); m != nil {
		m.pagesGenerated.WithLabelValues(mode).Inc()
	}
}

// Collector exposes the underlying Prometheus metrics.
type Collector struct {
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	LoaderFailures  *prometheus.CounterVec
	PagesGenerated  *prometheus.CounterVec
}

// GetMetrics returns the global metrics collector.
// Returns nil if metrics have not been initialized.
func GetMetrics() *Collector {
	m := currentMetrics()
	if m == nil {
		return nil
	}
	return &Collector{
		RequestsTotal:   m.requestsTotal,
		RequestDuration: m.requestDuration,
		LoaderFailures:  m.loaderFailures,
		PagesGenerated:  m.pagesGenerated,
	}
}
