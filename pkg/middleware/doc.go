// Package middleware provides HTTP middleware for Matcha servers.
//
// # Prometheus Metrics
//
// Metrics counts requests and observes their latency, labelled by route
// pattern rather than raw URL so that cardinality stays bounded:
//   - matcha_http_requests_total{route,status}
//   - matcha_http_request_duration_seconds{route}
//   - matcha_loader_failures_total{kind}
//   - matcha_pages_generated_total{mode}
//
// The last two are fed by the build pipeline and the loader orchestrator
// through RecordLoaderFailure and RecordPageGenerated.
//
//	r := chi.NewRouter()
//	r.Use(middleware.Metrics())
//	r.Handle("/metrics", middleware.MetricsHandler(prometheus.DefaultGatherer))
//
// Handlers that know a better label than the chi pattern (for example a
// catch-all page handler that resolved a route table entry) call SetRoute.
//
// # OpenTelemetry Tracing
//
// Tracing opens one server span per request named "matcha <method> <route>".
// Incoming trace context is extracted with the global propagator.
//
//	r.Use(middleware.Tracing(
//	    middleware.WithTracerName("my-site"),
//	    middleware.WithFilter(func(r *http.Request) bool {
//	        return r.URL.Path != "/healthz"
//	    }),
//	))
package middleware
