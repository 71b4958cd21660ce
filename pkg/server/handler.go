package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/matcha-dev/matcha/pkg/artifact"
	"github.com/matcha-dev/matcha/pkg/loader"
	"github.com/matcha-dev/matcha/pkg/middleware"
	"github.com/matcha-dev/matcha/pkg/props"
	"github.com/matcha-dev/matcha/pkg/routepath"
	"github.com/matcha-dev/matcha/pkg/router"
)

// DevPropsPath is the uncached props endpoint served in development.
const DevPropsPath = "/__matcha_props"

// MetricsPath is where Prometheus metrics are exposed.
const MetricsPath = "/metrics"

// filesRoute labels requests answered from the artifact store.
const filesRoute = "files"

// HandlerOption configures Handler.
type HandlerOption func(*handlerConfig)

type handlerConfig struct {
	files      artifact.Store
	devProps   bool
	metrics    bool
	registerer prometheus.Registerer
	gatherer   prometheus.Gatherer
	tracing    []middleware.TracingOption
	pageFilter func(string) string
}

// WithFiles serves pre-rendered pages, cached props and other files from
// store. Keys under "server/" are never served.
func WithFiles(store artifact.Store) HandlerOption {
	return func(c *handlerConfig) {
		c.files = store
	}
}

// WithDevProps enables DevPropsPath.
func WithDevProps(enabled bool) HandlerOption {
	return func(c *handlerConfig) {
		c.devProps = enabled
	}
}

// WithMetrics toggles request metrics and the MetricsPath endpoint.
func WithMetrics(enabled bool) HandlerOption {
	return func(c *handlerConfig) {
		c.metrics = enabled
	}
}

// WithMetricsRegistry records into and exposes reg instead of the default
// Prometheus registry.
func WithMetricsRegistry(reg *prometheus.Registry) HandlerOption {
	return func(c *handlerConfig) {
		c.registerer = reg
		c.gatherer = reg
	}
}

// WithTracing passes options to the tracing middleware.
func WithTracing(opts ...middleware.TracingOption) HandlerOption {
	return func(c *handlerConfig) {
		c.tracing = opts
	}
}

// WithPageFilter rewrites every HTML document before it is written. The
// dev server uses it to add the reload script.
func WithPageFilter(fn func(html string) string) HandlerOption {
	return func(c *handlerConfig) {
		c.pageFilter = fn
	}
}

type handler struct {
	svc    *Service
	config handlerConfig
	logger *slog.Logger
}

// Handler returns the HTTP surface of svc.
func Handler(svc *Service, opts ...HandlerOption) http.Handler {
	config := handlerConfig{
		metrics:    true,
		registerer: prometheus.DefaultRegisterer,
		gatherer:   prometheus.DefaultGatherer,
	}
	for _, opt := range opts {
		opt(&config)
	}
	h := &handler{svc: svc, config: config, logger: svc.logger}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(h.logRequests)
	r.Use(chimw.Recoverer)
	if config.metrics {
		r.Use(middleware.Metrics(middleware.WithRegistry(config.registerer)))
	}
	r.Use(middleware.Tracing(config.tracing...))

	if config.metrics {
		r.Handle(MetricsPath, middleware.MetricsHandler(config.gatherer))
	}
	if config.devProps {
		r.Get(DevPropsPath, h.devProps)
	}
	r.Get("/*", h.serve)
	return r
}

func (h *handler) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		h.logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
			"request_id", chimw.GetReqID(r.Context()),
		)
	})
}

func (h *handler) serve(w http.ResponseWriter, r *http.Request) {
	if route, ok := routepath.RouteFromPropsURL(r.URL.Path); ok {
		h.serveProps(w, r, route)
		return
	}
	if route, ok := h.svc.routes.Match(routepath.Normalize(r.URL.Path)); ok {
		h.servePage(w, r, route)
		return
	}
	if h.serveFile(w, r) {
		return
	}
	h.notFound(w, r)
}

func (h *handler) serveProps(w http.ResponseWriter, r *http.Request, path string) {
	ctx := r.Context()
	route, ok := h.svc.routes.Match(routepath.Normalize(path))
	if !ok {
		middleware.SetRoute(ctx, middleware.UnmatchedRoute)
		writeJSONError(w, http.StatusNotFound, router.ErrRouteNotFound)
		return
	}
	middleware.SetRoute(ctx, routepath.PropsURL(route.Path))

	dynamic := h.svc.IsDynamicRoute(route.Path)
	if !dynamic && h.config.files != nil {
		if data, err := h.config.files.Get(ctx, routepath.PropsKey(route.Path)); err == nil {
			writeJSON(w, http.StatusOK, data, false)
			return
		}
	}

	p, err := h.svc.RenderProps(ctx, route.Path)
	if err != nil {
		h.logFailure(r, err)
		writeJSONError(w, http.StatusInternalServerError, err)
		return
	}
	data, err := props.Encode(p)
	if err != nil {
		h.logFailure(r, err)
		writeJSONError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, data, dynamic)
}

func (h *handler) servePage(w http.ResponseWriter, r *http.Request, route *router.Route) {
	ctx := r.Context()
	middleware.SetRoute(ctx, route.Path)

	dynamic := h.svc.IsDynamicRoute(route.Path)
	if !dynamic && h.config.files != nil {
		if data, err := h.config.files.Get(ctx, routepath.PageKey(route.Path)); err == nil {
			h.writeHTML(w, http.StatusOK, string(data), false)
			return
		}
	}

	html, err := h.svc.RenderPage(ctx, route.Path)
	if err != nil {
		h.logFailure(r, err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	h.writeHTML(w, http.StatusOK, html, dynamic)
}

func (h *handler) serveFile(w http.ResponseWriter, r *http.Request) bool {
	if h.config.files == nil {
		return false
	}
	key, err := artifact.CleanKey(r.URL.Path)
	if err != nil || strings.HasPrefix(key, "server/") {
		return false
	}
	data, err := h.config.files.Get(r.Context(), key)
	if err != nil {
		return false
	}
	middleware.SetRoute(r.Context(), filesRoute)
	w.Header().Set("Content-Type", artifact.ContentType(key))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
	return true
}

func (h *handler) notFound(w http.ResponseWriter, r *http.Request) {
	middleware.SetRoute(r.Context(), middleware.UnmatchedRoute)
	html, err := h.svc.NotFoundPage()
	if err != nil {
		h.logFailure(r, err)
		http.NotFound(w, r)
		return
	}
	h.writeHTML(w, http.StatusNotFound, html, false)
}

func (h *handler) devProps(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "no-store")

	path, err := routepath.Clean(r.URL.Query().Get("path"))
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, err)
		return
	}

	p, err := h.svc.RenderProps(r.Context(), path)
	if errors.Is(err, router.ErrRouteNotFound) {
		writeJSONError(w, http.StatusNotFound, err)
		return
	}
	if err != nil {
		h.logFailure(r, err)
		writeJSONError(w, http.StatusInternalServerError, err)
		return
	}
	data, err := props.Encode(p)
	if err != nil {
		h.logFailure(r, err)
		writeJSONError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, data, true)
}

func (h *handler) logFailure(r *http.Request, err error) {
	var le *loader.Error
	if errors.As(err, &le) {
		h.logger.Error("loader failed",
			"path", le.Path,
			"loader", string(le.Kind),
			"err", le.Err,
			"request_id", chimw.GetReqID(r.Context()),
		)
		return
	}
	h.logger.Error("request failed",
		"path", r.URL.Path,
		"err", err,
		"request_id", chimw.GetReqID(r.Context()),
	)
}

func (h *handler) writeHTML(w http.ResponseWriter, status int, html string, noStore bool) {
	if h.config.pageFilter != nil {
		html = h.config.pageFilter(html)
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if noStore {
		w.Header().Set("Cache-Control", "no-store")
	}
	w.WriteHeader(status)
	_, _ = w.Write([]byte(html))
}

func writeJSON(w http.ResponseWriter, status int, data []byte, noStore bool) {
	w.Header().Set("Content-Type", "application/json")
	if noStore {
		w.Header().Set("Cache-Control", "no-store")
	}
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

func writeJSONError(w http.ResponseWriter, status int, err error) {
	data, _ := json.Marshal(map[string]string{"error": err.Error()})
	writeJSON(w, status, data, w.Header().Get("Cache-Control") == "no-store")
}
