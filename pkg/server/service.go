package server

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel/trace"

	"github.com/matcha-dev/matcha/pkg/loader"
	"github.com/matcha-dev/matcha/pkg/props"
	"github.com/matcha-dev/matcha/pkg/render"
	"github.com/matcha-dev/matcha/pkg/routepath"
	"github.com/matcha-dev/matcha/pkg/router"
)

// Service renders pages and props at request time.
type Service struct {
	routes   *router.Router
	manifest *router.Manifest
	shell    *render.Shell
	source   loader.StaticSource
	loader   *loader.Orchestrator
	renderer *render.Renderer
	logger   *slog.Logger
	onPage   func(mode string)
}

// Option configures a Service.
type Option func(*serviceOptions)

type serviceOptions struct {
	logger          *slog.Logger
	tracer          trace.Tracer
	onLoaderFailure func(*loader.Error)
	onPage          func(mode string)
}

// WithLogger sets the service logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *serviceOptions) {
		o.logger = l
	}
}

// WithTracer overrides the global tracer for loader and render spans.
func WithTracer(t trace.Tracer) Option {
	return func(o *serviceOptions) {
		o.tracer = t
	}
}

// WithLoaderFailureHook is called for every failed loader call.
func WithLoaderFailureHook(fn func(*loader.Error)) Option {
	return func(o *serviceOptions) {
		o.onLoaderFailure = fn
	}
}

// WithPageHook is called once per rendered page with the route's mode.
func WithPageHook(fn func(mode string)) Option {
	return func(o *serviceOptions) {
		o.onPage = fn
	}
}

// New assembles a Service. Most callers want FromArtifacts or Live.
// source may be nil, in which case static loaders run on every request.
func New(routes *router.Router, shell *render.Shell, manifest *router.Manifest, source loader.StaticSource, opts ...Option) *Service {
	var o serviceOptions
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	if shell == nil {
		shell = render.DefaultShell()
	}

	routes.Freeze()

	renderOpts := []render.Option{render.WithLogger(o.logger)}
	if o.tracer != nil {
		renderOpts = append(renderOpts, render.WithTracer(o.tracer))
	}

	return &Service{
		routes:   routes,
		manifest: manifest,
		shell:    shell,
		source:   source,
		loader: &loader.Orchestrator{
			StaticSource: source,
			OnFailure:    o.onLoaderFailure,
			Logger:       o.logger,
			Tracer:       o.tracer,
		},
		renderer: render.New(routes, renderOpts...),
		logger:   o.logger,
		onPage:   o.onPage,
	}
}

// Routes returns the route table.
func (s *Service) Routes() *router.Router {
	return s.routes
}

// Manifest returns the set of dynamic route paths.
func (s *Service) Manifest() *router.Manifest {
	return s.manifest
}

// Shell returns the page shell pages are injected into.
func (s *Service) Shell() *render.Shell {
	return s.shell
}

// IsDynamicRoute reports whether path must be rendered per request.
func (s *Service) IsDynamicRoute(path string) bool {
	return s.manifest.Contains(routepath.Normalize(path))
}

// RenderProps returns the merged props for path. Static props come from the
// cache when present; the request loader always runs.
func (s *Service) RenderProps(ctx context.Context, path string) (props.Props, error) {
	route, err := s.routes.Lookup(routepath.Normalize(path))
	if err != nil {
		return nil, err
	}
	return s.loader.LoadProps(ctx, route, loader.PhaseRequest)
}

// RenderPage renders path into a complete HTML document.
func (s *Service) RenderPage(ctx context.Context, path string) (string, error) {
	route, err := s.routes.Lookup(routepath.Normalize(path))
	if err != nil {
		return "", err
	}
	p, err := s.loader.LoadProps(ctx, route, loader.PhaseRequest)
	if err != nil {
		return "", err
	}
	res, err := s.renderer.RenderRoute(ctx, route, p)
	if err != nil {
		return "", err
	}
	html, err := s.shell.Inject(res.Markup, res.Props, s.manifest)
	if err != nil {
		return "", &render.Error{Path: route.Path, Err: err}
	}
	if s.onPage != nil {
		s.onPage(route.Mode())
	}
	return html, nil
}

// NotFoundPage is the fixed not-found view inside the shell, with empty
// props so a client router boots into its not-found state.
func (s *Service) NotFoundPage() (string, error) {
	return s.shell.Inject(render.NotFoundMarkup, props.Props{}, s.manifest)
}
