package render

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/matcha-dev/matcha/pkg/props"
	"github.com/matcha-dev/matcha/pkg/router"
)

// Result is the output of one render: the markup and the props it was
// produced from.
type Result struct {
	Markup string
	Props  props.Props
}

// Error reports a component that failed to render.
type Error struct {
	Path string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("render %s: %v", e.Path, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Renderer renders routes of a frozen table. It holds no mutable state and
// is safe for concurrent use.
type Renderer struct {
	routes *router.Router
	logger *slog.Logger
	tracer trace.Tracer
}

// Option configures a Renderer.
type Option func(*Renderer)

// WithLogger sets the logger; the default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(r *Renderer) {
		r.logger = l
	}
}

// WithTracer overrides the global OpenTelemetry tracer.
func WithTracer(t trace.Tracer) Option {
	return func(r *Renderer) {
		r.tracer = t
	}
}

// New creates a renderer over routes.
func New(routes *router.Router, opts ...Option) *Renderer {
	r := &Renderer{routes: routes}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = slog.Default()
	}
	if r.tracer == nil {
		r.tracer = otel.Tracer("github.com/matcha-dev/matcha/pkg/render")
	}
	return r
}

// Routes returns the table the renderer serves.
func (r *Renderer) Routes() *router.Router {
	return r.routes
}

// Render matches path and renders its component with p. An unmatched path
// returns an error wrapping router.ErrRouteNotFound.
func (r *Renderer) Render(ctx context.Context, path string, p props.Props) (*Result, error) {
	route, err := r.routes.Lookup(path)
	if err != nil {
		return nil, err
	}
	return r.RenderRoute(ctx, route, p)
}

// RenderRoute renders an already matched route.
func (r *Renderer) RenderRoute(ctx context.Context, route *router.Route, p props.Props) (*Result, error) {
	ctx, span := r.tracer.Start(ctx, "matcha.render",
		trace.WithAttributes(attribute.String("matcha.route", route.Path)),
	)
	defer span.End()

	if p == nil {
		p = props.Props{}
	}

	var buf bytes.Buffer
	if err := renderComponent(ctx, route.Component, p, &buf); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, &Error{Path: route.Path, Err: err}
	}

	span.SetAttributes(attribute.Int("matcha.markup.bytes", buf.Len()))
	r.logger.Debug("rendered route", "path", route.Path, "bytes", buf.Len())

	return &Result{Markup: buf.String(), Props: p}, nil
}

// renderComponent runs the component, converting a panic into an error.
func renderComponent(ctx context.Context, c router.Component, p props.Props, buf *bytes.Buffer) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return c(p).Render(ctx, buf)
}

// RenderPage renders path and injects the result into shell.
func (r *Renderer) RenderPage(ctx context.Context, shell *Shell, manifest *router.Manifest, path string, p props.Props) (string, error) {
	res, err := r.Render(ctx, path, p)
	if err != nil {
		return "", err
	}
	return shell.Inject(res.Markup, res.Props, manifest)
}
