package loader

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/matcha-dev/matcha/pkg/props"
	"github.com/matcha-dev/matcha/pkg/router"
)

// Func is the loader signature routes declare.
type Func = router.LoaderFunc

// Phase is the execution context a load happens in.
type Phase int

const (
	// PhaseBuild runs static loaders only.
	PhaseBuild Phase = iota
	// PhaseRequest runs static and request loaders for a server request.
	PhaseRequest
	// PhaseNavigate runs static and request loaders for a client navigation.
	PhaseNavigate
)

// String returns the phase name.
func (p Phase) String() string {
	switch p {
	case PhaseBuild:
		return "build"
	case PhaseRequest:
		return "request"
	case PhaseNavigate:
		return "navigate"
	default:
		return fmt.Sprintf("Phase(%d)", int(p))
	}
}

// AllowsRequest reports whether request loaders run in this phase.
func (p Phase) AllowsRequest() bool {
	return p == PhaseRequest || p == PhaseNavigate
}

// Kind identifies which loader of a route failed.
type Kind string

const (
	KindStatic  Kind = "static"
	KindRequest Kind = "request"
)

// Error reports a loader failure for a route.
type Error struct {
	Path string
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s loader for %s: %v", e.Kind, e.Path, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// PanicError is the cause recorded when a loader panics.
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}

// StaticSource serves cached static props, typically the _props.json
// artifacts written at build time. ok is false on a cache miss.
type StaticSource interface {
	StaticProps(ctx context.Context, path string) (p props.Props, ok bool, err error)
}

// Orchestrator runs loaders. The zero value is ready to use.
type Orchestrator struct {
	// StaticSource, when set, is consulted before invoking a static loader
	// outside the build phase.
	StaticSource StaticSource

	// OnFailure is called for every loader failure before it is returned.
	OnFailure func(*Error)

	// Logger receives debug output; nil uses slog.Default().
	Logger *slog.Logger

	// Tracer overrides the global OpenTelemetry tracer.
	Tracer trace.Tracer
}

const tracerName = "github.com/matcha-dev/matcha/pkg/loader"

func (o *Orchestrator) logger() *slog.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return slog.Default()
}

func (o *Orchestrator) tracer() trace.Tracer {
	if o.Tracer != nil {
		return o.Tracer
	}
	return otel.Tracer(tracerName)
}

// LoadProps returns the merged props for route in phase. Absent loaders
// contribute nothing; a route with no loaders yields an empty Props.
func (o *Orchestrator) LoadProps(ctx context.Context, route *router.Route, phase Phase) (props.Props, error) {
	static, err := o.staticProps(ctx, route, phase)
	if err != nil {
		return nil, err
	}

	var request props.Props
	if phase.AllowsRequest() && route.RequestLoader != nil {
		request, err = o.invoke(ctx, route, KindRequest, route.RequestLoader)
		if err != nil {
			return nil, err
		}
	}

	return props.Merge(static, request), nil
}

// StaticProps runs only the static layer for route, as the build does for
// the per-route props artifact.
func (o *Orchestrator) StaticProps(ctx context.Context, route *router.Route) (props.Props, error) {
	return o.staticProps(ctx, route, PhaseBuild)
}

func (o *Orchestrator) staticProps(ctx context.Context, route *router.Route, phase Phase) (props.Props, error) {
	if phase != PhaseBuild && o.StaticSource != nil {
		cached, ok, err := o.StaticSource.StaticProps(ctx, route.Path)
		if err != nil {
			return nil, o.fail(&Error{Path: route.Path, Kind: KindStatic, Err: err})
		}
		if ok {
			return cached, nil
		}
		o.logger().Debug("static props cache miss", "path", route.Path)
	}

	if route.StaticLoader == nil {
		return props.Props{}, nil
	}
	return o.invoke(ctx, route, KindStatic, route.StaticLoader)
}

func (o *Orchestrator) invoke(ctx context.Context, route *router.Route, kind Kind, fn Func) (props.Props, error) {
	ctx, span := o.tracer().Start(ctx, "matcha.loader",
		trace.WithAttributes(
			attribute.String("matcha.route", route.Path),
			attribute.String("matcha.loader.kind", string(kind)),
		),
	)
	defer span.End()

	raw, err := call(ctx, fn)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, o.fail(&Error{Path: route.Path, Kind: kind, Err: err})
	}

	p, err := props.Normalize(raw)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "props not serializable")
		return nil, o.fail(&Error{Path: route.Path, Kind: kind, Err: err})
	}

	span.SetAttributes(attribute.Int("matcha.props.keys", len(p)))
	return p, nil
}

func (o *Orchestrator) fail(err *Error) error {
	o.logger().Debug("loader failed", "path", err.Path, "loader", string(err.Kind), "err", err.Err)
	if o.OnFailure != nil {
		o.OnFailure(err)
	}
	return err
}

// call invokes fn, converting a panic into a *PanicError.
func call(ctx context.Context, fn Func) (v any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Value: r, Stack: debug.Stack()}
		}
	}()
	return fn(ctx)
}

// IsSerialization reports whether err stems from props that cannot be
// represented as JSON.
func IsSerialization(err error) bool {
	var se *props.SerializationError
	return errors.As(err, &se)
}
