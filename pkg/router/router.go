package router

import (
	"fmt"
	"slices"
	"strings"
	"sync/atomic"

	"github.com/matcha-dev/matcha/pkg/routepath"
)

// Router is an insertion-ordered route table. Registration happens during
// initialization; after Freeze the table is read-only and safe to share.
type Router struct {
	routes []*Route
	index  map[string]*Route
	frozen atomic.Bool
}

// New creates an empty route table.
func New() *Router {
	return &Router{index: make(map[string]*Route)}
}

// RouteOption configures a route at registration.
type RouteOption func(*Route)

// WithStaticLoader attaches a build-time loader.
func WithStaticLoader(fn LoaderFunc) RouteOption {
	return func(r *Route) {
		r.StaticLoader = fn
	}
}

// WithRequestLoader attaches a per-request loader and makes the route dynamic.
func WithRequestLoader(fn LoaderFunc) RouteOption {
	return func(r *Route) {
		r.RequestLoader = fn
	}
}

// Page registers a page and panics on an invalid registration. It is meant
// for program initialization, where a bad table is a programming error.
//
// Example:
//
//	r.Page("/about", pages.About, router.WithStaticLoader(loadBlog))
func (r *Router) Page(path string, component Component, opts ...RouteOption) {
	if err := r.Add(path, component, opts...); err != nil {
		panic(err)
	}
}

// Add registers a page, reporting invalid or duplicate paths as errors.
func (r *Router) Add(path string, component Component, opts ...RouteOption) error {
	if r.frozen.Load() {
		panic("router: Add called after Freeze")
	}
	if err := validatePath(path); err != nil {
		return err
	}
	if component == nil {
		return fmt.Errorf("%w: %s", ErrNilComponent, path)
	}
	if _, exists := r.index[path]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateRoute, path)
	}

	route := &Route{Path: path, Component: component}
	for _, opt := range opts {
		opt(route)
	}

	r.routes = append(r.routes, route)
	r.index[path] = route
	return nil
}

func validatePath(path string) error {
	if path == "" || !strings.HasPrefix(path, "/") {
		return fmt.Errorf("%w: %q must be absolute", ErrInvalidPath, path)
	}
	if routepath.Normalize(path) != path {
		return fmt.Errorf("%w: %q has a trailing slash", ErrInvalidPath, path)
	}
	if strings.ContainsAny(path, "?#") {
		return fmt.Errorf("%w: %q contains a query or fragment", ErrInvalidPath, path)
	}
	return nil
}

// Freeze marks the table read-only. Further registrations panic.
func (r *Router) Freeze() {
	r.frozen.Store(true)
}

// Frozen reports whether Freeze has been called.
func (r *Router) Frozen() bool {
	return r.frozen.Load()
}

// Routes returns the routes in registration order. The slice is a copy; the
// routes themselves must not be modified.
func (r *Router) Routes() []*Route {
	return slices.Clone(r.routes)
}

// Len returns the number of registered routes.
func (r *Router) Len() int {
	return len(r.routes)
}

// Match resolves a path to its route after normalization.
func (r *Router) Match(path string) (*Route, bool) {
	return Match(r.routes, path)
}

// Lookup is Match returning ErrRouteNotFound instead of a bool.
func (r *Router) Lookup(path string) (*Route, error) {
	route, ok := r.Match(path)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrRouteNotFound, routepath.Normalize(path))
	}
	return route, nil
}

// Match scans routes in order and returns the first whose path equals the
// normalized path.
func Match(routes []*Route, path string) (*Route, bool) {
	path = routepath.Normalize(path)
	for _, route := range routes {
		if route.Path == path {
			return route, true
		}
	}
	return nil, false
}

// Partition splits routes into static-only and dynamic, preserving order.
func Partition(routes []*Route) (static, dynamic []*Route) {
	for _, route := range routes {
		if route.Dynamic() {
			dynamic = append(dynamic, route)
		} else {
			static = append(static, route)
		}
	}
	return static, dynamic
}
