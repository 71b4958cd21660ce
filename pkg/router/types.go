package router

import (
	"context"
	"errors"

	"github.com/a-h/templ"

	"github.com/matcha-dev/matcha/pkg/props"
)

// Component builds the renderable tree for a route from its merged props.
type Component func(p props.Props) templ.Component

// LoaderFunc produces data for a route. The returned value may be any shape
// props.Normalize accepts, including a {"props": {...}} wrapper.
type LoaderFunc func(ctx context.Context) (any, error)

// Route is one entry of the route table.
type Route struct {
	// Path is the normalized URL path, e.g. "/" or "/about".
	Path string

	// Component renders the page.
	Component Component

	// StaticLoader runs at build time; its output is cached.
	StaticLoader LoaderFunc

	// RequestLoader runs on every request and client navigation.
	RequestLoader LoaderFunc
}

// Dynamic reports whether the route must be rendered at request time.
func (r *Route) Dynamic() bool {
	return r.RequestLoader != nil
}

// Mode returns "ssr" for dynamic routes and "static" otherwise.
func (r *Route) Mode() string {
	if r.Dynamic() {
		return "ssr"
	}
	return "static"
}

// Route table errors.
var (
	// ErrRouteNotFound is returned by callers that need an error for an
	// unmatched path. Match itself reports a bool.
	ErrRouteNotFound = errors.New("route not found")

	// ErrDuplicateRoute is returned when a path is registered twice.
	ErrDuplicateRoute = errors.New("duplicate route")

	// ErrInvalidPath is returned for paths that are empty, relative or not
	// in normalized form.
	ErrInvalidPath = errors.New("invalid route path")

	// ErrNilComponent is returned when a route has no component.
	ErrNilComponent = errors.New("route has no component")
)
