package middleware

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
)

// UnmatchedRoute labels requests that no route claimed.
const UnmatchedRoute = "unmatched"

type routeLabelKey struct{}

type routeLabel struct {
	value string
}

// SetRoute overrides the route label recorded for the current request.
// It is a no-op outside Metrics or Tracing.
func SetRoute(ctx context.Context, route string) {
	if l, ok := ctx.Value(routeLabelKey{}).(*routeLabel); ok && route != "" {
		l.value = route
	}
}

// withRouteLabel returns a request carrying a label slot, reusing one
// installed by an outer middleware.
func withRouteLabel(r *http.Request) (*http.Request, *routeLabel) {
	if l, ok := r.Context().Value(routeLabelKey{}).(*routeLabel); ok {
		return r, l
	}
	l := &routeLabel{}
	return r.WithContext(context.WithValue(r.Context(), routeLabelKey{}, l)), l
}

// routeFor resolves the label once the handler has run.
func routeFor(r *http.Request, l *routeLabel) string {
	if l.value != "" {
		return l.value
	}
	if rc := chi.RouteContext(r.Context()); rc != nil {
		if p := rc.RoutePattern(); p != "" {
			return p
		}
	}
	return UnmatchedRoute
}
