// Package loader runs a route's data loaders for one execution phase and
// merges their output into the props a page renders with.
//
// The static loader always runs (or is served from a StaticSource cache).
// The request loader runs only in PhaseRequest and PhaseNavigate. Static
// output is merged first, so request values win on key collision.
//
// Loader failures are never swallowed: a returned error, a panic, or output
// that cannot be represented as JSON comes back as *Error naming the route
// and the loader kind.
package loader
