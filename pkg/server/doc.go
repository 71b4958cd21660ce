// Package server is the request-time half of Matcha.
//
// A Service renders pages and props on demand for one frozen route table.
// It is built by one of two adapters:
//
//   - FromArtifacts reads the SSR manifest, the page shell and the cached
//     static props from a build's artifact store. Used by `matcha serve`.
//   - Live derives the manifest from the table and runs static loaders on
//     every request. Used by `matcha dev`.
//
// Handler exposes a Service over HTTP:
//
//	GET /<route>                  page (pre-rendered file or fresh render)
//	GET /<route>/_props.json      props (cached artifact or fresh merge)
//	GET /__matcha_props?path=/x   uncached props, dev only
//	GET /metrics                  Prometheus metrics
//
// Request loader output always wins over static output. Dynamic routes are
// never cached by intermediaries: their responses carry Cache-Control:
// no-store.
//
// Service is safe for concurrent use. Its only shared state is the frozen
// route table, the manifest and the read-only props cache.
package server
