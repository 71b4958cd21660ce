// Package routepath holds the path conventions shared by the build, the
// request-time server and the client router: normalization, the props URL
// for a route, and where a route's artifacts live in the output tree.
package routepath

import (
	"path"
	"strings"
)

// Artifact file names.
const (
	// PropsFile is the per-route static props artifact.
	PropsFile = "_props.json"

	// PageFile is the per-route pre-rendered HTML artifact.
	PageFile = "index.html"
)

// Normalize strips a single trailing slash unless the path is exactly "/".
// It does no other rewriting: route identity is exact string equality on
// the normalized form.
func Normalize(p string) string {
	if p == "/" {
		return p
	}
	return strings.TrimSuffix(p, "/")
}

// PropsURL returns the URL the client fetches a route's props from:
// "/_props.json" for the root, "<path>/_props.json" otherwise.
func PropsURL(p string) string {
	p = Normalize(p)
	if p == "/" || p == "" {
		return "/" + PropsFile
	}
	return p + "/" + PropsFile
}

// RouteFromPropsURL reverses PropsURL. It reports false when u does not
// name a props artifact.
func RouteFromPropsURL(u string) (string, bool) {
	if u == "/"+PropsFile {
		return "/", true
	}
	route, ok := strings.CutSuffix(u, "/"+PropsFile)
	if !ok || route == "" {
		return "", false
	}
	return route, true
}

// Dir returns the slash-separated directory, relative to the output root,
// holding a route's artifacts. The root route maps to ".".
func Dir(p string) string {
	p = strings.Trim(Normalize(p), "/")
	if p == "" {
		return "."
	}
	return p
}

// PropsKey is the artifact key of a route's props file.
func PropsKey(p string) string {
	return path.Join(Dir(p), PropsFile)
}

// PageKey is the artifact key of a route's pre-rendered page.
func PageKey(p string) string {
	return path.Join(Dir(p), PageFile)
}
