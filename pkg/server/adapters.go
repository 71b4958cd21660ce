package server

import (
	"context"
	"errors"
	"fmt"

	"github.com/matcha-dev/matcha/pkg/artifact"
	"github.com/matcha-dev/matcha/pkg/loader"
	"github.com/matcha-dev/matcha/pkg/props"
	"github.com/matcha-dev/matcha/pkg/render"
	"github.com/matcha-dev/matcha/pkg/routepath"
	"github.com/matcha-dev/matcha/pkg/router"
)

// FromArtifacts builds a Service over a build's output. The manifest and
// shell are required; a route without a _props.json artifact falls back to
// its static loader.
func FromArtifacts(ctx context.Context, routes *router.Router, store artifact.Store, opts ...Option) (*Service, error) {
	data, err := store.Get(ctx, ManifestKey)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", ManifestKey, err)
	}
	manifest, err := router.ParseManifest(data)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", ManifestKey, err)
	}

	data, err = store.Get(ctx, ShellKey)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", ShellKey, err)
	}
	shell, err := render.ParseShell(string(data))
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", ShellKey, err)
	}

	cache, err := LoadPropsCache(ctx, routes, store)
	if err != nil {
		return nil, err
	}
	return New(routes, shell, manifest, cache, opts...), nil
}

// Live builds a Service that renders from the route table alone. Static
// loaders run on every request, so edits to their data show up on reload.
func Live(routes *router.Router, shell *render.Shell, opts ...Option) *Service {
	return New(routes, shell, router.ManifestFor(routes.Routes()), nil, opts...)
}

// LoadPropsCache reads the _props.json artifact of every route in the
// table. Missing artifacts are skipped; unreadable ones fail.
func LoadPropsCache(ctx context.Context, routes *router.Router, store artifact.Store) (loader.MapSource, error) {
	cache := loader.MapSource{}
	for _, route := range routes.Routes() {
		key := routepath.PropsKey(route.Path)
		data, err := store.Get(ctx, key)
		if errors.Is(err, artifact.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", key, err)
		}
		p, err := props.Decode(data)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", key, err)
		}
		cache[route.Path] = p
	}
	return cache, nil
}
