package router

import (
	"encoding/json"
	"fmt"

	"github.com/matcha-dev/matcha/pkg/routepath"
)

// ManifestFile is the name of the serialized SSR manifest artifact.
const ManifestFile = "ssr-manifest.json"

// Manifest is the ordered set of paths rendered at request time.
type Manifest struct {
	paths []string
	set   map[string]struct{}
}

// NewManifest builds a manifest from paths, dropping duplicates while
// keeping first-seen order.
func NewManifest(paths ...string) *Manifest {
	m := &Manifest{set: make(map[string]struct{}, len(paths))}
	for _, p := range paths {
		m.add(p)
	}
	return m
}

// ManifestFor derives the manifest from the dynamic routes of a table.
func ManifestFor(routes []*Route) *Manifest {
	m := NewManifest()
	for _, route := range routes {
		if route.Dynamic() {
			m.add(route.Path)
		}
	}
	return m
}

func (m *Manifest) add(p string) {
	p = routepath.Normalize(p)
	if _, ok := m.set[p]; ok {
		return
	}
	m.set[p] = struct{}{}
	m.paths = append(m.paths, p)
}

// Contains reports whether the normalized path is listed.
func (m *Manifest) Contains(path string) bool {
	if m == nil {
		return false
	}
	_, ok := m.set[routepath.Normalize(path)]
	return ok
}

// Paths returns the listed paths in order.
func (m *Manifest) Paths() []string {
	if m == nil {
		return []string{}
	}
	return append([]string{}, m.paths...)
}

// Len returns the number of listed paths.
func (m *Manifest) Len() int {
	if m == nil {
		return 0
	}
	return len(m.paths)
}

// MarshalJSON encodes the manifest as a JSON array of paths. An empty
// manifest encodes as [] rather than null.
func (m *Manifest) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.Paths())
}

// UnmarshalJSON decodes a JSON array of paths.
func (m *Manifest) UnmarshalJSON(data []byte) error {
	var paths []string
	if err := json.Unmarshal(data, &paths); err != nil {
		return fmt.Errorf("ssr manifest: %w", err)
	}
	*m = *NewManifest(paths...)
	return nil
}

// ParseManifest decodes a serialized manifest.
func ParseManifest(data []byte) (*Manifest, error) {
	m := NewManifest()
	if err := m.UnmarshalJSON(data); err != nil {
		return nil, err
	}
	return m, nil
}
