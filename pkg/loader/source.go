package loader

import (
	"context"

	"github.com/matcha-dev/matcha/pkg/props"
)

// MapSource is an in-memory StaticSource keyed by route path.
type MapSource map[string]props.Props

// StaticProps returns the stored props for path.
func (m MapSource) StaticProps(_ context.Context, path string) (props.Props, bool, error) {
	p, ok := m[path]
	return p, ok, nil
}
