package props

import (
	"encoding/json"
	"fmt"
)

// Props is a flat mapping from prop name to a JSON-canonical value.
type Props map[string]any

// Wrapped is the alternative loader return convention: {"props": {...}}.
type Wrapped struct {
	Props Props `json:"props"`
}

// wrapperKey is the single key that marks a wrapped mapping.
const wrapperKey = "props"

// Normalize converts a loader result into flat, JSON-canonical Props.
// A nil result normalizes to an empty mapping. Values that cannot be
// encoded as a JSON object yield a *SerializationError.
func Normalize(v any) (Props, error) {
	switch t := v.(type) {
	case nil:
		return Props{}, nil
	case Wrapped:
		return Normalize(map[string]any(t.Props))
	case *Wrapped:
		if t == nil {
			return Props{}, nil
		}
		return Normalize(map[string]any(t.Props))
	}

	data, err := json.Marshal(v)
	if err != nil {
		return nil, &SerializationError{Type: fmt.Sprintf("%T", v), Err: err}
	}
	p, err := Decode(data)
	if err != nil {
		return nil, &SerializationError{Type: fmt.Sprintf("%T", v), Err: err}
	}
	return unwrap(p), nil
}

// unwrap strips a {"props": {...}} wrapper.
func unwrap(p Props) Props {
	if len(p) != 1 {
		return p
	}
	inner, ok := p[wrapperKey].(map[string]any)
	if !ok {
		return p
	}
	if inner == nil {
		return Props{}
	}
	return Props(inner)
}

// Merge shallow-merges layers left to right; later layers win on key
// collision. Nil layers contribute nothing. The result is always a new map.
func Merge(layers ...Props) Props {
	n := 0
	for _, l := range layers {
		n += len(l)
	}
	out := make(Props, n)
	for _, l := range layers {
		for k, v := range l {
			out[k] = v
		}
	}
	return out
}

// Clone returns a shallow copy. A nil receiver clones to an empty mapping.
func (p Props) Clone() Props {
	return Merge(p)
}

// Get returns the raw value for key.
func (p Props) Get(key string) (any, bool) {
	v, ok := p[key]
	return v, ok
}

// String returns the value for key formatted as text. Missing keys and
// null values yield "".
func (p Props) String(key string) string {
	switch v := p[key].(type) {
	case nil:
		return ""
	case string:
		return v
	case json.Number:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}

// Map returns the nested mapping stored under key, or nil.
func (p Props) Map(key string) Props {
	if m, ok := p[key].(map[string]any); ok {
		return Props(m)
	}
	return nil
}
