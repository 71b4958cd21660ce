// Package props defines the property mapping passed into route components
// and the JSON contract used to move it between the build, the server and
// the browser.
//
// Every mapping that crosses a boundary is JSON-canonical: it holds exactly
// what encoding/json decodes (with UseNumber) from its own encoding. Props
// produced by a loader, props read back from a _props.json artifact, and
// props parsed from an embedded script therefore compare equal with
// reflect.DeepEqual and render byte-identical markup.
//
// # Loader return shapes
//
// Loaders may return either a flat mapping or a wrapper:
//
//	return props.Props{"blog": body}, nil
//	return props.Wrapped{Props: props.Props{"blog": body}}, nil
//	return map[string]any{"props": map[string]any{"blog": body}}, nil
//	return aboutData{Blog: body}, nil // any JSON-encodable struct
//
// Normalize reduces all of them to the same flat Props. A mapping whose only
// key is "props" and whose value is itself a mapping is always read as a
// wrapper.
package props
