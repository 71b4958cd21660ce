package props

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// SerializationError reports a props value that cannot round-trip through
// JSON text.
type SerializationError struct {
	// Type is the Go type of the offending value.
	Type string

	// Err is the underlying encoding/json error.
	Err error
}

func (e *SerializationError) Error() string {
	return fmt.Sprintf("props: %s cannot be serialized as a JSON object: %v", e.Type, e.Err)
}

func (e *SerializationError) Unwrap() error {
	return e.Err
}

// ErrNotObject is returned by Decode when the document is not a JSON object.
var ErrNotObject = errors.New("props: document is not a JSON object")

// Encode returns the JSON encoding of p. Keys are sorted, so equal mappings
// always produce identical bytes. The output escapes <, > and & and is safe
// to embed inside a script element. A nil mapping encodes as {}.
func Encode(p Props) ([]byte, error) {
	if p == nil {
		return []byte("{}"), nil
	}
	data, err := json.Marshal(map[string]any(p))
	if err != nil {
		return nil, &SerializationError{Type: "props.Props", Err: err}
	}
	return data, nil
}

// Decode parses a JSON object into canonical Props. Numbers are kept as
// json.Number so integers survive untouched. A JSON null decodes to an
// empty mapping.
func Decode(data []byte) (Props, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw any
	if err := dec.Decode(&raw); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, fmt.Errorf("props: trailing data after JSON object")
	}

	switch v := raw.(type) {
	case nil:
		return Props{}, nil
	case map[string]any:
		return Props(v), nil
	default:
		return nil, ErrNotObject
	}
}
