package props

import (
	"encoding/json"
	"errors"
	"math"
	"reflect"
	"testing"
)

type profile struct {
	Name string `json:"name"`
	Plan string `json:"plan"`
}

type blogData struct {
	Blog string `json:"blog"`
}

func TestNormalize_Shapes(t *testing.T) {
	want := Props{"blog": "hello"}

	tests := []struct {
		name  string
		input any
	}{
		{"props", Props{"blog": "hello"}},
		{"plain map", map[string]any{"blog": "hello"}},
		{"string map", map[string]string{"blog": "hello"}},
		{"wrapped value", Wrapped{Props: Props{"blog": "hello"}}},
		{"wrapped pointer", &Wrapped{Props: Props{"blog": "hello"}}},
		{"wrapped map", map[string]any{"props": map[string]any{"blog": "hello"}}},
		{"struct", blogData{Blog: "hello"}},
		{"struct pointer", &blogData{Blog: "hello"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Normalize(tt.input)
			if err != nil {
				t.Fatalf("Normalize() error = %v", err)
			}
			if !reflect.DeepEqual(got, want) {
				t.Errorf("Normalize() = %#v, want %#v", got, want)
			}
		})
	}
}

func TestNormalize_Empty(t *testing.T) {
	var nilWrapped *Wrapped
	var nilMap map[string]any

	for _, input := range []any{nil, nilWrapped, nilMap, Wrapped{}, Props{}} {
		got, err := Normalize(input)
		if err != nil {
			t.Fatalf("Normalize(%#v) error = %v", input, err)
		}
		if got == nil || len(got) != 0 {
			t.Errorf("Normalize(%#v) = %#v, want empty non-nil Props", input, got)
		}
	}
}

func TestNormalize_NumbersAreCanonical(t *testing.T) {
	got, err := Normalize(map[string]any{"count": 3, "ratio": 0.5})
	if err != nil {
		t.Fatal(err)
	}
	if got["count"] != json.Number("3") {
		t.Errorf("count = %#v, want json.Number(\"3\")", got["count"])
	}
	if got["ratio"] != json.Number("0.5") {
		t.Errorf("ratio = %#v, want json.Number(\"0.5\")", got["ratio"])
	}
}

func TestNormalize_NestedValues(t *testing.T) {
	got, err := Normalize(map[string]any{"user": profile{Name: "Ada", Plan: "pro"}})
	if err != nil {
		t.Fatal(err)
	}
	user := got.Map("user")
	if user == nil {
		t.Fatalf("user = %#v, want nested mapping", got["user"])
	}
	if user.String("name") != "Ada" || user.String("plan") != "pro" {
		t.Errorf("user = %#v", user)
	}
}

func TestNormalize_SerializationFailure(t *testing.T) {
	tests := []struct {
		name  string
		input any
	}{
		{"function value", map[string]any{"onClick": func() {}}},
		{"channel", map[string]any{"ch": make(chan int)}},
		{"NaN", map[string]any{"n": math.NaN()}},
		{"not an object", []string{"a", "b"}},
		{"scalar", "hello"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Normalize(tt.input)
			var serr *SerializationError
			if !errors.As(err, &serr) {
				t.Fatalf("Normalize() error = %v, want *SerializationError", err)
			}
			if serr.Type == "" {
				t.Error("SerializationError.Type should name the offending type")
			}
		})
	}
}

func TestMerge_RequestWins(t *testing.T) {
	static := Props{"a": json.Number("1"), "b": json.Number("2")}
	request := Props{"b": json.Number("3"), "c": json.Number("4")}

	got := Merge(static, request)
	want := Props{"a": json.Number("1"), "b": json.Number("3"), "c": json.Number("4")}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Merge() = %#v, want %#v", got, want)
	}

	// Inputs are not mutated.
	if static["b"] != json.Number("2") {
		t.Error("Merge mutated the static layer")
	}
}

func TestMerge_NilLayers(t *testing.T) {
	got := Merge(nil, Props{"a": "x"}, nil)
	if !reflect.DeepEqual(got, Props{"a": "x"}) {
		t.Errorf("Merge() = %#v", got)
	}
	if empty := Merge(); empty == nil || len(empty) != 0 {
		t.Errorf("Merge() with no layers = %#v, want empty mapping", empty)
	}
}

func TestEncode_Deterministic(t *testing.T) {
	p := Props{"z": "last", "a": "first", "m": Props{"y": true, "b": nil}}

	first, err := Encode(p)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 20; i++ {
		again, _ := Encode(p)
		if string(again) != string(first) {
			t.Fatalf("Encode not deterministic: %s vs %s", first, again)
		}
	}
	if string(first) != `{"a":"first","m":{"b":null,"y":true},"z":"last"}` {
		t.Errorf("Encode() = %s", first)
	}
}

func TestEncode_ScriptSafe(t *testing.T) {
	data, err := Encode(Props{"html": "</script><script>alert(1)</script>"})
	if err != nil {
		t.Fatal(err)
	}
	if got := string(data); got != `{"html":"\u003c/script\u003e\u003cscript\u003ealert(1)\u003c/script\u003e"}` {
		t.Errorf("Encode() = %s", got)
	}
}

func TestEncode_Nil(t *testing.T) {
	data, err := Encode(nil)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "{}" {
		t.Errorf("Encode(nil) = %s, want {}", data)
	}
}

func TestDecode(t *testing.T) {
	got, err := Decode([]byte(`{"blog":"hello","n":12345678901234567890}`))
	if err != nil {
		t.Fatal(err)
	}
	if got.String("blog") != "hello" {
		t.Errorf("blog = %q", got.String("blog"))
	}
	if got.String("n") != "12345678901234567890" {
		t.Errorf("n = %q, want exact integer text", got.String("n"))
	}

	if p, err := Decode([]byte("null")); err != nil || len(p) != 0 {
		t.Errorf("Decode(null) = %#v, %v", p, err)
	}
	if _, err := Decode([]byte(`[1,2]`)); !errors.Is(err, ErrNotObject) {
		t.Errorf("Decode(array) error = %v, want ErrNotObject", err)
	}
	if _, err := Decode([]byte(`{"a":1} {"b":2}`)); err == nil {
		t.Error("Decode should reject trailing data")
	}
	if _, err := Decode([]byte(`{`)); err == nil {
		t.Error("Decode should reject truncated input")
	}
}

func TestProps_Accessors(t *testing.T) {
	p := Props{"s": "text", "n": json.Number("7"), "b": true, "nil": nil}

	if p.String("s") != "text" || p.String("n") != "7" || p.String("b") != "true" {
		t.Errorf("String accessors returned %q %q %q", p.String("s"), p.String("n"), p.String("b"))
	}
	if p.String("nil") != "" || p.String("missing") != "" {
		t.Error("missing and null values should format as empty")
	}
	if _, ok := p.Get("missing"); ok {
		t.Error("Get(missing) should report false")
	}
	if p.Map("s") != nil {
		t.Error("Map on a non-mapping value should be nil")
	}

	clone := p.Clone()
	clone["s"] = "changed"
	if p["s"] != "text" {
		t.Error("Clone shares storage with the original")
	}
}
