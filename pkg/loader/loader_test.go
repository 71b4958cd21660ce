package loader

import (
	"context"
	"encoding/json"
	"errors"
	"reflect"
	"testing"

	"github.com/a-h/templ"

	"github.com/matcha-dev/matcha/pkg/props"
	"github.com/matcha-dev/matcha/pkg/router"
)

func component(props.Props) templ.Component { return templ.NopComponent }

func returns(v any) router.LoaderFunc {
	return func(context.Context) (any, error) { return v, nil }
}

func counting(n *int, v any) router.LoaderFunc {
	return func(context.Context) (any, error) {
		*n++
		return v, nil
	}
}

func TestLoadProps_Phases(t *testing.T) {
	var staticCalls, requestCalls int
	route := &router.Route{
		Path:          "/user-profile",
		Component:     component,
		StaticLoader:  counting(&staticCalls, map[string]any{"builtAt": "T1"}),
		RequestLoader: counting(&requestCalls, map[string]any{"generatedAt": "T2"}),
	}

	tests := []struct {
		phase        Phase
		want         props.Props
		wantRequests int
	}{
		{PhaseBuild, props.Props{"builtAt": "T1"}, 0},
		{PhaseRequest, props.Props{"builtAt": "T1", "generatedAt": "T2"}, 1},
		{PhaseNavigate, props.Props{"builtAt": "T1", "generatedAt": "T2"}, 1},
	}

	var o Orchestrator
	for _, tt := range tests {
		t.Run(tt.phase.String(), func(t *testing.T) {
			staticCalls, requestCalls = 0, 0
			got, err := o.LoadProps(context.Background(), route, tt.phase)
			if err != nil {
				t.Fatalf("LoadProps error = %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("LoadProps = %v, want %v", got, tt.want)
			}
			if staticCalls != 1 {
				t.Errorf("static loader calls = %d, want 1", staticCalls)
			}
			if requestCalls != tt.wantRequests {
				t.Errorf("request loader calls = %d, want %d", requestCalls, tt.wantRequests)
			}
		})
	}
}

func TestLoadProps_NoLoaders(t *testing.T) {
	var o Orchestrator
	route := &router.Route{Path: "/", Component: component}

	for _, phase := range []Phase{PhaseBuild, PhaseRequest, PhaseNavigate} {
		got, err := o.LoadProps(context.Background(), route, phase)
		if err != nil {
			t.Fatalf("%s: error = %v", phase, err)
		}
		if got == nil || len(got) != 0 {
			t.Errorf("%s: LoadProps = %#v, want empty non-nil props", phase, got)
		}
	}
}

func TestLoadProps_MergePrecedence(t *testing.T) {
	var o Orchestrator
	route := &router.Route{
		Path:          "/merge",
		Component:     component,
		StaticLoader:  returns(map[string]any{"a": 1, "b": 2}),
		RequestLoader: returns(map[string]any{"b": 3, "c": 4}),
	}

	got, err := o.LoadProps(context.Background(), route, PhaseRequest)
	if err != nil {
		t.Fatal(err)
	}
	want := props.Props{"a": json.Number("1"), "b": json.Number("3"), "c": json.Number("4")}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("LoadProps = %v, want %v", got, want)
	}
}

func TestLoadProps_WrappedEqualsUnwrapped(t *testing.T) {
	var o Orchestrator
	flat := &router.Route{Path: "/a", Component: component, StaticLoader: returns(map[string]any{"blog": "hello"})}
	wrapped := &router.Route{Path: "/b", Component: component, StaticLoader: returns(props.Wrapped{Props: props.Props{"blog": "hello"}})}
	wrappedMap := &router.Route{Path: "/c", Component: component, StaticLoader: returns(map[string]any{"props": map[string]any{"blog": "hello"}})}

	var results []props.Props
	for _, route := range []*router.Route{flat, wrapped, wrappedMap} {
		got, err := o.LoadProps(context.Background(), route, PhaseBuild)
		if err != nil {
			t.Fatalf("%s: %v", route.Path, err)
		}
		results = append(results, got)
	}
	for i := 1; i < len(results); i++ {
		if !reflect.DeepEqual(results[0], results[i]) {
			t.Errorf("shape %d = %v, want %v", i, results[i], results[0])
		}
	}
}

func TestLoadProps_Failures(t *testing.T) {
	boom := errors.New("boom")

	tests := []struct {
		name     string
		route    *router.Route
		phase    Phase
		wantKind Kind
		check    func(t *testing.T, err error)
	}{
		{
			name: "static error",
			route: &router.Route{Path: "/s", Component: component, StaticLoader: func(context.Context) (any, error) {
				return nil, boom
			}},
			phase:    PhaseBuild,
			wantKind: KindStatic,
			check: func(t *testing.T, err error) {
				if !errors.Is(err, boom) {
					t.Errorf("error should wrap the loader error, got %v", err)
				}
			},
		},
		{
			name: "request error",
			route: &router.Route{Path: "/r", Component: component, RequestLoader: func(context.Context) (any, error) {
				return nil, boom
			}},
			phase:    PhaseRequest,
			wantKind: KindRequest,
			check: func(t *testing.T, err error) {
				if !errors.Is(err, boom) {
					t.Errorf("error should wrap the loader error, got %v", err)
				}
			},
		},
		{
			name: "panic",
			route: &router.Route{Path: "/p", Component: component, StaticLoader: func(context.Context) (any, error) {
				panic("kaboom")
			}},
			phase:    PhaseBuild,
			wantKind: KindStatic,
			check: func(t *testing.T, err error) {
				var pe *PanicError
				if !errors.As(err, &pe) || pe.Value != "kaboom" {
					t.Errorf("expected PanicError, got %v", err)
				}
			},
		},
		{
			name:     "unserializable",
			route:    &router.Route{Path: "/u", Component: component, RequestLoader: returns(map[string]any{"fn": func() {}})},
			phase:    PhaseNavigate,
			wantKind: KindRequest,
			check: func(t *testing.T, err error) {
				if !IsSerialization(err) {
					t.Errorf("expected serialization error, got %v", err)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var reported []*Error
			o := Orchestrator{OnFailure: func(e *Error) { reported = append(reported, e) }}

			got, err := o.LoadProps(context.Background(), tt.route, tt.phase)
			if err == nil {
				t.Fatalf("expected error, got props %v", got)
			}
			var le *Error
			if !errors.As(err, &le) {
				t.Fatalf("error type = %T, want *Error", err)
			}
			if le.Path != tt.route.Path || le.Kind != tt.wantKind {
				t.Errorf("Error = {%s %s}, want {%s %s}", le.Path, le.Kind, tt.route.Path, tt.wantKind)
			}
			if len(reported) != 1 {
				t.Errorf("OnFailure calls = %d, want 1", len(reported))
			}
			tt.check(t, err)
		})
	}
}

func TestLoadProps_RequestLoaderSkippedAtBuild(t *testing.T) {
	var o Orchestrator
	route := &router.Route{Path: "/r", Component: component, RequestLoader: func(context.Context) (any, error) {
		t.Fatal("request loader must not run at build time")
		return nil, nil
	}}
	if _, err := o.LoadProps(context.Background(), route, PhaseBuild); err != nil {
		t.Fatal(err)
	}
}

type fakeSource struct {
	data  map[string]props.Props
	err   error
	calls int
}

func (f *fakeSource) StaticProps(_ context.Context, path string) (props.Props, bool, error) {
	f.calls++
	if f.err != nil {
		return nil, false, f.err
	}
	p, ok := f.data[path]
	return p, ok, nil
}

func TestLoadProps_StaticSource(t *testing.T) {
	var staticCalls int
	route := &router.Route{
		Path:          "/user-profile",
		Component:     component,
		StaticLoader:  counting(&staticCalls, map[string]any{"builtAt": "fresh"}),
		RequestLoader: returns(map[string]any{"builtAt": "request", "user": "ada"}),
	}

	t.Run("hit", func(t *testing.T) {
		staticCalls = 0
		src := &fakeSource{data: map[string]props.Props{"/user-profile": {"builtAt": "cached", "other": "x"}}}
		o := Orchestrator{StaticSource: src}

		got, err := o.LoadProps(context.Background(), route, PhaseRequest)
		if err != nil {
			t.Fatal(err)
		}
		want := props.Props{"builtAt": "request", "other": "x", "user": "ada"}
		if !reflect.DeepEqual(got, want) {
			t.Errorf("LoadProps = %v, want %v", got, want)
		}
		if staticCalls != 0 {
			t.Errorf("static loader ran %d times on a cache hit", staticCalls)
		}
	})

	t.Run("miss", func(t *testing.T) {
		staticCalls = 0
		o := Orchestrator{StaticSource: &fakeSource{}}

		if _, err := o.LoadProps(context.Background(), route, PhaseRequest); err != nil {
			t.Fatal(err)
		}
		if staticCalls != 1 {
			t.Errorf("static loader calls = %d, want 1 on a cache miss", staticCalls)
		}
	})

	t.Run("ignored at build", func(t *testing.T) {
		staticCalls = 0
		src := &fakeSource{data: map[string]props.Props{"/user-profile": {"builtAt": "cached"}}}
		o := Orchestrator{StaticSource: src}

		got, err := o.StaticProps(context.Background(), route)
		if err != nil {
			t.Fatal(err)
		}
		if got["builtAt"] != "fresh" || src.calls != 0 {
			t.Errorf("build phase must run the loader, got %v (cache calls %d)", got, src.calls)
		}
	})

	t.Run("source error", func(t *testing.T) {
		o := Orchestrator{StaticSource: &fakeSource{err: errors.New("corrupt artifact")}}
		_, err := o.LoadProps(context.Background(), route, PhaseRequest)
		var le *Error
		if !errors.As(err, &le) || le.Kind != KindStatic {
			t.Errorf("expected static loader error, got %v", err)
		}
	})
}

func TestPhaseString(t *testing.T) {
	if PhaseBuild.String() != "build" || PhaseRequest.String() != "request" || PhaseNavigate.String() != "navigate" {
		t.Error("unexpected phase names")
	}
	if Phase(9).String() != "Phase(9)" {
		t.Errorf("Phase(9).String() = %q", Phase(9).String())
	}
}

func TestMapSource(t *testing.T) {
	src := MapSource{"/about": {"blog": "hello"}}

	p, ok, err := src.StaticProps(context.Background(), "/about")
	if err != nil || !ok || p["blog"] != "hello" {
		t.Errorf("StaticProps(/about) = %v, %v, %v", p, ok, err)
	}
	if _, ok, _ := src.StaticProps(context.Background(), "/nope"); ok {
		t.Error("expected a miss for /nope")
	}
}
