package errors

import (
	"bytes"
	"context"
	stderrors "errors"
	"fmt"
	"strings"
	"testing"

	"github.com/matcha-dev/matcha/pkg/artifact"
	"github.com/matcha-dev/matcha/pkg/loader"
	"github.com/matcha-dev/matcha/pkg/props"
	"github.com/matcha-dev/matcha/pkg/render"
	"github.com/matcha-dev/matcha/pkg/router"
)

func TestNew(t *testing.T) {
	tests := []struct {
		code    string
		wantMsg string
		wantCat Category
	}{
		{"E100", "Route not found", CategoryRoute},
		{"E200", "Data loader failed", CategoryLoader},
		{"E142", "Build failed", CategoryBuild},
		{"E999", "Unknown error", ""},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			err := New(tt.code)
			if err.Message != tt.wantMsg {
				t.Errorf("Message = %q, want %q", err.Message, tt.wantMsg)
			}
			if err.Category != tt.wantCat {
				t.Errorf("Category = %q, want %q", err.Category, tt.wantCat)
			}
			if err.Code != tt.code {
				t.Errorf("Code = %q, want %q", err.Code, tt.code)
			}
		})
	}
}

func TestFromError(t *testing.T) {
	cause := stderrors.New("open static/blog.md: no such file")

	tests := []struct {
		name      string
		err       error
		wantCode  string
		wantRoute string
	}{
		{"loader", &loader.Error{Path: "/about", Kind: loader.KindStatic, Err: cause}, "E200", "/about"},
		{"loader wrapped", fmt.Errorf("build: %w", &loader.Error{Path: "/x", Kind: loader.KindRequest, Err: cause}), "E200", "/x"},
		{"loader serialization", &loader.Error{Path: "/u", Kind: loader.KindRequest, Err: &props.SerializationError{Type: "chan int", Err: cause}}, "E201", "/u"},
		{"serialization", &props.SerializationError{Type: "func()", Err: cause}, "E201", ""},
		{"render", &render.Error{Path: "/broken", Err: cause}, "E202", "/broken"},
		{"not found", fmt.Errorf("%w: /nope", router.ErrRouteNotFound), "E100", ""},
		{"duplicate", fmt.Errorf("%w: /", router.ErrDuplicateRoute), "E101", ""},
		{"template", render.ErrNoOutlet, "E141", ""},
		{"artifact", fmt.Errorf("%w: server/ssr-manifest.json", artifact.ErrNotFound), "E150", ""},
		{"context", context.Canceled, "E142", ""},
		{"already coded", New("E122"), "E122", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FromError(tt.err, "E142")
			if got.Code != tt.wantCode {
				t.Errorf("Code = %q, want %q", got.Code, tt.wantCode)
			}
			if got.Route != tt.wantRoute {
				t.Errorf("Route = %q, want %q", got.Route, tt.wantRoute)
			}
			if got.Code != "E122" && !stderrors.Is(got, tt.err) {
				t.Error("coded error should wrap the original")
			}
		})
	}

	if FromError(nil, "E142") != nil {
		t.Error("FromError(nil) should be nil")
	}
}

func TestFromError_LoaderKind(t *testing.T) {
	got := FromError(&loader.Error{Path: "/about", Kind: loader.KindStatic, Err: stderrors.New("boom")}, "E142")
	if got.Loader != "static" {
		t.Errorf("Loader = %q, want static", got.Loader)
	}
	if got.Suggestion != "boom" {
		t.Errorf("Suggestion = %q", got.Suggestion)
	}
}

func TestErrorString(t *testing.T) {
	err := New("E200").WithRoute("/about").Wrap(stderrors.New("boom"))
	if got := err.Error(); got != "E200: Data loader failed (/about): boom" {
		t.Errorf("Error() = %q", got)
	}
	if got := err.FormatCompact(); got != "E200: Data loader failed [/about]" {
		t.Errorf("FormatCompact() = %q", got)
	}
}

func TestFormat(t *testing.T) {
	DisableColors()
	defer EnableColors()

	err := FromError(&loader.Error{Path: "/about", Kind: loader.KindStatic, Err: stderrors.New("boom")}, "E142")
	out := err.Format()

	for _, want := range []string{
		"ERROR E200: Data loader failed",
		"route /about (static loader)",
		"Hint: boom",
		"Learn more: https://matcha.dev/docs/errors/E200",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("Format() missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "\033[") {
		t.Error("Format() should not contain ANSI codes when colors are disabled")
	}
}

func TestFprint(t *testing.T) {
	DisableColors()
	defer EnableColors()

	var buf bytes.Buffer
	Fprint(&buf, stderrors.New("plain"))
	if !strings.Contains(buf.String(), "ERROR: plain") {
		t.Errorf("plain error output = %q", buf.String())
	}

	buf.Reset()
	Fprint(&buf, fmt.Errorf("ctx: %w", New("E121")))
	if !strings.Contains(buf.String(), "E121") {
		t.Errorf("coded error output = %q", buf.String())
	}
}

func TestWrapText(t *testing.T) {
	lines := wrapText("one two three four five six", 9)
	for _, l := range lines {
		if len(l) > 9 {
			t.Errorf("line %q exceeds width", l)
		}
	}
	if strings.Join(lines, " ") != "one two three four five six" {
		t.Errorf("wrapText lost words: %v", lines)
	}
	if wrapText("", 10) != nil {
		t.Error("empty text should wrap to nil")
	}
}

func TestRegistry(t *testing.T) {
	codes := GetAllCodes()
	if len(codes) == 0 || codes[0] != "E100" {
		t.Errorf("GetAllCodes() = %v", codes)
	}
	for _, code := range codes {
		tmpl, _ := GetTemplate(code)
		if tmpl.Message == "" || tmpl.DocURL == "" {
			t.Errorf("%s: incomplete template", code)
		}
	}

	Register("E999", ErrorTemplate{Category: CategoryCLI, Message: "custom", DocURL: "x"})
	defer delete(registry, "E999")
	if New("E999").Message != "custom" {
		t.Error("Register did not take effect")
	}
}
