package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/a-h/templ"

	"github.com/matcha-dev/matcha"
)

const missingBlog = "No blog post yet. Add static/blog.md and rebuild."

// now is replaced in tests.
var now = time.Now

func page(fn func(p matcha.Props, b *strings.Builder)) matcha.Component {
	return func(p matcha.Props) templ.Component {
		return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
			var b strings.Builder
			fn(p, &b)
			_, err := io.WriteString(w, b.String())
			return err
		})
	}
}

func link(to, label string) string {
	return `<a href="` + templ.EscapeString(to) + `" data-matcha-link>` + templ.EscapeString(label) + `</a>`
}

// Home has no loaders.
var Home = page(func(_ matcha.Props, b *strings.Builder) {
	b.WriteString(`<div><h1>Matcha</h1>`)
	b.WriteString(`<p>Pages render to HTML at build time or per request, then hydrate from embedded props.</p>`)
	b.WriteString(`<nav>` + link("/about", "Go to About") + ` | ` + link("/user-profile", "View User Sample") + `</nav></div>`)
})

// About shows the blog post captured at build time.
var About = page(func(p matcha.Props, b *strings.Builder) {
	b.WriteString(`<div><h1>About</h1><p>A minimal static site generator with per-route SSR.</p>`)
	b.WriteString(`<div>Blog:<pre>` + templ.EscapeString(p.String("blog")) + `</pre></div>`)
	b.WriteString(`<nav>` + link("/", "Go Home") + `</nav></div>`)
})

// UserProfile mixes build-time and request-time props.
var UserProfile = page(func(p matcha.Props, b *strings.Builder) {
	user := p.Map("user")
	b.WriteString(`<div><h1>User Profile (Sample)</h1>`)
	b.WriteString(`<p>Profile data is user-specific and changes often, so this page renders per request.</p><dl>`)
	for _, f := range []struct{ label, key string }{
		{"ID", "id"}, {"Name", "name"}, {"Email", "email"}, {"Plan", "plan"}, {"Last Login", "lastLoginAt"},
	} {
		fmt.Fprintf(b, `<dt>%s</dt><dd>%s</dd>`, f.label, templ.EscapeString(user.String(f.key)))
	}
	b.WriteString(`</dl>`)
	b.WriteString(`<p>Generated at: ` + templ.EscapeString(p.String("generatedAt")) + `</p>`)
	b.WriteString(`<p>Built at: ` + templ.EscapeString(p.String("builtAt")) + `</p>`)
	b.WriteString(`<nav>` + link("/", "Go Home") + `</nav></div>`)
})

func blogLoader(path string) matcha.LoaderFunc {
	return func(context.Context) (any, error) {
		data, err := os.ReadFile(path)
		if errors.Is(err, fs.ErrNotExist) {
			return map[string]any{"blog": missingBlog}, nil
		}
		if err != nil {
			return nil, err
		}
		return map[string]any{"blog": string(data)}, nil
	}
}

func buildInfo(context.Context) (any, error) {
	return map[string]any{"builtAt": now().UTC().Format(time.RFC3339)}, nil
}

func currentUser(context.Context) (any, error) {
	return map[string]any{
		"user": map[string]any{
			"id":          "user_123",
			"name":        "Ada Lovelace",
			"email":       "ada@example.com",
			"plan":        "pro",
			"lastLoginAt": "2026-02-08T16:30:00Z",
		},
		"generatedAt": now().UTC().Format(time.RFC3339),
	}, nil
}
