package client

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/matcha-dev/matcha/pkg/props"
	"github.com/matcha-dev/matcha/pkg/render"
	"github.com/matcha-dev/matcha/pkg/router"
	"github.com/matcha-dev/matcha/pkg/server"
)

func TestHTTPFetcher(t *testing.T) {
	var gotCacheControl, gotPath string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotCacheControl = r.Header.Get("Cache-Control")
		switch r.URL.Path {
		case "/_props.json":
			w.Write([]byte(`{}`))
		case "/about/_props.json":
			w.Write([]byte(`{"blog":"hello"}`))
		case "/broken/_props.json":
			w.Write([]byte(`not json`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer ts.Close()

	f := &HTTPFetcher{BaseURL: ts.URL + "/"}

	p, err := f.FetchProps(context.Background(), "/about", true)
	if err != nil {
		t.Fatal(err)
	}
	if p.String("blog") != "hello" || gotPath != "/about/_props.json" || gotCacheControl != "no-store" {
		t.Errorf("props=%v path=%q cache-control=%q", p, gotPath, gotCacheControl)
	}

	if _, err := f.FetchProps(context.Background(), "/", false); err != nil || gotCacheControl != "" {
		t.Errorf("root fetch err=%v cache-control=%q", err, gotCacheControl)
	}

	_, err = f.FetchProps(context.Background(), "/missing", false)
	var fe *FetchError
	if !errors.As(err, &fe) || fe.StatusCode != http.StatusNotFound {
		t.Errorf("err = %v, want 404 FetchError", err)
	}

	_, err = f.FetchProps(context.Background(), "/broken", false)
	if !errors.As(err, &fe) || fe.Err == nil {
		t.Errorf("err = %v, want decode FetchError", err)
	}
}

func TestHTTPFetcher_Unreachable(t *testing.T) {
	ts := httptest.NewServer(http.NotFoundHandler())
	url := ts.URL
	ts.Close()

	_, err := (&HTTPFetcher{BaseURL: url}).FetchProps(context.Background(), "/about", false)
	var fe *FetchError
	if !errors.As(err, &fe) || fe.Err == nil {
		t.Fatalf("err = %v, want transport FetchError", err)
	}
	if !strings.Contains(fe.Error(), "/about") {
		t.Errorf("message = %q", fe.Error())
	}
}

// TestAgainstServer boots a page from a served document and navigates
// through the server's props endpoints.
func TestAgainstServer(t *testing.T) {
	routes := router.New()
	routes.Page("/", text("<h1>Home</h1>"))
	routes.Page("/about", text("<article>{blog}</article>", "blog"),
		router.WithStaticLoader(func(context.Context) (any, error) {
			return map[string]any{"blog": "<b>bold</b>"}, nil
		}))
	routes.Page("/user-profile", text("<p>{user}</p>", "user"),
		router.WithRequestLoader(func(context.Context) (any, error) {
			return props.Wrapped{Props: props.Props{"user": "ada"}}, nil
		}))

	svc := server.Live(routes, render.MustParseShell(shellText))
	ts := httptest.NewServer(server.Handler(svc, server.WithMetrics(false)))
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/about")
	if err != nil {
		t.Fatal(err)
	}
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		t.Fatal(err)
	}
	page := string(body)

	emb, err := ParseEmbedded(page)
	if err != nil {
		t.Fatal(err)
	}
	h := NewMemoryHistory(Entry{Path: "/about"})
	r := New(routes, emb.Manifest, Entry{Path: "/about", Props: emb.Props},
		WithFetcher(&HTTPFetcher{BaseURL: ts.URL}), WithHistory(h))

	// Hydration: the first client render equals the server markup.
	if first := renderString(t, r); !strings.Contains(page, `<div id="app">`+first+`</div>`) {
		t.Errorf("client render %q not found in server page", first)
	}

	s := r.Navigate(context.Background(), "/user-profile")
	if s.Status != Idle || s.Props.String("user") != "ada" {
		t.Errorf("state = %+v", s)
	}
	s = r.Navigate(context.Background(), "/nope")
	if s.Status != NotFound {
		t.Errorf("state = %+v", s)
	}
	s = r.Navigate(context.Background(), "/")
	if s.Status != Idle || renderString(t, r) != "<h1>Home</h1>" {
		t.Errorf("state = %+v", s)
	}
}
