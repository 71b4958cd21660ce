package matcha

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/a-h/templ"
	"github.com/aws/aws-sdk-go-v2/aws"
	s3aws "github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/matcha-dev/matcha/internal/config"
	"github.com/matcha-dev/matcha/pkg/artifact"
)

func text(format string, keys ...string) Component {
	return func(p Props) templ.Component {
		return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
			out := format
			for _, k := range keys {
				out = strings.Replace(out, "{"+k+"}", templ.EscapeString(p.String(k)), 1)
			}
			_, err := io.WriteString(w, out)
			return err
		})
	}
}

func demoApp(t *testing.T, stdout, stderr io.Writer) *App {
	t.Helper()
	app := New(WithVersion("1.2.3"), WithOutput(stdout, stderr))
	app.Page("/", text("<h1>Home</h1>"))
	app.Page("/about", text("<article>{blog}</article>", "blog"),
		WithStaticLoader(func(context.Context) (any, error) {
			return map[string]any{"blog": "hello"}, nil
		}),
	)
	app.Page("/user-profile", text("<p>{user} {builtAt}</p>", "user", "builtAt"),
		WithStaticLoader(func(context.Context) (any, error) {
			return map[string]any{"builtAt": "T1"}, nil
		}),
		WithRequestLoader(func(context.Context) (any, error) {
			return Wrapped{Props: Props{"user": "ada"}}, nil
		}),
	)
	return app
}

func project(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	cfg := `{"build":{"output":"dist"},"serve":{"metrics":false}}`
	if err := os.WriteFile(filepath.Join(dir, config.ConfigFileName), []byte(cfg), 0o644); err != nil {
		t.Fatal(err)
	}
	return dir
}

func run(t *testing.T, app *App, args ...string) error {
	t.Helper()
	return app.ExecuteContext(context.Background(), args)
}

func TestVersion(t *testing.T) {
	var out bytes.Buffer
	app := demoApp(t, &out, io.Discard)
	if err := run(t, app, "version", "--short"); err != nil {
		t.Fatal(err)
	}
	if got := strings.TrimSpace(out.String()); got != "1.2.3" {
		t.Errorf("version = %q", got)
	}
}

func TestRoutes(t *testing.T) {
	var out bytes.Buffer
	app := demoApp(t, &out, io.Discard)
	if err := run(t, app, "routes"); err != nil {
		t.Fatal(err)
	}
	got := out.String()
	for _, want := range []string{
		"PATH", "/about", "static", "/user-profile", "ssr", "static,request",
		`SSR manifest: ["/user-profile"]`,
	} {
		if !strings.Contains(got, want) {
			t.Errorf("routes output missing %q:\n%s", want, got)
		}
	}
}

func TestRoutesJSON(t *testing.T) {
	var out bytes.Buffer
	app := demoApp(t, &out, io.Discard)
	if err := run(t, app, "routes", "--json"); err != nil {
		t.Fatal(err)
	}
	var doc struct {
		Routes []struct {
			Path    string   `json:"path"`
			Mode    string   `json:"mode"`
			Loaders []string `json:"loaders"`
		} `json:"routes"`
		Manifest []string `json:"ssrManifest"`
	}
	if err := json.Unmarshal(out.Bytes(), &doc); err != nil {
		t.Fatalf("Unmarshal() error = %v\n%s", err, out.String())
	}
	if len(doc.Routes) != 3 || doc.Routes[0].Path != "/" || len(doc.Routes[0].Loaders) != 0 {
		t.Errorf("routes = %+v", doc.Routes)
	}
	if len(doc.Manifest) != 1 || doc.Manifest[0] != "/user-profile" {
		t.Errorf("manifest = %v", doc.Manifest)
	}
}

func TestUnknownLogFormat(t *testing.T) {
	var stderr bytes.Buffer
	app := demoApp(t, io.Discard, &stderr)
	err := run(t, app, "--log-format", "xml", "routes")
	if err == nil || !strings.Contains(stderr.String(), "xml") {
		t.Errorf("err = %v, stderr = %q", err, stderr.String())
	}
}

func TestBuildThenServe(t *testing.T) {
	dir := project(t)
	var out bytes.Buffer
	app := demoApp(t, &out, io.Discard)
	if err := run(t, app, "--dir", dir, "build"); err != nil {
		t.Fatalf("build error = %v", err)
	}
	if !strings.Contains(out.String(), "Built 2 static and 1 SSR routes") {
		t.Errorf("build output = %q", out.String())
	}
	for _, key := range []string{"index.html", "about/index.html", "about/_props.json", "server/ssr-manifest.json", "manifest.json"} {
		if _, err := os.Stat(filepath.Join(dir, "dist", filepath.FromSlash(key))); err != nil {
			t.Errorf("missing artifact %s: %v", key, err)
		}
	}

	cfg, err := config.Load(dir)
	if err != nil {
		t.Fatal(err)
	}
	h, err := app.serveHandler(context.Background(), cfg)
	if err != nil {
		t.Fatalf("serveHandler() error = %v", err)
	}

	tests := []struct {
		target, want string
		code         int
	}{
		{"/about", "<article>hello</article>", http.StatusOK},
		{"/about/_props.json", `{"blog":"hello"}`, http.StatusOK},
		{"/user-profile", "<p>ada T1</p>", http.StatusOK},
		{"/user-profile/_props.json", `{"builtAt":"T1","user":"ada"}`, http.StatusOK},
		{"/nope", "404 - Not Found", http.StatusNotFound},
	}
	for _, tt := range tests {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.target, nil))
		if rec.Code != tt.code || !strings.Contains(rec.Body.String(), tt.want) {
			t.Errorf("GET %s = %d %q, want %d containing %q", tt.target, rec.Code, rec.Body.String(), tt.code, tt.want)
		}
	}
}

func TestServeWithoutBuild(t *testing.T) {
	dir := project(t)
	app := demoApp(t, io.Discard, io.Discard)
	cfg, err := config.Load(dir)
	if err != nil {
		t.Fatal(err)
	}
	_, err = app.serveHandler(context.Background(), cfg)
	if err == nil || !strings.Contains(err.Error(), "E150") {
		t.Errorf("serveHandler() error = %v, want E150", err)
	}
}

func TestBuildLoaderFailure(t *testing.T) {
	dir := project(t)
	var stderr bytes.Buffer
	app := New(WithOutput(io.Discard, &stderr))
	app.Page("/broken", text("x"), WithStaticLoader(func(context.Context) (any, error) {
		return nil, errors.New("db down")
	}))
	if err := run(t, app, "--dir", dir, "build"); err == nil {
		t.Fatal("build succeeded with a failing loader")
	}
	for _, want := range []string{"E200", "/broken", "db down"} {
		if !strings.Contains(stderr.String(), want) {
			t.Errorf("stderr missing %q:\n%s", want, stderr.String())
		}
	}
	if _, err := os.Stat(filepath.Join(dir, "dist")); !os.IsNotExist(err) {
		t.Errorf("output written after failed build: %v", err)
	}
}

type fakeS3 struct {
	mu      sync.Mutex
	objects map[string]string
	cache   map[string]string
}

func (f *fakeS3) GetObject(context.Context, *s3aws.GetObjectInput, ...func(*s3aws.Options)) (*s3aws.GetObjectOutput, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeS3) PutObject(_ context.Context, in *s3aws.PutObjectInput, _ ...func(*s3aws.Options)) (*s3aws.PutObjectOutput, error) {
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	key := aws.ToString(in.Bucket) + "/" + aws.ToString(in.Key)
	f.objects[key] = string(data)
	f.cache[key] = aws.ToString(in.CacheControl)
	return &s3aws.PutObjectOutput{}, nil
}

func (f *fakeS3) ListObjectsV2(context.Context, *s3aws.ListObjectsV2Input, ...func(*s3aws.Options)) (*s3aws.ListObjectsV2Output, error) {
	return &s3aws.ListObjectsV2Output{}, nil
}

func TestPublish(t *testing.T) {
	dir := project(t)
	var out bytes.Buffer
	app := demoApp(t, &out, io.Discard)
	if err := run(t, app, "--dir", dir, "build"); err != nil {
		t.Fatal(err)
	}

	cfg, err := config.Load(dir)
	if err != nil {
		t.Fatal(err)
	}
	cfg.Publish.Bucket = "site"
	cfg.Publish.Prefix = "/prod/"

	fake := &fakeS3{objects: map[string]string{}, cache: map[string]string{}}
	if err := app.publish(context.Background(), cfg, artifact.NewDirStore(cfg.OutputPath()), fake); err != nil {
		t.Fatalf("publish() error = %v", err)
	}

	keys := make([]string, 0, len(fake.objects))
	for k := range fake.objects {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, want := range []string{"site/prod/index.html", "site/prod/about/_props.json", "site/prod/server/ssr-manifest.json"} {
		if _, ok := fake.objects[want]; !ok {
			t.Errorf("missing object %s in %v", want, keys)
		}
	}
	if got := fake.cache["site/prod/index.html"]; got != "no-cache" {
		t.Errorf("Cache-Control = %q", got)
	}
	if fake.objects["site/prod/about/_props.json"] != `{"blog":"hello"}` {
		t.Errorf("props object = %q", fake.objects["site/prod/about/_props.json"])
	}
	if !strings.Contains(out.String(), "s3://site/prod") {
		t.Errorf("publish output = %q", out.String())
	}
}

func TestPublishRequiresBucket(t *testing.T) {
	dir := project(t)
	var stderr bytes.Buffer
	app := demoApp(t, io.Discard, &stderr)
	err := run(t, app, "--dir", dir, "publish", "--skip-build")
	if err == nil || !strings.Contains(stderr.String(), "E121") {
		t.Errorf("err = %v, stderr = %q", err, stderr.String())
	}
}
