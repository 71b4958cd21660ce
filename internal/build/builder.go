package build

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/matcha-dev/matcha/internal/config"
	"github.com/matcha-dev/matcha/internal/errors"
	"github.com/matcha-dev/matcha/pkg/artifact"
	"github.com/matcha-dev/matcha/pkg/loader"
	"github.com/matcha-dev/matcha/pkg/props"
	"github.com/matcha-dev/matcha/pkg/render"
	"github.com/matcha-dev/matcha/pkg/routepath"
	"github.com/matcha-dev/matcha/pkg/router"
	"github.com/matcha-dev/matcha/pkg/server"
)

// Artifact keys outside the per-route tree.
var (
	ManifestKey  = server.ManifestKey
	ShellKey     = server.ShellKey
	ChecksumsKey = "manifest.json"
)

// Result contains the build output.
type Result struct {
	// Duration is how long the build took.
	Duration time.Duration

	// Output is the directory the artifacts were written to.
	Output string

	// Static lists pre-rendered route paths in table order.
	Static []string

	// Dynamic lists request-time route paths in table order.
	Dynamic []string

	// Checksums maps every artifact key to its sha256.
	Checksums map[string]string
}

// Options configures the builder.
type Options struct {
	// Shell overrides the page template from the config.
	Shell *render.Shell

	// Logger receives one line per route; nil uses slog.Default().
	Logger *slog.Logger

	// OnProgress is called with progress updates.
	OnProgress func(step string)

	// OnPage is called once per pre-rendered page with its mode
	// ("static" or "ssr").
	OnPage func(mode string)

	// OnLoaderFailure is called for every loader failure.
	OnLoaderFailure func(*loader.Error)
}

// Builder generates a site from a route table.
type Builder struct {
	config  *config.Config
	routes  *router.Router
	options Options
	logger  *slog.Logger
}

// New creates a builder. The route table is frozen.
func New(cfg *config.Config, routes *router.Router, options Options) *Builder {
	routes.Freeze()
	logger := options.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Builder{
		config:  cfg,
		routes:  routes,
		options: options,
		logger:  logger,
	}
}

// Build generates every artifact and replaces the output directory.
func (b *Builder) Build(ctx context.Context) (*Result, error) {
	start := time.Now()

	b.progress("Loading page template...")
	shell, err := b.shell()
	if err != nil {
		return nil, err
	}

	b.progress("Rendering routes...")
	files, result, err := b.Generate(ctx, shell)
	if err != nil {
		return nil, errors.FromError(err, "E142")
	}

	b.progress("Writing artifacts...")
	out := b.config.OutputPath()
	if err := b.write(ctx, out, files); err != nil {
		return nil, errors.New("E140").Wrap(err)
	}

	result.Output = out
	result.Duration = time.Since(start)
	b.logger.Info("build complete",
		"static", len(result.Static),
		"ssr", len(result.Dynamic),
		"artifacts", len(files),
		"duration", result.Duration,
	)
	return result, nil
}

// Generate computes every artifact in memory without touching the disk.
// The returned map is keyed by artifact path.
func (b *Builder) Generate(ctx context.Context, shell *render.Shell) (map[string][]byte, *Result, error) {
	manifest := router.ManifestFor(b.routes.Routes())
	renderer := render.New(b.routes, render.WithLogger(b.logger))

	// Build-phase output doubles as the static cache for the request-phase
	// render of static-only routes, so loaders run once per route.
	built := loader.MapSource{}
	orch := &loader.Orchestrator{
		StaticSource: built,
		OnFailure:    b.options.OnLoaderFailure,
		Logger:       b.logger,
	}

	files := make(map[string][]byte)
	result := &Result{}

	for _, route := range b.routes.Routes() {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}

		static, err := orch.StaticProps(ctx, route)
		if err != nil {
			return nil, nil, err
		}
		data, err := props.Encode(static)
		if err != nil {
			return nil, nil, &loader.Error{Path: route.Path, Kind: loader.KindStatic, Err: err}
		}
		built[route.Path] = static
		files[routepath.PropsKey(route.Path)] = data

		if route.Dynamic() {
			result.Dynamic = append(result.Dynamic, route.Path)
			b.logger.Debug("route", "route", route.Path, "mode", route.Mode(), "artifact", routepath.PropsKey(route.Path))
			continue
		}

		merged, err := orch.LoadProps(ctx, route, loader.PhaseRequest)
		if err != nil {
			return nil, nil, err
		}
		res, err := renderer.RenderRoute(ctx, route, merged)
		if err != nil {
			return nil, nil, err
		}
		html, err := shell.Inject(res.Markup, res.Props, manifest)
		if err != nil {
			return nil, nil, &render.Error{Path: route.Path, Err: err}
		}
		files[routepath.PageKey(route.Path)] = []byte(html)
		result.Static = append(result.Static, route.Path)
		b.logger.Debug("route", "route", route.Path, "mode", route.Mode(), "artifact", routepath.PageKey(route.Path))
		b.page(route.Mode())
	}

	manifestJSON, err := json.Marshal(manifest)
	if err != nil {
		return nil, nil, err
	}
	files[ManifestKey] = manifestJSON
	files[ShellKey] = []byte(shell.String())

	result.Checksums = checksums(files)
	sums, err := json.MarshalIndent(result.Checksums, "", "  ")
	if err != nil {
		return nil, nil, err
	}
	files[ChecksumsKey] = append(sums, '\n')

	return files, result, nil
}

// shell resolves the page template: explicit option, configured file, or
// the built-in document.
func (b *Builder) shell() (*render.Shell, error) {
	if b.options.Shell != nil {
		return b.options.Shell, nil
	}
	return LoadShell(b.config.TemplatePath())
}

// LoadShell reads and parses the page template at p. An empty p yields the
// built-in document.
func LoadShell(p string) (*render.Shell, error) {
	if p == "" {
		return render.DefaultShell(), nil
	}
	data, err := os.ReadFile(p)
	if err != nil {
		return nil, errors.New("E141").WithDetail("Cannot read page template " + p).Wrap(err)
	}
	shell, err := render.ParseShell(string(data))
	if err != nil {
		return nil, errors.New("E141").WithSuggestion(p + ": " + err.Error()).Wrap(err)
	}
	return shell, nil
}

// write stores files in a staging directory next to out, then swaps it in.
func (b *Builder) write(ctx context.Context, out string, files map[string][]byte) error {
	parent := filepath.Dir(out)
	if err := os.MkdirAll(parent, 0o755); err != nil {
		return err
	}
	staging, err := os.MkdirTemp(parent, "."+filepath.Base(out)+"-staging-*")
	if err != nil {
		return err
	}
	defer os.RemoveAll(staging)
	// MkdirTemp creates 0700; the output must be readable by other users.
	if err := os.Chmod(staging, 0o755); err != nil {
		return err
	}

	store := artifact.NewDirStore(staging)
	for _, key := range sortedKeys(files) {
		if err := store.Put(ctx, key, files[key]); err != nil {
			return fmt.Errorf("write %s: %w", key, err)
		}
	}

	if !b.config.Build.Clean {
		if _, err := artifact.Copy(ctx, artifact.NewDirStore(out), store); err != nil {
			return err
		}
		return nil
	}

	backup := staging + ".old"
	if err := os.Rename(out, backup); err != nil && !os.IsNotExist(err) {
		return err
	}
	if err := os.Rename(staging, out); err != nil {
		_ = os.Rename(backup, out)
		return err
	}
	return os.RemoveAll(backup)
}

func (b *Builder) progress(step string) {
	if b.options.OnProgress != nil {
		b.options.OnProgress(step)
	}
}

func (b *Builder) page(mode string) {
	if b.options.OnPage != nil {
		b.options.OnPage(mode)
	}
}

// checksums returns the sha256 of every artifact.
func checksums(files map[string][]byte) map[string]string {
	sums := make(map[string]string, len(files))
	for key, data := range files {
		sum := sha256.Sum256(data)
		sums[key] = hex.EncodeToString(sum[:])
	}
	return sums
}

func sortedKeys(files map[string][]byte) []string {
	keys := make([]string, 0, len(files))
	for k := range files {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Clean removes the build output directory.
func (b *Builder) Clean() error {
	return os.RemoveAll(b.config.OutputPath())
}
