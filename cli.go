package matcha

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"runtime"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/matcha-dev/matcha/internal/build"
	"github.com/matcha-dev/matcha/internal/config"
	"github.com/matcha-dev/matcha/internal/dev"
	"github.com/matcha-dev/matcha/internal/errors"
	"github.com/matcha-dev/matcha/pkg/artifact"
	"github.com/matcha-dev/matcha/pkg/loader"
	"github.com/matcha-dev/matcha/pkg/middleware"
	"github.com/matcha-dev/matcha/pkg/router"
	"github.com/matcha-dev/matcha/pkg/server"
)

type globalFlags struct {
	dir       string
	logFormat string
	verbose   bool
}

// Command returns the root command. Subcommands load matcha.json from the
// project root before running.
func (a *App) Command() *cobra.Command {
	var flags globalFlags

	root := &cobra.Command{
		Use:   "matcha",
		Short: "Build and serve a Matcha site",
		Long: `Matcha renders templ pages at build time and per request.

Pages with a request loader are rendered on every request; everything
else is generated once by "matcha build".`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			logger, err := newLogger(a.stderr, flags.logFormat, flags.verbose)
			if err != nil {
				return err
			}
			a.logger = logger
			return nil
		},
	}
	root.SetOut(a.stdout)
	root.SetErr(a.stderr)

	pf := root.PersistentFlags()
	pf.StringVarP(&flags.dir, "dir", "C", "", "Project directory (default: nearest matcha.json or go.mod)")
	pf.StringVar(&flags.logFormat, "log-format", "text", "Log format: text or json")
	pf.BoolVarP(&flags.verbose, "verbose", "v", false, "Enable debug logging")

	root.AddCommand(
		a.buildCmd(&flags),
		a.serveCmd(&flags),
		a.devCmd(&flags),
		a.publishCmd(&flags),
		a.routesCmd(),
		a.versionCmd(),
	)
	return root
}

func (a *App) loadConfig(flags *globalFlags) (*config.Config, error) {
	start := flags.dir
	if start == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, err
		}
		start = wd
	}
	dir, err := config.FindProjectRoot(start)
	if err != nil {
		return nil, err
	}
	cfg, err := config.Load(dir)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func recordLoaderFailure(err *loader.Error) {
	middleware.RecordLoaderFailure(string(err.Kind))
}

func (a *App) buildCmd(flags *globalFlags) *cobra.Command {
	var output, template string

	cmd := &cobra.Command{
		Use:   "build",
		Short: "Generate the site",
		Long: `Render every static page, cache static props and write the SSR
manifest and page template for the server.

Examples:
  matcha build
  matcha build --output=public`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.loadConfig(flags)
			if err != nil {
				return err
			}
			if output != "" {
				cfg.Build.Output = output
			}
			if template != "" {
				cfg.Build.Template = template
			}
			_, err = a.runBuild(cmd.Context(), cfg)
			return err
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Output directory (default from matcha.json)")
	cmd.Flags().StringVarP(&template, "template", "t", "", "Page template (default from matcha.json)")
	return cmd
}

func (a *App) runBuild(ctx context.Context, cfg *config.Config) (*build.Result, error) {
	middleware.InitMetrics()

	builder := build.New(cfg, a.routes, build.Options{
		Logger:          a.logger,
		OnProgress:      func(step string) { a.info(step) },
		OnPage:          middleware.RecordPageGenerated,
		OnLoaderFailure: recordLoaderFailure,
	})
	result, err := builder.Build(ctx)
	if err != nil {
		return nil, err
	}

	a.success("Built %d static and %d SSR routes in %s", len(result.Static), len(result.Dynamic), result.Duration.Round(time.Millisecond))
	a.info("Output: " + result.Output)
	return result, nil
}

func (a *App) serveCmd(flags *globalFlags) *cobra.Command {
	var (
		host, artifacts string
		port            int
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve a built site",
		Long: `Serve the output of "matcha build". Static pages and props come from
the artifacts; SSR routes are rendered per request.

Examples:
  matcha serve
  matcha serve --port=8080
  matcha serve --artifacts=s3://my-bucket/site`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.loadConfig(flags)
			if err != nil {
				return err
			}
			if port > 0 {
				cfg.Serve.Port = port
			}
			if host != "" {
				cfg.Serve.Host = host
			}
			if artifacts != "" {
				cfg.Serve.Artifacts = artifacts
			}

			h, err := a.serveHandler(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			srv := server.NewServer(&server.Config{Address: cfg.ServeAddress()}, h, a.logger)
			a.success("Serving %s on http://%s", cfg.ArtifactLocation(), cfg.ServeAddress())
			if err := srv.Run(cmd.Context()); err != nil {
				return errors.New("E152").Wrap(err)
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 0, "Port to listen on (default from matcha.json)")
	cmd.Flags().StringVarP(&host, "host", "H", "", "Host to bind to (default from matcha.json)")
	cmd.Flags().StringVar(&artifacts, "artifacts", "", "Artifact directory or s3://bucket/prefix (default: build output)")
	return cmd
}

// serveHandler opens the artifact store and returns the production handler.
func (a *App) serveHandler(ctx context.Context, cfg *config.Config) (http.Handler, error) {
	store, err := artifact.Open(ctx, cfg.ArtifactLocation(), s3Config(cfg))
	if err != nil {
		return nil, errors.New("E150").WithDetail("Cannot open " + cfg.ArtifactLocation()).Wrap(err)
	}
	svc, err := server.FromArtifacts(ctx, a.routes, store,
		server.WithLogger(a.logger),
		server.WithLoaderFailureHook(recordLoaderFailure),
		server.WithPageHook(middleware.RecordPageGenerated),
	)
	if err != nil {
		return nil, errors.FromError(err, "E150")
	}
	return server.Handler(svc,
		server.WithFiles(store),
		server.WithMetrics(cfg.Serve.Metrics),
		server.WithTracing(),
	), nil
}

func s3Config(cfg *config.Config) artifact.S3Config {
	return artifact.S3Config{
		Region:         cfg.Publish.Region,
		Prefix:         cfg.Publish.Prefix,
		Endpoint:       cfg.Publish.Endpoint,
		ForcePathStyle: cfg.Publish.ForcePathStyle,
		CacheControl: map[string]string{
			".html": "no-cache",
			".json": "no-cache",
		},
	}
}

func (a *App) devCmd(flags *globalFlags) *cobra.Command {
	var (
		host string
		port int
	)

	cmd := &cobra.Command{
		Use:   "dev",
		Short: "Start the development server",
		Long: `Render every page on request, watch the page template and the
configured directories, and reload connected browsers on change.

Examples:
  matcha dev
  matcha dev --port=3001`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.loadConfig(flags)
			if err != nil {
				return err
			}
			if port > 0 {
				cfg.Dev.Port = port
			}
			if host != "" {
				cfg.Dev.Host = host
			}

			var srv *dev.Server
			srv, err = dev.NewServer(dev.Options{
				Config:          cfg,
				Routes:          a.routes,
				Logger:          a.logger,
				OnLoaderFailure: recordLoaderFailure,
				OnReload: func(changes []dev.Change) {
					a.success("Reloaded %d browsers (%d changes)", srv.Reload().ClientCount(), len(changes))
				},
			})
			if err != nil {
				return err
			}
			a.success("Dev server on %s", cfg.DevURL())
			if err := srv.Start(cmd.Context()); err != nil {
				return errors.New("E152").Wrap(err)
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 0, "Port to run on (default from matcha.json)")
	cmd.Flags().StringVarP(&host, "host", "H", "", "Host to bind to (default from matcha.json)")
	return cmd
}

func (a *App) publishCmd(flags *globalFlags) *cobra.Command {
	var (
		bucket, prefix string
		skipBuild      bool
	)

	cmd := &cobra.Command{
		Use:   "publish",
		Short: "Upload the built site to S3",
		Long: `Build the site (unless --skip-build) and copy every artifact to the
configured S3 bucket. "matcha serve --artifacts=s3://bucket/prefix" serves
from the uploaded copy.

Examples:
  matcha publish
  matcha publish --bucket=my-site --prefix=prod`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.loadConfig(flags)
			if err != nil {
				return err
			}
			if bucket != "" {
				cfg.Publish.Bucket = bucket
			}
			if prefix != "" {
				cfg.Publish.Prefix = prefix
			}
			if err := cfg.ValidatePublish(); err != nil {
				return err
			}
			if !skipBuild {
				if _, err := a.runBuild(cmd.Context(), cfg); err != nil {
					return err
				}
			}
			return a.publish(cmd.Context(), cfg, artifact.NewDirStore(cfg.OutputPath()), nil)
		},
	}

	cmd.Flags().StringVar(&bucket, "bucket", "", "S3 bucket (default from matcha.json)")
	cmd.Flags().StringVar(&prefix, "prefix", "", "Key prefix inside the bucket")
	cmd.Flags().BoolVar(&skipBuild, "skip-build", false, "Upload the existing output without building")
	return cmd
}

// publish copies src to the configured bucket. client replaces the SDK
// client when non-nil.
func (a *App) publish(ctx context.Context, cfg *config.Config, src artifact.Store, client artifact.S3Client) error {
	s3cfg := s3Config(cfg)
	s3cfg.Bucket = cfg.Publish.Bucket
	s3cfg.Client = client
	dst, err := artifact.NewS3Store(ctx, s3cfg)
	if err != nil {
		return errors.New("E151").Wrap(err)
	}
	n, err := artifact.Copy(ctx, dst, src)
	if err != nil {
		return errors.New("E151").WithDetail(fmt.Sprintf("Uploaded %d artifacts before failing.", n)).Wrap(err)
	}
	target := "s3://" + cfg.Publish.Bucket
	if cfg.Publish.Prefix != "" {
		target += "/" + strings.Trim(cfg.Publish.Prefix, "/")
	}
	a.success("Published %d artifacts to %s", n, target)
	return nil
}

func (a *App) routesCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "routes",
		Short: "List the route table",
		Long:  `Print every registered page with its render mode, followed by the SSR manifest.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			routes := a.routes.Routes()
			manifest := router.ManifestFor(routes)
			if asJSON {
				return a.printRoutesJSON(routes, manifest)
			}

			tw := tabwriter.NewWriter(a.stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "PATH\tMODE\tLOADERS")
			for _, r := range routes {
				fmt.Fprintf(tw, "%s\t%s\t%s\n", r.Path, r.Mode(), loaderNames(r))
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			data, err := manifest.MarshalJSON()
			if err != nil {
				return err
			}
			fmt.Fprintf(a.stdout, "\nSSR manifest: %s\n", data)
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print as JSON")
	return cmd
}

type routeInfo struct {
	Path    string   `json:"path"`
	Mode    string   `json:"mode"`
	Loaders []string `json:"loaders"`
}

func (a *App) printRoutesJSON(routes []*router.Route, manifest *router.Manifest) error {
	out := struct {
		Routes   []routeInfo      `json:"routes"`
		Manifest *router.Manifest `json:"ssrManifest"`
	}{Routes: make([]routeInfo, 0, len(routes)), Manifest: manifest}
	for _, r := range routes {
		out.Routes = append(out.Routes, routeInfo{Path: r.Path, Mode: r.Mode(), Loaders: loaders(r)})
	}
	enc := json.NewEncoder(a.stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func loaders(r *router.Route) []string {
	names := []string{}
	if r.StaticLoader != nil {
		names = append(names, string(loader.KindStatic))
	}
	if r.RequestLoader != nil {
		names = append(names, string(loader.KindRequest))
	}
	return names
}

func loaderNames(r *router.Route) string {
	if names := loaders(r); len(names) > 0 {
		return strings.Join(names, ",")
	}
	return "-"
}

func (a *App) versionCmd() *cobra.Command {
	var short bool

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			if short {
				fmt.Fprintln(a.stdout, a.version)
				return
			}
			fmt.Fprintf(a.stdout, "  Version:    %s\n", a.version)
			fmt.Fprintf(a.stdout, "  Go version: %s\n", runtime.Version())
			fmt.Fprintf(a.stdout, "  OS/Arch:    %s/%s\n", runtime.GOOS, runtime.GOARCH)
		},
	}

	cmd.Flags().BoolVarP(&short, "short", "s", false, "Print only the version number")
	return cmd
}

func (a *App) success(format string, args ...any) {
	fmt.Fprintf(a.stdout, "\033[32m✓\033[0m %s\n", fmt.Sprintf(format, args...))
}

func (a *App) info(msg string) {
	fmt.Fprintf(a.stdout, "  %s\n", msg)
}

// newLogger builds the process logger and installs it as slog's default.
func newLogger(w io.Writer, format string, verbose bool) (*slog.Logger, error) {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}

	var h slog.Handler
	switch format {
	case "", "text":
		h = slog.NewTextHandler(w, opts)
	case "json":
		h = slog.NewJSONHandler(w, opts)
	default:
		return nil, fmt.Errorf("unknown log format %q (want text or json)", format)
	}
	logger := slog.New(h)
	slog.SetDefault(logger)
	return logger, nil
}
