// Package matcha is the entry point of a Matcha site.
//
// A site registers its pages on an App and hands control to the CLI:
//
//	func main() {
//	    app := matcha.New(matcha.WithVersion(version))
//	    app.Page("/", pages.Home)
//	    app.Page("/about", pages.About, matcha.WithStaticLoader(loadBlog))
//	    app.Page("/user-profile", pages.Profile,
//	        matcha.WithStaticLoader(buildInfo),
//	        matcha.WithRequestLoader(currentUser),
//	    )
//	    if err := app.Execute(); err != nil {
//	        os.Exit(1)
//	    }
//	}
//
// Pages with only a static loader (or none) are rendered once by
// `matcha build`. Pages with a request loader are listed in the SSR manifest
// and rendered per request by `matcha serve`.
package matcha

import (
	"context"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/matcha-dev/matcha/internal/errors"
	"github.com/matcha-dev/matcha/pkg/props"
	"github.com/matcha-dev/matcha/pkg/router"
)

// Props is the JSON object passed to page components.
type Props = props.Props

// Wrapped marks loader output that is already wrapped as {"props": ...}.
type Wrapped = props.Wrapped

// Component renders a page from its props.
type Component = router.Component

// LoaderFunc produces props for a page.
type LoaderFunc = router.LoaderFunc

// RouteOption configures a page.
type RouteOption = router.RouteOption

// Loader registration, re-exported from pkg/router.
var (
	WithStaticLoader  = router.WithStaticLoader
	WithRequestLoader = router.WithRequestLoader
)

// App holds a site's route table and runs the CLI over it.
type App struct {
	routes  *router.Router
	version string
	stdout  io.Writer
	stderr  io.Writer

	// set by the root command before any subcommand runs
	logger *slog.Logger
}

// Option configures an App.
type Option func(*App)

// WithVersion sets the version printed by `matcha version`.
func WithVersion(v string) Option {
	return func(a *App) {
		a.version = v
	}
}

// WithOutput redirects command output.
func WithOutput(stdout, stderr io.Writer) Option {
	return func(a *App) {
		a.stdout = stdout
		a.stderr = stderr
	}
}

// New creates an App with an empty route table.
func New(opts ...Option) *App {
	a := &App{
		routes:  router.New(),
		version: "dev",
		stdout:  os.Stdout,
		stderr:  os.Stderr,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Page registers a page and panics on an invalid or duplicate path.
func (a *App) Page(path string, component Component, opts ...RouteOption) {
	a.routes.Page(path, component, opts...)
}

// Add registers a page.
func (a *App) Add(path string, component Component, opts ...RouteOption) error {
	return a.routes.Add(path, component, opts...)
}

// Routes returns the route table.
func (a *App) Routes() *router.Router {
	return a.routes
}

// Execute runs the CLI with os.Args until it finishes or the process is
// interrupted. Errors are printed to stderr before being returned.
func (a *App) Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return a.ExecuteContext(ctx, os.Args[1:])
}

// ExecuteContext runs the CLI with the given arguments.
func (a *App) ExecuteContext(ctx context.Context, args []string) error {
	cmd := a.Command()
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(ctx)
	if err != nil {
		errors.Fprint(a.stderr, err)
	}
	return err
}
