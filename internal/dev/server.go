package dev

import (
	"context"
	"log/slog"
	"net/http"
	"path/filepath"
	"sync"

	"github.com/go-chi/chi/v5"

	"github.com/matcha-dev/matcha/internal/build"
	"github.com/matcha-dev/matcha/internal/config"
	"github.com/matcha-dev/matcha/internal/errors"
	"github.com/matcha-dev/matcha/pkg/loader"
	"github.com/matcha-dev/matcha/pkg/render"
	"github.com/matcha-dev/matcha/pkg/router"
	"github.com/matcha-dev/matcha/pkg/server"
)

// Options configures the dev server.
type Options struct {
	Config *config.Config
	Routes *router.Router
	Logger *slog.Logger

	// OnReload is called after each handled batch of changes.
	OnReload func([]Change)

	// OnLoaderFailure is called for every failed loader.
	OnLoaderFailure func(*loader.Error)
}

// Server renders pages from the live route table, watches project files
// and pushes reloads to connected browsers.
type Server struct {
	config   *config.Config
	routes   *router.Router
	logger   *slog.Logger
	onReload func([]Change)
	onFail   func(*loader.Error)

	reload  *ReloadServer
	watcher *Watcher

	mu      sync.RWMutex
	shell   *render.Shell
	app     http.Handler
	lastErr error
}

// NewServer creates a dev server. It fails with E141 when the configured
// page template cannot be loaded.
func NewServer(opts Options) (*Server, error) {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.New()
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	shell, err := build.LoadShell(cfg.TemplatePath())
	if err != nil {
		return nil, err
	}

	ignore := append(append([]string(nil), DefaultIgnore...), cfg.Dev.Ignore...)
	s := &Server{
		config:   cfg,
		routes:   opts.Routes,
		logger:   logger,
		onReload: opts.OnReload,
		onFail:   opts.OnLoaderFailure,
		reload:   NewReloadServer(logger),
		watcher: NewWatcher(WatcherConfig{
			Paths:    CollectWatchPaths(cfg.WatchPaths(), cfg.TemplatePath()),
			Ignore:   ignore,
			Debounce: cfg.Dev.Debounce,
			Logger:   logger,
		}),
	}
	s.setShell(shell)
	s.watcher.OnChange(s.handleChanges)
	return s, nil
}

// Handler returns the dev HTTP handler: the reload socket plus the app.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Get(ReloadPath, s.reload.HandleWebSocket)
	r.Handle("/*", http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		s.mu.RLock()
		app := s.app
		s.mu.RUnlock()
		app.ServeHTTP(w, req)
	}))
	return r
}

// Reload returns the reload channel.
func (s *Server) Reload() *ReloadServer {
	return s.reload
}

// Watcher returns the file watcher.
func (s *Server) Watcher() *Watcher {
	return s.watcher
}

// Shell returns the page template currently in use.
func (s *Server) Shell() *render.Shell {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.shell
}

// Start serves on the configured dev address until ctx is done.
func (s *Server) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := s.watcher.Start(ctx); err != nil {
			s.logger.Warn("file watcher stopped", "err", err)
		}
	}()
	defer func() {
		s.watcher.Stop()
		s.reload.Close()
		wg.Wait()
	}()

	srv := server.NewServer(&server.Config{Address: s.config.DevAddress()}, s.Handler(), s.logger)
	s.logger.Info("dev server starting", "url", s.config.DevURL(), "watch", s.watcher.config.Paths)
	return srv.Run(ctx)
}

func (s *Server) setShell(shell *render.Shell) {
	svc := server.Live(s.routes, shell,
		server.WithLogger(s.logger),
		server.WithLoaderFailureHook(s.onFail),
	)
	opts := []server.HandlerOption{
		server.WithDevProps(true),
		server.WithMetrics(false),
	}
	if s.config.Dev.HotReload {
		opts = append(opts, server.WithPageFilter(InjectReloadScript))
	}
	app := server.Handler(svc, opts...)

	s.mu.Lock()
	s.shell = shell
	s.app = app
	s.mu.Unlock()
}

func (s *Server) handleChanges(changes []Change) {
	for _, c := range changes {
		s.logger.Debug("file changed", "path", c.Path, "type", c.Type.String(), "op", c.Op.String())
	}

	template := s.config.TemplatePath()
	styleOnly := true
	templateChanged := false
	for _, c := range changes {
		if template != "" && filepath.Clean(c.Path) == filepath.Clean(template) {
			templateChanged = true
		}
		if c.Type != ChangeStyle {
			styleOnly = false
		}
	}

	switch {
	case templateChanged:
		shell, err := build.LoadShell(template)
		if err != nil {
			s.logger.Error("page template rejected", "path", template, "err", err)
			s.setError(err)
			s.reload.NotifyError(errors.FromError(err, "E141").FormatCompact())
			break
		}
		s.setShell(shell)
		if s.setError(nil) {
			s.reload.ClearError()
		}
		s.reload.NotifyReload()
	case styleOnly:
		for _, c := range changes {
			s.reload.NotifyCSS(filepath.Base(c.Path))
		}
	default:
		s.reload.NotifyReload()
	}

	if s.onReload != nil {
		s.onReload(changes)
	}
}

// setError records the template error and reports whether one was cleared.
func (s *Server) setError(err error) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	cleared := s.lastErr != nil && err == nil
	s.lastErr = err
	return cleared
}
