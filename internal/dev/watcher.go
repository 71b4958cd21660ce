package dev

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// ChangeType represents the type of file change.
type ChangeType int

const (
	// ChangeData is any file a loader may read (markdown, JSON, ...).
	ChangeData ChangeType = iota
	ChangeStyle
	ChangeTemplate
)

func (t ChangeType) String() string {
	switch t {
	case ChangeData:
		return "data"
	case ChangeStyle:
		return "style"
	case ChangeTemplate:
		return "template"
	default:
		return "unknown"
	}
}

// Change represents a detected file change.
type Change struct {
	Path string
	Type ChangeType
	Op   fsnotify.Op
}

// WatcherConfig configures the file watcher.
type WatcherConfig struct {
	// Paths are files or directories to watch. Directories are watched
	// recursively; missing paths are skipped.
	Paths []string

	// Ignore patterns to skip (names, path segments or globs).
	Ignore []string

	// Debounce is the quiet period before a batch is reported.
	Debounce time.Duration

	Logger *slog.Logger
}

// DefaultIgnore contains default patterns to ignore.
var DefaultIgnore = []string{
	".git",
	"node_modules",
	"*.tmp",
	"*.swp",
	"*~",
	".#*",
}

// Watcher reports batches of file changes.
type Watcher struct {
	config   WatcherConfig
	logger   *slog.Logger
	onChange func([]Change)

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	ready   chan struct{}
	files   map[string]bool
}

// NewWatcher creates a new file watcher.
func NewWatcher(config WatcherConfig) *Watcher {
	if config.Debounce <= 0 {
		config.Debounce = 100 * time.Millisecond
	}
	if len(config.Ignore) == 0 {
		config.Ignore = DefaultIgnore
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Watcher{
		config: config,
		logger: logger,
		ready:  make(chan struct{}),
		files:  make(map[string]bool),
	}
}

// OnChange sets the callback for change batches. Batches are sorted by
// path and hold one Change per path.
func (w *Watcher) OnChange(fn func([]Change)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onChange = fn
}

// Ready is closed once every path is being watched.
func (w *Watcher) Ready() <-chan struct{} {
	return w.ready
}

// Start watches until ctx is done or Stop is called.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.stopCh = make(chan struct{})
	stopCh := w.stopCh
	w.mu.Unlock()
	defer func() {
		w.mu.Lock()
		if w.stopCh == stopCh {
			w.running = false
		}
		w.mu.Unlock()
	}()

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fsw.Close()

	for _, p := range w.config.Paths {
		if err := w.add(fsw, p); err != nil {
			w.logger.Warn("cannot watch path", "path", p, "err", err)
		}
	}
	close(w.ready)

	pending := make(map[string]Change)
	var timer *time.Timer
	var timerC <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return nil

		case <-stopCh:
			return nil

		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if !w.accept(event) {
				continue
			}
			if event.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if err := w.addDir(fsw, event.Name); err != nil {
						w.logger.Warn("cannot watch directory", "path", event.Name, "err", err)
					}
					continue
				}
			}
			pending[event.Name] = Change{Path: event.Name, Type: classifyChange(event.Name), Op: event.Op}
			if timer == nil {
				timer = time.NewTimer(w.config.Debounce)
			} else {
				timer.Reset(w.config.Debounce)
			}
			timerC = timer.C

		case <-timerC:
			timerC = nil
			w.flush(pending)
			pending = make(map[string]Change)

		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("file watcher error", "err", err)
		}
	}
}

// Stop stops the watcher.
func (w *Watcher) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running {
		close(w.stopCh)
		w.running = false
	}
}

// IsRunning returns whether the watcher is running.
func (w *Watcher) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

func (w *Watcher) add(fsw *fsnotify.Watcher, p string) error {
	info, err := os.Stat(p)
	if errors.Is(err, fs.ErrNotExist) {
		w.logger.Debug("watch path does not exist", "path", p)
		return nil
	}
	if err != nil {
		return err
	}
	if info.IsDir() {
		return w.addDir(fsw, p)
	}
	// Editors replace files by rename, so single files are watched through
	// their directory.
	w.mu.Lock()
	w.files[filepath.Clean(p)] = true
	w.mu.Unlock()
	return fsw.Add(filepath.Dir(p))
}

func (w *Watcher) addDir(fsw *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if p != root && w.shouldIgnore(p) {
			return filepath.SkipDir
		}
		return fsw.Add(p)
	})
}

// accept filters events for ignored names and for siblings of single
// watched files.
func (w *Watcher) accept(event fsnotify.Event) bool {
	if event.Op == fsnotify.Chmod {
		return false
	}
	if w.shouldIgnore(event.Name) {
		return false
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.files[filepath.Clean(event.Name)] {
		return true
	}
	for _, p := range w.config.Paths {
		if !w.files[filepath.Clean(p)] && isWithinDir(event.Name, p) {
			return true
		}
	}
	return false
}

func (w *Watcher) flush(pending map[string]Change) {
	if len(pending) == 0 {
		return
	}
	changes := make([]Change, 0, len(pending))
	for _, c := range pending {
		changes = append(changes, c)
	}
	sort.Slice(changes, func(i, j int) bool { return changes[i].Path < changes[j].Path })

	w.mu.Lock()
	callback := w.onChange
	w.mu.Unlock()
	if callback != nil {
		callback(changes)
	}
}

// shouldIgnore checks if a path should be ignored.
func (w *Watcher) shouldIgnore(fullPath string) bool {
	name := filepath.Base(fullPath)
	normalized := filepath.ToSlash(fullPath)

	for _, pattern := range w.config.Ignore {
		pattern = strings.TrimSpace(pattern)
		if pattern == "" {
			continue
		}
		if name == pattern {
			return true
		}

		hasPathSep := strings.Contains(pattern, "/")
		if strings.ContainsAny(pattern, "*?[") {
			if hasPathSep {
				if matched, _ := path.Match(pattern, normalized); matched {
					return true
				}
			} else if matched, _ := filepath.Match(pattern, name); matched {
				return true
			}
			continue
		}

		if hasPathSep {
			if strings.Contains("/"+normalized+"/", "/"+strings.Trim(pattern, "/")+"/") {
				return true
			}
			continue
		}
		if strings.Contains("/"+normalized+"/", "/"+pattern+"/") {
			return true
		}
	}
	return false
}

// classifyChange determines the type of change from the file extension.
func classifyChange(p string) ChangeType {
	switch strings.ToLower(filepath.Ext(p)) {
	case ".css", ".scss", ".sass", ".less":
		return ChangeStyle
	case ".html", ".gohtml", ".tmpl":
		return ChangeTemplate
	default:
		return ChangeData
	}
}

func isWithinDir(p, dir string) bool {
	rel, err := filepath.Rel(dir, p)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) && !filepath.IsAbs(rel)
}

// CollectWatchPaths returns the deduplicated paths watched in dev mode:
// the configured watch list plus the page template.
func CollectWatchPaths(watch []string, template string) []string {
	paths := append([]string(nil), watch...)
	if template != "" {
		paths = append(paths, template)
	}

	unique := make([]string, 0, len(paths))
	seen := make(map[string]struct{}, len(paths))
	for _, p := range paths {
		if p == "" {
			continue
		}
		clean := filepath.Clean(p)
		if _, ok := seen[clean]; ok {
			continue
		}
		seen[clean] = struct{}{}
		unique = append(unique, clean)
	}
	return unique
}
