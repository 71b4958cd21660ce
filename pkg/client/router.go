package client

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"

	"github.com/matcha-dev/matcha/pkg/props"
	"github.com/matcha-dev/matcha/pkg/render"
	"github.com/matcha-dev/matcha/pkg/routepath"
	"github.com/matcha-dev/matcha/pkg/router"
)

// Status is the router's state machine position.
type Status int

const (
	// Idle shows the current route with its props.
	Idle Status = iota

	// Navigating waits on a props fetch.
	Navigating

	// NotFound shows the fixed not-found view. A later navigation leaves it.
	NotFound
)

func (s Status) String() string {
	switch s {
	case Idle:
		return "idle"
	case Navigating:
		return "navigating"
	case NotFound:
		return "not-found"
	default:
		return "unknown"
	}
}

// State is a snapshot of the navigation state.
type State struct {
	Path      string
	Props     props.Props
	IsLoading bool
	Status    Status
}

// Options configures a Router.
type Options struct {
	// History receives an entry per completed navigation.
	History History

	// Fetcher loads destination props. Required for navigation to matched
	// routes; without one every fetch fails.
	Fetcher Fetcher

	// OnError receives every *FetchError. Navigation proceeds regardless.
	OnError func(error)

	// OnChange is called after every state transition.
	OnChange func(State)

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// Option configures a Router.
type Option func(*Options)

// WithHistory sets the history.
func WithHistory(h History) Option {
	return func(o *Options) { o.History = h }
}

// WithFetcher sets the props fetcher.
func WithFetcher(f Fetcher) Option {
	return func(o *Options) { o.Fetcher = f }
}

// WithErrorHandler sets Options.OnError.
func WithErrorHandler(fn func(error)) Option {
	return func(o *Options) { o.OnError = fn }
}

// WithChangeHandler sets Options.OnChange.
func WithChangeHandler(fn func(State)) Option {
	return func(o *Options) { o.OnChange = fn }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *Options) { o.Logger = l }
}

type discardHistory struct{}

func (discardHistory) Push(Entry) {}

var errNoFetcher = errors.New("no fetcher configured")

// Router tracks navigation for one page.
type Router struct {
	routes   *router.Router
	manifest *router.Manifest
	opts     Options

	mu     sync.Mutex
	state  State
	seq    uint64
	cancel context.CancelFunc
}

// New creates a router in its initial state: initial.Path and
// initial.Props taken verbatim, Idle when the path matches a route and
// NotFound otherwise.
func New(routes *router.Router, manifest *router.Manifest, initial Entry, opts ...Option) *Router {
	var o Options
	for _, opt := range opts {
		opt(&o)
	}
	if o.History == nil {
		o.History = discardHistory{}
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}

	p := initial.Props
	if p == nil {
		p = props.Props{}
	}
	path := routepath.Normalize(initial.Path)
	status := Idle
	if _, ok := routes.Match(path); !ok {
		status = NotFound
	}

	return &Router{
		routes:   routes,
		manifest: manifest,
		opts:     o,
		state:    State{Path: path, Props: p, Status: status},
	}
}

// State returns the current state.
func (r *Router) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// IsDynamic reports whether path is listed in the SSR manifest.
func (r *Router) IsDynamic(path string) bool {
	return r.manifest.Contains(routepath.Normalize(path))
}

// Navigate moves to the route at to and returns the resulting state. An
// unmatched destination settles in NotFound without a fetch. A failed
// fetch settles in Idle with empty props. If another navigation starts
// before this one's fetch returns, this one's result is discarded and the
// returned state is whatever the router holds at that point.
func (r *Router) Navigate(ctx context.Context, to string) State {
	path := routepath.Normalize(to)

	r.mu.Lock()
	seq := r.begin()
	if _, ok := r.routes.Match(path); !ok {
		empty := props.Props{}
		r.opts.History.Push(Entry{Path: path, Props: empty})
		r.state = State{Path: path, Props: empty, Status: NotFound}
		return r.settle(nil)
	}
	fetchCtx := r.loading(ctx)
	r.mu.Unlock()
	r.changed()

	p, err := r.fetch(fetchCtx, path)

	r.mu.Lock()
	if seq != r.seq {
		r.opts.Logger.Debug("navigation superseded", "path", path)
		state := r.state
		r.mu.Unlock()
		return state
	}
	r.opts.History.Push(Entry{Path: path, Props: p})
	r.state = State{Path: path, Props: p, Status: Idle}
	return r.settle(err)
}

// PopState restores a history entry after back/forward. Entries carrying
// props are restored without a fetch; others are fetched.
func (r *Router) PopState(ctx context.Context, e Entry) State {
	path := routepath.Normalize(e.Path)

	r.mu.Lock()
	seq := r.begin()
	if _, ok := r.routes.Match(path); !ok {
		r.state = State{Path: path, Props: props.Props{}, Status: NotFound}
		return r.settle(nil)
	}
	if e.HasProps() {
		r.state = State{Path: path, Props: e.Props, Status: Idle}
		return r.settle(nil)
	}
	fetchCtx := r.loading(ctx)
	r.mu.Unlock()
	r.changed()

	p, err := r.fetch(fetchCtx, path)

	r.mu.Lock()
	if seq != r.seq {
		state := r.state
		r.mu.Unlock()
		return state
	}
	r.state = State{Path: path, Props: p, Status: Idle}
	return r.settle(err)
}

// begin starts a navigation, cancelling any fetch in flight. Called with
// r.mu held.
func (r *Router) begin() uint64 {
	if r.cancel != nil {
		r.cancel()
		r.cancel = nil
	}
	r.seq++
	return r.seq
}

// loading enters Navigating and returns the fetch context. Called with
// r.mu held.
func (r *Router) loading(ctx context.Context) context.Context {
	fetchCtx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	r.state.IsLoading = true
	r.state.Status = Navigating
	return fetchCtx
}

// settle releases r.mu, then reports the fetch error, if any, and the
// state change.
func (r *Router) settle(err *FetchError) State {
	if r.cancel != nil {
		r.cancel()
		r.cancel = nil
	}
	state := r.state
	r.mu.Unlock()
	if err != nil && r.opts.OnError != nil {
		r.opts.OnError(err)
	}
	r.changed()
	return state
}

func (r *Router) changed() {
	if r.opts.OnChange != nil {
		r.opts.OnChange(r.State())
	}
}

// fetch always yields usable props; on failure they are empty and the
// error says why.
func (r *Router) fetch(ctx context.Context, path string) (props.Props, *FetchError) {
	var (
		p   props.Props
		err error
	)
	if r.opts.Fetcher == nil {
		err = errNoFetcher
	} else {
		p, err = r.opts.Fetcher.FetchProps(ctx, path, r.IsDynamic(path))
	}
	if err == nil {
		if p == nil {
			p = props.Props{}
		}
		return p, nil
	}

	var fe *FetchError
	if !errors.As(err, &fe) {
		fe = &FetchError{Path: path, Err: err}
	}
	r.opts.Logger.Debug("props fetch failed", "path", path, "err", err)
	return props.Props{}, fe
}

// Render writes the view for the current state: the loading view while a
// fetch is outstanding, the not-found view in NotFound, else the route's
// component with the current props.
func (r *Router) Render(ctx context.Context, w io.Writer) error {
	state := r.State()
	switch {
	case state.Status == NotFound:
		return render.NotFound.Render(ctx, w)
	case state.IsLoading:
		return render.Loading.Render(ctx, w)
	}
	route, ok := r.routes.Match(state.Path)
	if !ok {
		return render.NotFound.Render(ctx, w)
	}
	return route.Component(state.Props).Render(ctx, w)
}
