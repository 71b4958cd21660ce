package client

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/matcha-dev/matcha/pkg/props"
	"github.com/matcha-dev/matcha/pkg/routepath"
)

// Fetcher loads the props of a route. dynamic is true for paths listed in
// the SSR manifest.
type Fetcher interface {
	FetchProps(ctx context.Context, path string, dynamic bool) (props.Props, error)
}

// FetcherFunc adapts a function to Fetcher.
type FetcherFunc func(ctx context.Context, path string, dynamic bool) (props.Props, error)

// FetchProps calls f.
func (f FetcherFunc) FetchProps(ctx context.Context, path string, dynamic bool) (props.Props, error) {
	return f(ctx, path, dynamic)
}

// FetchError reports a failed props fetch.
type FetchError struct {
	// Path is the destination route.
	Path string

	// URL is the props URL requested, when one was built.
	URL string

	// StatusCode is the HTTP status for non-2xx responses, else 0.
	StatusCode int

	Err error
}

func (e *FetchError) Error() string {
	switch {
	case e.StatusCode != 0:
		return fmt.Sprintf("fetch props for %s: %s returned %d", e.Path, e.URL, e.StatusCode)
	case e.Err != nil:
		return fmt.Sprintf("fetch props for %s: %v", e.Path, e.Err)
	default:
		return "fetch props for " + e.Path
	}
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// HTTPFetcher fetches props artifacts over HTTP.
type HTTPFetcher struct {
	// BaseURL is prepended to the props URL, e.g. "http://localhost:8080".
	BaseURL string

	// Client defaults to http.DefaultClient.
	Client *http.Client
}

// FetchProps GETs the route's _props.json. Requests for dynamic routes
// carry Cache-Control: no-store.
func (f *HTTPFetcher) FetchProps(ctx context.Context, path string, dynamic bool) (props.Props, error) {
	url := strings.TrimSuffix(f.BaseURL, "/") + routepath.PropsURL(path)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &FetchError{Path: path, URL: url, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	if dynamic {
		req.Header.Set("Cache-Control", "no-store")
	}

	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, &FetchError{Path: path, URL: url, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, &FetchError{Path: path, URL: url, StatusCode: resp.StatusCode}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &FetchError{Path: path, URL: url, Err: err}
	}
	p, err := props.Decode(data)
	if err != nil {
		return nil, &FetchError{Path: path, URL: url, Err: err}
	}
	return p, nil
}
