// Package dev provides the development server and live reload.
//
// The dev server renders every route in-process through the live adapter of
// the render service, so static loaders run on each request and edits to
// their data files show up on the next page load. It consists of:
//
//   - Watcher: fsnotify over the configured watch paths, debounced
//   - ReloadServer: notifies browsers over WebSocket
//   - Server: the page handler plus the reload endpoint
//
// # Usage
//
//	srv, err := dev.NewServer(dev.Options{Config: cfg, Routes: routes})
//	if err != nil {
//	    return err
//	}
//	return srv.Start(ctx)
//
// # Configuration
//
// Watch paths come from dev.watch in matcha.json; the page template, when
// configured, is always watched. Hot reload can be disabled with
// dev.hotReload=false.
//
// # Reload Protocol
//
// The browser connects to /__matcha/reload via WebSocket.
// Messages are JSON-encoded:
//
//	{"type": "reload"}                // full page reload
//	{"type": "css", "file": "..."}    // stylesheet-only reload
//	{"type": "error", "error": "..."} // show error overlay
//	{"type": "clear"}                 // clear error overlay
package dev
