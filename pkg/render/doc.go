// Package render turns a matched route and its merged props into markup,
// and places that markup into the HTML page shell.
//
// Rendering is pure: a Renderer performs no I/O of its own. All data is
// gathered by the loader package before Render is called, so the same props
// always produce the same markup whether the page is rendered at build time
// or at request time.
//
// # Page Shell
//
// A Shell is an HTML template with an outlet placeholder:
//
//	<div id="app"><!--ssr-outlet--></div>
//
// Inject replaces the outlet with the rendered markup and inserts two
// script tags before </head>:
//
//	<script>window.__INITIAL_PROPS__={...}</script>
//	<script>window.__MATCHA_SSR_ROUTES__=["/user-profile"]</script>
//
// The JSON is produced by props.Encode, which escapes <, > and & so the
// payload cannot terminate the script element early.
//
// # Fixed Views
//
// NotFound renders <div>404 - Not Found</div> for unmatched paths; Loading
// is shown by the client router while props are being fetched.
package render
