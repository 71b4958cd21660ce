// Package client is a headless model of the browser-side router.
//
// It owns the navigation state of one page: the current path, its props
// and whether a props fetch is outstanding. A page boots from the globals
// the server embedded (see ParseEmbedded), so the first client render
// matches the server markup byte for byte.
//
//	emb, _ := client.ParseEmbedded(html)
//	r := client.New(routes, emb.Manifest, client.Entry{Path: "/", Props: emb.Props},
//	    client.WithFetcher(&client.HTTPFetcher{BaseURL: "http://localhost:8080"}),
//	)
//	r.Navigate(ctx, "/user-profile")
//
// Navigation never blocks on a failed props fetch: the router settles on
// empty props and reports the failure through the error handler. When
// navigations overlap, the last one started wins.
package client
