// Package router holds the route table and the route matcher.
//
// A route maps an exact path to a component and up to two data loaders:
//
//	r := router.New()
//	r.Page("/", pages.Home)
//	r.Page("/about", pages.About, router.WithStaticLoader(loadBlog))
//	r.Page("/user-profile", pages.Profile,
//	    router.WithStaticLoader(buildInfo),
//	    router.WithRequestLoader(currentUser),
//	)
//	r.Freeze()
//
// The static loader runs once at build time and its output is cached as an
// artifact. The request loader runs per request and per client navigation.
// A route with a request loader is dynamic: it is rendered at request time
// and listed in the SSR manifest.
//
// # Matching
//
// Paths are normalized by stripping one trailing slash (except for "/"),
// then compared for exact equality in registration order. There are no
// parameters or wildcards. Match never fails loudly; callers render the
// not-found view when it reports false.
//
//	route, ok := r.Match("/about/")
//	if !ok {
//	    // render.NotFound
//	}
package router
