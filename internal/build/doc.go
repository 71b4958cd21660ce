// Package build generates the static site and the request-time artifacts
// from a route table.
//
// For every route the static loader output is written as _props.json. Routes
// without a request loader are rendered to index.html with their props and
// the SSR manifest embedded. Routes with a request loader get no HTML; they
// are listed in the SSR manifest and rendered per request by pkg/server.
//
// # Usage
//
//	builder := build.New(cfg, routes, build.Options{})
//	result, err := builder.Build(ctx)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Printf("%d static, %d ssr in %s\n", len(result.Static), len(result.Dynamic), result.Duration)
//
// # Output Structure
//
//	dist/
//	├── _props.json              # props for /
//	├── index.html               # page for /
//	├── about/
//	│   ├── _props.json
//	│   └── index.html
//	├── user-profile/
//	│   └── _props.json          # static layer only
//	├── server/
//	│   ├── ssr-manifest.json    # ["/user-profile"]
//	│   └── ssr-template.html    # page shell for request-time rendering
//	└── manifest.json            # artifact path -> sha256
//
// # Failure Policy
//
// Every artifact is computed in memory before anything touches the disk,
// then written to a staging directory that replaces the output directory
// only when complete. A failing loader or component aborts the build and
// leaves the previous output untouched.
//
// Artifacts contain no timestamps and JSON keys are sorted, so two builds
// over unchanged loader output are byte-identical.
package build
