// Package errors provides coded, actionable error messages for the matcha
// CLI.
//
// Each error has a code (e.g. "E200") that maps to a short message, a
// longer explanation and a documentation URL. Domain errors from the
// pipeline packages are classified with FromError:
//
//	if err := builder.Build(ctx); err != nil {
//	    errors.PrintError(errors.FromError(err, "E142"))
//	}
//
// prints
//
//	ERROR E200: Data loader failed
//
//	  route /about (static loader)
//
//	  A static or request loader returned an error or panicked.
//
//	  Hint: open static/blog.md: no such file or directory
//
//	  Learn more: https://matcha.dev/docs/errors/E200
//
// Code ranges:
//   - E100-E119: routes
//   - E120-E139: configuration
//   - E140-E159: build and artifacts
//   - E200-E219: loaders and rendering
package errors
