package render

import (
	"context"
	"io"

	"github.com/a-h/templ"
)

// NotFoundMarkup is the fixed markup for unmatched paths.
const NotFoundMarkup = "<div>404 - Not Found</div>"

// LoadingMarkup is shown while a navigation's props are in flight.
const LoadingMarkup = `<div aria-busy="true">Loading...</div>`

// NotFound renders the fixed not-found view.
var NotFound templ.Component = templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
	_, err := io.WriteString(w, NotFoundMarkup)
	return err
})

// Loading renders the loading indicator.
var Loading templ.Component = templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
	_, err := io.WriteString(w, LoadingMarkup)
	return err
})
