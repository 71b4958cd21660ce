package errors

import (
	stderrors "errors"
	"fmt"

	"github.com/matcha-dev/matcha/pkg/artifact"
	"github.com/matcha-dev/matcha/pkg/loader"
	"github.com/matcha-dev/matcha/pkg/props"
	"github.com/matcha-dev/matcha/pkg/render"
	"github.com/matcha-dev/matcha/pkg/router"
)

// Category represents the type of error.
type Category string

const (
	CategoryRoute   Category = "route"
	CategoryLoader  Category = "loader"
	CategoryRender  Category = "render"
	CategoryBuild   Category = "build"
	CategoryConfig  Category = "config"
	CategoryStorage Category = "storage"
	CategoryCLI     Category = "cli"
)

// Error is a structured error with a code, an optional route and a hint.
type Error struct {
	// Code is a unique error identifier (e.g., "E200").
	Code string

	// Category is the error type.
	Category Category

	// Message is a short description of the error.
	Message string

	// Detail is a longer explanation of the error.
	Detail string

	// Route is the route path involved, if any.
	Route string

	// Loader is "static" or "request" for loader failures.
	Loader string

	// Suggestion is a hint on how to fix the error.
	Suggestion string

	// DocURL is a link to documentation about this error.
	DocURL string

	// Wrapped is the underlying error, if any.
	Wrapped error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := e.Message
	if e.Code != "" {
		msg = e.Code + ": " + msg
	}
	if e.Route != "" {
		msg += " (" + e.Route + ")"
	}
	if e.Wrapped != nil {
		msg += ": " + e.Wrapped.Error()
	}
	return msg
}

// Unwrap returns the wrapped error for errors.Is/As support.
func (e *Error) Unwrap() error {
	return e.Wrapped
}

// WithRoute records the route path involved.
func (e *Error) WithRoute(path string) *Error {
	e.Route = path
	return e
}

// WithSuggestion adds a fix suggestion to the error.
func (e *Error) WithSuggestion(s string) *Error {
	e.Suggestion = s
	return e
}

// WithDetail replaces the detailed explanation.
func (e *Error) WithDetail(d string) *Error {
	e.Detail = d
	return e
}

// Wrap wraps another error.
func (e *Error) Wrap(err error) *Error {
	e.Wrapped = err
	return e
}

// New creates an Error from a registered code.
func New(code string) *Error {
	template, ok := registry[code]
	if !ok {
		return &Error{
			Code:    code,
			Message: "Unknown error",
		}
	}
	return &Error{
		Code:     code,
		Category: template.Category,
		Message:  template.Message,
		Detail:   template.Detail,
		DocURL:   template.DocURL,
	}
}

// Newf creates an Error with a formatted message and no code.
func Newf(category Category, format string, args ...any) *Error {
	return &Error{
		Category: category,
		Message:  fmt.Sprintf(format, args...),
	}
}

// FromError classifies err into a coded Error. Errors that match none of
// the pipeline's error types get the fallback code.
func FromError(err error, fallback string) *Error {
	if err == nil {
		return nil
	}

	var e *Error
	if stderrors.As(err, &e) {
		return e
	}

	var le *loader.Error
	if stderrors.As(err, &le) {
		code := "E200"
		if loader.IsSerialization(le) {
			code = "E201"
		}
		out := New(code).WithRoute(le.Path).Wrap(err)
		out.Loader = string(le.Kind)
		return out.WithSuggestion(le.Err.Error())
	}

	var se *props.SerializationError
	if stderrors.As(err, &se) {
		return New("E201").Wrap(err).WithSuggestion("Props must be JSON objects of strings, numbers, booleans, arrays and nested objects; " + se.Type + " is not.")
	}

	var re *render.Error
	if stderrors.As(err, &re) {
		return New("E202").WithRoute(re.Path).Wrap(err).WithSuggestion(re.Err.Error())
	}

	switch {
	case stderrors.Is(err, router.ErrRouteNotFound):
		return New("E100").Wrap(err)
	case stderrors.Is(err, router.ErrDuplicateRoute):
		return New("E101").Wrap(err)
	case stderrors.Is(err, router.ErrInvalidPath):
		return New("E102").Wrap(err)
	case stderrors.Is(err, render.ErrNoOutlet), stderrors.Is(err, render.ErrNoHead):
		return New("E141").Wrap(err).WithSuggestion(err.Error())
	case stderrors.Is(err, artifact.ErrNotFound):
		return New("E150").Wrap(err).WithSuggestion("Run `matcha build` before serving.")
	}

	return New(fallback).Wrap(err)
}
