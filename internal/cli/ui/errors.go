// Package ui formats command line output.
package ui

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"github.com/rails-api/active-model-serializers-sub000/internal/fixture"
	"github.com/rails-api/active-model-serializers-sub000/pkg/adapter"
	"github.com/rails-api/active-model-serializers-sub000/pkg/serializer"
)

// ErrorOptions configures FormatError.
type ErrorOptions struct {
	Context     string
	Problem     string
	Suggestions []string
	Hints       []string
	NoColor     bool
}

// FormatError renders an error block:
//
//	UNKNOWN ADAPTER: xml
//	   Did you mean: json?
//	   → available: attributes, flat_json, json, json_api
func FormatError(opts ErrorOptions) string {
	var b strings.Builder

	header := color.New(color.FgRed, color.Bold)
	yellow := color.New(color.FgYellow)
	cyan := color.New(color.FgCyan)
	if opts.NoColor {
		header.DisableColor()
		yellow.DisableColor()
		cyan.DisableColor()
	}

	if opts.Context != "" {
		header.Fprintf(&b, "%s: %s\n", strings.ToUpper(opts.Context), opts.Problem)
	} else {
		header.Fprintf(&b, "%s\n", opts.Problem)
	}
	if len(opts.Suggestions) > 0 {
		yellow.Fprintf(&b, "   Did you mean: %s?\n", strings.Join(opts.Suggestions, ", "))
	}
	for _, hint := range opts.Hints {
		cyan.Fprintf(&b, "   → %s\n", hint)
	}
	return b.String()
}

// WriteError writes err to w, with suggestions for the errors the CLI knows how to explain.
// types lists the declared model types of the loaded fixture, if any.
func WriteError(w io.Writer, err error, types []string, noColor bool) {
	fmt.Fprint(w, FormatError(Explain(err, types, noColor)))
}

// Explain maps err to error options.
func Explain(err error, types []string, noColor bool) ErrorOptions {
	opts := ErrorOptions{Problem: err.Error(), NoColor: noColor}

	var noSerializer *serializer.NoSerializerError
	switch {
	case errors.Is(err, adapter.ErrUnknownAdapter):
		opts.Context = "unknown adapter"
		opts.Hints = []string{"available: " + strings.Join(adapter.Names(), ", ")}
	case errors.Is(err, adapter.ErrUnknownKeyTransform):
		opts.Context = "unknown key transform"
		opts.Hints = []string{"available: camel, camel_lower, dash, underscore, unaltered"}
	case errors.As(err, &noSerializer):
		opts.Context = "no serializer"
		opts.Suggestions = Suggest(noSerializer.TypeName, types, 3)
		opts.Hints = []string{"tried: " + strings.Join(noSerializer.Tried, ", ")}
	case errors.Is(err, fixture.ErrNotFound):
		opts.Context = "not found"
	case errors.Is(err, fixture.ErrInvalidFixture), errors.Is(err, fixture.ErrUnresolvedReference):
		opts.Context = "invalid fixture"
	case errors.Is(err, adapter.ErrMaxDepthExceeded):
		opts.Context = "too deep"
		opts.Hints = []string{"raise max_depth or set depth_policy to trim"}
	}
	return opts
}

// UnknownType explains a model type missing from the fixture.
func UnknownType(name string, types []string, noColor bool) string {
	return FormatError(ErrorOptions{
		Context:     "unknown type",
		Problem:     name,
		Suggestions: Suggest(name, types, 3),
		Hints:       []string{"declared: " + strings.Join(types, ", ")},
		NoColor:     noColor,
	})
}
