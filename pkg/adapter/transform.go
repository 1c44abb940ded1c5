package adapter

import (
	"fmt"

	amsstrings "github.com/rails-api/active-model-serializers-sub000/internal/util/strings"
)

// Key transform names.
const (
	TransformCamel      = "camel"
	TransformCamelLower = "camel_lower"
	TransformDash       = "dash"
	TransformUnderscore = "underscore"
	TransformUnaltered  = "unaltered"
)

// KeyTransform rewrites one key.
type KeyTransform func(string) string

var keyTransforms = map[string]KeyTransform{
	TransformCamel:      amsstrings.ToCamelCase,
	TransformCamelLower: amsstrings.ToLowerCamelCase,
	TransformDash:       amsstrings.ToDashCase,
	TransformUnderscore: amsstrings.ToSnakeCase,
	TransformUnaltered:  func(s string) string { return s },
}

// LookupKeyTransform returns the named transform.
func LookupKeyTransform(name string) (KeyTransform, error) {
	fn, ok := keyTransforms[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownKeyTransform, name)
	}
	return fn, nil
}

// TransformKeys rewrites every map key in v, recursing through maps and slices.
// String values are never changed.
func TransformKeys(v any, fn KeyTransform) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, child := range val {
			out[fn(k)] = TransformKeys(child, fn)
		}
		return out
	case []map[string]any:
		out := make([]any, len(val))
		for i, child := range val {
			out[i] = TransformKeys(child, fn)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, child := range val {
			out[i] = TransformKeys(child, fn)
		}
		return out
	default:
		return v
	}
}
