package serializer

import (
	"encoding/json"
	"reflect"

	"go.uber.org/zap"

	amsstrings "github.com/rails-api/active-model-serializers-sub000/internal/util/strings"
	"github.com/rails-api/active-model-serializers-sub000/pkg/include"
)

// Association is one declared association resolved against an owning object.
type Association struct {
	Def   *AssociationDef
	Owner *Serializer
	// Key is the output key.
	Key string
	// Included reports whether the include tree selects the association; Subtree is the
	// tree in effect below it.
	Included bool
	Subtree  *include.Tree
	// Virtual associations render Value as-is.
	Virtual bool
	Value   any
	// Serializer is set for to-one associations with a non-nil object.
	Serializer *Serializer
	// Serializers holds the objects of a to-many association.
	Serializers []*Serializer
}

// Many reports whether the association is a collection.
func (a *Association) Many() bool {
	return a.Def.Kind.Many()
}

// Nil reports whether a to-one association has no object.
func (a *Association) Nil() bool {
	return !a.Virtual && !a.Many() && a.Serializer == nil
}

// Children returns the associated serializers.
func (a *Association) Children() []*Serializer {
	if a.Many() {
		return a.Serializers
	}
	if a.Serializer != nil {
		return []*Serializer{a.Serializer}
	}
	return nil
}

// Links evaluates the relationship links against the owner.
func (a *Association) Links() map[string]any {
	return evalLinks(a.Owner, a.Def.Links)
}

// Meta evaluates the relationship meta against the owner, or nil.
func (a *Association) Meta() map[string]any {
	if a.Def.Meta == nil {
		return nil
	}
	if meta := a.Def.Meta(a.Owner); len(meta) > 0 {
		return meta
	}
	return nil
}

// ResolveOptions narrow association resolution.
type ResolveOptions struct {
	// Tree is the include tree in effect at the owner.
	Tree *include.Tree
	// Fields keeps only these output keys when non-nil.
	Fields []string
	// IncludedOnly skips associations the tree does not select.
	IncludedOnly bool
}

// Associations resolves the declared associations whose conditions pass.
//
// A value whose serializer cannot be found is rendered as its plain JSON form, unless strict
// lookup is enabled, in which case the *NoSerializerError is returned. Values that cannot be
// encoded as JSON are dropped.
func (s *Serializer) Associations(opts ResolveOptions) ([]*Association, error) {
	var out []*Association
	for _, def := range s.descriptor.AssociationDefs() {
		if opts.Fields != nil && !contains(opts.Fields, def.Key) {
			continue
		}
		subtree, included := opts.Tree.Lookup(def.Key)
		if opts.IncludedOnly && !included {
			continue
		}

		ok, err := s.passes(&def.member)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}

		a := &Association{Def: def, Owner: s, Key: def.Key, Included: included, Subtree: subtree}
		keep, err := s.resolve(a)
		if err != nil {
			return nil, err
		}
		if keep {
			out = append(out, a)
		}
	}
	return out, nil
}

// resolve fills in the associated serializers. It returns false when the association is dropped.
func (s *Serializer) resolve(a *Association) (bool, error) {
	def := a.Def
	if def.Virtual != nil {
		a.Virtual = true
		a.Value = def.Virtual
		return true, nil
	}

	value := s.associationValue(def)
	items := []any{value}
	if def.Kind.Many() {
		items = toSlice(value)
	} else if isNil(value) {
		return true, nil
	}

	children := make([]*Serializer, 0, len(items))
	for _, item := range items {
		if isNil(item) {
			continue
		}
		d, err := s.childDescriptor(def, item)
		if err != nil {
			if def.Serializer != "" || s.session.Settings.StrictLookup {
				return false, err
			}
			return s.passthrough(a, value)
		}
		children = append(children, New(item, d, s.session))
	}

	if def.Kind.Many() {
		a.Serializers = children
	} else if len(children) == 1 {
		a.Serializer = children[0]
	}
	return true, nil
}

func (s *Serializer) associationValue(def *AssociationDef) any {
	if def.Value != nil {
		return def.Value(s)
	}
	if fn, ok := s.descriptor.method(def.Name); ok {
		return fn(s)
	}
	return s.Read(def.Name)
}

func (s *Serializer) childDescriptor(def *AssociationDef, item any) (*Descriptor, error) {
	registry := s.session.Registry
	switch {
	case def.Descriptor != nil:
		return def.Descriptor, nil
	case def.Serializer != "":
		return registry.Resolve(def.Serializer, s.session.Settings.Namespace, s.descriptor)
	case !s.session.Settings.LookupEnabled:
		return nil, &NoSerializerError{TypeName: TypeName(item)}
	default:
		return registry.SerializerFor(TypeName(item), s.session.Settings.Namespace, s.descriptor)
	}
}

// passthrough renders the association value as plain JSON data.
func (s *Serializer) passthrough(a *Association, value any) (bool, error) {
	plain, err := asJSON(value)
	if err != nil {
		s.session.logger().Debug("dropping association",
			zap.String("serializer", s.descriptor.FullName()),
			zap.String("association", a.Def.Name),
			zap.Error(err))
		return false, nil
	}
	a.Virtual = true
	a.Value = plain
	return true, nil
}

// PolymorphicType is the discriminator written for polymorphic associations ("blog_post").
func (s *Serializer) PolymorphicType() string {
	return amsstrings.ToSnakeCase(amsstrings.Demodulize(s.TypeName()))
}

func asJSON(v any) (any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// toSlice returns the elements of a slice or array value. Any other non-nil value is
// treated as a single element.
func toSlice(v any) []any {
	if isNil(v) {
		return nil
	}
	if items, ok := v.([]any); ok {
		return items
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		if rv.Type().Elem().Kind() == reflect.Uint8 {
			return []any{v}
		}
		out := make([]any, rv.Len())
		for i := range out {
			out[i] = rv.Index(i).Interface()
		}
		return out
	default:
		return []any{v}
	}
}

// ToSlice exposes slice flattening to adapters rendering collections.
func ToSlice(v any) []any {
	return toSlice(v)
}

// IsCollection reports whether v is a slice or array other than []byte.
func IsCollection(v any) bool {
	if v == nil {
		return false
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		return rv.Type().Elem().Kind() != reflect.Uint8
	default:
		return false
	}
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface, reflect.Func, reflect.Chan:
		return rv.IsNil()
	default:
		return false
	}
}
