package fixture

import (
	"fmt"
	"sort"
	"strings"

	"github.com/rails-api/active-model-serializers-sub000/pkg/serializer"
)

var includeDataModes = map[string]serializer.IncludeData{
	"":              serializer.IncludeDataDefault,
	"always":        serializer.IncludeDataAlways,
	"never":         serializer.IncludeDataNever,
	"if_sideloaded": serializer.IncludeDataIfSideloaded,
}

// Registry builds and registers a descriptor for every declared type.
func (s *Schema) Registry() (*serializer.Registry, error) {
	reg := serializer.NewRegistry()
	for _, model := range sortedKeys(s.Types) {
		d, err := s.Types[model].descriptor(model)
		if err != nil {
			return nil, err
		}
		if err := reg.Register(d); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidFixture, err)
		}
	}
	return reg, nil
}

func (t TypeSpec) descriptor(model string) (*serializer.Descriptor, error) {
	d := serializer.NewDescriptor(model)
	if t.Namespace != "" {
		d.Namespace(t.Namespace)
	}
	if t.Type != "" {
		d.Type(t.Type)
	}
	if t.RootKey != "" {
		d.RootKey(t.RootKey)
	}

	for _, attr := range t.Attributes {
		var opts []serializer.Option
		if attr.Key != "" {
			opts = append(opts, serializer.WithKey(attr.Key))
		}
		opts = append(opts, conditions(d, attr.If, attr.Unless)...)
		d.Attribute(attr.Name, opts...)
	}

	for _, assoc := range t.associations() {
		spec := assoc.spec
		var opts []serializer.Option
		if spec.Key != "" {
			opts = append(opts, serializer.WithKey(spec.Key))
		}
		if spec.Serializer != "" {
			opts = append(opts, serializer.WithSerializer(spec.Serializer))
		}
		if spec.Polymorphic {
			opts = append(opts, serializer.Polymorphic())
		}
		if mode := includeDataModes[spec.IncludeData]; mode != serializer.IncludeDataDefault {
			opts = append(opts, serializer.WithIncludeData(mode))
		}
		opts = append(opts, conditions(d, spec.If, spec.Unless)...)

		switch assoc.kind {
		case "belongs_to":
			d.BelongsTo(spec.Name, opts...)
		case "has_one":
			d.HasOne(spec.Name, opts...)
		default:
			d.HasMany(spec.Name, opts...)
		}
	}

	if t.Cache != nil {
		d.Cache(serializer.CacheSettings{
			Key:        t.Cache.Key,
			Only:       t.Cache.Only,
			Except:     t.Cache.Except,
			SkipDigest: t.Cache.SkipDigest,
		})
	}

	for _, name := range sortedKeys(t.Links) {
		tmpl := t.Links[name]
		d.Link(name, func(s *serializer.Serializer) any {
			return strings.ReplaceAll(tmpl, "{id}", fmt.Sprint(s.ID()))
		})
	}
	if len(t.Meta) > 0 {
		meta := t.Meta
		d.Meta(func(*serializer.Serializer) map[string]any { return meta })
	}

	if err := d.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidFixture, model, err)
	}
	return d, nil
}

// conditions declares attribute backed predicates for if/unless and returns the options.
func conditions(d *serializer.Descriptor, ifAttr, unlessAttr string) []serializer.Option {
	var opts []serializer.Option
	if ifAttr != "" {
		d.Predicate(ifAttr, attributePredicate(ifAttr))
		opts = append(opts, serializer.If(ifAttr))
	}
	if unlessAttr != "" {
		d.Predicate(unlessAttr, attributePredicate(unlessAttr))
		opts = append(opts, serializer.Unless(unlessAttr))
	}
	return opts
}

func attributePredicate(name string) serializer.PredicateFunc {
	return func(s *serializer.Serializer) bool {
		return truthy(s.Read(name))
	}
}

func truthy(v any) bool {
	switch val := v.(type) {
	case nil:
		return false
	case bool:
		return val
	case string:
		return val != "" && val != "false" && val != "0"
	case int:
		return val != 0
	case int64:
		return val != 0
	case float64:
		return val != 0
	default:
		return true
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
