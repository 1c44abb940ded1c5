package serializer

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/rails-api/active-model-serializers-sub000/pkg/cache"
)

// ValueFunc computes a value with access to the live serializer.
type ValueFunc func(s *Serializer) any

// PredicateFunc decides whether an attribute or association is rendered.
type PredicateFunc func(s *Serializer) bool

// LinkFunc builds a link value: a URL string, a map with "href" and "meta", or nil to omit it.
type LinkFunc func(s *Serializer) any

// MetaFunc builds a meta object. A nil or empty result is omitted.
type MetaFunc func(s *Serializer) map[string]any

// HasAttributes is implemented by descriptors declaring attributes.
type HasAttributes interface {
	AttributeDefs() []*AttributeDef
}

// HasAssociations is implemented by descriptors declaring associations.
type HasAssociations interface {
	AssociationDefs() []*AssociationDef
}

// HasCache is implemented by descriptors that may declare caching.
type HasCache interface {
	CacheSettings() *CacheSettings
}

// HasLinks is implemented by descriptors declaring resource links and meta.
type HasLinks interface {
	LinkDefs() []*LinkDef
	MetaFunc() MetaFunc
}

// Descriptor is the static declaration of how one model type is serialized.
//
// Descriptors are built at startup with the chainable declaration methods and registered in a
// Registry. They must not be modified once a render has started.
type Descriptor struct {
	attributeSet
	associationSet
	cacheSet
	linkSet

	name       string
	modelName  string
	namespace  string
	typeName   string
	rootKey    string
	methods    map[string]ValueFunc
	predicates map[string]PredicateFunc
	errs       []error

	digestOnce sync.Once
	digest     string
}

var (
	_ HasAttributes   = (*Descriptor)(nil)
	_ HasAssociations = (*Descriptor)(nil)
	_ HasCache        = (*Descriptor)(nil)
	_ HasLinks        = (*Descriptor)(nil)
)

// NewDescriptor declares the serializer for a model type. NewDescriptor("Post") is named
// "PostSerializer".
func NewDescriptor(model string) *Descriptor {
	return &Descriptor{
		name:       model + "Serializer",
		modelName:  model,
		methods:    make(map[string]ValueFunc),
		predicates: make(map[string]PredicateFunc),
	}
}

// Name returns the unqualified serializer name.
func (d *Descriptor) Name() string {
	return d.name
}

// FullName returns the namespace qualified serializer name used by the registry.
func (d *Descriptor) FullName() string {
	if d.namespace == "" {
		return d.name
	}
	return d.namespace + "." + d.name
}

// ModelName returns the model type the descriptor was declared for.
func (d *Descriptor) ModelName() string {
	return d.modelName
}

// TypeOverride returns the type declared with Type, or "".
func (d *Descriptor) TypeOverride() string {
	return d.typeName
}

// RootKeyOverride returns the root key declared with RootKey, or "".
func (d *Descriptor) RootKeyOverride() string {
	return d.rootKey
}

// Namespace places the descriptor under a dot separated namespace ("api.v1").
// A descriptor nested in another serializer uses that serializer's FullName.
func (d *Descriptor) Namespace(ns string) *Descriptor {
	d.namespace = strings.Trim(ns, ".")
	return d
}

// Attributes declares plain attributes read from the object.
func (d *Descriptor) Attributes(names ...string) *Descriptor {
	for _, name := range names {
		d.Attribute(name)
	}
	return d
}

// Attribute declares one attribute. Redeclaring a name replaces the earlier declaration in place.
func (d *Descriptor) Attribute(name string, opts ...Option) *Descriptor {
	def := &AttributeDef{member: member{Name: name, Key: name}}
	target := &optionTarget{member: &def.member}
	for _, opt := range opts {
		if err := opt(target); err != nil {
			d.errs = append(d.errs, fmt.Errorf("%s.%s: %w", d.name, name, err))
		}
	}
	d.putAttribute(def)
	return d
}

// HasMany declares a to-many association.
func (d *Descriptor) HasMany(name string, opts ...Option) *Descriptor {
	return d.association(name, KindHasMany, opts)
}

// HasOne declares a to-one association owned by the object.
func (d *Descriptor) HasOne(name string, opts ...Option) *Descriptor {
	return d.association(name, KindHasOne, opts)
}

// BelongsTo declares a to-one association owned by the associated object.
func (d *Descriptor) BelongsTo(name string, opts ...Option) *Descriptor {
	return d.association(name, KindBelongsTo, opts)
}

func (d *Descriptor) association(name string, kind Kind, opts []Option) *Descriptor {
	def := &AssociationDef{member: member{Name: name, Key: name}, Kind: kind}
	target := &optionTarget{member: &def.member, association: def}
	for _, opt := range opts {
		if err := opt(target); err != nil {
			d.errs = append(d.errs, fmt.Errorf("%s.%s: %w", d.name, name, err))
		}
	}
	d.putAssociation(def)
	return d
}

// Method declares a serializer method. A method named like an attribute provides that
// attribute's value; a method named "id" provides the identity.
func (d *Descriptor) Method(name string, fn ValueFunc) *Descriptor {
	d.methods[name] = fn
	return d
}

// Predicate declares a named predicate usable in If and Unless.
func (d *Descriptor) Predicate(name string, fn PredicateFunc) *Descriptor {
	d.predicates[name] = fn
	return d
}

// Cache enables whole-object caching, or fragment caching when Only or Except is set.
func (d *Descriptor) Cache(settings CacheSettings) *Descriptor {
	if len(settings.Only) > 0 && len(settings.Except) > 0 {
		d.errs = append(d.errs, fmt.Errorf("%s: %w", d.name, ErrFragmentConflict))
	}
	d.putCache(settings)
	return d
}

// Link declares a resource level link.
func (d *Descriptor) Link(name string, fn LinkFunc) *Descriptor {
	d.putLink(&LinkDef{Name: name, Value: fn})
	return d
}

// Meta declares the resource level meta builder.
func (d *Descriptor) Meta(fn MetaFunc) *Descriptor {
	d.meta = fn
	return d
}

// Type overrides the JSON:API resource type.
func (d *Descriptor) Type(name string) *Descriptor {
	d.typeName = name
	return d
}

// RootKey overrides the root key used by the json adapter.
func (d *Descriptor) RootKey(key string) *Descriptor {
	d.rootKey = key
	return d
}

// Derive returns a child descriptor for model that starts with every declaration of d.
// Declarations made on the child replace same-named parent entries and leave the rest intact.
func (d *Descriptor) Derive(model string) *Descriptor {
	child := NewDescriptor(model)
	child.namespace = d.namespace
	child.typeName = d.typeName
	child.rootKey = d.rootKey
	child.attrs = append([]*AttributeDef(nil), d.attrs...)
	child.assocs = append([]*AssociationDef(nil), d.assocs...)
	child.links = append([]*LinkDef(nil), d.links...)
	child.meta = d.meta
	if d.settings != nil {
		settings := *d.settings
		child.settings = &settings
	}
	for k, v := range d.methods {
		child.methods[k] = v
	}
	for k, v := range d.predicates {
		child.predicates[k] = v
	}
	child.errs = append(child.errs, d.errs...)
	return child
}

// Validate reports every declaration error, including conditions naming undeclared predicates.
func (d *Descriptor) Validate() error {
	errs := append([]error(nil), d.errs...)
	check := func(m *member) {
		for _, c := range []*condition{m.ifCond, m.unlessCond} {
			if c != nil && c.name != "" {
				if _, ok := d.predicates[c.name]; !ok {
					errs = append(errs, fmt.Errorf("%s.%s: %w %q", d.name, m.Name, ErrUnknownPredicate, c.name))
				}
			}
		}
	}
	for _, a := range d.attrs {
		check(&a.member)
	}
	for _, a := range d.assocs {
		check(&a.member)
	}
	return errors.Join(errs...)
}

// Digest returns a stable hash of the declared structure. It stands in for a source digest
// in cache keys, so changing a declaration invalidates cached entries.
func (d *Descriptor) Digest() string {
	d.digestOnce.Do(func() {
		parts := []string{d.FullName(), d.typeName}
		for _, a := range d.attrs {
			parts = append(parts, "a:"+a.Name+":"+a.Key)
		}
		for _, a := range d.assocs {
			parts = append(parts, fmt.Sprintf("r:%s:%s:%d:%s:%t", a.Name, a.Key, a.Kind, a.Serializer, a.Polymorphic))
		}
		if d.settings != nil {
			parts = append(parts,
				"c:"+d.settings.Key,
				"o:"+strings.Join(d.settings.Only, ","),
				"e:"+strings.Join(d.settings.Except, ","))
		}
		d.digest = cache.Digest(parts...)
	})
	return d.digest
}

// method returns the declared method named name.
func (d *Descriptor) method(name string) (ValueFunc, bool) {
	fn, ok := d.methods[name]
	return fn, ok
}

type attributeSet struct {
	attrs []*AttributeDef
}

// AttributeDefs returns the declared attributes in declaration order.
func (s *attributeSet) AttributeDefs() []*AttributeDef {
	return s.attrs
}

func (s *attributeSet) putAttribute(def *AttributeDef) {
	for i, existing := range s.attrs {
		if existing.Name == def.Name {
			s.attrs[i] = def
			return
		}
	}
	s.attrs = append(s.attrs, def)
}

type associationSet struct {
	assocs []*AssociationDef
}

// AssociationDefs returns the declared associations in declaration order.
func (s *associationSet) AssociationDefs() []*AssociationDef {
	return s.assocs
}

func (s *associationSet) putAssociation(def *AssociationDef) {
	for i, existing := range s.assocs {
		if existing.Name == def.Name {
			s.assocs[i] = def
			return
		}
	}
	s.assocs = append(s.assocs, def)
}

// CacheSettings configures caching for a descriptor.
type CacheSettings struct {
	// Key is the cache key prefix used for objects without their own CacheKey.
	Key string
	// Only caches exactly these attributes; the rest are computed on every render.
	Only []string
	// Except caches every attribute but these.
	Except []string
	// SkipDigest leaves the descriptor digest out of cache keys.
	SkipDigest bool
}

// Fragment reports whether only a subset of attributes is cached.
func (c *CacheSettings) Fragment() bool {
	return len(c.Only) > 0 || len(c.Except) > 0
}

// Cached reports whether the attribute is part of the cached set.
func (c *CacheSettings) Cached(name string) bool {
	switch {
	case len(c.Only) > 0:
		return contains(c.Only, name)
	case len(c.Except) > 0:
		return !contains(c.Except, name)
	default:
		return true
	}
}

type cacheSet struct {
	settings *CacheSettings
}

// CacheSettings returns the cache declaration, or nil when the type is not cached.
func (s *cacheSet) CacheSettings() *CacheSettings {
	return s.settings
}

func (s *cacheSet) putCache(settings CacheSettings) {
	s.settings = &settings
}

// LinkDef is a named link builder.
type LinkDef struct {
	Name  string
	Value LinkFunc
}

type linkSet struct {
	links []*LinkDef
	meta  MetaFunc
}

// LinkDefs returns the declared resource links.
func (s *linkSet) LinkDefs() []*LinkDef {
	return s.links
}

// MetaFunc returns the declared resource meta builder.
func (s *linkSet) MetaFunc() MetaFunc {
	return s.meta
}

func (s *linkSet) putLink(def *LinkDef) {
	for i, existing := range s.links {
		if existing.Name == def.Name {
			s.links[i] = def
			return
		}
	}
	s.links = append(s.links, def)
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
