// Package serializer evaluates declared attributes and associations against domain objects.
//
// A Descriptor declares how one model type is rendered. A Serializer binds a descriptor to a
// live object for one render pass: it computes the attribute map, resolves associations to
// child serializers, and consults the Cacher for whole-object and fragment caching. The
// document shape is decided by the adapter package.
package serializer

import (
	"context"
	"fmt"
	"net/url"

	"go.uber.org/zap"
)

// Context is the per-request information available to value, link and meta functions.
type Context struct {
	// RequestURL is the URL of the request being served, used for links.
	RequestURL string
	// QueryParameters are the request query parameters, used for pagination links.
	QueryParameters url.Values
	// Scope is an arbitrary caller value such as the current user.
	Scope any
}

// Settings are the render-wide switches a Serializer consults.
type Settings struct {
	// IncludeNil keeps attributes whose value is nil.
	IncludeNil bool
	// StrictLookup fails association resolution instead of falling back to plain values.
	StrictLookup bool
	// LookupEnabled allows finding descriptors from runtime type names.
	LookupEnabled bool
	// Namespace is the namespace lookups start from.
	Namespace string
}

// Session is shared by every serializer of one render pass.
type Session struct {
	Registry *Registry
	Context  *Context
	Settings Settings
	Cacher   *Cacher
	Logger   *zap.Logger
}

func (s *Session) logger() *zap.Logger {
	if s == nil || s.Logger == nil {
		return zap.NewNop()
	}
	return s.Logger
}

// Serializer binds a descriptor to one object.
type Serializer struct {
	raw        any
	object     Object
	descriptor *Descriptor
	session    *Session
}

// New binds d to the value v.
func New(v any, d *Descriptor, session *Session) *Serializer {
	obj, ok := Wrap(v)
	if !ok {
		obj = mapObject(nil)
	}
	if session == nil {
		session = &Session{Registry: NewRegistry(), Settings: Settings{IncludeNil: true, LookupEnabled: true}}
	}
	return &Serializer{raw: v, object: obj, descriptor: d, session: session}
}

// For finds the descriptor for v by its type name and binds it.
func For(v any, session *Session) (*Serializer, error) {
	d, err := session.Registry.SerializerFor(TypeName(v), session.Settings.Namespace, nil)
	if err != nil {
		return nil, err
	}
	return New(v, d, session), nil
}

// Object returns the object view of the serialized value.
func (s *Serializer) Object() Object {
	return s.object
}

// Raw returns the serialized value as given.
func (s *Serializer) Raw() any {
	return s.raw
}

// Descriptor returns the bound descriptor.
func (s *Serializer) Descriptor() *Descriptor {
	return s.descriptor
}

// Session returns the render session.
func (s *Serializer) Session() *Session {
	return s.session
}

// Context returns the request context, never nil.
func (s *Serializer) Context() *Context {
	if s.session.Context == nil {
		return &Context{}
	}
	return s.session.Context
}

// Scope returns the caller supplied scope.
func (s *Serializer) Scope() any {
	return s.Context().Scope
}

// Read returns the named attribute of the object, or nil.
func (s *Serializer) Read(name string) any {
	v, _ := s.object.ReadAttribute(name)
	return v
}

// ID returns the identity: the descriptor's "id" method, then the object's ID, then its
// "id" attribute.
func (s *Serializer) ID() any {
	if fn, ok := s.descriptor.method("id"); ok {
		return fn(s)
	}
	if id, ok := s.raw.(Identifier); ok {
		return id.ID()
	}
	if id, ok := s.object.(Identifier); ok {
		return id.ID()
	}
	return s.Read("id")
}

// TypeName returns the model type name of the object, falling back to the descriptor's model.
func (s *Serializer) TypeName() string {
	if name := TypeName(s.raw); name != "" {
		return name
	}
	return s.descriptor.modelName
}

// Identity returns "type:id", or "" when the object has no id.
func (s *Serializer) Identity() string {
	id := s.ID()
	if id == nil {
		return ""
	}
	return fmt.Sprintf("%s:%v", s.TypeName(), id)
}

// Links evaluates the resource links. Nil link values are omitted.
func (s *Serializer) Links() map[string]any {
	return evalLinks(s, s.descriptor.LinkDefs())
}

// Meta evaluates the resource meta, or nil.
func (s *Serializer) Meta() map[string]any {
	if fn := s.descriptor.MetaFunc(); fn != nil {
		if meta := fn(s); len(meta) > 0 {
			return meta
		}
	}
	return nil
}

// EvalOptions narrow the attributes of one serializer.
type EvalOptions struct {
	// Fields keeps only these output keys when non-nil.
	Fields []string
	// RequiredFields are kept even when Fields omits them.
	RequiredFields []string
	// Only keeps only these attribute names when non-empty.
	Only []string
	// Except drops these attribute names.
	Except []string
}

// Attributes computes the attribute map for the named adapter, using the cache when the
// descriptor declares one. Attributes are evaluated in declaration order; the result is a
// JSON object, so consumers must not rely on key order.
func (s *Serializer) Attributes(ctx context.Context, adapter string, opts EvalOptions) (map[string]any, error) {
	defs := s.selectAttributes(opts)

	settings := s.descriptor.CacheSettings()
	if settings == nil || !s.session.Cacher.Enabled() {
		return s.computeAttributes(defs)
	}

	key, err := s.session.Cacher.Key(s, adapter)
	if err != nil {
		return nil, err
	}

	// The cached part always covers every cacheable attribute so one entry serves any
	// field selection.
	var cachedDefs, dynamicDefs []*AttributeDef
	for _, def := range s.descriptor.AttributeDefs() {
		if settings.Cached(def.Name) {
			cachedDefs = append(cachedDefs, def)
		}
	}
	for _, def := range defs {
		if !settings.Cached(def.Name) {
			dynamicDefs = append(dynamicDefs, def)
		}
	}

	cached, err := s.session.Cacher.Fetch(ctx, key, func(ctx context.Context) (map[string]any, error) {
		return s.computeAttributes(cachedDefs)
	})
	if err != nil {
		return nil, err
	}
	dynamic, err := s.computeAttributes(dynamicDefs)
	if err != nil {
		return nil, err
	}

	out := make(map[string]any, len(defs))
	for _, def := range defs {
		if v, ok := dynamic[def.Key]; ok {
			out[def.Key] = v
			continue
		}
		if v, ok := cached[def.Key]; ok {
			out[def.Key] = v
		}
	}
	return out, nil
}

// selectAttributes applies fields and only/except to the declared attributes, keeping
// declaration order.
func (s *Serializer) selectAttributes(opts EvalOptions) []*AttributeDef {
	var out []*AttributeDef
	for _, def := range s.descriptor.AttributeDefs() {
		if opts.Fields != nil && !contains(opts.Fields, def.Key) && !contains(opts.RequiredFields, def.Key) {
			continue
		}
		if len(opts.Only) > 0 && !contains(opts.Only, def.Name) {
			continue
		}
		if contains(opts.Except, def.Name) {
			continue
		}
		out = append(out, def)
	}
	return out
}

func (s *Serializer) computeAttributes(defs []*AttributeDef) (map[string]any, error) {
	out := make(map[string]any, len(defs))
	for _, def := range defs {
		ok, err := s.passes(&def.member)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		v := s.attributeValue(def)
		if v == nil && !s.session.Settings.IncludeNil {
			continue
		}
		out[def.Key] = v
	}
	return out, nil
}

// attributeValue prefers an explicit value function, then a descriptor method of the same
// name, then the object.
func (s *Serializer) attributeValue(def *AttributeDef) any {
	if def.Value != nil {
		return def.Value(s)
	}
	if fn, ok := s.descriptor.method(def.Name); ok {
		return fn(s)
	}
	if def.Name == "id" {
		return s.ID()
	}
	return s.Read(def.Name)
}

// passes evaluates the if/unless conditions of m.
func (s *Serializer) passes(m *member) (bool, error) {
	if m.ifCond != nil {
		ok, err := s.evalCondition(m, m.ifCond)
		if err != nil || !ok {
			return false, err
		}
	}
	if m.unlessCond != nil {
		ok, err := s.evalCondition(m, m.unlessCond)
		if err != nil || ok {
			return false, err
		}
	}
	return true, nil
}

func (s *Serializer) evalCondition(m *member, c *condition) (bool, error) {
	if c.fn != nil {
		return c.fn(s), nil
	}
	fn, ok := s.descriptor.predicates[c.name]
	if !ok {
		return false, fmt.Errorf("%s.%s: %w %q", s.descriptor.name, m.Name, ErrUnknownPredicate, c.name)
	}
	return fn(s), nil
}

func evalLinks(s *Serializer, defs []*LinkDef) map[string]any {
	if len(defs) == 0 {
		return nil
	}
	links := make(map[string]any, len(defs))
	for _, def := range defs {
		if v := def.Value(s); v != nil {
			links[def.Name] = v
		}
	}
	if len(links) == 0 {
		return nil
	}
	return links
}
