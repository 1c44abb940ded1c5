// Package adapter turns serializers into documents.
//
// A Renderer resolves the root serializer for a resource, parses the include directive,
// prefetches cache entries for every object it is about to visit, and hands the graph to one
// of the adapters:
//
//	attributes  associations nested inline, no root key
//	json        the attributes document under a root key, with optional meta
//	json_api    JSON:API documents with relationships and a deduplicated included set
//	flat_json   association ids on each object, associated objects hoisted to top-level keys
//
// The result is a tree of maps, slices and scalars ready for encoding/json.
package adapter

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	amsstrings "github.com/rails-api/active-model-serializers-sub000/internal/util/strings"
	"github.com/rails-api/active-model-serializers-sub000/pkg/cache"
	"github.com/rails-api/active-model-serializers-sub000/pkg/config"
	"github.com/rails-api/active-model-serializers-sub000/pkg/include"
	"github.com/rails-api/active-model-serializers-sub000/pkg/serializer"
)

// Adapter shapes a serializer graph into a document.
type Adapter interface {
	// Name identifies the adapter, including in cache keys.
	Name() string
	// DefaultKeyTransform is used when neither the render call nor the config names one.
	DefaultKeyTransform() string
	// DefaultInclude reports whether the configured default includes apply.
	DefaultInclude() bool

	serialize(rc *renderContext, r *root) (any, error)
}

var adapters = map[string]Adapter{
	"attributes": Attributes{},
	"json":       JSON{},
	"json_api":   JSONAPI{},
	"flat_json":  FlatJSON{},
}

// Lookup returns the adapter registered under name. Names are matched in snake case, so
// "JsonApi", "json_api" and "jsonapi" are the same adapter.
func Lookup(name string) (Adapter, error) {
	key := amsstrings.ToSnakeCase(strings.TrimSpace(name))
	if key == "jsonapi" {
		key = "json_api"
	}
	a, ok := adapters[key]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownAdapter, name)
	}
	return a, nil
}

// Names returns the registered adapter names, sorted.
func Names() []string {
	return sortedKeys(adapters)
}

// Options are the per-render settings.
type Options struct {
	// Adapter overrides the configured adapter.
	Adapter string
	// Serializer names the descriptor for the root object, or for each object of a root
	// collection. Descriptor sets it directly.
	Serializer string
	Descriptor *serializer.Descriptor
	// Namespace is where serializer lookups start.
	Namespace string
	// Include is an include directive, see include.Parse.
	Include any
	// Fields restricts attributes (and JSON:API relationships) per resource type.
	Fields map[string][]string
	// Only and Except filter the attributes of root objects.
	Only   []string
	Except []string
	// Root overrides the root key of the json and flat_json adapters.
	Root string
	// Meta is added to the document; MetaKey renames it for the json adapter.
	Meta    map[string]any
	MetaKey string
	// Links are top-level JSON:API links.
	Links map[string]any
	// KeyTransform overrides the configured and adapter default key transforms.
	KeyTransform string
	// Context is the request context passed to serializers.
	Context *serializer.Context
}

// Renderer renders resources with registered descriptors.
type Renderer struct {
	registry *serializer.Registry
	config   *config.Config
	store    cache.Store
	logger   *zap.Logger
}

// RendererOption configures a Renderer.
type RendererOption func(*Renderer)

// WithStore sets the cache store. Without one, caching is disabled.
func WithStore(store cache.Store) RendererOption {
	return func(r *Renderer) { r.store = store }
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) RendererOption {
	return func(r *Renderer) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// NewRenderer creates a Renderer. A nil config uses config.Default.
func NewRenderer(registry *serializer.Registry, cfg *config.Config, opts ...RendererOption) *Renderer {
	if cfg == nil {
		cfg = config.Default()
	}
	r := &Renderer{
		registry: registry,
		config:   cfg,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// AdapterFor returns the adapter a render with Options.Adapter set to name would use.
func (r *Renderer) AdapterFor(name string) (Adapter, error) {
	if name == "" {
		name = r.config.Adapter
	}
	return Lookup(name)
}

// Render serializes resource. resource is a single object, a slice of objects, or a value
// with an Elements method such as Page. A nil resource renders as null data.
func (r *Renderer) Render(ctx context.Context, resource any, opts Options) (any, error) {
	start := time.Now()

	a, err := r.AdapterFor(opts.Adapter)
	if err != nil {
		return nil, err
	}

	transformName := firstNonEmpty(opts.KeyTransform, r.config.KeyTransform, a.DefaultKeyTransform())
	transform, err := LookupKeyTransform(transformName)
	if err != nil {
		return nil, err
	}

	directive := opts.Include
	if directive == nil && a.DefaultInclude() {
		directive = r.config.DefaultIncludes
	}
	tree, err := include.Parse(directive)
	if err != nil {
		return nil, err
	}

	namespace := opts.Namespace
	session := &serializer.Session{
		Registry: r.registry,
		Context:  opts.Context,
		Settings: serializer.Settings{
			IncludeNil:    r.config.IncludeNilAttributes,
			StrictLookup:  r.config.StrictAssociationLookup,
			LookupEnabled: r.config.SerializerLookupEnabled,
			Namespace:     namespace,
		},
		Cacher: serializer.NewCacher(r.store, r.config.Cache.PerformCaching, r.logger),
		Logger: r.logger,
	}

	rt, err := r.resolveRoot(resource, opts, session)
	if err != nil {
		return nil, err
	}

	rc := &renderContext{
		ctx:       ctx,
		config:    r.config,
		opts:      opts,
		tree:      tree,
		session:   session,
		adapter:   a.Name(),
		transform: transform,
		logger:    r.logger,
	}

	if err := rc.prefetch(rt); err != nil {
		return nil, err
	}

	doc, err := a.serialize(rc, rt)
	if err != nil {
		return nil, err
	}
	doc = TransformKeys(doc, transform)

	r.logger.Debug("rendered",
		zap.String("adapter", a.Name()),
		zap.Int("objects", len(rt.serializers)),
		zap.Duration("duration", time.Since(start)))
	return doc, nil
}

// root is the resolved top of a render.
type root struct {
	serializers []*serializer.Serializer
	collection  bool
	isNil       bool
	// descriptor is the explicit root descriptor, if any.
	descriptor *serializer.Descriptor
	paginated  Paginated
}

// Elements is implemented by collection wrappers such as Page.
type Elements interface {
	Elements() any
}

func (r *Renderer) resolveRoot(resource any, opts Options, session *serializer.Session) (*root, error) {
	rt := &root{}
	if p, ok := resource.(Paginated); ok {
		rt.paginated = p
	}
	if e, ok := resource.(Elements); ok {
		resource = e.Elements()
		if resource == nil {
			rt.collection = true
		}
	}

	d := opts.Descriptor
	if d == nil && opts.Serializer != "" {
		var err error
		d, err = r.registry.Resolve(opts.Serializer, opts.Namespace, nil)
		if err != nil {
			return nil, err
		}
	}
	rt.descriptor = d

	var items []any
	switch {
	case serializer.IsCollection(resource):
		rt.collection = true
		items = serializer.ToSlice(resource)
	case resource == nil:
		rt.isNil = !rt.collection
		return rt, nil
	default:
		items = []any{resource}
	}

	for _, item := range items {
		if d != nil {
			rt.serializers = append(rt.serializers, serializer.New(item, d, session))
			continue
		}
		s, err := serializer.For(item, session)
		if err != nil {
			return nil, err
		}
		rt.serializers = append(rt.serializers, s)
	}
	return rt, nil
}

// rootDescriptor is the explicit descriptor or the first object's.
func (rt *root) rootDescriptor() *serializer.Descriptor {
	if rt.descriptor != nil {
		return rt.descriptor
	}
	if len(rt.serializers) > 0 {
		return rt.serializers[0].Descriptor()
	}
	return nil
}

// renderContext carries the state of one render.
type renderContext struct {
	ctx       context.Context
	config    *config.Config
	opts      Options
	tree      *include.Tree
	session   *serializer.Session
	adapter   string
	transform KeyTransform
	logger    *zap.Logger
}

// evalOptions returns the attribute selection for s. Only and Except apply to root objects.
func (rc *renderContext) evalOptions(typ string, isRoot bool) serializer.EvalOptions {
	opts := serializer.EvalOptions{Fields: rc.fieldsFor(typ)}
	if isRoot {
		opts.Only = rc.opts.Only
		opts.Except = rc.opts.Except
	}
	return opts
}

// fieldsFor returns the requested fields of a resource type, or nil when none were requested.
// Field names are matched in their declared snake case.
func (rc *renderContext) fieldsFor(typ string) []string {
	if rc.opts.Fields == nil {
		return nil
	}
	fields, ok := rc.opts.Fields[typ]
	if !ok {
		fields, ok = rc.opts.Fields[amsstrings.ToSnakeCase(typ)]
	}
	if !ok {
		return nil
	}
	out := make([]string, 0, len(fields)*2)
	for _, f := range fields {
		out = append(out, f)
		if snake := amsstrings.ToSnakeCase(f); snake != f {
			out = append(out, snake)
		}
	}
	return out
}

// plainType is the snake case plural type used to key fields for the non JSON:API adapters.
func plainType(s *serializer.Serializer) string {
	return pluralize(amsstrings.ToSnakeCase(amsstrings.Demodulize(s.TypeName())))
}

// maxAnonymousDepth bounds prefetch walks through objects without an identity, which cannot
// be checked for cycles.
const maxAnonymousDepth = 32

// prefetch reads the cache entries of every object the render will visit with one batched
// store call.
func (rc *renderContext) prefetch(rt *root) error {
	cacher := rc.session.Cacher
	if !cacher.Enabled() {
		return nil
	}

	var visit []*serializer.Serializer
	seen := make(map[string]bool)
	var walk func(s *serializer.Serializer, tree *include.Tree, depth int) error
	walk = func(s *serializer.Serializer, tree *include.Tree, depth int) error {
		if id := s.Identity(); id != "" {
			key := id + "|" + tree.String()
			if seen[key] {
				return nil
			}
			seen[key] = true
		} else if depth > maxAnonymousDepth {
			return nil
		}
		visit = append(visit, s)

		if rc.config.MaxDepth > 0 && depth >= rc.config.MaxDepth && rc.config.DepthPolicy != config.DepthPass {
			return nil
		}
		assocs, err := s.Associations(serializer.ResolveOptions{Tree: tree, IncludedOnly: true})
		if err != nil {
			return err
		}
		for _, a := range assocs {
			for _, child := range a.Children() {
				if err := walk(child, a.Subtree, depth+1); err != nil {
					return err
				}
			}
		}
		return nil
	}

	for _, s := range rt.serializers {
		if err := walk(s, rc.tree, 0); err != nil {
			return err
		}
	}
	return cacher.Prefetch(rc.ctx, cacher.CacheKeys(rc.adapter, visit))
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
