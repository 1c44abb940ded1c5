package adapter

import (
	"github.com/rails-api/active-model-serializers-sub000/pkg/include"
	"github.com/rails-api/active-model-serializers-sub000/pkg/serializer"
)

// FlatJSON renders the root under a root key and replaces associations with id fields
// ("author_id", "comment_ids"). Included associated objects are hoisted to top-level keys
// named after the association ("comments", "authors"), each object once per key.
type FlatJSON struct{}

// Name implements Adapter.
func (FlatJSON) Name() string { return "flat_json" }

// DefaultKeyTransform implements Adapter.
func (FlatJSON) DefaultKeyTransform() string { return TransformUnaltered }

// DefaultInclude implements Adapter.
func (FlatJSON) DefaultInclude() bool { return true }

type flatState struct {
	rc      *renderContext
	primary map[string]bool
	visited map[string]bool
	// buckets hold hoisted objects per top-level key, in first-seen order.
	buckets map[string][]any
	members map[string]map[string]bool
}

func (FlatJSON) serialize(rc *renderContext, rt *root) (any, error) {
	key, err := rootKey(rc, rt)
	if err != nil {
		return nil, err
	}

	st := &flatState{
		rc:      rc,
		primary: make(map[string]bool),
		visited: make(map[string]bool),
		buckets: make(map[string][]any),
		members: make(map[string]map[string]bool),
	}
	for _, s := range rt.serializers {
		if id := s.Identity(); id != "" {
			st.primary[id] = true
		}
	}

	var body any
	switch {
	case rt.isNil:
		body = nil
	case rt.collection:
		list := make([]any, 0, len(rt.serializers))
		for _, s := range rt.serializers {
			h, err := st.hash(s, rc.tree, true)
			if err != nil {
				return nil, err
			}
			list = append(list, h)
		}
		body = list
	default:
		h, err := st.hash(rt.serializers[0], rc.tree, true)
		if err != nil {
			return nil, err
		}
		body = h
	}

	doc := map[string]any{key: body}
	for bucket, items := range st.buckets {
		if bucket == key {
			continue
		}
		doc[bucket] = items
	}
	if len(rc.opts.Meta) > 0 {
		doc[firstNonEmpty(rc.opts.MetaKey, "meta")] = rc.opts.Meta
	}
	return doc, nil
}

// hash renders s with association id fields and hoists its included associations.
func (st *flatState) hash(s *serializer.Serializer, tree *include.Tree, isRoot bool) (map[string]any, error) {
	rc := st.rc
	attrs, err := s.Attributes(rc.ctx, rc.adapter, rc.evalOptions(plainType(s), isRoot))
	if err != nil {
		return nil, err
	}
	out := make(map[string]any, len(attrs))
	for k, v := range attrs {
		out[k] = v
	}

	assocs, err := s.Associations(serializer.ResolveOptions{Tree: tree})
	if err != nil {
		return nil, err
	}
	for _, a := range assocs {
		st.idFields(out, a)
		if !a.Included || a.Virtual {
			continue
		}
		if err := st.hoist(a); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// idFields writes <name>_id or <name>_ids, and <name>_type for polymorphic associations.
// Virtual associations are written as-is under their key.
func (st *flatState) idFields(out map[string]any, a *serializer.Association) {
	if a.Virtual {
		out[a.Key] = a.Value
		return
	}

	singular := singularize(a.Key)
	if a.Many() {
		ids := make([]any, 0, len(a.Serializers))
		for _, child := range a.Serializers {
			ids = append(ids, child.ID())
		}
		out[singular+"_ids"] = ids
		return
	}

	if a.Nil() {
		out[a.Key+"_id"] = nil
		if a.Def.Polymorphic {
			out[a.Key+"_type"] = nil
		}
		return
	}
	out[a.Key+"_id"] = a.Serializer.ID()
	if a.Def.Polymorphic {
		out[a.Key+"_type"] = a.Serializer.PolymorphicType()
	}
}

func (st *flatState) hoist(a *serializer.Association) error {
	bucket := pluralize(a.Key)
	if _, ok := st.buckets[bucket]; !ok {
		st.buckets[bucket] = []any{}
		st.members[bucket] = make(map[string]bool)
	}

	for _, child := range a.Children() {
		id := child.Identity()
		if id != "" {
			visit := id + "|" + a.Subtree.String()
			if st.visited[visit] {
				continue
			}
			st.visited[visit] = true
		}

		h, err := st.hash(child, a.Subtree, false)
		if err != nil {
			return err
		}
		if id != "" && (st.primary[id] || st.members[bucket][id]) {
			continue
		}
		if id != "" {
			st.members[bucket][id] = true
		}
		st.buckets[bucket] = append(st.buckets[bucket], h)
	}
	return nil
}
