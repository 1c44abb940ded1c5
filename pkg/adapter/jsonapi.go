package adapter

import (
	"fmt"

	"github.com/rails-api/active-model-serializers-sub000/pkg/include"
	"github.com/rails-api/active-model-serializers-sub000/pkg/serializer"
)

// JSONAPI renders JSON:API 1.0 documents.
type JSONAPI struct{}

// Name implements Adapter.
func (JSONAPI) Name() string { return "json_api" }

// DefaultKeyTransform implements Adapter.
func (JSONAPI) DefaultKeyTransform() string { return TransformDash }

// DefaultInclude implements Adapter. JSON:API includes nothing unless asked.
func (JSONAPI) DefaultInclude() bool { return false }

// jsonapiState tracks one JSON:API render.
type jsonapiState struct {
	rc *renderContext
	// seen holds "type:id" of every resource already in data or included.
	seen map[string]bool
	// visited holds "type:id|include tree" of every resource whose relationships were walked.
	visited  map[string]bool
	included []any
}

func (JSONAPI) serialize(rc *renderContext, rt *root) (any, error) {
	st := &jsonapiState{
		rc:      rc,
		seen:    make(map[string]bool),
		visited: make(map[string]bool),
	}

	doc := make(map[string]any)
	switch {
	case rt.isNil:
		doc["data"] = nil
	case rt.collection:
		data := make([]any, 0, len(rt.serializers))
		for _, s := range rt.serializers {
			ro, added, err := st.primary(s)
			if err != nil {
				return nil, err
			}
			if added {
				data = append(data, ro)
			}
		}
		doc["data"] = data
	default:
		ro, _, err := st.primary(rt.serializers[0])
		if err != nil {
			return nil, err
		}
		doc["data"] = ro
	}

	for _, s := range rt.serializers {
		if err := st.walk(s, rc.tree); err != nil {
			return nil, err
		}
	}
	if len(st.included) > 0 {
		doc["included"] = st.included
	}

	links := make(map[string]any)
	for k, v := range rc.opts.Links {
		links[k] = v
	}
	if rt.paginated != nil && rc.opts.Context != nil && rc.opts.Context.RequestURL != "" {
		for k, v := range PaginationLinks(rt.paginated, rc.opts.Context) {
			links[k] = v
		}
	}
	if len(links) > 0 {
		doc["links"] = links
	}
	if len(rc.opts.Meta) > 0 {
		doc["meta"] = rc.opts.Meta
	}
	if rc.config.JSONAPI.IncludeToplevelObject {
		doc["jsonapi"] = map[string]any{"version": rc.config.JSONAPI.Version}
	}
	return doc, nil
}

// primary renders a primary resource. A resource repeated in the primary collection is
// rendered once.
func (st *jsonapiState) primary(s *serializer.Serializer) (map[string]any, bool, error) {
	if resourceID(s) != "" {
		key := st.identifier(s)
		if st.seen[key] {
			return nil, false, nil
		}
		st.seen[key] = true
	}
	ro, err := st.resourceObject(s, st.rc.tree, true)
	return ro, err == nil, err
}

// walk adds every resource reachable through included associations to the included set.
func (st *jsonapiState) walk(s *serializer.Serializer, tree *include.Tree) error {
	if tree.IsEmpty() {
		return nil
	}
	visit := st.identifier(s) + "|" + tree.String()
	if st.visited[visit] {
		return nil
	}
	st.visited[visit] = true

	assocs, err := s.Associations(serializer.ResolveOptions{Tree: tree, IncludedOnly: true})
	if err != nil {
		return err
	}
	for _, a := range assocs {
		if a.Virtual {
			continue
		}
		for _, child := range a.Children() {
			key := st.identifier(child)
			if !st.seen[key] {
				st.seen[key] = true
				ro, err := st.resourceObject(child, a.Subtree, false)
				if err != nil {
					return err
				}
				st.included = append(st.included, ro)
			}
			if err := st.walk(child, a.Subtree); err != nil {
				return err
			}
		}
	}
	return nil
}

func (st *jsonapiState) identifier(s *serializer.Serializer) string {
	return st.rc.resourceType(s) + ":" + resourceID(s)
}

// resourceObject renders {id, type, attributes, relationships, links, meta}. Empty members
// are omitted.
func (st *jsonapiState) resourceObject(s *serializer.Serializer, tree *include.Tree, isRoot bool) (map[string]any, error) {
	rc := st.rc
	typ := rc.resourceType(s)
	opts := rc.evalOptions(typ, isRoot)

	attrs, err := s.Attributes(rc.ctx, rc.adapter, opts)
	if err != nil {
		return nil, err
	}
	ro := map[string]any{
		"id":   resourceID(s),
		"type": typ,
	}
	delete(attrs, "id")
	if len(attrs) > 0 {
		ro["attributes"] = attrs
	}

	assocs, err := s.Associations(serializer.ResolveOptions{Tree: tree, Fields: opts.Fields})
	if err != nil {
		return nil, err
	}
	if len(assocs) > 0 {
		relationships := make(map[string]any, len(assocs))
		for _, a := range assocs {
			relationships[a.Key] = st.relationship(a)
		}
		ro["relationships"] = relationships
	}

	if links := s.Links(); links != nil {
		ro["links"] = links
	}
	if meta := s.Meta(); meta != nil {
		ro["meta"] = meta
	}
	return ro, nil
}

// relationship renders a relationship object. It is never empty: without data, links or
// meta it carries an empty meta object.
func (st *jsonapiState) relationship(a *serializer.Association) map[string]any {
	rel := make(map[string]any)
	if st.includeData(a) {
		switch {
		case a.Virtual:
			rel["data"] = a.Value
		case a.Many():
			data := make([]any, 0, len(a.Serializers))
			for _, child := range a.Serializers {
				data = append(data, st.resourceIdentifier(child))
			}
			rel["data"] = data
		case a.Nil():
			rel["data"] = nil
		default:
			rel["data"] = st.resourceIdentifier(a.Serializer)
		}
	}
	if links := a.Links(); links != nil {
		rel["links"] = links
	}
	if meta := a.Meta(); meta != nil {
		rel["meta"] = meta
	}
	if len(rel) == 0 {
		rel["meta"] = map[string]any{}
	}
	return rel
}

func (st *jsonapiState) includeData(a *serializer.Association) bool {
	switch a.Def.IncludeData {
	case serializer.IncludeDataAlways:
		return true
	case serializer.IncludeDataNever:
		return false
	case serializer.IncludeDataIfSideloaded:
		return a.Included
	default:
		return st.rc.config.IncludeDataDefault
	}
}

func (st *jsonapiState) resourceIdentifier(s *serializer.Serializer) map[string]any {
	return map[string]any{
		"type": st.rc.resourceType(s),
		"id":   resourceID(s),
	}
}

// resourceID renders an id as the string JSON:API requires.
func resourceID(s *serializer.Serializer) string {
	id := s.ID()
	if id == nil {
		return ""
	}
	return fmt.Sprint(id)
}
