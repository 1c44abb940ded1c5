package adapter

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/rails-api/active-model-serializers-sub000/pkg/config"
	"github.com/rails-api/active-model-serializers-sub000/pkg/include"
	"github.com/rails-api/active-model-serializers-sub000/pkg/serializer"
)

// Attributes renders objects as plain maps with included associations nested inline.
type Attributes struct{}

// Name implements Adapter.
func (Attributes) Name() string { return "attributes" }

// DefaultKeyTransform implements Adapter.
func (Attributes) DefaultKeyTransform() string { return TransformUnaltered }

// DefaultInclude implements Adapter.
func (Attributes) DefaultInclude() bool { return true }

func (a Attributes) serialize(rc *renderContext, rt *root) (any, error) {
	if rt.isNil {
		return nil, nil
	}
	if !rt.collection {
		return a.hash(rc, rt.serializers[0], rc.tree, 0, nil, true)
	}

	list := make([]any, 0, len(rt.serializers))
	for _, s := range rt.serializers {
		h, err := a.hash(rc, s, rc.tree, 0, nil, true)
		if err != nil {
			return nil, err
		}
		list = append(list, h)
	}
	return list, nil
}

// hash renders s with its included associations. path holds the identities of the objects
// being rendered above s; an association back to one of them is not followed.
func (a Attributes) hash(rc *renderContext, s *serializer.Serializer, tree *include.Tree, depth int, path []string, isRoot bool) (map[string]any, error) {
	attrs, err := s.Attributes(rc.ctx, rc.adapter, rc.evalOptions(plainType(s), isRoot))
	if err != nil {
		return nil, err
	}
	out := make(map[string]any, len(attrs))
	for k, v := range attrs {
		out[k] = v
	}

	assocs, err := s.Associations(serializer.ResolveOptions{Tree: tree, IncludedOnly: true})
	if err != nil {
		return nil, err
	}
	if len(assocs) == 0 {
		return out, nil
	}

	if limit := rc.config.MaxDepth; limit > 0 && depth+1 > limit {
		switch rc.config.DepthPolicy {
		case config.DepthFail:
			return nil, fmt.Errorf("%w: %s.%s at depth %d (max %d)",
				ErrMaxDepthExceeded, s.Descriptor().Name(), assocs[0].Key, depth+1, limit)
		case config.DepthTrim:
			return out, nil
		}
	}

	if id := s.Identity(); id != "" {
		path = append(path[:len(path):len(path)], id)
	}
	for _, assoc := range assocs {
		v, keep, err := a.association(rc, assoc, depth+1, path)
		if err != nil {
			return nil, err
		}
		if keep {
			out[assoc.Key] = v
		}
	}
	return out, nil
}

func (a Attributes) association(rc *renderContext, assoc *serializer.Association, depth int, path []string) (any, bool, error) {
	if assoc.Virtual {
		return assoc.Value, true, nil
	}

	render := func(child *serializer.Serializer) (any, bool, error) {
		if id := child.Identity(); id != "" && contains(path, id) {
			rc.logger.Debug("skipping cyclic association",
				zap.String("association", assoc.Key),
				zap.String("object", id))
			return nil, false, nil
		}
		h, err := a.hash(rc, child, assoc.Subtree, depth, path, false)
		if err != nil {
			return nil, false, err
		}
		if assoc.Def.Polymorphic {
			typ := child.PolymorphicType()
			return map[string]any{"type": typ, typ: h}, true, nil
		}
		return h, true, nil
	}

	if !assoc.Many() {
		if assoc.Nil() {
			return nil, true, nil
		}
		return render(assoc.Serializer)
	}

	list := make([]any, 0, len(assoc.Serializers))
	for _, child := range assoc.Serializers {
		v, keep, err := render(child)
		if err != nil {
			return nil, false, err
		}
		if keep {
			list = append(list, v)
		}
	}
	return list, true, nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
