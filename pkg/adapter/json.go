package adapter

import (
	amsstrings "github.com/rails-api/active-model-serializers-sub000/internal/util/strings"
)

// JSON renders the attributes document under a root key.
type JSON struct{}

// Name implements Adapter.
func (JSON) Name() string { return "json" }

// DefaultKeyTransform implements Adapter.
func (JSON) DefaultKeyTransform() string { return TransformUnaltered }

// DefaultInclude implements Adapter.
func (JSON) DefaultInclude() bool { return true }

func (JSON) serialize(rc *renderContext, rt *root) (any, error) {
	key, err := rootKey(rc, rt)
	if err != nil {
		return nil, err
	}
	body, err := Attributes{}.serialize(rc, rt)
	if err != nil {
		return nil, err
	}

	doc := map[string]any{key: body}
	if len(rc.opts.Meta) > 0 {
		doc[firstNonEmpty(rc.opts.MetaKey, "meta")] = rc.opts.Meta
	}
	return doc, nil
}

// rootKey is the Root option, or the descriptor's root key, type or model name in snake
// case. Collections use the plural form unless Root is given.
func rootKey(rc *renderContext, rt *root) (string, error) {
	if rc.opts.Root != "" {
		return rc.opts.Root, nil
	}

	d := rt.rootDescriptor()
	if d == nil {
		return "", ErrUnknownRoot
	}

	key := firstNonEmpty(d.RootKeyOverride(), d.TypeOverride())
	if key == "" {
		name := d.ModelName()
		if len(rt.serializers) > 0 {
			name = rt.serializers[0].TypeName()
		}
		key = amsstrings.ToSnakeCase(amsstrings.Demodulize(name))
	}

	if rt.collection {
		return pluralize(key), nil
	}
	return key, nil
}
