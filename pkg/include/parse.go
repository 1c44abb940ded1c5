package include

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidDirective is returned when a directive contains a value that is not a
// string, slice or map.
var ErrInvalidDirective = errors.New("invalid include directive")

// Parse builds a Tree from a directive. Accepted forms:
//
//	nil, ""                                  empty tree
//	"a.b,a.c"                                comma separated dot paths
//	[]string{"a.b", "c"}                     each element parsed as a path list
//	[]any{"a", map[string]any{"b": "c"}}     nested slices and maps
//	map[string]any{"a": []any{"b"}}          key is a segment, value its children
//	*Tree                                    returned as-is
//
// Duplicate paths are merged, never overwritten.
func Parse(directive any) (*Tree, error) {
	t := &Tree{}
	if err := t.add(directive); err != nil {
		return nil, err
	}
	return t, nil
}

// MustParse is like Parse but panics on an invalid directive.
// It is meant for directives declared in code.
func MustParse(directive any) *Tree {
	t, err := Parse(directive)
	if err != nil {
		panic(err)
	}
	return t
}

func (t *Tree) add(directive any) error {
	switch v := directive.(type) {
	case nil:
		return nil
	case *Tree:
		t.merge(v)
	case string:
		t.addPaths(v)
	case []string:
		for _, s := range v {
			t.addPaths(s)
		}
	case []any:
		for _, elem := range v {
			if err := t.add(elem); err != nil {
				return err
			}
		}
	case map[string]any:
		for key, children := range v {
			if err := t.addChild(key, children); err != nil {
				return err
			}
		}
	case map[string][]string:
		for key, children := range v {
			if err := t.addChild(key, children); err != nil {
				return err
			}
		}
	case map[string]string:
		for key, children := range v {
			if err := t.addChild(key, children); err != nil {
				return err
			}
		}
	default:
		return fmt.Errorf("%w: unsupported value of type %T", ErrInvalidDirective, directive)
	}
	return nil
}

func (t *Tree) addChild(key string, children any) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return nil
	}
	child, err := Parse(children)
	if err != nil {
		return err
	}
	t.merge(&Tree{children: map[string]*Tree{key: child}})
	return nil
}

// addPaths inserts each comma separated dot path of s.
func (t *Tree) addPaths(s string) {
	for _, path := range strings.Split(s, ",") {
		var segments []string
		for _, seg := range strings.Split(path, ".") {
			if seg = strings.TrimSpace(seg); seg != "" {
				segments = append(segments, seg)
			}
		}
		if len(segments) > 0 {
			t.insert(segments)
		}
	}
}
