// Package include parses include directives into prefix trees of association names.
//
// A directive selects which associations are expanded into a rendered document. It can be
// written as comma separated dot paths ("posts.author,posts.comments"), as nested slices and
// maps ([]any{"posts", map[string]any{"author": []any{"bio"}}}), or passed as an existing
// *Tree. Two wildcard segments are understood:
//
//	*   include every association at this level, without nesting
//	**  include every association at every level below
//
// Unknown association names are never an error: they simply do not match anything.
package include

import (
	"sort"
	"strings"
)

const (
	// Wildcard includes every association at one level.
	Wildcard = "*"
	// RecursiveWildcard includes every association at every level.
	RecursiveWildcard = "**"
)

// Tree is an immutable prefix tree of association names.
// A nil *Tree is valid and includes nothing.
type Tree struct {
	children map[string]*Tree
}

// deepTree is returned for lookups that only match through "**".
var deepTree = &Tree{children: map[string]*Tree{RecursiveWildcard: {}}}

// Empty returns a tree that includes nothing.
func Empty() *Tree {
	return &Tree{}
}

// Lookup returns the subtree in effect for the association key.
// An exact match wins, then "*", then "**" (which keeps recursing one level down).
// The second return value is false when the association is not included.
func (t *Tree) Lookup(key string) (*Tree, bool) {
	if t == nil || len(t.children) == 0 {
		return nil, false
	}
	if child, ok := t.children[key]; ok {
		return child, true
	}
	if child, ok := t.children[Wildcard]; ok {
		return child, true
	}
	if _, ok := t.children[RecursiveWildcard]; ok {
		return deepTree, true
	}
	return nil, false
}

// Has reports whether the association key is included at this level.
func (t *Tree) Has(key string) bool {
	_, ok := t.Lookup(key)
	return ok
}

// IsEmpty reports whether the tree includes nothing.
func (t *Tree) IsEmpty() bool {
	return t == nil || len(t.children) == 0
}

// Keys returns the literal keys at this level, sorted.
func (t *Tree) Keys() []string {
	if t == nil {
		return nil
	}
	keys := make([]string, 0, len(t.children))
	for k := range t.children {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Merge returns the union of both trees. Neither input is modified.
func (t *Tree) Merge(other *Tree) *Tree {
	out := &Tree{}
	out.merge(t)
	out.merge(other)
	return out
}

func (t *Tree) merge(other *Tree) {
	if other == nil {
		return
	}
	for key, child := range other.children {
		if t.children == nil {
			t.children = make(map[string]*Tree)
		}
		existing, ok := t.children[key]
		if !ok {
			existing = &Tree{}
			t.children[key] = existing
		}
		existing.merge(child)
	}
}

// Equal reports whether both trees include exactly the same paths.
func (t *Tree) Equal(other *Tree) bool {
	if t.IsEmpty() || other.IsEmpty() {
		return t.IsEmpty() && other.IsEmpty()
	}
	if len(t.children) != len(other.children) {
		return false
	}
	for key, child := range t.children {
		otherChild, ok := other.children[key]
		if !ok || !child.Equal(otherChild) {
			return false
		}
	}
	return true
}

// String renders the tree back into the dot-path form, sorted.
func (t *Tree) String() string {
	return strings.Join(t.paths(""), ",")
}

func (t *Tree) paths(prefix string) []string {
	var out []string
	for _, key := range t.Keys() {
		path := key
		if prefix != "" {
			path = prefix + "." + key
		}
		child := t.children[key]
		if child.IsEmpty() {
			out = append(out, path)
			continue
		}
		out = append(out, child.paths(path)...)
	}
	return out
}

// insert adds one dot-split path, creating intermediate nodes.
func (t *Tree) insert(segments []string) {
	node := t
	for _, seg := range segments {
		if node.children == nil {
			node.children = make(map[string]*Tree)
		}
		child, ok := node.children[seg]
		if !ok {
			child = &Tree{}
			node.children[seg] = child
		}
		node = child
	}
}
