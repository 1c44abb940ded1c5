package serializer

import (
	"reflect"
	"strings"
	"sync"
	"time"

	amsstrings "github.com/rails-api/active-model-serializers-sub000/internal/util/strings"
)

// Object is the read capability a serialized value must offer.
type Object interface {
	// ReadAttribute returns the named attribute and whether the object has it.
	ReadAttribute(name string) (any, bool)
}

// Identifier is implemented by objects with an identity.
type Identifier interface {
	ID() any
}

// CacheKeyer is implemented by objects that compute their own cache key.
type CacheKeyer interface {
	CacheKey() string
}

// Versioned is implemented by objects with a version timestamp.
type Versioned interface {
	UpdatedAt() time.Time
}

// TypeNamer is implemented by objects that name their model type.
// Without it the Go type name is used.
type TypeNamer interface {
	ModelTypeName() string
}

// Wrap returns an Object view of v. Objects are returned unchanged, maps with string keys
// and structs (or pointers to them) are read through their keys and fields. Other values
// report false.
func Wrap(v any) (Object, bool) {
	switch o := v.(type) {
	case nil:
		return nil, false
	case Object:
		return o, true
	case map[string]any:
		return mapObject(o), true
	}

	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil, false
		}
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return nil, false
	}
	return structObject{value: rv, fields: fieldIndex(rv.Type())}, true
}

// TypeName returns the model type name of v.
func TypeName(v any) string {
	if n, ok := v.(TypeNamer); ok {
		return n.ModelTypeName()
	}
	t := reflect.TypeOf(v)
	if t == nil {
		return ""
	}
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t.Name()
}

type mapObject map[string]any

func (m mapObject) ReadAttribute(name string) (any, bool) {
	v, ok := m[name]
	return v, ok
}

func (m mapObject) ID() any {
	return m["id"]
}

type structObject struct {
	value  reflect.Value
	fields map[string][]int
}

func (s structObject) ReadAttribute(name string) (any, bool) {
	index, ok := s.fields[name]
	if !ok {
		return nil, false
	}
	return s.value.FieldByIndex(index).Interface(), true
}

var fieldCache sync.Map // reflect.Type -> map[string][]int

// fieldIndex maps attribute names to exported fields. The json tag name is used when
// present, otherwise the snake_case field name.
func fieldIndex(t reflect.Type) map[string][]int {
	if cached, ok := fieldCache.Load(t); ok {
		return cached.(map[string][]int)
	}

	index := make(map[string][]int)
	for _, f := range reflect.VisibleFields(t) {
		if !f.IsExported() || f.Anonymous {
			continue
		}
		name := amsstrings.ToSnakeCase(f.Name)
		if tag, ok := f.Tag.Lookup("json"); ok {
			tagName, _, _ := strings.Cut(tag, ",")
			if tagName == "-" {
				continue
			}
			if tagName != "" {
				name = tagName
			}
		}
		index[name] = f.Index
	}

	fieldCache.Store(t, index)
	return index
}

// Record is a map-backed domain object. It is used for fixtures and for data that has no
// Go type of its own.
type Record struct {
	Type    string
	Attrs   map[string]any
	Version time.Time
}

// NewRecord creates a record of the given model type.
func NewRecord(typ string, attrs map[string]any) *Record {
	if attrs == nil {
		attrs = make(map[string]any)
	}
	return &Record{Type: typ, Attrs: attrs}
}

// Set assigns an attribute and returns the record for chaining.
func (r *Record) Set(name string, value any) *Record {
	r.Attrs[name] = value
	return r
}

// ReadAttribute implements Object.
func (r *Record) ReadAttribute(name string) (any, bool) {
	v, ok := r.Attrs[name]
	return v, ok
}

// ID implements Identifier.
func (r *Record) ID() any {
	return r.Attrs["id"]
}

// UpdatedAt implements Versioned.
func (r *Record) UpdatedAt() time.Time {
	return r.Version
}

// ModelTypeName implements TypeNamer.
func (r *Record) ModelTypeName() string {
	return r.Type
}
