package serializer

import (
	"fmt"
	"strings"
	"sync"

	amsstrings "github.com/rails-api/active-model-serializers-sub000/internal/util/strings"
)

// Registry maps serializer names to descriptors. It is populated at startup and read
// concurrently afterwards.
type Registry struct {
	mu          sync.RWMutex
	descriptors map[string]*Descriptor
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{descriptors: make(map[string]*Descriptor)}
}

// Register validates d and stores it under its full name.
func (r *Registry) Register(d *Descriptor) error {
	if err := d.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	name := d.FullName()
	if _, exists := r.descriptors[name]; exists {
		return fmt.Errorf("serializer %s already registered", name)
	}
	r.descriptors[name] = d
	return nil
}

// MustRegister registers every descriptor and panics on the first error.
func (r *Registry) MustRegister(ds ...*Descriptor) *Registry {
	for _, d := range ds {
		if err := r.Register(d); err != nil {
			panic(err)
		}
	}
	return r
}

// Lookup returns the descriptor registered under the exact full name.
func (r *Registry) Lookup(name string) (*Descriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.descriptors[name]
	return d, ok
}

// Names returns every registered name.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.descriptors))
	for name := range r.descriptors {
		names = append(names, name)
	}
	return names
}

// SerializerFor finds the descriptor for a model type name. Candidates are tried in order:
//
//	<owner full name>.<Model>Serializer     serializer nested in the owning serializer
//	<namespace>.<Model>Serializer           then each enclosing namespace, outwards
//	<model namespace>.<Model>Serializer     for namespaced model names ("blog.Post")
//	<Model>Serializer                       the global name
//
// owner may be nil. The returned error is a *NoSerializerError listing every candidate.
func (r *Registry) SerializerFor(typeName, namespace string, owner *Descriptor) (*Descriptor, error) {
	if typeName == "" {
		return nil, &NoSerializerError{TypeName: "<unknown>"}
	}

	base := amsstrings.Demodulize(typeName) + "Serializer"
	tried := candidates(base, namespace, owner)
	if qualified := qualifiedName(typeName); qualified != "" && !contains(tried, qualified+"Serializer") {
		// the model's own namespace goes right before the global name
		global := tried[len(tried)-1]
		tried = append(tried[:len(tried)-1], qualified+"Serializer", global)
	}
	for _, name := range tried {
		if d, ok := r.Lookup(name); ok {
			return d, nil
		}
	}
	return nil, &NoSerializerError{TypeName: typeName, Tried: tried}
}

// Resolve finds a descriptor declared by name. The name is tried nested in owner, then in
// each enclosing namespace, then as given.
func (r *Registry) Resolve(name, namespace string, owner *Descriptor) (*Descriptor, error) {
	tried := candidates(name, namespace, owner)
	for _, candidate := range tried {
		if d, ok := r.Lookup(candidate); ok {
			return d, nil
		}
	}
	return nil, &NoSerializerError{TypeName: name, Tried: tried}
}

func candidates(name, namespace string, owner *Descriptor) []string {
	var out []string
	if owner != nil {
		out = appendUnique(out, owner.FullName()+"."+name)
		if namespace == "" {
			namespace = owner.namespace
		}
	}
	ns := strings.Trim(namespace, ".")
	for ns != "" {
		out = appendUnique(out, ns+"."+name)
		i := strings.LastIndex(ns, ".")
		if i < 0 {
			break
		}
		ns = ns[:i]
	}
	return appendUnique(out, name)
}

// qualifiedName converts "Api::Post" to "api.Post"-style registry names, keeping the case of
// namespace segments. It returns "" for names without a namespace.
func qualifiedName(typeName string) string {
	name := strings.ReplaceAll(typeName, "::", ".")
	if !strings.Contains(name, ".") {
		return ""
	}
	return name
}

func appendUnique(list []string, s string) []string {
	if contains(list, s) {
		return list
	}
	return append(list, s)
}
