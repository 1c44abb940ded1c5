package serializer

import "fmt"

// Kind is the cardinality of an association.
type Kind int

const (
	KindHasMany Kind = iota
	KindHasOne
	KindBelongsTo
)

// Many reports whether the association holds a collection.
func (k Kind) Many() bool {
	return k == KindHasMany
}

func (k Kind) String() string {
	switch k {
	case KindHasMany:
		return "has_many"
	case KindHasOne:
		return "has_one"
	case KindBelongsTo:
		return "belongs_to"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// IncludeData controls whether a JSON:API relationship carries resource linkage.
type IncludeData int

const (
	// IncludeDataDefault defers to the configured default.
	IncludeDataDefault IncludeData = iota
	// IncludeDataAlways always renders linkage.
	IncludeDataAlways
	// IncludeDataNever never renders linkage.
	IncludeDataNever
	// IncludeDataIfSideloaded renders linkage only when the association is included.
	IncludeDataIfSideloaded
)

// member holds what attributes and associations have in common.
type member struct {
	Name  string
	Key   string
	Value ValueFunc

	ifCond     *condition
	unlessCond *condition
}

// AttributeDef is one declared attribute.
type AttributeDef struct {
	member
}

// AssociationDef is one declared association.
type AssociationDef struct {
	member

	Kind Kind
	// Serializer names the target descriptor. Empty means lookup by runtime type.
	Serializer string
	// Descriptor is an explicit target descriptor and wins over Serializer.
	Descriptor *Descriptor
	// Polymorphic tags rendered values with the runtime type.
	Polymorphic bool
	// Virtual, when set, is rendered as-is instead of reading the association.
	Virtual any
	// IncludeData controls JSON:API resource linkage.
	IncludeData IncludeData
	Links       []*LinkDef
	Meta        MetaFunc
}

// condition is either a named predicate or an inline one.
type condition struct {
	name string
	fn   PredicateFunc
}

type optionTarget struct {
	member      *member
	association *AssociationDef
}

// Option configures an attribute or association declaration.
type Option func(t *optionTarget) error

// If renders the member only when cond holds. cond is a predicate name declared with
// Descriptor.Predicate, or a func(*Serializer) bool.
func If(cond any) Option {
	return func(t *optionTarget) error {
		c, err := newCondition(t.member.Name, cond)
		if err != nil {
			return err
		}
		t.member.ifCond = c
		return nil
	}
}

// Unless renders the member only when cond does not hold.
func Unless(cond any) Option {
	return func(t *optionTarget) error {
		c, err := newCondition(t.member.Name, cond)
		if err != nil {
			return err
		}
		t.member.unlessCond = c
		return nil
	}
}

func newCondition(member string, cond any) (*condition, error) {
	switch c := cond.(type) {
	case string:
		if c == "" {
			return nil, &ConditionError{Member: member, Value: cond}
		}
		return &condition{name: c}, nil
	case PredicateFunc:
		if c == nil {
			return nil, &ConditionError{Member: member, Value: cond}
		}
		return &condition{fn: c}, nil
	case func(*Serializer) bool:
		if c == nil {
			return nil, &ConditionError{Member: member, Value: cond}
		}
		return &condition{fn: c}, nil
	default:
		return nil, &ConditionError{Member: member, Value: cond}
	}
}

// WithKey renames the member in the output.
func WithKey(key string) Option {
	return func(t *optionTarget) error {
		t.member.Key = key
		return nil
	}
}

// WithValue computes the member from fn instead of reading the object.
func WithValue(fn ValueFunc) Option {
	return func(t *optionTarget) error {
		t.member.Value = fn
		return nil
	}
}

// WithSerializer names the descriptor used for associated objects.
func WithSerializer(name string) Option {
	return associationOption("WithSerializer", func(a *AssociationDef) {
		a.Serializer = name
	})
}

// WithDescriptor sets the descriptor used for associated objects.
func WithDescriptor(d *Descriptor) Option {
	return associationOption("WithDescriptor", func(a *AssociationDef) {
		a.Descriptor = d
	})
}

// Polymorphic tags the rendered association with the runtime type of its objects.
func Polymorphic() Option {
	return associationOption("Polymorphic", func(a *AssociationDef) {
		a.Polymorphic = true
	})
}

// VirtualValue renders value as-is in place of the association.
func VirtualValue(value any) Option {
	return associationOption("VirtualValue", func(a *AssociationDef) {
		a.Virtual = value
	})
}

// WithIncludeData sets the JSON:API resource linkage policy.
func WithIncludeData(mode IncludeData) Option {
	return associationOption("WithIncludeData", func(a *AssociationDef) {
		a.IncludeData = mode
	})
}

// AssociationLink declares a relationship level link.
func AssociationLink(name string, fn LinkFunc) Option {
	return associationOption("AssociationLink", func(a *AssociationDef) {
		a.Links = append(a.Links, &LinkDef{Name: name, Value: fn})
	})
}

// AssociationMeta declares the relationship level meta builder.
func AssociationMeta(fn MetaFunc) Option {
	return associationOption("AssociationMeta", func(a *AssociationDef) {
		a.Meta = fn
	})
}

func associationOption(name string, apply func(a *AssociationDef)) Option {
	return func(t *optionTarget) error {
		if t.association == nil {
			return fmt.Errorf("%s: %w", name, ErrAssociationOption)
		}
		apply(t.association)
		return nil
	}
}
