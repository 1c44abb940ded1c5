package serializer

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrMissingCacheKey is returned when caching is enabled for a descriptor but the object
	// has no cache key and the descriptor declares no key override.
	ErrMissingCacheKey = errors.New("object has no cache key")

	// ErrInvalidCondition is returned when an if/unless condition is neither a predicate
	// name nor a predicate function.
	ErrInvalidCondition = errors.New("invalid condition")

	// ErrUnknownPredicate is returned when a condition names a predicate the descriptor
	// does not declare.
	ErrUnknownPredicate = errors.New("unknown predicate")

	// ErrNoSerializer is returned when no descriptor can be found for a value.
	ErrNoSerializer = errors.New("no serializer found")

	// ErrFragmentConflict is returned when a cache declaration names both cached-only and
	// cached-except attributes.
	ErrFragmentConflict = errors.New("cache only and cache except are mutually exclusive")

	// ErrAssociationOption is returned when an association-only option is given to an attribute.
	ErrAssociationOption = errors.New("option only applies to associations")
)

// CacheKeyError carries the type that could not produce a cache key.
type CacheKeyError struct {
	Type       string
	Serializer string
}

func (e *CacheKeyError) Error() string {
	return fmt.Sprintf("%s: %s must implement CacheKey() or %s must declare a cache key", ErrMissingCacheKey, e.Type, e.Serializer)
}

func (e *CacheKeyError) Unwrap() error {
	return ErrMissingCacheKey
}

// ConditionError reports an if/unless value of an unsupported type.
type ConditionError struct {
	Member string
	Value  any
}

func (e *ConditionError) Error() string {
	return fmt.Sprintf("%s on %q: expected predicate name or func(*Serializer) bool, got %T", ErrInvalidCondition, e.Member, e.Value)
}

func (e *ConditionError) Unwrap() error {
	return ErrInvalidCondition
}

// NoSerializerError lists the names tried while looking up a serializer.
type NoSerializerError struct {
	TypeName string
	Tried    []string
}

func (e *NoSerializerError) Error() string {
	if len(e.Tried) == 0 {
		return fmt.Sprintf("%s for %s", ErrNoSerializer, e.TypeName)
	}
	return fmt.Sprintf("%s for %s (tried %s)", ErrNoSerializer, e.TypeName, strings.Join(e.Tried, ", "))
}

func (e *NoSerializerError) Unwrap() error {
	return ErrNoSerializer
}
