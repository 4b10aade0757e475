package fibre

import (
	"reflect"

	"github.com/cespare/xxhash/v2"
)

// ContextKey identifies a top-down binding: an ancestor provides a value
// for a key, and any descendant can read the nearest bound value
// (spec.md §4.4, "Context (top-down)").
type ContextKey[T any] struct {
	id   uint64
	name string
}

// NewContextKey creates a context key identified by name. Two keys with
// the same name hash to the same id, matching the teacher's pattern of
// hashing a symbolic name into a stable int (pkg/flimsy/types.go's
// SYMBOL_ERRORS) rather than relying on pointer identity, which doesn't
// survive being passed across package boundaries as cleanly.
func NewContextKey[T any](name string) *ContextKey[T] {
	return &ContextKey[T]{id: xxhash.Sum64String("context:" + name), name: name}
}

type contextHolderKey uint64

// contextValueDescriptor is a tiny internal descriptor whose sole purpose
// is to give the provided value its own fibre, with its own revision
// counter, independent of whatever else the provider's node function
// returns. Readers depend on this holder, not on the provider itself, so
// that an unrelated change to the provider's own result never invalidates
// readers, and a changed context value always does. Grounded on
// _examples/original_source/pybt2/runtime/contexts.py's ContextValue.
type contextValueDescriptor struct {
	value any
}

func (d contextValueDescriptor) TypeID() string { return "fibre.contextValue" }

func (d contextValueDescriptor) Equal(other Descriptor) bool {
	o, ok := other.(contextValueDescriptor)
	return ok && reflect.DeepEqual(d.value, o.value)
}

func (d contextValueDescriptor) Evaluate(cc *CallContext) (any, error) {
	return d.value, nil
}

// ProvideContext binds a value to a context key for the current fibre's
// subtree (spec.md §4.4).
func ProvideContext[T any](cc *CallContext, key *ContextKey[T], value T) error {
	_, err := cc.EvaluateChild(contextHolderKey(key.id), contextValueDescriptor{value: value})
	if err != nil {
		return err
	}
	cc.fibre.provideContext(key.id, cc.fibre.children[contextHolderKey(key.id)])
	return nil
}

// UseContext walks ancestors until it finds the nearest provider for key,
// adds that provider's value-holder fibre as a predecessor, and returns
// the bound value. It fails with MissingContext if no ancestor provides
// the key.
func UseContext[T any](cc *CallContext, key *ContextKey[T]) (T, error) {
	var zero T
	// UseContext only needs the slot to enforce hook-order stability; the
	// bound value is re-resolved from the ancestor chain on every
	// evaluation rather than cached on the slot, so there's nothing else
	// to store there.
	if _, err := cc.fibre.nextSlot(hookContext); err != nil {
		return zero, err
	}
	holder, ok := cc.fibre.findContextProvider(key.id)
	if !ok {
		return zero, newError(MissingContext, cc.fibre.keyPath, "no provider bound for context %q", key.name)
	}
	raw, _ := holder.Result()
	value, ok := raw.(T)
	if !ok {
		return zero, newError(MissingContext, cc.fibre.keyPath, "provider for context %q has wrong type", key.name)
	}
	cc.fibre.addPredecessor(holder)
	return value, nil
}
