package fibre

// Setter updates a state slot's value. Passing an updater re-derives the
// next value from the current one; setter calls are buffered and applied
// at the start of the next tick (spec.md §4.3, §5).
type Setter[T any] func(updater func(prev T) T)

// UseState registers (or reads) a state slot holding a value of type T
// and a stable setter for it (spec.md §4.3, "State slot").
func UseState[T any](cc *CallContext, initial T) (T, Setter[T]) {
	raw, rawSet := cc.UseState(initial)
	value, _ := raw.(T)
	setter := Setter[T](func(updater func(prev T) T) {
		rawSet(func(prev any) any {
			typedPrev, _ := prev.(T)
			return updater(typedPrev)
		})
	})
	return value, setter
}

// UseEffect runs body after commit when deps have changed since the last
// evaluation (or on mount); the cleanup it returns runs before the next
// body, or on unmount. A nil deps slice means "re-run on every evaluation
// of this fibre."
func UseEffect(cc *CallContext, deps []any, body func() func()) {
	cc.UseEffect(deps, deps != nil, body)
}

// UseMemo recomputes compute() only when deps change by equality
// (spec.md §4.3, "Memo slot").
func UseMemo[T any](cc *CallContext, deps []any, compute func() T) T {
	raw := cc.UseMemo(deps, deps != nil, func() any { return compute() })
	value, _ := raw.(T)
	return value
}

// UseResource synchronously returns an acquired value, releasing it (via
// the cleanup acquire returns) on deps change or unmount (spec.md §4.3,
// "Resource slot").
func UseResource[T any](cc *CallContext, deps []any, acquire func() (T, func())) T {
	raw := cc.UseResource(deps, deps != nil, func() (any, func()) {
		v, release := acquire()
		return v, release
	})
	value, _ := raw.(T)
	return value
}
