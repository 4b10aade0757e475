package fibre

import "reflect"

// Descriptor is any immutable, equatable value carrying a callable that,
// when invoked with a call context, returns a result. It is the node
// contract described for external consumers of this engine (behaviour
// tree nodes, or anything else built on top).
type Descriptor interface {
	// TypeID identifies the descriptor's node kind; it participates in
	// equality and is surfaced to instrumentation and the visualization
	// export.
	TypeID() string
	// Equal reports structural equality against another descriptor.
	// Implementations typically delegate to StructuralEqual.
	Equal(other Descriptor) bool
	// Evaluate runs the node function.
	Evaluate(cc *CallContext) (any, error)
}

// AnalysisDescriptor is implemented by descriptors that support a second,
// non-short-circuited evaluation path used only when the call context is
// running in analysis mode (spec.md §6).
type AnalysisDescriptor interface {
	Descriptor
	EvaluateAnalysis(cc *CallContext) (any, error)
}

// StructuralEqual compares two descriptors of the same concrete type by
// deep value equality, the default memoization comparison described in
// §3 ("Why equality and not identity"). Descriptors whose props contain
// incomparable-by-value fields (closures, channels) should implement a
// custom Equal instead of using this helper.
func StructuralEqual(a, b Descriptor) bool {
	if a == nil || b == nil {
		return a == b
	}
	if a.TypeID() != b.TypeID() {
		return false
	}
	return reflect.DeepEqual(a, b)
}
