package btree

import "github.com/module/incremental/fibre"

// UseContext is the btree-typed wrapper around fibre.UseContext, for node
// Eval methods that want to read a context without importing package
// fibre's generic free functions directly.
func UseContext[T any](cc *fibre.CallContext, key *fibre.ContextKey[T]) (T, error) {
	return fibre.UseContext(cc, key)
}

// ContextProvider is a Node that binds Value to Key with
// fibre.ProvideContext and then evaluates Child under that binding.
type ContextProvider[T any] struct {
	Key   *fibre.ContextKey[T]
	Value T
	Child Node
}

func (p ContextProvider[T]) Eval(cc *fibre.CallContext) (Result, error) {
	if err := fibre.ProvideContext(cc, p.Key, p.Value); err != nil {
		return Result{}, err
	}
	return EvaluateChild(cc, "child", "context-provider-child", p.Child)
}

// UseCapture is the btree-typed wrapper around fibre.UseCapture.
func UseCapture[T any](cc *fibre.CallContext, key *fibre.CaptureKey[T], value T) error {
	return fibre.UseCapture(cc, key, value)
}

// CaptureProvider declares an aggregation point over Child's subtree, runs
// Child, then reduces the ordered contributions with Reducer, mirroring
// the two-phase pattern spec.md §4.4 describes and robot.py's
// RobotCaptureProvider exercises for velocity demands.
type CaptureProvider[T any] struct {
	Key     *fibre.CaptureKey[T]
	Reducer fibre.Reducer[T]
	Child   Node
}

type CaptureProviderResult[T any] struct {
	ChildResult Result
	Reduced     T
}

func (p CaptureProvider[T]) Eval(cc *fibre.CallContext) (Result, error) {
	handle := fibre.ProvideCapture(cc, p.Key, p.Reducer)
	res, err := EvaluateChild(cc, "child", "capture-provider-child", p.Child)
	if err != nil {
		return Result{}, err
	}
	reduced := handle.Collect()
	return ResultSuccess(CaptureProviderResult[T]{ChildResult: res, Reduced: reduced}), nil
}

// First is the "first value" reducer spec.md §4.4 names as an example
// (used by the robot simulator's velocity-demand aggregation): it returns
// the first contribution, or the zero value if there were none.
func First[T any](contributions []T) T {
	var zero T
	if len(contributions) == 0 {
		return zero
	}
	return contributions[0]
}

// Sum folds contributions with +. Only meaningful for numeric T; spec.md
// §9's open question about order-insensitive reducers and duplicate
// contributions is resolved by package fibre's DuplicateCapture rejection
// in fibre.UseCapture, so Sum never needs to dedupe itself.
func Sum(contributions []float64) float64 {
	var total float64
	for _, c := range contributions {
		total += c
	}
	return total
}
