package btree

import "github.com/module/incremental/fibre"

// Sequence evaluates children in order, stopping at (and returning) the
// first non-Success result, exactly as pybt2's SequenceNode does; if every
// child succeeds the sequence itself succeeds. Children after a Running
// or Failure result are not evaluated this tick (spec.md §8, scenario S3).
type Sequence struct {
	Children []Node
}

func NewSequence(children ...Node) *Sequence { return &Sequence{Children: children} }

func (s *Sequence) Eval(cc *fibre.CallContext) (Result, error) {
	for i, child := range s.Children {
		res, err := EvaluateChild(cc, i, "sequence-child", child)
		if err != nil {
			return Result{}, err
		}
		if !res.IsSuccess() {
			return res, nil
		}
	}
	return ResultSuccess(nil), nil
}

// EvalAnalysis evaluates every child regardless of an earlier non-Success
// result, so the visualization export has a committed result for children
// a standard tick would have left unevaluated (spec.md §6), while still
// returning the same short-circuited Result a standard tick would.
func (s *Sequence) EvalAnalysis(cc *fibre.CallContext) (Result, error) {
	var first Result
	haveFirst := false
	for i, child := range s.Children {
		res, err := EvaluateChild(cc, i, "sequence-child", child)
		if err != nil {
			return Result{}, err
		}
		if !haveFirst && !res.IsSuccess() {
			first = res
			haveFirst = true
		}
	}
	if haveFirst {
		return first, nil
	}
	return ResultSuccess(nil), nil
}

// Fallback evaluates children in order, stopping at the first non-Failure
// result; if every child fails the fallback fails. Mirrors pybt2's
// FallbackNode.
type Fallback struct {
	Children []Node
}

func NewFallback(children ...Node) *Fallback { return &Fallback{Children: children} }

func (f *Fallback) Eval(cc *fibre.CallContext) (Result, error) {
	for i, child := range f.Children {
		res, err := EvaluateChild(cc, i, "fallback-child", child)
		if err != nil {
			return Result{}, err
		}
		if !res.IsFailure() {
			return res, nil
		}
	}
	return ResultFailure(nil), nil
}

// AlwaysSuccess, AlwaysFailure, and AlwaysRunning are the constant leaf
// nodes pybt2 defines for tests and scaffolding.
type AlwaysSuccess struct{}

func (AlwaysSuccess) Eval(*fibre.CallContext) (Result, error) { return ResultSuccess(nil), nil }

type AlwaysFailure struct{}

func (AlwaysFailure) Eval(*fibre.CallContext) (Result, error) { return ResultFailure(nil), nil }

type AlwaysRunning struct{}

func (AlwaysRunning) Eval(*fibre.CallContext) (Result, error) { return ResultRunning(nil), nil }

// Always returns a fixed Result every evaluation, the general form of
// pybt2's Always(result).
type Always struct {
	Result Result
}

func (a Always) Eval(*fibre.CallContext) (Result, error) { return a.Result, nil }

// Not inverts Success and Failure, passing Running through unchanged.
// Grounded on the `Not` node referenced (but not bundled in the retrieval
// pack) by tests/behaviour_tree/robot.py's GuaranteePowerSupply.
type Not struct {
	Child Node
}

func (n Not) Eval(cc *fibre.CallContext) (Result, error) {
	res, err := EvaluateChild(cc, "child", "not-child", n.Child)
	if err != nil {
		return Result{}, err
	}
	switch res.Status {
	case Success:
		return ResultFailure(res.Value), nil
	case Failure:
		return ResultSuccess(res.Value), nil
	default:
		return res, nil
	}
}

// AllOf succeeds only if every child succeeds. Unlike Sequence it keeps
// evaluating past a Running child; it returns the first Failure
// immediately, without evaluating the children after it, and otherwise
// runs if any child is Running. Grounded on robot.py's
// `AllOf(Not(InChargingArea()), ...)`.
type AllOf struct {
	Children []Node
}

func NewAllOf(children ...Node) *AllOf { return &AllOf{Children: children} }

func (a *AllOf) Eval(cc *fibre.CallContext) (Result, error) {
	anyRunning := false
	for i, child := range a.Children {
		res, err := EvaluateChild(cc, i, "allof-child", child)
		if err != nil {
			return Result{}, err
		}
		switch res.Status {
		case Failure:
			return res, nil
		case Running:
			anyRunning = true
		}
	}
	if anyRunning {
		return ResultRunning(nil), nil
	}
	return ResultSuccess(nil), nil
}

// AnyOf succeeds as soon as one child succeeds; it fails only if every
// child fails, and runs if none have succeeded but at least one is
// Running. Grounded on robot.py's `AnyOf(BatteryLevelIsAtLeast(100.0), ...)`.
type AnyOf struct {
	Children []Node
}

func NewAnyOf(children ...Node) *AnyOf { return &AnyOf{Children: children} }

func (a *AnyOf) Eval(cc *fibre.CallContext) (Result, error) {
	anyRunning := false
	for i, child := range a.Children {
		res, err := EvaluateChild(cc, i, "anyof-child", child)
		if err != nil {
			return Result{}, err
		}
		switch res.Status {
		case Success:
			return res, nil
		case Running:
			anyRunning = true
		}
	}
	if anyRunning {
		return ResultRunning(nil), nil
	}
	return ResultFailure(nil), nil
}

// PreconditionAction evaluates precondition first; only when it succeeds
// does action run. A failed or running precondition is returned as-is
// without evaluating action, so action's fibre is skipped and its
// predecessors (and hence invalidation traffic) stay quiet.
type PreconditionAction struct {
	Precondition Node
	Action       Node
}

func (p PreconditionAction) Eval(cc *fibre.CallContext) (Result, error) {
	cond, err := EvaluateChild(cc, "precondition", "precondition", p.Precondition)
	if err != nil {
		return Result{}, err
	}
	if !cond.IsSuccess() {
		return cond, nil
	}
	return EvaluateChild(cc, "action", "action", p.Action)
}

// PostconditionPreconditionAction runs the postcondition check first;
// if it already holds, the whole node succeeds without running any
// action. Otherwise each action is attempted as a Fallback until one
// succeeds or runs. Grounded on robot.py's GuaranteePowerSupply, which
// wraps a postcondition ("is the robot already safe") around a fallback
// of recovery actions.
type PostconditionPreconditionAction struct {
	Postcondition Node
	Actions       []Node
}

func (p PostconditionPreconditionAction) Eval(cc *fibre.CallContext) (Result, error) {
	post, err := EvaluateChild(cc, "postcondition", "postcondition", p.Postcondition)
	if err != nil {
		return Result{}, err
	}
	if post.IsSuccess() {
		return post, nil
	}
	fallback := NewFallback(p.Actions...)
	return EvaluateChild(cc, "actions", "actions-fallback", fallback)
}
