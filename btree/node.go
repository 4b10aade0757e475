package btree

import (
	"reflect"

	"github.com/module/incremental/fibre"
)

// Node is the behaviour-tree node contract: an immutable, equatable value
// that a fibre.Descriptor wraps and that the scheduler evaluates once per
// tick when invalidated. It mirrors pybt2's abstract BTNode.__call__,
// which returns a Result, a plain bool, or another BTNode to delegate to.
type Node interface {
	Eval(cc *fibre.CallContext) (Result, error)
}

// Descriptor adapts a Node into a fibre.Descriptor: btree authors write
// Node implementations and never touch fibre.Descriptor directly, the way
// pybt2 authors write BTNode subclasses and never touch FibreNodeFunction.
type Descriptor struct {
	TypeName string
	Node     Node
}

// Wrap produces the fibre.Descriptor for a Node. typeName should be a
// stable identifier for the node's Go type (conventionally its type name);
// it participates in equality the same way pybt2 distinguishes node
// identity by Python class plus attrs field equality.
func Wrap(typeName string, node Node) fibre.Descriptor {
	return Descriptor{TypeName: typeName, Node: node}
}

func (d Descriptor) TypeID() string { return "btree." + d.TypeName }

func (d Descriptor) Equal(other fibre.Descriptor) bool {
	o, ok := other.(Descriptor)
	if !ok || d.TypeName != o.TypeName {
		return false
	}
	return reflect.DeepEqual(d.Node, o.Node)
}

func (d Descriptor) Evaluate(cc *fibre.CallContext) (any, error) {
	return d.Node.Eval(cc)
}

// AnalysisNode is implemented by Node types that want a distinct
// evaluation path when the call context is in analysis mode (spec.md
// §6): a Sequence, for example, can still evaluate every child for
// visualization completeness instead of stopping at the first
// non-Success result.
type AnalysisNode interface {
	Node
	EvalAnalysis(cc *fibre.CallContext) (Result, error)
}

// EvaluateAnalysis makes every Descriptor satisfy fibre.AnalysisDescriptor:
// a Node that implements AnalysisNode gets its analysis path; any other
// Node just falls back to its standard Eval.
func (d Descriptor) EvaluateAnalysis(cc *fibre.CallContext) (any, error) {
	if an, ok := d.Node.(AnalysisNode); ok {
		return an.EvalAnalysis(cc)
	}
	return d.Node.Eval(cc)
}

// EvaluateChild runs a child Node under key and converts its committed
// fibre result back into a Result, the typed counterpart of
// fibre.CallContext.EvaluateChild for btree authors.
func EvaluateChild(cc *fibre.CallContext, key fibre.Key, typeName string, node Node) (Result, error) {
	raw, err := cc.EvaluateChild(key, Wrap(typeName, node))
	if err != nil {
		return Result{}, err
	}
	res, _ := raw.(Result)
	return res, nil
}
