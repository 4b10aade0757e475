// Package viz implements the read-only visualization export described in
// spec.md §6: a traversal of the committed tree exposing, for each fibre,
// key path, descriptor type identity, committed result, predecessor key
// paths, and child key order. It is independent of ticking — an external
// renderer polls it without subscribing to mount/commit/unmount events.
//
// Grounded on _examples/original_source/pybt2/runtime/visualise.py's
// DotRenderer, which walks the same fibre-node tree to build a dot graph;
// this package walks it into a plain data Snapshot instead, and leaves
// rendering (HTML, table) to the RenderX functions; there is no dot
// renderer.
package viz

import "github.com/module/incremental/fibre"

// NodeSnapshot is one fibre's read-only export record.
type NodeSnapshot struct {
	KeyPath        string
	DescriptorType string
	Result         any
	HasResult      bool
	Revision       uint64
	Status         string
	Predecessors   []string
	Children       []NodeSnapshot
}

// Snapshot walks the runtime's committed tree from the root, depth-first
// in child-key order, and returns a read-only tree mirroring it.
func Snapshot(rt *fibre.Runtime) NodeSnapshot {
	return snapshotFibre(rt.Root())
}

func snapshotFibre(f *fibre.Fibre) NodeSnapshot {
	result, hasResult := f.Result()
	children := f.Children()
	preds := f.Predecessors()

	predStrs := make([]string, len(preds))
	for i, p := range preds {
		predStrs[i] = p.String()
	}

	childSnapshots := make([]NodeSnapshot, len(children))
	for i, c := range children {
		childSnapshots[i] = snapshotFibre(c)
	}

	return NodeSnapshot{
		KeyPath:        f.KeyPath().String(),
		DescriptorType: f.DescriptorTypeID(),
		Result:         result,
		HasResult:      hasResult,
		Revision:       f.Revision(),
		Status:         f.Status().String(),
		Predecessors:   predStrs,
		Children:       childSnapshots,
	}
}

// Walk visits every node in the snapshot, pre-order, calling visit with
// its depth (0 at the root).
func (n NodeSnapshot) Walk(visit func(depth int, node NodeSnapshot)) {
	n.walk(0, visit)
}

func (n NodeSnapshot) walk(depth int, visit func(int, NodeSnapshot)) {
	visit(depth, n)
	for _, c := range n.Children {
		c.walk(depth+1, visit)
	}
}

// Flatten returns every node in the snapshot as a flat, pre-order slice,
// paired with its depth.
func (n NodeSnapshot) Flatten() []FlatNode {
	var out []FlatNode
	n.Walk(func(depth int, node NodeSnapshot) {
		out = append(out, FlatNode{Depth: depth, Node: node})
	})
	return out
}

// FlatNode pairs a NodeSnapshot with its depth in a pre-order flattening.
type FlatNode struct {
	Depth int
	Node  NodeSnapshot
}
