package fibre

import (
	mapset "github.com/deckarep/golang-set/v2"
)

type fibreID uint64

// Status is one of the lifecycle states a fibre moves through (spec.md §3).
type Status int

const (
	Uninitialized Status = iota
	Active
	Disposed
)

func (s Status) String() string {
	switch s {
	case Uninitialized:
		return "Uninitialized"
	case Active:
		return "Active"
	case Disposed:
		return "Disposed"
	default:
		return "Unknown"
	}
}

type dirtyBits uint8

const (
	dirtyProps dirtyBits = 1 << iota
	dirtyPredecessor
	dirtyState
	// dirtyCapture marks a fibre whose capture aggregation changed because a
	// descendant's contributed value changed, not because the descendant's
	// own committed result changed. predecessorsActuallyChanged only
	// resolves against Result revisions, which a capture contribution never
	// bumps, so this bit must never be folded into the dirtyPredecessor
	// check-then-dirty shortcut: it always forces a full re-evaluation.
	dirtyCapture
)

func (d dirtyBits) any() bool { return d != 0 }

// Fibre is the per-call evaluation record described in spec.md §3. The
// arena (Runtime) is the sole owner of Fibre values; parent links are
// non-owning pointers and predecessor/successor edges are non-owning ids
// into the arena.
type Fibre struct {
	id      fibreID
	key     Key
	keyPath KeyPath
	parent  *Fibre
	runtime *Runtime

	descriptor Descriptor
	result     any
	hasResult  bool
	revision   uint64

	childOrder []Key
	children   map[Key]*Fibre

	hooks      []hookSlot
	hookCursor int
	everRun    bool

	predecessors  mapset.Set[fibreID]
	successors    mapset.Set[fibreID]
	predRevisions map[fibreID]uint64

	providedContexts map[uint64]*Fibre
	captures         map[uint64]*captureBinding
	contributesTo    map[uint64]*captureBinding

	status Status
	dirty  dirtyBits

	// evaluating is true for the duration of this fibre's own node function
	// call. A contribution landing on a binding this fibre owns while
	// evaluating==true will be seen by this same evaluation's Collect, so
	// UseCapture must not additionally invalidate it for next tick.
	evaluating bool

	depth    int
	mountSeq uint64

	failed  bool
	lastErr error
}

// captureBinding is established by ProvideCapture on an aggregating
// ancestor fibre. Unlike childOrder, its contributions persist across
// ticks rather than being rebuilt from scratch on every aggregator
// re-evaluation: a contributor's body only runs (and calls UseCapture)
// on the ticks it is actually dirty, so the binding must remember every
// live contributor's last value in between (spec.md §4.4).
type captureBinding struct {
	owner  *Fibre
	order  []fibreID
	values map[fibreID]any
}

func newFibre(runtime *Runtime, parent *Fibre, key Key, keyPath KeyPath, id fibreID) *Fibre {
	depth := 0
	if parent != nil {
		depth = parent.depth + 1
	}
	return &Fibre{
		id:           id,
		key:          key,
		keyPath:      keyPath,
		parent:       parent,
		runtime:      runtime,
		children:     map[Key]*Fibre{},
		predecessors: mapset.NewThreadUnsafeSet[fibreID](),
		successors:   mapset.NewThreadUnsafeSet[fibreID](),
		status:       Uninitialized,
		depth:        depth,
	}
}

// KeyPath returns this fibre's stable identity relative to the root.
func (f *Fibre) KeyPath() KeyPath { return f.keyPath }

// Result returns the last committed result and whether one exists yet.
func (f *Fibre) Result() (any, bool) { return f.result, f.hasResult }

// Revision returns the monotonically increasing counter bumped only when
// the committed result changes under equality (spec.md §3, invariant 6).
func (f *Fibre) Revision() uint64 { return f.revision }

// DescriptorTypeID surfaces the descriptor's type identity, used by
// instrumentation and the visualization export.
func (f *Fibre) DescriptorTypeID() string {
	if f.descriptor == nil {
		return ""
	}
	return f.descriptor.TypeID()
}

// Status reports the fibre's current lifecycle state.
func (f *Fibre) Status() Status { return f.status }

// ChildOrder returns child keys in the order of first evaluation this tick
// (spec.md §3, "Child order is the order of first evaluation within a tick").
func (f *Fibre) ChildOrder() []Key {
	out := make([]Key, len(f.childOrder))
	copy(out, f.childOrder)
	return out
}

// Children returns the live children fibres in child order.
func (f *Fibre) Children() []*Fibre {
	out := make([]*Fibre, 0, len(f.childOrder))
	for _, k := range f.childOrder {
		if c, ok := f.children[k]; ok {
			out = append(out, c)
		}
	}
	return out
}

// Predecessors returns the key paths of fibres whose committed results
// this fibre read, for the read-only visualization export (spec.md §6).
func (f *Fibre) Predecessors() []KeyPath {
	ids := f.predecessors.ToSlice()
	out := make([]KeyPath, 0, len(ids))
	for _, id := range ids {
		if p := f.runtime.arena[id]; p != nil {
			out = append(out, p.keyPath)
		}
	}
	return out
}

func (f *Fibre) addPredecessor(pred *Fibre) {
	if pred == nil || pred == f {
		return
	}
	f.predecessors.Add(pred.id)
	pred.successors.Add(f.id)
	if f.predRevisions == nil {
		f.predRevisions = map[fibreID]uint64{}
	}
	f.predRevisions[pred.id] = pred.revision
}

func (f *Fibre) removeAllPredecessorEdges() {
	for _, id := range f.predecessors.ToSlice() {
		if pred := f.runtime.arena[id]; pred != nil {
			pred.successors.Remove(f.id)
		}
	}
	f.predecessors.Clear()
	f.predRevisions = nil
}

// predecessorsActuallyChanged resolves a PredecessorChanged mark against
// the revisions this fibre last observed: a predecessor can be marked
// check-pending by a sibling's evaluation and still commit the same result,
// in which case nothing here actually needs to re-run (spec.md §4.1's
// dirty-bit model, folded with reactively.go's CacheState check step).
func (f *Fibre) predecessorsActuallyChanged() bool {
	for _, id := range f.predecessors.ToSlice() {
		pred := f.runtime.arena[id]
		if pred == nil || f.predRevisions[id] != pred.revision {
			return true
		}
	}
	return false
}

// provideContext records the internal value-holder fibre (see
// ProvideContext) as the binding for a context id, for the duration of
// the current (and subsequent, until re-provided) evaluations of its
// subtree.
func (f *Fibre) provideContext(id uint64, holder *Fibre) {
	if f.providedContexts == nil {
		f.providedContexts = map[uint64]*Fibre{}
	}
	f.providedContexts[id] = holder
}

// findContextProvider walks ancestors (starting at this fibre, matching
// the pybt2 ContextProvider/use_context walk) for the nearest binding's
// value-holder fibre.
func (f *Fibre) findContextProvider(id uint64) (*Fibre, bool) {
	for cur := f; cur != nil; cur = cur.parent {
		if cur.providedContexts != nil {
			if holder, ok := cur.providedContexts[id]; ok {
				return holder, true
			}
		}
	}
	return nil, false
}

// beginCapture registers this fibre as the aggregator for a capture id,
// creating its binding on first use. It does not clear prior contributions:
// a contributor that isn't dirty this tick never re-runs its body, so its
// last contributed value must stay available for this tick's Collect.
func (f *Fibre) beginCapture(id uint64) *captureBinding {
	if f.captures == nil {
		f.captures = map[uint64]*captureBinding{}
	}
	b, ok := f.captures[id]
	if !ok {
		b = &captureBinding{owner: f, values: map[fibreID]any{}}
		f.captures[id] = b
	}
	return b
}

func (f *Fibre) findCaptureProvider(id uint64) (*Fibre, *captureBinding, bool) {
	for cur := f.parent; cur != nil; cur = cur.parent {
		if cur.captures != nil {
			if b, ok := cur.captures[id]; ok {
				return cur, b, true
			}
		}
	}
	return nil, nil, false
}

// dispose runs this fibre's own cleanups, removes its predecessor and
// successor edges, and unlinks it from its parent and the arena. Recursion
// into children (post-order, per spec.md §3 Lifecycle/Unmount) is the
// scheduler's responsibility (Runtime.unmountSubtree) so that each child's
// unmount is individually observable before its parent's.
func (f *Fibre) dispose() {
	if f.status == Disposed {
		return
	}
	for i := range f.hooks {
		slot := &f.hooks[i]
		switch slot.kind {
		case hookEffect:
			if slot.effect != nil && slot.effect.cleanup != nil {
				cleanup := slot.effect.cleanup
				slot.effect.cleanup = nil
				cleanup()
			}
		case hookResource:
			if slot.resource != nil && slot.resource.release != nil {
				release := slot.resource.release
				slot.resource.release = nil
				release()
			}
		}
	}
	f.removeAllPredecessorEdges()
	for _, sid := range f.successors.ToSlice() {
		if succ := f.runtime.arena[sid]; succ != nil {
			succ.predecessors.Remove(f.id)
		}
	}
	f.successors.Clear()
	for _, b := range f.contributesTo {
		if _, ok := b.values[f.id]; !ok {
			continue
		}
		delete(b.values, f.id)
		for i, id := range b.order {
			if id == f.id {
				b.order = append(b.order[:i], b.order[i+1:]...)
				break
			}
		}
		if b.owner != nil {
			f.runtime.invalidate(b.owner, dirtyCapture)
		}
	}
	f.contributesTo = nil
	if f.parent != nil {
		delete(f.parent.children, f.key)
	}
	delete(f.runtime.arena, f.id)
	f.status = Disposed
}
