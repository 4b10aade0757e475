package fibre

import (
	"fmt"
	"reflect"

	mapset "github.com/deckarep/golang-set/v2"
)

type pendingWrite struct {
	fibre     *Fibre
	slotIndex int
	updater   func(prev any) any
}

type pendingEffect struct {
	fibre     *Fibre
	slotIndex int
}

// TickStats summarizes one run_tick call, useful for benchmarking and
// instrumentation consumers that don't want to count events themselves.
// FibresEvaluated and EffectsRun are filled in by the tick; FibresUnmounted
// is never updated and is always zero.
type TickStats struct {
	FibresEvaluated int
	EffectsRun      int
	FibresUnmounted int
}

// Runtime owns the root fibre, the arena of all mounted fibres, and the
// tick-driven scheduler (spec.md §4.5). External callers interact with it
// through two entry points: an external setter (the Setter returned by
// UseState) that enqueues a state change, and RunTick.
type Runtime struct {
	arena  map[fibreID]*Fibre
	nextID fibreID

	root           *Fibre
	rootDescriptor Descriptor

	workSet mapset.Set[fibreID]

	pendingWrites  []pendingWrite
	pendingEffects []pendingEffect

	mountSeqCounter uint64

	ticking  bool
	disposed bool
	observer Observer
}

// NewRuntime constructs a runtime rooted at rootDescriptor and evaluates it
// once, mounting the whole initial tree. This is the concrete form of the
// abstract FibreRuntime(root_descriptor) constructor from spec.md §6.
func NewRuntime(rootDescriptor Descriptor) (*Runtime, error) {
	rt := &Runtime{
		arena:   map[fibreID]*Fibre{},
		workSet: mapset.NewThreadUnsafeSet[fibreID](),
	}
	rt.rootDescriptor = rootDescriptor
	rt.root = rt.mountFibre(nil, nil)
	if _, err := rt.RunTick(); err != nil {
		return nil, err
	}
	return rt, nil
}

// Root returns the root fibre, for read-only traversal (the visualization
// export in package viz).
func (rt *Runtime) Root() *Fibre { return rt.root }

// OnEvent attaches an instrumentation observer (spec.md §4.6). Passing nil
// detaches it.
func (rt *Runtime) OnEvent(observer Observer) { rt.observer = observer }

// SetRootDescriptor replaces the descriptor the root fibre evaluates on
// the next tick and enqueues it, the entry point a caller uses to drive
// the tree with fresh top-level props (the moral equivalent of a UI
// framework's render(newRootElement)). The props comparison that decides
// whether this actually invalidates anything still happens inside
// evaluateFibre, same as any other props change.
func (rt *Runtime) SetRootDescriptor(desc Descriptor) {
	rt.rootDescriptor = desc
	rt.invalidate(rt.root, dirtyProps)
}

func (rt *Runtime) mountFibre(parent *Fibre, key Key) *Fibre {
	rt.nextID++
	id := rt.nextID
	var kp KeyPath
	if parent == nil {
		kp = KeyPath{}
	} else {
		kp = parent.keyPath.child(key)
	}
	f := newFibre(rt, parent, key, kp, id)
	rt.mountSeqCounter++
	f.mountSeq = rt.mountSeqCounter
	rt.arena[id] = f
	return f
}

// invalidate sets a dirty bit and enrolls the fibre in the scheduler's
// work set (spec.md §4.1, Fibre.invalidate).
func (rt *Runtime) invalidate(f *Fibre, reason dirtyBits) {
	if f.status == Disposed {
		return
	}
	f.dirty |= reason
	rt.workSet.Add(f.id)
}

// RunTick drives one end-to-end propagation to a fixed point (spec.md
// §4.5). It rejects re-entrant invocation with ReentrantTick.
func (rt *Runtime) RunTick() (TickStats, error) {
	return rt.runTick(false)
}

// RunAnalysisTick drives one tick with every fibre forced into the work
// set and evaluated in analysis mode (spec.md §6): descriptors that
// implement AnalysisDescriptor get a chance to evaluate children a
// standard tick would have short-circuited, for visualization
// completeness. It still commits like any other tick — analysis mode is
// a per-tick flag on the call context, not a separate, read-only
// runtime (spec.md §9, "Analysis mode").
func (rt *Runtime) RunAnalysisTick() (TickStats, error) {
	for _, f := range rt.arena {
		rt.invalidate(f, dirtyProps)
	}
	return rt.runTick(true)
}

func (rt *Runtime) runTick(analysis bool) (TickStats, error) {
	if rt.disposed {
		return TickStats{}, newError(DisposedAccess, nil, "runtime is disposed")
	}
	if rt.ticking {
		return TickStats{}, newError(ReentrantTick, nil, "run_tick invoked while a tick is already running")
	}
	rt.ticking = true
	defer func() { rt.ticking = false }()

	stats := TickStats{}

	rt.applyPendingWrites()

	if rt.root.status == Uninitialized {
		rt.workSet.Add(rt.root.id)
	}

	for rt.workSet.Cardinality() > 0 {
		f := rt.popNextFibre()
		if f == nil {
			break
		}
		desc := f.descriptor
		if f == rt.root {
			desc = rt.rootDescriptor
		}
		if _, err := rt.evaluateFibre(f, desc, analysis); err != nil {
			return stats, err
		}
		stats.FibresEvaluated++
	}

	rt.runEffects(&stats)
	return stats, nil
}

// popNextFibre selects the next fibre in topological order with respect
// to the tree: shallowest first, then pre-order among siblings. Mount
// order already encodes pre-order traversal, since a fibre is always
// mounted strictly after its parent and strictly before any fibre mounted
// during a later sibling's evaluation.
func (rt *Runtime) popNextFibre() *Fibre {
	var best *Fibre
	for _, id := range rt.workSet.ToSlice() {
		f := rt.arena[id]
		if f == nil {
			rt.workSet.Remove(id)
			continue
		}
		if best == nil || f.depth < best.depth || (f.depth == best.depth && f.mountSeq < best.mountSeq) {
			best = f
		}
	}
	if best != nil {
		rt.workSet.Remove(best.id)
	}
	return best
}

func (rt *Runtime) applyPendingWrites() {
	writes := rt.pendingWrites
	rt.pendingWrites = nil
	for _, w := range writes {
		if w.fibre.status == Disposed || w.slotIndex >= len(w.fibre.hooks) {
			continue
		}
		slot := &w.fibre.hooks[w.slotIndex]
		if slot.kind != hookState || slot.state == nil {
			continue
		}
		next := w.updater(slot.state.value)
		if reflect.DeepEqual(next, slot.state.value) {
			continue
		}
		slot.state.value = next
		rt.invalidate(w.fibre, dirtyState)
	}
}

func (rt *Runtime) runEffects(stats *TickStats) {
	effects := rt.pendingEffects
	rt.pendingEffects = nil
	for _, pe := range effects {
		if pe.fibre.status == Disposed || pe.slotIndex >= len(pe.fibre.hooks) {
			continue
		}
		slot := &pe.fibre.hooks[pe.slotIndex]
		if slot.kind != hookEffect || slot.effect == nil {
			continue
		}
		if slot.effect.cleanup != nil {
			cleanup := slot.effect.cleanup
			slot.effect.cleanup = nil
			cleanup()
		}
		if slot.effect.body != nil {
			slot.effect.cleanup = slot.effect.body()
		}
		stats.EffectsRun++
	}
}

// evaluateFibre is the central evaluation protocol of spec.md §4.1.
func (rt *Runtime) evaluateFibre(f *Fibre, desc Descriptor, analysis bool) (any, error) {
	if f.status == Disposed {
		return nil, newError(DisposedAccess, f.keyPath, "cannot evaluate a disposed fibre")
	}

	propsChanged := f.status == Uninitialized || f.descriptor == nil || !f.descriptor.Equal(desc)
	f.descriptor = desc
	if propsChanged {
		f.dirty |= dirtyProps
	}

	if f.status == Active && !f.dirty.any() {
		return f.result, nil
	}

	// Check-then-dirty: a bare PredecessorChanged mark means a predecessor
	// was re-evaluated, not that its committed result actually moved. This
	// never fires for dirtyCapture alone (f.dirty != dirtyPredecessor in
	// that case): a capture contribution can change without the
	// contributor's own result changing, so there is no revision to check
	// against and re-evaluation always proceeds.
	if f.status == Active && f.dirty == dirtyPredecessor && !f.predecessorsActuallyChanged() {
		f.dirty = 0
		return f.result, nil
	}

	previousChildKeys := make(map[Key]struct{}, len(f.childOrder))
	for _, k := range f.childOrder {
		previousChildKeys[k] = struct{}{}
	}

	// Snapshot what's about to be torn down so a structural/node error can
	// restore it: spec.md §7 requires an aborted tick to leave the tree in
	// its pre-tick committed state, but child order and predecessor edges
	// are rebuilt live as the node function runs, so they must be rolled
	// back explicitly rather than simply left unwritten.
	savedChildOrder := f.childOrder
	savedPredecessors := make([]*Fibre, 0, f.predecessors.Cardinality())
	for _, id := range f.predecessors.ToSlice() {
		if pred := rt.arena[id]; pred != nil {
			savedPredecessors = append(savedPredecessors, pred)
		}
	}
	previousHookCount := len(f.hooks)

	f.childOrder = nil
	f.hookCursor = 0
	f.removeAllPredecessorEdges()

	cc := newCallContext(rt, f, analysis)
	f.evaluating = true
	result, err := runDescriptor(desc, cc)
	f.evaluating = false
	if err != nil {
		f.childOrder = savedChildOrder
		for _, pred := range savedPredecessors {
			f.addPredecessor(pred)
		}
		if len(f.hooks) > previousHookCount {
			f.hooks = f.hooks[:previousHookCount]
		}
		wrapped := nodeFailureIfNeeded(f.keyPath, err)
		if wrapped.Kind == NodeFailure {
			f.failed = true
			f.lastErr = wrapped
		}
		return nil, wrapped
	}

	if hookErr := f.checkHookCountStable(previousHookCount, f.everRun); hookErr != nil {
		f.childOrder = savedChildOrder
		for _, pred := range savedPredecessors {
			f.addPredecessor(pred)
		}
		if len(f.hooks) > previousHookCount {
			f.hooks = f.hooks[:previousHookCount]
		}
		return nil, hookErr
	}
	f.everRun = true
	f.failed = false
	f.lastErr = nil

	changed := !f.hasResult || !reflect.DeepEqual(f.result, result)
	f.result = result
	f.hasResult = true
	if changed {
		f.revision++
	}

	wasMounting := f.status == Uninitialized
	f.status = Active
	f.dirty = 0

	rt.pendingEffects = append(rt.pendingEffects, cc.pendingEffects...)

	touched := make(map[Key]struct{}, len(f.childOrder))
	for _, k := range f.childOrder {
		touched[k] = struct{}{}
	}
	for k := range previousChildKeys {
		if _, ok := touched[k]; !ok {
			if child, ok := f.children[k]; ok {
				rt.unmountSubtree(child)
			}
		}
	}

	if changed {
		for _, sid := range f.successors.ToSlice() {
			if succ := rt.arena[sid]; succ != nil {
				rt.invalidate(succ, dirtyPredecessor)
			}
		}
	}

	if wasMounting {
		rt.notify(EventMount, f)
	}
	if changed {
		rt.notify(EventCommit, f)
	}

	return f.result, nil
}

func runDescriptor(desc Descriptor, cc *CallContext) (result any, err error) {
	defer func() {
		if r := recover(); r != nil {
			if e, ok := r.(error); ok {
				err = e
			} else {
				err = fmt.Errorf("%v", r)
			}
		}
	}()
	if cc.analysis {
		if ad, ok := desc.(AnalysisDescriptor); ok {
			return ad.EvaluateAnalysis(cc)
		}
	}
	return desc.Evaluate(cc)
}

func nodeFailureIfNeeded(path KeyPath, err error) *Error {
	if fe, ok := err.(*Error); ok {
		return fe
	}
	return nodeFailure(path, err)
}

// unmountSubtree disposes f and its descendants, post-order, notifying the
// observer for each as it goes (spec.md §3, Lifecycle/Unmount).
func (rt *Runtime) unmountSubtree(f *Fibre) {
	for _, k := range f.childOrder {
		if c, ok := f.children[k]; ok {
			rt.unmountSubtree(c)
		}
	}
	f.dispose()
	rt.workSet.Remove(f.id)
	rt.notify(EventUnmount, f)
}

// Dispose tears down the entire tree: effect cleanups run and resources
// release in post-order, same as a normal unmount.
func (rt *Runtime) Dispose() {
	if rt.disposed {
		return
	}
	rt.unmountSubtree(rt.root)
	rt.disposed = true
}
